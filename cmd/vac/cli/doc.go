// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework of the vac binary.
//
// A [Command] is a node in a tree: either a group dispatching to
// Subcommands by the first positional argument, or a leaf with a Run
// function. Flags are declared as tagged struct fields and bound with
// [FlagsFromParams]; see [BindFlags] for the tag syntax. Unknown
// commands and flags get a "did you mean" suggestion by edit distance.
//
// Output conventions: results go to stdout, as indented JSON when the
// command embeds [JSONOutput] and --json is given; diagnostics go to
// stderr through the logger from [NewCommandLogger]. A command that
// has already reported a failure returns an [ExitError] so main exits
// non-zero without printing again.
package cli
