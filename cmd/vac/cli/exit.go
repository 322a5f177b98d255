// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "strconv"

// ExitError ends a command with Code after the command has printed its
// own verdict. Failed verification, an invalid proof, and an empty
// "latest" are outcomes, not faults, so no "error:" line follows.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return "exit status " + strconv.Itoa(e.Code) }

// ExitCode satisfies process.ExitCoder.
func (e *ExitError) ExitCode() int { return e.Code }
