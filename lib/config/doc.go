// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for an
// attestation log.
//
// Configuration is loaded from a single file specified by either the
// VAC_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches. Production defaults are stricter:
// signing is enabled, and [Config.Validate] refuses the in-memory
// store and unsigned logs.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${VAC_ROOT}, and ${VAR:-default} patterns are expanded.
// The only other environment variable consulted is the one named by
// signing.passphrase_env.
//
// Key exports:
//
//   - [Config] -- master struct with Log, Storage, Signing, TrustedKeys
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other packages in this module. Enum
// values are kept as strings here and parsed by the packages that own
// them.
package config
