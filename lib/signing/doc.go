// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

// Package signing signs and verifies canonical record and block bytes
// with Ed25519.
//
// A [KeyPair] keeps its private key in a [secret.Buffer]; only the
// public half lives on the Go heap. Every key is identified by its
// did:key string (multicodec ed25519-pub 0xed01, base58btc), which is
// stable across processes and languages:
//
//	did:key:z6Mk...
//
// Keys are never created as a side effect of signing. They come from
// [GenerateKeyPair] (the CLI's "keys generate"), [DeriveKeyPair], or a
// key file read by [LoadKeyFile], which accepts three formats:
//
//   - a hex-encoded 32-byte seed,
//   - an unencrypted or passphrase-protected OpenSSH ed25519 private
//     key,
//   - a seed sealed with an age scrypt passphrase, binary or armored,
//     as written by [SealKeyFile].
//
// # Capability
//
// Whether signing is usable is decided once per process by [Detect]: a
// known-answer self test (RFC 8032 section 7.1, test 1) combined with
// the configuration switch. A log whose capability is not Available
// runs unsigned and stays verifiable by hash and Merkle proof. Loading
// a key through an unavailable [Capability] returns
// [ErrCryptoUnavailable].
//
// [Verify] never returns an error: malformed keys or signatures simply
// do not verify.
package signing
