// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// ErrCryptoUnavailable means signing cannot be used in this process.
// It is recovered from by running unsigned, never by retrying.
var ErrCryptoUnavailable = errors.New("signing capability unavailable")

// State is the outcome of the capability check.
type State int

const (
	// Available: the self test passed and signing is enabled.
	Available State = iota

	// Disabled: signing was switched off by configuration.
	Disabled

	// Unavailable: the self test failed.
	Unavailable
)

func (s State) String() string {
	switch s {
	case Available:
		return "available"
	case Disabled:
		return "disabled"
	case Unavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Capability records whether signing may be used, and why not.
type Capability struct {
	State  State
	Reason string
}

// Available reports whether keys may be loaded and used.
func (c Capability) Available() bool { return c.State == Available }

// Err returns nil when available, otherwise ErrCryptoUnavailable with
// the reason.
func (c Capability) Err() error {
	if c.State == Available {
		return nil
	}
	return fmt.Errorf("%w: %s (%s)", ErrCryptoUnavailable, c.State, c.Reason)
}

// LoadKeyFile is the package-level LoadKeyFile gated on the capability.
func (c Capability) LoadKeyFile(path string, passphrase []byte) (*KeyPair, error) {
	if err := c.Err(); err != nil {
		return nil, err
	}
	return LoadKeyFile(path, passphrase)
}

// Detect combines the process-wide self test with the configuration
// switch.
func Detect(enabled bool) Capability {
	if err := SelfTest(); err != nil {
		return Capability{State: Unavailable, Reason: err.Error()}
	}
	if !enabled {
		return Capability{State: Disabled, Reason: "signing disabled by configuration"}
	}
	return Capability{State: Available, Reason: "ed25519 self test passed"}
}

// RFC 8032 section 7.1, TEST 1 (empty message).
const (
	vectorSeed      = "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	vectorPublic    = "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a"
	vectorSignature = "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b"
)

var selfTest = sync.OnceValue(func() error {
	seed, _ := hex.DecodeString(vectorSeed)
	public, _ := hex.DecodeString(vectorPublic)
	expected, _ := hex.DecodeString(vectorSignature)

	private := ed25519.NewKeyFromSeed(seed)
	if !bytes.Equal(private.Public().(ed25519.PublicKey), public) {
		return errors.New("ed25519 self test: derived public key mismatch")
	}
	signature := ed25519.Sign(private, nil)
	if !bytes.Equal(signature, expected) {
		return errors.New("ed25519 self test: signature mismatch")
	}
	if !ed25519.Verify(public, nil, signature) {
		return errors.New("ed25519 self test: verification failed")
	}
	signature[0] ^= 0x01
	if ed25519.Verify(public, nil, signature) {
		return errors.New("ed25519 self test: corrupted signature verified")
	}
	return nil
})

// SelfTest runs the Ed25519 known-answer test once per process and
// returns its cached result.
func SelfTest() error { return selfTest() }
