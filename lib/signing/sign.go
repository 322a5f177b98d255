// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// Signature is an Ed25519 signature together with the did:key of the
// key that made it.
type Signature struct {
	Value []byte
	KeyID string
}

// Hex returns the lowercase hex form of the signature value.
func (s Signature) Hex() string { return hex.EncodeToString(s.Value) }

// IsZero reports whether s carries no signature.
func (s Signature) IsZero() bool { return len(s.Value) == 0 && s.KeyID == "" }

// ParseSignature builds a Signature from its hex value and key ID.
func ParseSignature(valueHex, keyID string) (Signature, error) {
	value, err := hex.DecodeString(valueHex)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: signature: %v", ErrInvalidKeyMaterial, err)
	}
	if len(value) != ed25519.SignatureSize {
		return Signature{}, fmt.Errorf("%w: signature is %d bytes, want %d", ErrInvalidKeyMaterial, len(value), ed25519.SignatureSize)
	}
	return Signature{Value: value, KeyID: keyID}, nil
}

// Sign signs canonical bytes.
func Sign(canonical []byte, key *KeyPair) (Signature, error) {
	if err := SelfTest(); err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	if key == nil || key.private == nil || key.private.Len() != ed25519.PrivateKeySize {
		return Signature{}, fmt.Errorf("%w: signing key is missing or closed", ErrInvalidKeyMaterial)
	}
	value := ed25519.Sign(ed25519.PrivateKey(key.private.Bytes()), canonical)
	return Signature{Value: value, KeyID: key.id}, nil
}

// Verify reports whether signature is valid for canonical under
// public. Wrong-length keys or signatures return false.
func Verify(canonical []byte, signature Signature, public ed25519.PublicKey) bool {
	if len(public) != ed25519.PublicKeySize || len(signature.Value) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(public, canonical, signature.Value)
}

// VerifySelf verifies a signature against the public key encoded in
// its own did:key. It proves only that the bytes were signed by the
// holder of that key; trust in the key is the caller's decision.
func VerifySelf(canonical []byte, signature Signature) bool {
	public, err := ParsePublicKey(signature.KeyID)
	if err != nil {
		return false
	}
	return Verify(canonical, signature, public)
}

// Keyring maps key IDs to trusted public keys.
type Keyring map[string]ed25519.PublicKey

// NewKeyring parses trusted keys given as key ID to public key text
// (hex or did:key). A did:key ID must name the key it maps to.
func NewKeyring(entries map[string]string) (Keyring, error) {
	keyring := make(Keyring, len(entries))
	for id, text := range entries {
		public, err := ParsePublicKey(text)
		if err != nil {
			return nil, fmt.Errorf("trusted key %q: %w", id, err)
		}
		if strings.HasPrefix(id, didKeyPrefix) && KeyID(public) != id {
			return nil, fmt.Errorf("%w: trusted key %q maps to a different did:key", ErrInvalidKeyMaterial, id)
		}
		keyring[id] = public
	}
	return keyring, nil
}

// Add registers a public key under its did:key and returns the ID.
func (k Keyring) Add(public ed25519.PublicKey) string {
	id := KeyID(public)
	k[id] = public
	return id
}

// Lookup returns the public key registered for id.
func (k Keyring) Lookup(id string) (ed25519.PublicKey, bool) {
	public, ok := k[id]
	return public, ok
}

// Verify checks signature against the key registered for its KeyID.
// Unknown keys do not verify.
func (k Keyring) Verify(canonical []byte, signature Signature) bool {
	public, ok := k[signature.KeyID]
	if !ok {
		return false
	}
	return Verify(canonical, signature, public)
}
