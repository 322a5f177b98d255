// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/multiformats/go-multibase"
	"golang.org/x/crypto/hkdf"

	"github.com/GlobalSushrut/connector-oss/lib/secret"
)

// ErrInvalidKeyMaterial covers malformed seeds, key files, public keys,
// and key identifiers.
var ErrInvalidKeyMaterial = errors.New("invalid key material")

// didKeyPrefix is the did:key method prefix.
const didKeyPrefix = "did:key:"

// ed25519Multicodec is the varint multicodec code for ed25519-pub.
var ed25519Multicodec = []byte{0xed, 0x01}

// deriveSalt separates DeriveKeyPair output from any other HKDF use of
// the same master secret.
var deriveSalt = []byte("vac.signing.derive.v1")

// KeyPair is an Ed25519 signing key. The private half lives in locked
// memory; call Close to zero it.
type KeyPair struct {
	private *secret.Buffer
	public  ed25519.PublicKey
	id      string
}

// GenerateKeyPair creates a key from the system random source.
func GenerateKeyPair() (*KeyPair, error) {
	seed, err := secret.New(ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	defer seed.Close()
	if _, err := io.ReadFull(rand.Reader, seed.Bytes()); err != nil {
		return nil, fmt.Errorf("generating ed25519 seed: %w", err)
	}
	return KeyPairFromSeed(seed.Bytes())
}

// KeyPairFromSeed builds a key from a 32-byte seed. The seed is not
// retained or modified.
func KeyPairFromSeed(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed is %d bytes, want %d", ErrInvalidKeyMaterial, len(seed), ed25519.SeedSize)
	}
	private := ed25519.NewKeyFromSeed(seed)
	public := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(public, private[ed25519.SeedSize:])

	// NewFromBytes zeroes the heap copy.
	buffer, err := secret.NewFromBytes(private)
	if err != nil {
		secret.Zero(private)
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	return &KeyPair{private: buffer, public: public, id: KeyID(public)}, nil
}

// DeriveKeyPair derives a key deterministically from master and label
// with HKDF-SHA256. Distinct labels give unrelated keys. The master
// secret must be at least 32 bytes.
func DeriveKeyPair(master []byte, label string) (*KeyPair, error) {
	if len(master) < 32 {
		return nil, fmt.Errorf("%w: master secret is %d bytes, want at least 32", ErrInvalidKeyMaterial, len(master))
	}
	if label == "" {
		return nil, fmt.Errorf("%w: derivation label is empty", ErrInvalidKeyMaterial)
	}
	seed, err := secret.New(ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	defer seed.Close()
	reader := hkdf.New(sha256.New, master, deriveSalt, []byte(label))
	if _, err := io.ReadFull(reader, seed.Bytes()); err != nil {
		return nil, fmt.Errorf("deriving ed25519 seed: %w", err)
	}
	return KeyPairFromSeed(seed.Bytes())
}

// Public returns the public key.
func (k *KeyPair) Public() ed25519.PublicKey { return k.public }

// ID returns the did:key identifier of the public key.
func (k *KeyPair) ID() string { return k.id }

// Locked reports whether the private key is pinned in RAM.
func (k *KeyPair) Locked() bool { return k.private.Locked() }

// Close zeroes the private key. The KeyPair cannot sign afterwards.
func (k *KeyPair) Close() error {
	if k == nil || k.private == nil {
		return nil
	}
	return k.private.Close()
}

// seed returns the private seed, aliasing locked memory.
func (k *KeyPair) seed() []byte {
	return k.private.Bytes()[:ed25519.SeedSize]
}

// KeyID returns the did:key identifier of an Ed25519 public key.
func KeyID(public ed25519.PublicKey) string {
	data := make([]byte, 0, len(ed25519Multicodec)+len(public))
	data = append(data, ed25519Multicodec...)
	data = append(data, public...)
	encoded, err := multibase.Encode(multibase.Base58BTC, data)
	if err != nil {
		// Base58BTC is a built-in encoding.
		panic(fmt.Sprintf("signing: base58btc encoding: %v", err))
	}
	return didKeyPrefix + encoded
}

// ParsePublicKey accepts a did:key identifier or 64 hex characters.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, didKeyPrefix); ok {
		encoding, data, err := multibase.Decode(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: did:key: %v", ErrInvalidKeyMaterial, err)
		}
		if encoding != multibase.Base58BTC {
			return nil, fmt.Errorf("%w: did:key must use base58btc", ErrInvalidKeyMaterial)
		}
		if len(data) != len(ed25519Multicodec)+ed25519.PublicKeySize ||
			data[0] != ed25519Multicodec[0] || data[1] != ed25519Multicodec[1] {
			return nil, fmt.Errorf("%w: did:key is not an ed25519 public key", ErrInvalidKeyMaterial)
		}
		return ed25519.PublicKey(data[len(ed25519Multicodec):]), nil
	}

	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrInvalidKeyMaterial, err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes, want %d", ErrInvalidKeyMaterial, len(decoded), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}
