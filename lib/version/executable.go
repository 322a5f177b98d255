// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// ExecutableDigest returns the hex SHA-256 of the running binary and
// its path. On Linux os.Executable reads /proc/self/exe, so the digest
// is of the binary that started even if it has been replaced on disk.
func ExecutableDigest() (digest string, path string, err error) {
	path, err = os.Executable()
	if err != nil {
		return "", "", fmt.Errorf("resolving own executable path: %w", err)
	}
	digest, err = FileDigest(path)
	if err != nil {
		return "", "", err
	}
	return digest, path, nil
}

// FileDigest returns the hex SHA-256 of the file at path, streamed in
// constant memory.
func FileDigest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
