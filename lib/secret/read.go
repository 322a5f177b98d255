// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// ErrEmpty means a secret file holds nothing but whitespace.
var ErrEmpty = errors.New("secret: file is empty")

// ReadFile moves the contents of path into a Buffer and zeroes the heap
// copy. The bytes are kept as read, since binary formats may end in
// whitespace; a file of only whitespace matches ErrEmpty.
func ReadFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		Zero(data)
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return NewFromBytes(data)
}
