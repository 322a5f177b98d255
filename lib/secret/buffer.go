// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Buffer holds key material in an anonymous mapping outside the Go
// heap: never swapped when the memlock limit allows, never written to a
// core dump, zeroed on Close. A Buffer must not be copied. Bytes on a
// closed Buffer panics.
type Buffer struct {
	mu     sync.Mutex
	region []byte // nil once closed
	pinned bool
}

// New maps size zeroed bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size %d is not positive", size)
	}
	region, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mapping %d bytes: %w", size, err)
	}
	if err := unix.Madvise(region, unix.MADV_DONTDUMP); err != nil {
		_ = unix.Munmap(region)
		return nil, fmt.Errorf("secret: excluding buffer from core dumps: %w", err)
	}
	// Mlock fails with EPERM or ENOMEM once RLIMIT_MEMLOCK is spent;
	// the buffer still works, only unpinned.
	return &Buffer{region: region, pinned: unix.Mlock(region) == nil}, nil
}

// NewFromBytes moves source into a new Buffer. source is zeroed whether
// or not the call succeeds.
func NewFromBytes(source []byte) (*Buffer, error) {
	defer Zero(source)
	if len(source) == 0 {
		return nil, errors.New("secret: empty source")
	}
	b, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(b.region, source)
	return b, nil
}

// Bytes aliases the mapping. The slice must not outlive Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.region == nil {
		panic("secret: use of closed buffer")
	}
	return b.region
}

// Len is the size in bytes; 0 once closed.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.region)
}

// Locked reports whether the mapping is pinned in RAM.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.region != nil && b.pinned
}

// Equal reports in constant time whether the contents equal other.
func (b *Buffer) Equal(other []byte) bool {
	return subtle.ConstantTimeCompare(b.Bytes(), other) == 1
}

// Close zeroes and unmaps the buffer. Later calls do nothing.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	region := b.region
	if region == nil {
		return nil
	}
	b.region = nil
	Zero(region)

	var errs []error
	if b.pinned {
		if err := unix.Munlock(region); err != nil {
			errs = append(errs, fmt.Errorf("secret: munlock: %w", err))
		}
	}
	if err := unix.Munmap(region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap: %w", err))
	}
	return errors.Join(errs...)
}

// Zero clears data in place.
func Zero(data []byte) { clear(data) }
