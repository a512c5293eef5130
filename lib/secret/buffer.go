// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrEmpty is returned when the secret source holds nothing but
// whitespace.
var ErrEmpty = errors.New("secret: value is empty")

// Buffer is an off-heap, zero-on-close container for a credential.
// A Buffer must not be copied. Reading after Close panics.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	locked bool
	closed bool
}

// NewFromBytes copies source (with surrounding whitespace trimmed) into
// protected memory and zeroes source in place.
func NewFromBytes(source []byte) (*Buffer, error) {
	trimmed := bytes.TrimSpace(source)
	if len(trimmed) == 0 {
		zero(source)
		return nil, ErrEmpty
	}

	data, err := unix.Mmap(-1, 0, len(trimmed), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		zero(source)
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	copy(data, trimmed)
	zero(source)

	buffer := &Buffer{data: data}
	if unix.Mlock(data) == nil {
		buffer.locked = true
	}
	// Core dump exclusion is advisory; older kernels reject it.
	_ = unix.Madvise(data, unix.MADV_DONTDUMP)
	return buffer, nil
}

// NewFromString copies value into protected memory. The string itself
// stays on the heap (strings are immutable), so prefer NewFromBytes
// when the caller owns a mutable copy.
func NewFromString(value string) (*Buffer, error) {
	return NewFromBytes([]byte(value))
}

// ReadFile reads a secret from path. Surrounding whitespace (usually a
// trailing newline from `echo token > file`) is dropped.
func ReadFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: reading %s: %w", path, err)
	}
	buffer, err := NewFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return buffer, nil
}

// Bytes returns the secret. The slice aliases the protected region and
// is invalid after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data
}

// String returns a heap copy of the secret for APIs that need a string.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Locked reports whether the kernel accepted the mlock request.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Close zeroes and releases the region. Close is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	zero(b.data)

	var firstError error
	if b.locked {
		if err := unix.Munlock(b.data); err != nil {
			firstError = fmt.Errorf("secret: munlock: %w", err)
		}
	}
	if err := unix.Munmap(b.data); err != nil && firstError == nil {
		firstError = fmt.Errorf("secret: munmap: %w", err)
	}
	b.data = nil
	return firstError
}

func zero(data []byte) {
	for index := range data {
		data[index] = 0
	}
}
