// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewFromBytes_TrimsAndZeroesSource(t *testing.T) {
	source := []byte("  api-token-123\n")

	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "api-token-123" {
		t.Errorf("String() = %q, want %q", got, "api-token-123")
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source[%d] = %d, want zeroed", index, value)
		}
	}
}

func TestNewFromBytes_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := NewFromBytes([]byte(input))
		if !errors.Is(err, ErrEmpty) {
			t.Errorf("NewFromBytes(%q) error = %v, want ErrEmpty", input, err)
		}
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("from-file\n"), 0o600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}

	buffer, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "from-file" {
		t.Errorf("String() = %q, want %q", got, "from-file")
	}
}

func TestReadFile_Missing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestClose_IdempotentAndPanicsAfter(t *testing.T) {
	buffer, err := NewFromString("short-lived")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("expected panic reading a closed buffer")
		}
	}()
	_ = buffer.Bytes()
}
