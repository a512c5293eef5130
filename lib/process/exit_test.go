// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"testing"
)

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     int
		quiet    bool
		wantCode int
		wantText string
	}{
		{"success", nil, 3, false, 0, ""},
		{"failure", errors.New("tracker unreachable"), 6, false, 6, "error: tracker unreachable\n"},
		{"already reported", errors.New("not ready"), 7, true, 7, ""},
		{"error without a code", errors.New("boom"), 0, false, 1, "error: boom\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if code := report(&stderr, test.err, test.code, test.quiet); code != test.wantCode {
				t.Errorf("code = %d, want %d", code, test.wantCode)
			}
			if stderr.String() != test.wantText {
				t.Errorf("stderr = %q, want %q", stderr.String(), test.wantText)
			}
		})
	}
}
