// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// Fatal writes "error: err" to stderr and exits with code 1.
func Fatal(err error) {
	Exit(err, 1, false)
}

// Exit ends the process with code. A nil err exits 0 whatever code
// says. Unless quiet, a non-nil err is written to stderr first; quiet
// is for errors the command already explained in its own output.
func Exit(err error, code int, quiet bool) {
	os.Exit(report(os.Stderr, err, code, quiet))
}

func report(w io.Writer, err error, code int, quiet bool) int {
	if err == nil {
		return 0
	}
	if !quiet {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	if code == 0 {
		return 1
	}
	return code
}
