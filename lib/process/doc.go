// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the refine
// binaries: reporting the error main() ends with, and exiting with the
// right code. They are the only place outside CLI output code that
// writes to stderr directly, since they run before a logger exists or
// after it is gone.
package process
