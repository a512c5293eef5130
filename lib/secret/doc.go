// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds the tracker API token outside the Go heap.
//
// The token is read once at startup (from JIRA_API_TOKEN or a token
// file) and lives for the whole process. [Buffer] copies it into an
// anonymous mmap region that the garbage collector never sees, asks the
// kernel to keep it out of swap (mlock) and core dumps
// (MADV_DONTDUMP), and zeroes it on Close.
//
// mlock is best effort: unprivileged processes with a small
// RLIMIT_MEMLOCK still get an off-heap, zero-on-close buffer, and
// [Buffer.Locked] reports whether the lock was granted.
package secret
