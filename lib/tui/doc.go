// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the terminal presentation pieces shared by the
// refinement session UI and the CLI's styled output: the color theme,
// the viewport scrollbar, and change highlighting for fields the
// tracker just reported as modified.
//
// Nothing here knows about sessions or the tracker client. Callers own
// their layout and pass a [Theme] and a lipgloss renderer in.
package tui
