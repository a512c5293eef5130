// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package refineui presents refinement sessions in the terminal.
//
// [Model] is a bubbletea program: the presented ticket fills a
// scrollable viewport, the outcome of the last utterance sits beneath
// it, and a command line takes the next utterance. Fields the tracker
// reports as changed are tinted for a few seconds after each turn.
// [RunPlain] drives the same session line by line for pipes and dumb
// terminals.
//
// Both talk to the session through [Driver], which
// *session.Controller implements, and draw with the same renderers:
// [RenderPresentation], [RenderTurn] and [RenderReport]. Descriptions
// go through [RenderMarkdown], which marks each acceptance criterion
// by whether it reads as an observable outcome.
//
// [StatusLogHandler] routes log records to the screen's status line
// while the alternate screen is active.
package refineui
