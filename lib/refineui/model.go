// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/refine/lib/clock"
	"github.com/bureau-foundation/refine/lib/session"
	"github.com/bureau-foundation/refine/lib/ticket"
	"github.com/bureau-foundation/refine/lib/tui"
)

// Driver runs the session on behalf of the screen. *session.Controller
// implements it.
type Driver interface {
	Present(ctx context.Context, s *session.Session) (*session.Presentation, error)
	Handle(ctx context.Context, s *session.Session, utterance string) (*session.Turn, error)
	End(s *session.Session) session.Report
}

// presentedMsg delivers the result of Driver.Present.
type presentedMsg struct {
	presentation *session.Presentation
	err          error
}

// turnMsg delivers the result of Driver.Handle.
type turnMsg struct {
	turn *session.Turn
	err  error
}

// highlightTickMsg redraws while changed fields are still tinted.
type highlightTickMsg struct{}

const highlightTickInterval = 500 * time.Millisecond

// turnPanelMaxLines caps the result panel under the ticket.
const turnPanelMaxLines = 10

// historyLimit caps the remembered utterances.
const historyLimit = 100

// ModelConfig holds the optional settings of [NewModel].
type ModelConfig struct {
	// Styles defaults to the default theme on the default renderer.
	Styles *Styles

	// Keys defaults to DefaultKeyMap.
	Keys *KeyMap

	// Clock times the change highlights. Defaults to the real clock.
	Clock clock.Clock
}

// Model is the bubbletea model of an interactive refinement session.
// Remote calls run as commands off the update loop; while one is in
// flight the command line is locked, so the session is only ever used
// by one goroutine at a time.
type Model struct {
	ctx     context.Context
	driver  Driver
	session *session.Session

	styles Styles
	keys   KeyMap
	clock  clock.Clock

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	presentation *session.Presentation
	presentErr   error
	turn         *session.Turn
	turnErr      error
	highlights   *tui.Highlights

	history      []string
	historyIndex int

	// busy is true while a Present or Handle call is in flight.
	busy bool

	// quitRequested defers ending the session until the in-flight call
	// returns.
	quitRequested bool

	notice      string
	noticeLevel slog.Level

	report *session.Report

	// fatal is the error that ended the session, if one did.
	fatal error

	width, height int
	ready         bool
}

// NewModel builds the screen for s. Run it with tea.NewProgram; the
// program exits once the session has ended, and Report returns the
// summary.
func NewModel(ctx context.Context, driver Driver, s *session.Session, cfg ModelConfig) Model {
	styles := NewStyles(tui.DefaultTheme, lipgloss.DefaultRenderer())
	if cfg.Styles != nil {
		styles = *cfg.Styles
	}
	keys := DefaultKeyMap
	if cfg.Keys != nil {
		keys = *cfg.Keys
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}

	input := textinput.New()
	input.Prompt = "› "
	input.Placeholder = `say "ready", "set priority to High", "next"…`
	input.CharLimit = 2000
	input.Focus()

	busy := spinner.New()
	busy.Spinner = spinner.Points
	busy.Style = styles.Warning

	return Model{
		ctx:        ctx,
		driver:     driver,
		session:    s,
		styles:     styles,
		keys:       keys,
		clock:      cfg.Clock,
		input:      input,
		viewport:   viewport.New(0, 0),
		spinner:    busy,
		highlights: tui.NewHighlights(),
		busy:       true,
	}
}

// Report returns the session summary once the session has ended, or
// nil while it is still running.
func (model Model) Report() *session.Report {
	return model.report
}

// Err returns the tracker error that ended the session, such as
// rejected credentials. Nil when the user ended it or the queue ran out.
func (model Model) Err() error {
	return model.fatal
}

// Init implements tea.Model. It loads the first ticket.
func (model Model) Init() tea.Cmd {
	if model.session.State() == session.Ended {
		return model.finishCmd()
	}
	return tea.Batch(model.present(), model.spinner.Tick, textinput.Blink)
}

func (model Model) present() tea.Cmd {
	ctx, driver, s := model.ctx, model.driver, model.session
	return func() tea.Msg {
		presentation, err := driver.Present(ctx, s)
		return presentedMsg{presentation: presentation, err: err}
	}
}

func (model Model) handle(utterance string) tea.Cmd {
	ctx, driver, s := model.ctx, model.driver, model.session
	return func() tea.Msg {
		turn, err := driver.Handle(ctx, s, utterance)
		return turnMsg{turn: turn, err: err}
	}
}

// finishedMsg carries the final report into the model.
type finishedMsg struct {
	report session.Report
}

func (model Model) finishCmd() tea.Cmd {
	driver, s := model.driver, model.session
	return func() tea.Msg {
		return finishedMsg{report: driver.End(s)}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.layout()
		model.rerender(false)
		return model, nil

	case tea.KeyMsg:
		return model.handleKey(message)

	case presentedMsg:
		return model.handlePresented(message)

	case turnMsg:
		return model.handleTurn(message)

	case finishedMsg:
		report := message.report
		model.report = &report
		model.busy = false
		return model, tea.Quit

	case highlightTickMsg:
		model.rerender(false)
		if model.highlights.Pending(model.clock.Now()) {
			return model, scheduleHighlightTick()
		}
		return model, nil

	case logNoticeMsg:
		model.notice = message.Summary
		model.noticeLevel = message.Level
		summary := message.Summary
		return model, tea.Tick(logNoticeDuration, func(time.Time) tea.Msg {
			return logNoticeFadeMsg{Summary: summary}
		})

	case logNoticeFadeMsg:
		if model.notice == message.Summary {
			model.notice = ""
		}
		return model, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(message)
		return model, cmd
	}

	var cmd tea.Cmd
	model.input, cmd = model.input.Update(message)
	return model, cmd
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		if model.report != nil {
			return model, tea.Quit
		}
		if model.busy {
			model.quitRequested = true
			return model, nil
		}
		model.busy = true
		return model, model.finishCmd()

	case key.Matches(message, model.keys.Submit):
		return model.submit()

	case key.Matches(message, model.keys.Clear):
		model.input.Reset()
		model.historyIndex = len(model.history)
		return model, nil

	case key.Matches(message, model.keys.HistoryPrevious):
		if model.historyIndex > 0 {
			model.historyIndex--
			model.input.SetValue(model.history[model.historyIndex])
			model.input.CursorEnd()
		}
		return model, nil

	case key.Matches(message, model.keys.HistoryNext):
		if model.historyIndex < len(model.history) {
			model.historyIndex++
			if model.historyIndex == len(model.history) {
				model.input.Reset()
			} else {
				model.input.SetValue(model.history[model.historyIndex])
				model.input.CursorEnd()
			}
		}
		return model, nil

	case key.Matches(message, model.keys.PageUp):
		model.viewport.HalfViewUp()
		return model, nil

	case key.Matches(message, model.keys.PageDown):
		model.viewport.HalfViewDown()
		return model, nil

	case key.Matches(message, model.keys.Top):
		model.viewport.GotoTop()
		return model, nil

	case key.Matches(message, model.keys.Bottom):
		model.viewport.GotoBottom()
		return model, nil
	}

	if model.busy {
		return model, nil
	}
	var cmd tea.Cmd
	model.input, cmd = model.input.Update(message)
	return model, cmd
}

// submit sends the command line. An empty line after a failed load
// retries the load.
func (model Model) submit() (tea.Model, tea.Cmd) {
	if model.busy {
		return model, nil
	}
	utterance := strings.TrimSpace(model.input.Value())

	if model.presentErr != nil {
		if utterance != "" {
			model.notice = "the ticket did not load; press enter on an empty line to retry"
			model.noticeLevel = slog.LevelWarn
			return model, nil
		}
		model.presentErr = nil
		model.busy = true
		return model, tea.Batch(model.present(), model.spinner.Tick)
	}
	if utterance == "" || model.session.State() != session.AwaitingCommand {
		return model, nil
	}

	model.history = append(model.history, utterance)
	if len(model.history) > historyLimit {
		model.history = model.history[len(model.history)-historyLimit:]
	}
	model.historyIndex = len(model.history)
	model.input.Reset()
	model.busy = true
	return model, tea.Batch(model.handle(utterance), model.spinner.Tick)
}

func (model Model) handlePresented(message presentedMsg) (tea.Model, tea.Cmd) {
	model.busy = false
	if message.err != nil {
		if errors.Is(message.err, session.ErrQueueExhausted) || model.session.State() == session.Ended {
			if !errors.Is(message.err, session.ErrQueueExhausted) {
				model.fatal = message.err
			}
			model.busy = true
			return model, model.finishCmd()
		}
		model.presentErr = message.err
		model.layout()
		return model, nil
	}
	if model.quitRequested {
		model.busy = true
		return model, model.finishCmd()
	}

	sameTicket := model.presentation != nil && model.presentation.Ticket.Key == message.presentation.Ticket.Key
	if sameTicket {
		model.highlights.Mark(model.clock.Now(), ticket.Diff(model.presentation.Ticket, message.presentation.Ticket)...)
	} else {
		model.highlights.Clear()
	}
	model.presentation = message.presentation
	model.presentErr = nil
	model.layout()
	model.rerender(!sameTicket)

	if model.highlights.Pending(model.clock.Now()) {
		return model, scheduleHighlightTick()
	}
	return model, nil
}

func (model Model) handleTurn(message turnMsg) (tea.Model, tea.Cmd) {
	model.busy = false
	model.turn = message.turn
	model.turnErr = message.err
	model.layout()

	if model.session.State() == session.Ended || model.quitRequested {
		if model.session.State() == session.Ended && message.err != nil {
			model.fatal = message.err
		}
		model.busy = true
		return model, model.finishCmd()
	}
	switch model.session.State() {
	case session.Presenting, session.AwaitingTicket:
		model.busy = true
		return model, tea.Batch(model.present(), model.spinner.Tick)
	}
	return model, nil
}

func scheduleHighlightTick() tea.Cmd {
	return tea.Tick(highlightTickInterval, func(time.Time) tea.Msg {
		return highlightTickMsg{}
	})
}

// footerLines renders everything under the ticket: the last turn, the
// command line and the status line.
func (model Model) footerLines() []string {
	contentWidth := max(model.width-2, 20)
	var lines []string
	lines = append(lines, model.styles.Border.Render(strings.Repeat("─", max(model.width, 1))))

	var panel string
	switch {
	case model.presentErr != nil:
		panel = model.styles.Error.Render(ansi.Wrap("Could not load the ticket: "+model.presentErr.Error(), contentWidth, wrapBreakpoints)) +
			"\n" + model.styles.Help.Render("Press enter to retry, ctrl+c to end the session.")
	case model.turn != nil:
		panel = RenderTurn(model.turn, model.styles, contentWidth)
	case model.turnErr != nil:
		panel = model.styles.Error.Render(model.turnErr.Error())
	}
	if panel != "" {
		panelLines := strings.Split(panel, "\n")
		if len(panelLines) > turnPanelMaxLines {
			hidden := len(panelLines) - turnPanelMaxLines + 1
			panelLines = append(panelLines[:turnPanelMaxLines-1], model.styles.Faint.Render("  … "+plural(hidden, "more line")))
		}
		lines = append(lines, panelLines...)
	}

	prompt := model.input.View()
	if model.busy {
		prompt = model.spinner.View() + " " + model.styles.Faint.Render("working…")
	}
	lines = append(lines, prompt, model.statusLine())
	return lines
}

func (model Model) statusLine() string {
	if model.notice != "" {
		style := model.styles.Warning
		if model.noticeLevel >= slog.LevelError {
			style = model.styles.Error
		}
		return ansi.Truncate(style.Render(model.notice), model.width, "…")
	}
	var parts []string
	for _, binding := range model.keys.ShortHelp() {
		help := binding.Help()
		if help.Key == "" {
			continue
		}
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return ansi.Truncate(model.styles.Help.Render(strings.Join(parts, " • ")), model.width, "…")
}

// layout sizes the viewport to what the footer leaves free.
func (model *Model) layout() {
	if !model.ready {
		return
	}
	model.input.Width = max(model.width-lipgloss.Width(model.input.Prompt)-1, 10)
	model.viewport.Width = max(model.width-1, 1)
	model.viewport.Height = max(model.height-len(model.footerLines()), 1)
}

// rerender refreshes the ticket content. Highlights fade on each
// call, so this runs on every tick while any are pending.
func (model *Model) rerender(scrollTop bool) {
	if !model.ready || model.presentation == nil {
		return
	}
	now := model.clock.Now()
	changed := func(field ticket.Field) bool {
		return model.highlights.Active(field, now)
	}
	model.viewport.SetContent(RenderPresentation(model.presentation, model.styles, model.viewport.Width-1, changed))
	if scrollTop {
		model.viewport.GotoTop()
	}
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading backlog..."
	}
	if model.report != nil {
		return ""
	}

	var body string
	if model.presentation == nil {
		body = lipgloss.NewStyle().Height(model.viewport.Height).Render(model.styles.Faint.Render("Loading ticket..."))
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, model.viewport.View(), tui.Scrollbar(model.styles.theme, model.viewport))
	}
	return body + "\n" + strings.Join(model.footerLines(), "\n")
}

func plural(count int, noun string) string {
	if count == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(count) + " " + noun + "s"
}
