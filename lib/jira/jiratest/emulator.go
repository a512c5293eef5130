// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jiratest

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bureau-foundation/refine/lib/clock"
	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/ticket"
)

// Config configures an Emulator.
type Config struct {
	// Fixture is the initial tracker state. Defaults to DefaultFixture.
	Fixture *Fixture

	// Clock stamps comments and updates. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives one debug record per request. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Emulator is an in-memory tracker serving the subset of the Jira REST
// API the client uses. All methods are safe for concurrent use.
type Emulator struct {
	mu sync.Mutex

	project          string
	account          Account
	storyPointsField string
	workflow         ticket.Workflow
	resolvedStatuses []ticket.Status
	readOnlyFields   []string

	issues map[string]*issueState

	// rank is the global rank order over every issue key.
	rank  []string
	links []link

	requests []Request
	failures []failure

	nextCommentID int
	nextLinkID    int

	clock  clock.Clock
	logger *slog.Logger
	router chi.Router
}

type issueState struct {
	Issue
	id      int
	created time.Time
	updated time.Time
}

type link struct {
	id       int
	typeName string
	inward   string
	outward  string
}

// linkTypes are the issue link types the emulator knows, with their
// inward and outward descriptions.
var linkTypes = map[string][2]string{
	"Blocks":    {"is blocked by", "blocks"},
	"Relates":   {"relates to", "relates to"},
	"Duplicate": {"is duplicated by", "duplicates"},
	"Cloners":   {"is cloned by", "clones"},
}

// Request is one request the emulator received.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// failure is an injected error response for the next matching request.
type failure struct {
	method   string
	path     string
	status   int
	messages []string
}

// New creates an emulator seeded from config.Fixture.
func New(config Config) *Emulator {
	fixture := config.Fixture
	if fixture == nil {
		fixture = DefaultFixture()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	emulator := &Emulator{
		project:          fixture.Project,
		account:          fixture.Account,
		storyPointsField: fixture.StoryPointsField,
		workflow:         fixture.Workflow,
		resolvedStatuses: fixture.ResolvedStatuses,
		readOnlyFields:   slices.Clone(fixture.ReadOnlyFields),
		issues:           make(map[string]*issueState, len(fixture.Issues)),
		nextCommentID:    10000,
		nextLinkID:       20000,
		clock:            clk,
		logger:           logger,
	}
	if emulator.storyPointsField == "" {
		emulator.storyPointsField = jira.DefaultStoryPointsField
	}
	if emulator.workflow == nil {
		emulator.workflow = ticket.DefaultWorkflow()
	}
	if len(emulator.resolvedStatuses) == 0 {
		emulator.resolvedStatuses = []ticket.Status{ticket.StatusDone}
	}

	now := clk.Now()
	for index, issue := range fixture.Issues {
		state := &issueState{
			Issue:   issue.clone(),
			id:      10001 + index,
			created: now,
			updated: now,
		}
		if state.Type == "" {
			state.Type = "Story"
		}
		state.BlockedBy = nil
		for commentIndex := range state.Comments {
			if state.Comments[commentIndex].ID == "" {
				state.Comments[commentIndex].ID = emulator.commentID()
			}
			state.Comments[commentIndex].Created = now
		}
		emulator.issues[issue.Key] = state
		emulator.rank = append(emulator.rank, issue.Key)
	}
	for _, issue := range fixture.Issues {
		for _, blocker := range issue.BlockedBy {
			emulator.addLink("Blocks", blocker, issue.Key)
		}
	}
	emulator.router = emulator.routes()
	return emulator
}

// ServeHTTP implements http.Handler.
func (emulator *Emulator) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	emulator.router.ServeHTTP(writer, request)
}

// Account returns the credentials the emulator accepts.
func (emulator *Emulator) Account() Account {
	return emulator.account
}

// Project returns the emulated project key.
func (emulator *Emulator) Project() string {
	return emulator.project
}

// StoryPointsField returns the custom field ID used for story points.
func (emulator *Emulator) StoryPointsField() string {
	return emulator.storyPointsField
}

// Workflow returns the emulated transition graph.
func (emulator *Emulator) Workflow() ticket.Workflow {
	return emulator.workflow
}

// BacklogJQL is a backlog query the emulator can evaluate: every
// non-epic issue in the Backlog status, in rank order.
func (emulator *Emulator) BacklogJQL() string {
	return fmt.Sprintf(`project = %s AND issuetype != Epic AND status = %q ORDER BY Rank ASC`,
		emulator.project, string(ticket.StatusBacklog))
}

// Issue returns a snapshot of the issue with key. BlockedBy reflects
// the current "Blocks" links.
func (emulator *Emulator) Issue(key string) (Issue, bool) {
	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	state, ok := emulator.issues[key]
	if !ok {
		return Issue{}, false
	}
	snapshot := state.Issue.clone()
	snapshot.BlockedBy = emulator.blockersOf(key)
	return snapshot, true
}

// Rank returns every issue key in global rank order.
func (emulator *Emulator) Rank() []string {
	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	return slices.Clone(emulator.rank)
}

// Requests returns every request received so far, in order.
func (emulator *Emulator) Requests() []Request {
	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	return slices.Clone(emulator.requests)
}

// Mutations returns the received requests that could change state
// (anything but GET).
func (emulator *Emulator) Mutations() []Request {
	var mutations []Request
	for _, request := range emulator.Requests() {
		if request.Method != http.MethodGet {
			mutations = append(mutations, request)
		}
	}
	return mutations
}

// ResetRequests clears the request log.
func (emulator *Emulator) ResetRequests() {
	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	emulator.requests = nil
}

// FailNext makes the next request matching method and path fail with
// status and the given error messages. An empty method or path matches
// any. Injected failures are consumed in the order they were added.
func (emulator *Emulator) FailNext(method, path string, status int, messages ...string) {
	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	if len(messages) == 0 {
		messages = []string{http.StatusText(status)}
	}
	emulator.failures = append(emulator.failures, failure{
		method:   method,
		path:     path,
		status:   status,
		messages: messages,
	})
}

// SetStatus forces an issue's status without going through the
// workflow, as another user editing the ticket would.
func (emulator *Emulator) SetStatus(key string, status ticket.Status) error {
	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	state, ok := emulator.issues[key]
	if !ok {
		return fmt.Errorf("jiratest: no issue %s", key)
	}
	state.Status = status
	state.updated = emulator.clock.Now()
	return nil
}

// takeFailure removes and returns the first injected failure matching
// the request. Callers hold mu.
func (emulator *Emulator) takeFailure(method, path string) (failure, bool) {
	for index, candidate := range emulator.failures {
		if candidate.method != "" && candidate.method != method {
			continue
		}
		if candidate.path != "" && candidate.path != path {
			continue
		}
		emulator.failures = slices.Delete(emulator.failures, index, index+1)
		return candidate, true
	}
	return failure{}, false
}

// Callers of the helpers below hold mu.

func (emulator *Emulator) commentID() string {
	emulator.nextCommentID++
	return strconv.Itoa(emulator.nextCommentID)
}

func (emulator *Emulator) addLink(typeName, inward, outward string) {
	emulator.nextLinkID++
	emulator.links = append(emulator.links, link{
		id:       emulator.nextLinkID,
		typeName: typeName,
		inward:   inward,
		outward:  outward,
	})
}

// blockersOf returns the keys linked to key as "is blocked by".
func (emulator *Emulator) blockersOf(key string) []string {
	var blockers []string
	for _, existing := range emulator.links {
		if existing.typeName == "Blocks" && existing.outward == key && !slices.Contains(blockers, existing.inward) {
			blockers = append(blockers, existing.inward)
		}
	}
	slices.Sort(blockers)
	return blockers
}

func (emulator *Emulator) lookup(key string) (*issueState, bool) {
	state, ok := emulator.issues[strings.ToUpper(key)]
	return state, ok
}

func (emulator *Emulator) resolved(status ticket.Status) bool {
	for _, candidate := range emulator.resolvedStatuses {
		if candidate.Is(status) {
			return true
		}
	}
	return false
}

func (emulator *Emulator) moveRank(key, anchor string, after bool) {
	emulator.rank = slices.DeleteFunc(emulator.rank, func(candidate string) bool { return candidate == key })
	position := slices.Index(emulator.rank, anchor)
	if after {
		position++
	}
	emulator.rank = slices.Insert(emulator.rank, position, key)
}
