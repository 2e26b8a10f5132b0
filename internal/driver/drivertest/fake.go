// Package drivertest provides an in-memory session that records every driver call.
// It stands in for the browser in helper and runner tests.
package drivertest

import (
	"context"
	"strings"
	"sync"

	"github.com/kuitang/et-e2e/internal/domain"
)

// Session records calls in order and tracks the case state the calls would produce.
type Session struct {
	mu     sync.Mutex
	calls  []string
	state  domain.State
	closed bool

	// FailOn makes the named method (e.g. "AcceptTheCase") return the error.
	FailOn map[string]error
}

// NewSession returns a session whose case starts in the Submitted state.
func NewSession() *Session {
	return &Session{state: domain.StateSubmitted, FailOn: map[string]error{}}
}

// Calls returns the recorded calls. Arguments follow the method name, separated by "|".
func (s *Session) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Count returns how many recorded calls start with method.
func (s *Session) Count(method string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == method || strings.HasPrefix(c, method+"|") {
			n++
		}
	}
	return n
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) record(ctx context.Context, method string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, strings.Join(append([]string{method}, args...), "|"))
	return s.FailOn[method]
}

func (s *Session) transition(to domain.State) {
	s.mu.Lock()
	s.state = to
	s.mu.Unlock()
}

func (s *Session) AmOnPage(ctx context.Context, path string) error {
	return s.record(ctx, "AmOnPage", path)
}

func (s *Session) AuthenticateWithIdam(ctx context.Context) error {
	return s.record(ctx, "AuthenticateWithIdam")
}

func (s *Session) ChooseNextStep(ctx context.Context, event domain.Event) error {
	return s.record(ctx, "ChooseNextStep", event.String())
}

func (s *Session) Settle(ctx context.Context) error {
	return s.record(ctx, "Settle")
}

func (s *Session) AcceptTheCase(ctx context.Context) error {
	if err := s.record(ctx, "AcceptTheCase"); err != nil {
		return err
	}
	s.transition(domain.StateAccepted)
	return nil
}

func (s *Session) AmendTheCaseDetails(ctx context.Context, clerk, location, track string) error {
	return s.record(ctx, "AmendTheCaseDetails", clerk, location, track)
}

func (s *Session) ExecuteClaimantDetails(ctx context.Context) error {
	return s.record(ctx, "ExecuteClaimantDetails")
}

func (s *Session) ExecuteClaimantRepresentative(ctx context.Context) error {
	return s.record(ctx, "ExecuteClaimantRepresentative")
}

func (s *Session) ExecuteRespondentDetails(ctx context.Context) error {
	return s.record(ctx, "ExecuteRespondentDetails")
}

func (s *Session) ExecuteRespondentRepresentative(ctx context.Context) error {
	return s.record(ctx, "ExecuteRespondentRepresentative")
}

func (s *Session) ExecuteAddAmendJurisdiction(ctx context.Context) error {
	return s.record(ctx, "ExecuteAddAmendJurisdiction")
}

func (s *Session) ExecuteCloseCase(ctx context.Context) error {
	if err := s.record(ctx, "ExecuteCloseCase"); err != nil {
		return err
	}
	s.transition(domain.StateClosed)
	return nil
}

func (s *Session) ExecuteRestrictedReporting(ctx context.Context) error {
	return s.record(ctx, "ExecuteRestrictedReporting")
}

func (s *Session) CaseState(ctx context.Context) (domain.State, error) {
	if err := s.record(ctx, "CaseState"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

// Screenshot returns a fixed PNG signature so callers can check it was stored.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if err := s.record(ctx, "Screenshot"); err != nil {
		return nil, err
	}
	return []byte("\x89PNG\r\n\x1a\n"), nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Factory hands out fresh sessions and keeps them for inspection.
type Factory struct {
	mu       sync.Mutex
	sessions []*Session

	// Setup, when set, configures each session before it is returned. The argument is
	// the zero-based index of the session.
	Setup func(i int, s *Session)
}

func (f *Factory) NewSession(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := NewSession()
	if f.Setup != nil {
		f.Setup(len(f.sessions), s)
	}
	f.sessions = append(f.sessions, s)
	return s, nil
}

// Sessions returns every session handed out so far.
func (f *Factory) Sessions() []*Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Session(nil), f.sessions...)
}
