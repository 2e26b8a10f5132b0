// Package scenario declares end-to-end scenarios and runs them. A scenario seeds a case
// from a fixture, drives the browser through workflow helpers and optionally checks the
// case state at the end. A failed attempt is abandoned and the whole scenario, seeding
// included, is tried again on a fresh browser session.
package scenario

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kuitang/et-e2e/internal/ccd"
	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/errs"
	"github.com/kuitang/et-e2e/internal/steps"
)

// DefaultRetries in Scenario.Retries defers to the runner's configured retry count.
const DefaultRetries = -1

// Session is a browser session that can also report on the case it is looking at.
type Session interface {
	steps.Actor
	// CaseState returns the state of the case currently open.
	CaseState(ctx context.Context) (domain.State, error)
	// Screenshot returns a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// SessionFactory opens a fresh session for one attempt.
type SessionFactory func(ctx context.Context) (Session, error)

// Seeder creates cases. ccd.Client implements it.
type Seeder interface {
	Seed(ctx context.Context, req ccd.SeedRequest) (domain.CaseID, error)
}

// Exercise runs the workflow helpers of a scenario against the seeded case.
type Exercise func(ctx context.Context, a steps.Actor, caseID domain.CaseID) error

// Scenario is one declared test case.
type Scenario struct {
	Feature   string
	Name      string
	Tags      []string
	Retries   int // DefaultRetries, or the number of extra attempts after the first
	Fixture   string
	CaseType  domain.CaseType
	Overrides map[string]any
	Exercise  Exercise
	Expect    domain.State // checked after Exercise when set
}

// Validate reports the first problem with the declaration.
func (s Scenario) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return errs.New(errs.InvalidArgument, "scenario: name is required")
	case strings.TrimSpace(s.Feature) == "":
		return errs.New(errs.InvalidArgument, fmt.Sprintf("scenario %q: feature is required", s.Name))
	case s.Fixture == "":
		return errs.New(errs.InvalidArgument, fmt.Sprintf("scenario %q: fixture is required", s.Name))
	case !s.CaseType.Valid():
		return errs.New(errs.InvalidArgument, fmt.Sprintf("scenario %q: unknown case type %q", s.Name, s.CaseType))
	case s.Exercise == nil:
		return errs.New(errs.InvalidArgument, fmt.Sprintf("scenario %q: exercise is required", s.Name))
	case s.Retries < DefaultRetries:
		return errs.New(errs.InvalidArgument, fmt.Sprintf("scenario %q: retries must be %d or more", s.Name, DefaultRetries))
	case s.Expect != "" && !s.Expect.Valid():
		return errs.New(errs.InvalidArgument, fmt.Sprintf("scenario %q: unknown expected state %q", s.Name, s.Expect))
	}
	for _, tag := range s.Tags {
		if !strings.HasPrefix(tag, "@") || len(tag) < 2 {
			return errs.New(errs.InvalidArgument, fmt.Sprintf("scenario %q: tag %q must start with @", s.Name, tag))
		}
	}
	return nil
}

// HasTag reports whether the scenario carries tag.
func (s Scenario) HasTag(tag string) bool {
	return slices.Contains(s.Tags, tag)
}

// FullName is "Feature: Name", the form used in reports and test names.
func (s Scenario) FullName() string {
	return s.Feature + ": " + s.Name
}

func (s Scenario) attempts(defaultRetries int) int {
	if s.Retries == DefaultRetries {
		return max(defaultRetries, 0) + 1
	}
	return s.Retries + 1
}
