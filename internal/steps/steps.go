// Package steps is the workflow helper library: one function per case-management
// workflow, each a fixed sequence of driver calls. Scenarios compose these instead of
// talking to the browser directly.
//
// Helpers return driver errors exactly as the driver raised them.
package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/errs"
)

// Actor is the set of page interactions the helpers need. internal/driver provides the
// Playwright implementation.
type Actor interface {
	// AmOnPage opens a path relative to the application base URL.
	AmOnPage(ctx context.Context, path string) error
	// AuthenticateWithIdam signs in through the IDAM login form.
	AuthenticateWithIdam(ctx context.Context) error
	// ChooseNextStep picks event from the "Next step" dropdown and presses Go.
	ChooseNextStep(ctx context.Context, event domain.Event) error
	// Settle blocks until the page has stopped loading.
	Settle(ctx context.Context) error

	AcceptTheCase(ctx context.Context) error
	AmendTheCaseDetails(ctx context.Context, clerk, location, track string) error
	ExecuteClaimantDetails(ctx context.Context) error
	ExecuteClaimantRepresentative(ctx context.Context) error
	ExecuteRespondentDetails(ctx context.Context) error
	ExecuteRespondentRepresentative(ctx context.Context) error
	ExecuteAddAmendJurisdiction(ctx context.Context) error
	ExecuteCloseCase(ctx context.Context) error
	ExecuteRestrictedReporting(ctx context.Context) error
}

// Action is the workflow-specific form submission that follows choosing an event.
type Action func(ctx context.Context, a Actor) error

// DefaultCaseDetailsRoute is the ExUI route prefix under which a case opens.
const DefaultCaseDetailsRoute = "/cases/case-details/"

type routeKey struct{}

// WithCaseDetailsRoute makes helpers called with the returned context open cases under
// prefix instead of DefaultCaseDetailsRoute.
func WithCaseDetailsRoute(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, routeKey{}, prefix)
}

// CaseDetailsPath is the ExUI route for a case under the prefix carried by ctx.
func CaseDetailsPath(ctx context.Context, caseID domain.CaseID) string {
	prefix, _ := ctx.Value(routeKey{}).(string)
	if prefix == "" {
		prefix = DefaultCaseDetailsRoute
	}
	return strings.TrimSuffix(prefix, "/") + "/" + caseID.String()
}

// RunWorkflowStep chooses event, waits for the event page, then runs submit.
func RunWorkflowStep(ctx context.Context, a Actor, event domain.Event, submit Action) error {
	if err := checkEvent(event); err != nil {
		return err
	}
	if err := a.ChooseNextStep(ctx, event); err != nil {
		return err
	}
	if err := a.Settle(ctx); err != nil {
		return err
	}
	return submit(ctx, a)
}

// AcceptCaseEvent signs in, opens the case and accepts it through event.
func AcceptCaseEvent(ctx context.Context, a Actor, caseID domain.CaseID, event domain.Event) error {
	if err := checkEvent(event); err != nil {
		return err
	}
	if caseID == "" {
		return errs.New(errs.InvalidArgument, "accept case: case id is required")
	}
	if err := a.Settle(ctx); err != nil {
		return err
	}
	if err := a.AuthenticateWithIdam(ctx); err != nil {
		return err
	}
	if err := a.Settle(ctx); err != nil {
		return err
	}
	if err := a.AmOnPage(ctx, CaseDetailsPath(ctx, caseID)); err != nil {
		return err
	}
	if err := a.ChooseNextStep(ctx, event); err != nil {
		return err
	}
	return a.AcceptTheCase(ctx)
}

// CaseDetails amends the clerk responsible, physical location and conciliation track.
// All three values are required.
func CaseDetails(ctx context.Context, a Actor, event domain.Event, clerk, location, track string) error {
	for _, f := range []struct{ name, value string }{
		{"clerk responsible", clerk},
		{"physical location", location},
		{"conciliation track", track},
	} {
		if f.value == "" {
			return errs.New(errs.InvalidArgument, fmt.Sprintf("case details: %s is required", f.name))
		}
	}
	return RunWorkflowStep(ctx, a, event, func(ctx context.Context, a Actor) error {
		return a.AmendTheCaseDetails(ctx, clerk, location, track)
	})
}

func ClaimantDetails(ctx context.Context, a Actor, event domain.Event) error {
	return RunWorkflowStep(ctx, a, event, terminal(Actor.ExecuteClaimantDetails))
}

func ClaimantRepresentative(ctx context.Context, a Actor, event domain.Event) error {
	return RunWorkflowStep(ctx, a, event, terminal(Actor.ExecuteClaimantRepresentative))
}

// ClaimantRespondentDetails edits the respondent on the claim.
func ClaimantRespondentDetails(ctx context.Context, a Actor, event domain.Event) error {
	return RunWorkflowStep(ctx, a, event, terminal(Actor.ExecuteRespondentDetails))
}

func RespondentRepresentative(ctx context.Context, a Actor, event domain.Event) error {
	return RunWorkflowStep(ctx, a, event, terminal(Actor.ExecuteRespondentRepresentative))
}

// Jurisdiction adds or amends a jurisdiction code.
func Jurisdiction(ctx context.Context, a Actor, event domain.Event) error {
	return RunWorkflowStep(ctx, a, event, terminal(Actor.ExecuteAddAmendJurisdiction))
}

func CloseCase(ctx context.Context, a Actor, event domain.Event) error {
	return RunWorkflowStep(ctx, a, event, terminal(Actor.ExecuteCloseCase))
}

func RestrictedReporting(ctx context.Context, a Actor, event domain.Event) error {
	return RunWorkflowStep(ctx, a, event, terminal(Actor.ExecuteRestrictedReporting))
}

// terminal adapts an Actor method expression to an Action.
func terminal(method func(Actor, context.Context) error) Action {
	return func(ctx context.Context, a Actor) error { return method(a, ctx) }
}

func checkEvent(event domain.Event) error {
	if !event.Valid() {
		return errs.New(errs.InvalidArgument, fmt.Sprintf("unknown event %q", event))
	}
	return nil
}
