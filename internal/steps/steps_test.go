package steps_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/driver/drivertest"
	"github.com/kuitang/et-e2e/internal/errs"
	"github.com/kuitang/et-e2e/internal/steps"
	"pgregory.net/rapid"
)

const testCaseID domain.CaseID = "1650000000000001"

func TestAcceptCaseEvent_Order(t *testing.T) {
	t.Parallel()
	s := drivertest.NewSession()

	if err := steps.AcceptCaseEvent(context.Background(), s, testCaseID, domain.EventAcceptCase); err != nil {
		t.Fatalf("AcceptCaseEvent: %v", err)
	}

	want := []string{
		"Settle",
		"AuthenticateWithIdam",
		"Settle",
		"AmOnPage|/cases/case-details/1650000000000001",
		"ChooseNextStep|Accept/Reject Case",
		"AcceptTheCase",
	}
	if got := s.Calls(); !slices.Equal(got, want) {
		t.Fatalf("calls mismatch:\n got=%q\nwant=%q", got, want)
	}
	if n := s.Count("AuthenticateWithIdam"); n != 1 {
		t.Fatalf("authenticated %d times, want exactly once", n)
	}
}

func TestAcceptCaseEvent_CaseDetailsRoute(t *testing.T) {
	t.Parallel()
	s := drivertest.NewSession()
	ctx := steps.WithCaseDetailsRoute(context.Background(), "/case-details")

	if err := steps.AcceptCaseEvent(ctx, s, testCaseID, domain.EventAcceptCase); err != nil {
		t.Fatalf("AcceptCaseEvent: %v", err)
	}
	if !slices.Contains(s.Calls(), "AmOnPage|/case-details/1650000000000001") {
		t.Fatalf("case opened under the wrong route: %q", s.Calls())
	}
}

func TestCaseDetailsPath(t *testing.T) {
	t.Parallel()
	tests := []struct {
		prefix string
		want   string
	}{
		{"", "/cases/case-details/1650000000000001"},
		{"/case-details/", "/case-details/1650000000000001"},
		{"/case-details", "/case-details/1650000000000001"},
	}
	for _, tt := range tests {
		ctx := context.Background()
		if tt.prefix != "" {
			ctx = steps.WithCaseDetailsRoute(ctx, tt.prefix)
		}
		if got := steps.CaseDetailsPath(ctx, testCaseID); got != tt.want {
			t.Fatalf("CaseDetailsPath with prefix %q = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestAcceptCaseEvent_AuthFailureStopsSequence(t *testing.T) {
	t.Parallel()
	s := drivertest.NewSession()
	authErr := errors.New("idam: invalid credentials")
	s.FailOn["AuthenticateWithIdam"] = authErr

	err := steps.AcceptCaseEvent(context.Background(), s, testCaseID, domain.EventAcceptCase)
	if err != authErr {
		t.Fatalf("want driver error returned unchanged, got %v", err)
	}
	if s.Count("ChooseNextStep") != 0 || s.Count("AcceptTheCase") != 0 {
		t.Fatalf("no step should run after failed auth: %q", s.Calls())
	}
}

func TestAcceptCaseEvent_RequiresCaseID(t *testing.T) {
	t.Parallel()
	s := drivertest.NewSession()
	err := steps.AcceptCaseEvent(context.Background(), s, "", domain.EventAcceptCase)
	if errs.CodeOf(err) != errs.InvalidArgument {
		t.Fatalf("want invalid argument, got %v", err)
	}
	if len(s.Calls()) != 0 {
		t.Fatalf("driver should not be touched: %q", s.Calls())
	}
}

func TestCaseDetails_ForwardsFieldsInOrder(t *testing.T) {
	t.Parallel()
	s := drivertest.NewSession()

	err := steps.CaseDetails(context.Background(), s, domain.EventCaseDetails, "A Clerk", "Casework Table", "Fast Track")
	if err != nil {
		t.Fatalf("CaseDetails: %v", err)
	}
	want := []string{
		"ChooseNextStep|Case Details",
		"Settle",
		"AmendTheCaseDetails|A Clerk|Casework Table|Fast Track",
	}
	if got := s.Calls(); !slices.Equal(got, want) {
		t.Fatalf("calls mismatch:\n got=%q\nwant=%q", got, want)
	}
}

func testCaseDetails_FieldsReachDriverUnmodified(t *rapid.T) {
	field := rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,30}`)
	clerk := field.Draw(t, "clerk")
	location := field.Draw(t, "location")
	track := field.Draw(t, "track")

	s := drivertest.NewSession()
	if err := steps.CaseDetails(context.Background(), s, domain.EventCaseDetails, clerk, location, track); err != nil {
		t.Fatalf("CaseDetails: %v", err)
	}
	calls := s.Calls()
	if got, want := calls[len(calls)-1], "AmendTheCaseDetails|"+clerk+"|"+location+"|"+track; got != want {
		t.Fatalf("submission = %q, want %q", got, want)
	}
}

func TestCaseDetails_FieldsReachDriverUnmodified(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCaseDetails_FieldsReachDriverUnmodified)
}

func TestCaseDetails_MissingFieldFailsFast(t *testing.T) {
	t.Parallel()
	cases := []struct{ clerk, location, track string }{
		{"", "Casework Table", "Fast Track"},
		{"A Clerk", "", "Fast Track"},
		{"A Clerk", "Casework Table", ""},
	}
	for _, c := range cases {
		s := drivertest.NewSession()
		err := steps.CaseDetails(context.Background(), s, domain.EventCaseDetails, c.clerk, c.location, c.track)
		if errs.CodeOf(err) != errs.InvalidArgument {
			t.Fatalf("%+v: want invalid argument, got %v", c, err)
		}
		if len(s.Calls()) != 0 {
			t.Fatalf("%+v: driver should not be touched: %q", c, s.Calls())
		}
	}
}

func TestTwoStepHelpers_TerminalActions(t *testing.T) {
	t.Parallel()
	type helper func(context.Context, steps.Actor, domain.Event) error
	cases := []struct {
		name     string
		fn       helper
		event    domain.Event
		terminal string
	}{
		{"ClaimantDetails", steps.ClaimantDetails, domain.EventClaimantDetails, "ExecuteClaimantDetails"},
		{"ClaimantRepresentative", steps.ClaimantRepresentative, domain.EventClaimantRepresentative, "ExecuteClaimantRepresentative"},
		{"ClaimantRespondentDetails", steps.ClaimantRespondentDetails, domain.EventRespondentDetails, "ExecuteRespondentDetails"},
		{"RespondentRepresentative", steps.RespondentRepresentative, domain.EventRespondentRep, "ExecuteRespondentRepresentative"},
		{"Jurisdiction", steps.Jurisdiction, domain.EventJurisdiction, "ExecuteAddAmendJurisdiction"},
		{"CloseCase", steps.CloseCase, domain.EventCloseCase, "ExecuteCloseCase"},
		{"RestrictedReporting", steps.RestrictedReporting, domain.EventRestrictedReporting, "ExecuteRestrictedReporting"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s := drivertest.NewSession()
			if err := tc.fn(context.Background(), s, tc.event); err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			want := []string{"ChooseNextStep|" + tc.event.String(), "Settle", tc.terminal}
			if got := s.Calls(); !slices.Equal(got, want) {
				t.Fatalf("calls mismatch:\n got=%q\nwant=%q", got, want)
			}
		})
	}
}

func testRunWorkflowStep_SelectsRegistryEvent(t *rapid.T) {
	event := rapid.SampledFrom(domain.Events()).Draw(t, "event")
	s := drivertest.NewSession()
	submitted := false

	err := steps.RunWorkflowStep(context.Background(), s, event, func(ctx context.Context, a steps.Actor) error {
		submitted = true
		return nil
	})
	if err != nil {
		t.Fatalf("RunWorkflowStep: %v", err)
	}
	if !submitted {
		t.Fatal("terminal action did not run")
	}
	if got := s.Calls()[0]; got != "ChooseNextStep|"+event.String() {
		t.Fatalf("first call = %q, want the registry value of %q", got, event)
	}
}

func TestRunWorkflowStep_SelectsRegistryEvent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRunWorkflowStep_SelectsRegistryEvent)
}

func TestRunWorkflowStep_RejectsUnknownEvent(t *testing.T) {
	t.Parallel()
	s := drivertest.NewSession()
	err := steps.ClaimantDetails(context.Background(), s, domain.Event("Claimant details"))
	if errs.CodeOf(err) != errs.InvalidArgument {
		t.Fatalf("want invalid argument, got %v", err)
	}
	if len(s.Calls()) != 0 {
		t.Fatalf("driver should not be touched: %q", s.Calls())
	}
}

func TestRunWorkflowStep_ChooseFailureSkipsSubmit(t *testing.T) {
	t.Parallel()
	s := drivertest.NewSession()
	timeout := errors.New("timeout 3000ms exceeded waiting for #next-step")
	s.FailOn["ChooseNextStep"] = timeout

	err := steps.Jurisdiction(context.Background(), s, domain.EventJurisdiction)
	if err != timeout {
		t.Fatalf("want driver error unchanged, got %v", err)
	}
	if s.Count("ExecuteAddAmendJurisdiction") != 0 {
		t.Fatalf("terminal action ran after failed choose: %q", s.Calls())
	}
}

func TestHelpers_StopOnCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := drivertest.NewSession()

	err := steps.CloseCase(ctx, s, domain.EventCloseCase)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
