// Package domain holds the closed sets of names shared by the workflow helpers and the
// scenario definitions: user types, workflow events, case states and case types.
//
// Every value here is the exact string the application under test displays (or, for
// case types, the CCD case type id), so a rename upstream is a one-line change.
package domain

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kuitang/et-e2e/internal/errs"
)

// UserType is the IDAM role a scenario acts as.
type UserType string

const (
	UserCaseworker UserType = "Caseworker"
	UserJudge      UserType = "Judge"
)

var userTypes = []UserType{UserCaseworker, UserJudge}

// UserTypes returns every user type in declaration order.
func UserTypes() []UserType { return append([]UserType(nil), userTypes...) }

func (u UserType) String() string { return string(u) }

// Valid reports whether u is a registered user type.
func (u UserType) Valid() bool { return slices.Contains(userTypes, u) }

// Event is the display name of a workflow transition in the "Next step" dropdown.
type Event string

// EventAcceptCase and EventRejectCase are the same screen: the accept/reject choice is
// made on the form, not in the dropdown.
const (
	EventAcceptCase             Event = "Accept/Reject Case"
	EventRejectCase             Event = "Accept/Reject Case"
	EventCaseDetails            Event = "Case Details"
	EventPreAcceptanceCase      Event = "preAcceptanceCase"
	EventAcceptRejectedCase     Event = "acceptRejectedCase"
	EventClaimantDetails        Event = "Claimant Details"
	EventClaimantRepresentative Event = "Claimant Representative"
	EventRespondentDetails      Event = "Respondent Details"
	EventRespondentRep          Event = "Respondent Representative"
	EventJurisdiction           Event = "Jurisdiction"
	EventCloseCase              Event = "Close Case"
	EventRestrictedReporting    Event = "Restricted Reporting"
)

var events = []Event{
	EventAcceptCase,
	EventCaseDetails,
	EventPreAcceptanceCase,
	EventAcceptRejectedCase,
	EventClaimantDetails,
	EventClaimantRepresentative,
	EventRespondentDetails,
	EventRespondentRep,
	EventJurisdiction,
	EventCloseCase,
	EventRestrictedReporting,
}

// Events returns every distinct event in declaration order.
func Events() []Event { return append([]Event(nil), events...) }

func (e Event) String() string { return string(e) }

// Valid reports whether e is a registered event.
func (e Event) Valid() bool { return slices.Contains(events, e) }

// ParseEvent returns the registered event with the given display name.
func ParseEvent(s string) (Event, error) {
	return parse(events, s, "event")
}

// State is a case lifecycle state as shown on the case history tab.
type State string

const (
	StateSubmitted   State = "Submitted"
	StateAccepted    State = "Accepted"
	StateRejected    State = "Rejected"
	StateClosed      State = "Closed"
	StateTransferred State = "Transferred"
)

var states = []State{StateSubmitted, StateAccepted, StateRejected, StateClosed, StateTransferred}

// States returns every state in lifecycle order.
func States() []State { return append([]State(nil), states...) }

func (s State) String() string { return string(s) }

// Valid reports whether s is a registered state.
func (s State) Valid() bool { return slices.Contains(states, s) }

// ParseState returns the registered state with the given display name.
func ParseState(s string) (State, error) {
	return parse(states, s, "case state")
}

// CaseType is the CCD case type a fixture is seeded into. For single cases this is the
// tribunal office, which is also the "jurisdiction" label scenarios pass to seeding.
type CaseType string

const (
	CaseTypeManchester    CaseType = "Manchester"
	CaseTypeLeeds         CaseType = "Leeds"
	CaseTypeBristol       CaseType = "Bristol"
	CaseTypeNewcastle     CaseType = "Newcastle"
	CaseTypeWales         CaseType = "Wales"
	CaseTypeWatford       CaseType = "Watford"
	CaseTypeLondonCentral CaseType = "LondonCentral"
	CaseTypeLondonEast    CaseType = "LondonEast"
	CaseTypeLondonSouth   CaseType = "LondonSouth"
	CaseTypeMidlandsEast  CaseType = "MidlandsEast"
	CaseTypeMidlandsWest  CaseType = "MidlandsWest"
	CaseTypeGlasgow       CaseType = "Glasgow"
)

var caseTypes = []CaseType{
	CaseTypeManchester,
	CaseTypeLeeds,
	CaseTypeBristol,
	CaseTypeNewcastle,
	CaseTypeWales,
	CaseTypeWatford,
	CaseTypeLondonCentral,
	CaseTypeLondonEast,
	CaseTypeLondonSouth,
	CaseTypeMidlandsEast,
	CaseTypeMidlandsWest,
	CaseTypeGlasgow,
}

// CaseTypes returns every case type in declaration order.
func CaseTypes() []CaseType { return append([]CaseType(nil), caseTypes...) }

func (c CaseType) String() string { return string(c) }

// Valid reports whether c is a registered case type.
func (c CaseType) Valid() bool { return slices.Contains(caseTypes, c) }

// Tag is the runner tag for scenarios seeded into c, e.g. "@manchester".
func (c CaseType) Tag() string { return "@" + strings.ToLower(string(c)) }

// ParseCaseType returns the registered case type with the given id.
func ParseCaseType(s string) (CaseType, error) {
	return parse(caseTypes, s, "case type")
}

// CaseID is the 16-digit CCD case reference returned by seeding.
type CaseID string

// ParseCaseID accepts the bare or hyphenated (1234-5678-1234-5678) form.
func ParseCaseID(s string) (CaseID, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if len(digits) != 16 {
		return "", errs.New(errs.InvalidArgument, fmt.Sprintf("case id %q: want 16 digits", s))
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", errs.New(errs.InvalidArgument, fmt.Sprintf("case id %q: want 16 digits", s))
		}
	}
	return CaseID(digits), nil
}

func (id CaseID) String() string { return string(id) }

// Hyphenated returns the reference in the grouped form ExUI shows in the case header.
func (id CaseID) Hyphenated() string {
	s := string(id)
	if len(s) != 16 {
		return s
	}
	return s[0:4] + "-" + s[4:8] + "-" + s[8:12] + "-" + s[12:16]
}

func parse[T ~string](set []T, s, kind string) (T, error) {
	v := T(strings.TrimSpace(s))
	if slices.Contains(set, v) {
		return v, nil
	}
	return "", errs.New(errs.InvalidArgument, fmt.Sprintf("unknown %s %q", kind, s))
}
