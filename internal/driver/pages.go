package driver

import (
	"time"

	"github.com/kuitang/et-e2e/internal/domain"
)

// Selectors shared by every ExUI page.
const (
	selNextStep       = "#next-step"
	selGo             = `button:has-text("Go")`
	selContinue       = `button[type=submit]:has-text("Continue")`
	selSubmit         = `button[type=submit]:has-text("Submit")`
	selSpinner        = ".spinner-container"
	selEventBanner    = ".alert-message"
	selErrorSummary   = ".error-summary"
	selHistoryTab     = `.mat-tab-label:has-text("History")`
	selEndState       = `#eventLogDetails tr:has-text("End state") td`
	selIdamUsername   = "#username"
	selIdamPassword   = "#password"
	selIdamSubmit     = "[type=submit]"
	selIdamLoginError = ".error-summary"
)

type fieldKind int

const (
	fill fieldKind = iota
	choose
	click
)

// field is one interaction on an event form, applied in declaration order.
type field struct {
	kind     fieldKind
	selector string
	value    string // text for fill, option label for choose
}

// form is the page object for one event: the fields to complete before Continue.
type form struct {
	event  domain.Event
	fields []field
}

func acceptForm(now time.Time) form {
	return form{
		event: domain.EventAcceptCase,
		fields: []field{
			{kind: click, selector: "#preAcceptCase_caseAccepted_Yes"},
			{kind: fill, selector: "#dateAccepted-day", value: now.Format("2")},
			{kind: fill, selector: "#dateAccepted-month", value: now.Format("1")},
			{kind: fill, selector: "#dateAccepted-year", value: now.Format("2006")},
		},
	}
}

func caseDetailsForm(clerk, location, track string) form {
	return form{
		event: domain.EventCaseDetails,
		fields: []field{
			{kind: choose, selector: "#clerkResponsible", value: clerk},
			{kind: choose, selector: "#fileLocation", value: location},
			{kind: choose, selector: "#conciliationTrack", value: track},
		},
	}
}

var (
	claimantDetailsForm = form{
		event: domain.EventClaimantDetails,
		fields: []field{
			{kind: fill, selector: "#claimantType_claimant_phone_number", value: "07700900999"},
			{kind: choose, selector: "#claimantType_claimant_contact_preference", value: "Email"},
		},
	}

	claimantRepresentativeForm = form{
		event: domain.EventClaimantRepresentative,
		fields: []field{
			{kind: click, selector: "#claimantRepresentedQuestion_Yes"},
			{kind: fill, selector: "#representativeClaimantType_name_of_representative", value: "Jordan Counsel"},
			{kind: fill, selector: "#representativeClaimantType_name_of_organisation", value: "Counsel & Co LLP"},
			{kind: fill, selector: "#representativeClaimantType_representative_email_address", value: "rep@example.com"},
		},
	}

	respondentDetailsForm = form{
		event: domain.EventRespondentDetails,
		fields: []field{
			{kind: fill, selector: "#respondentCollection_0_respondent_phone1", value: "01610000000"},
			{kind: click, selector: "#respondentCollection_0_respondent_ACAS_question_Yes"},
		},
	}

	respondentRepresentativeForm = form{
		event: domain.EventRespondentRep,
		fields: []field{
			{kind: click, selector: `#repCollection button:has-text("Add new")`},
			{kind: choose, selector: "#repCollection_0_dynamic_resp_rep_name", value: "Acme Widgets Ltd"},
			{kind: fill, selector: "#repCollection_0_name_of_representative", value: "Riley Solicitor"},
			{kind: fill, selector: "#repCollection_0_name_of_organisation", value: "Solicitors Ltd"},
		},
	}

	jurisdictionForm = form{
		event: domain.EventJurisdiction,
		fields: []field{
			{kind: click, selector: `#jurCodesCollection button:has-text("Add new")`},
			{kind: choose, selector: "#jurCodesCollection_0_juridictionCodesList", value: "DDA"},
		},
	}

	closeCaseForm = form{
		event: domain.EventCloseCase,
		fields: []field{
			{kind: choose, selector: "#positionType", value: "Case closed"},
			{kind: choose, selector: "#fileLocation", value: "Casework Table"},
		},
	}

	restrictedReportingForm = form{
		event: domain.EventRestrictedReporting,
		fields: []field{
			{kind: click, selector: "#restrictedReporting_imposed_Yes"},
			{kind: choose, selector: "#restrictedReporting_requestedBy", value: "Judge"},
		},
	}
)
