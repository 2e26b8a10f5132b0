package paths

import (
	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/steps"
)

func init() {
	register(singles(domain.CaseTypeBristol,
		"Create a Bristol Singles Case & Execute Respondent Details",
		"Verify Bristol case Respondent Details",
		domain.StateAccepted,
		event(steps.ClaimantRespondentDetails, domain.EventRespondentDetails)))

	register(singles(domain.CaseTypeBristol,
		"Create a Bristol Singles Case & Execute Respondent Representative",
		"Verify Bristol case Respondent Representative",
		domain.StateAccepted,
		event(steps.RespondentRepresentative, domain.EventRespondentRep)))

	register(singles(domain.CaseTypeBristol,
		"Create a Bristol Singles Case & Execute Case Details",
		"Verify Bristol case details",
		domain.StateAccepted,
		caseDetails("A Clerk", "Bristol", "Standard Track")))
}
