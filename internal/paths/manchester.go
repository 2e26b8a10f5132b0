package paths

import (
	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/fixture"
	"github.com/kuitang/et-e2e/internal/steps"
)

func init() {
	register(singles(domain.CaseTypeManchester,
		"Create a Manchester Singles Case & Accept",
		"Verify Manchester case is accepted",
		domain.StateAccepted))

	register(singles(domain.CaseTypeManchester,
		"Create a Manchester Singles Case & Execute Restricted Reporting",
		"Verify Manchester case Restricted Reporting",
		domain.StateAccepted,
		event(steps.RestrictedReporting, domain.EventRestrictedReporting)))

	register(singles(domain.CaseTypeManchester,
		"Create a Manchester Singles Case & Execute Case Details",
		"Verify Manchester case details",
		domain.StateAccepted,
		caseDetails("A Clerk", "Manchester", "Fast Track")))

	cd := singles(domain.CaseTypeManchester,
		"Create a Manchester Singles Case & Execute Claimant Details",
		"Verify Manchester claimant details",
		domain.StateAccepted,
		event(steps.ClaimantDetails, domain.EventClaimantDetails))
	// The claimant form is prefilled from the fixture; a fresh fee reference keeps
	// retried cases apart in search results.
	cd.Overrides = map[string]any{"feeGroupReference": fixture.Unique("MAN")}
	register(cd)

	register(singles(domain.CaseTypeManchester,
		"Create a Manchester Singles Case & Close",
		"Verify Manchester case is closed",
		domain.StateClosed,
		event(steps.Jurisdiction, domain.EventJurisdiction),
		event(steps.CloseCase, domain.EventCloseCase)))
}
