package paths

import (
	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/steps"
)

func init() {
	register(singles(domain.CaseTypeLeeds,
		"Create a Leeds Singles Case & Accept",
		"Verify Leeds case is accepted",
		domain.StateAccepted))

	register(singles(domain.CaseTypeLeeds,
		"Create a Leeds Singles Case & Execute Jurisdiction",
		"Verify Leeds case Jurisdiction",
		domain.StateAccepted,
		event(steps.Jurisdiction, domain.EventJurisdiction)))

	register(singles(domain.CaseTypeLeeds,
		"Create a Leeds Singles Case & Execute Claimant Representative",
		"Verify Leeds case Claimant Representative",
		domain.StateAccepted,
		event(steps.ClaimantRepresentative, domain.EventClaimantRepresentative)))
}
