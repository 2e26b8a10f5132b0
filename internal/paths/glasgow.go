package paths

import (
	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/steps"
)

func init() {
	register(singles(domain.CaseTypeGlasgow,
		"Create a Glasgow Singles Case & Accept",
		"Verify Glasgow case is accepted",
		domain.StateAccepted))

	register(singles(domain.CaseTypeGlasgow,
		"Create a Glasgow Singles Case & Close",
		"Verify Glasgow case is closed",
		domain.StateClosed,
		event(steps.CloseCase, domain.EventCloseCase)))
}
