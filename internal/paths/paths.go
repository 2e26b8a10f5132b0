// Package paths declares the end-to-end scenarios of the suite. Each scenario seeds a
// case from a fixture in data/, drives one or more workflows through internal/steps and
// is tagged for selection by office.
package paths

import (
	"context"
	"fmt"
	"strings"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/scenario"
	"github.com/kuitang/et-e2e/internal/steps"
)

// TagE2E is carried by every scenario.
const TagE2E = "@e2e"

var registry []scenario.Scenario

func register(sc scenario.Scenario) {
	for _, existing := range registry {
		if existing.FullName() == sc.FullName() {
			panic(fmt.Sprintf("paths: scenario %q registered twice", sc.FullName()))
		}
	}
	registry = append(registry, sc)
}

// All returns every registered scenario in declaration order.
func All() []scenario.Scenario {
	return append([]scenario.Scenario(nil), registry...)
}

// Lookup returns the scenario whose FullName or Name equals name.
func Lookup(name string) (scenario.Scenario, bool) {
	for _, sc := range registry {
		if sc.FullName() == name || sc.Name == name {
			return sc, true
		}
	}
	return scenario.Scenario{}, false
}

// singles builds a scenario on the office's singles fixture. The case is always
// accepted first; then runs after it.
func singles(ct domain.CaseType, feature, name string, expect domain.State, then ...scenario.Exercise) scenario.Scenario {
	accept := func(ctx context.Context, a steps.Actor, caseID domain.CaseID) error {
		return steps.AcceptCaseEvent(ctx, a, caseID, domain.EventAcceptCase)
	}
	return scenario.Scenario{
		Feature:  feature,
		Name:     name,
		Tags:     []string{TagE2E, ct.Tag()},
		Retries:  scenario.DefaultRetries,
		Fixture:  FixtureFor(ct),
		CaseType: ct,
		Exercise: scenario.Sequence(append([]scenario.Exercise{accept}, then...)...),
		Expect:   expect,
	}
}

// FixtureFor is the singles fixture of an office, relative to the fixtures directory.
func FixtureFor(ct domain.CaseType) string {
	return "ccd-case-" + strings.ToLower(string(ct)) + "-data.json"
}

// event adapts a helper taking only an event into a scenario exercise.
func event(helper func(context.Context, steps.Actor, domain.Event) error, ev domain.Event) scenario.Exercise {
	return func(ctx context.Context, a steps.Actor, _ domain.CaseID) error {
		return helper(ctx, a, ev)
	}
}

func caseDetails(clerk, location, track string) scenario.Exercise {
	return func(ctx context.Context, a steps.Actor, _ domain.CaseID) error {
		return steps.CaseDetails(ctx, a, domain.EventCaseDetails, clerk, location, track)
	}
}
