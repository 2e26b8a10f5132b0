package paths

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/driver/drivertest"
	"github.com/kuitang/et-e2e/internal/fixture"
	"github.com/kuitang/et-e2e/internal/scenario"
)

const fixturesDir = "../../data"

func TestAll_Valid(t *testing.T) {
	t.Parallel()
	all := All()
	require.NotEmpty(t, all)
	for _, sc := range all {
		require.NoError(t, sc.Validate(), sc.FullName())
		require.True(t, sc.HasTag(TagE2E), sc.FullName())
		require.True(t, sc.HasTag(sc.CaseType.Tag()), sc.FullName())
		require.Equal(t, scenario.DefaultRetries, sc.Retries, sc.FullName())
	}
}

func TestAll_FixturesLoad(t *testing.T) {
	t.Parallel()
	loader := &fixture.Loader{Dir: fixturesDir}
	for _, sc := range All() {
		doc, err := loader.Load(context.Background(), sc.Fixture, sc.Overrides)
		require.NoError(t, err, sc.FullName())
		require.Contains(t, string(doc), string(sc.CaseType), sc.FullName())
	}
}

func TestAll_EveryFixtureUsed(t *testing.T) {
	t.Parallel()
	entries, err := os.ReadDir(fixturesDir)
	require.NoError(t, err)
	used := map[string]bool{}
	for _, sc := range All() {
		used[sc.Fixture] = true
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" {
			require.True(t, used[e.Name()], "fixture %s has no scenario", e.Name())
		}
	}
}

// Every scenario accepts the case first and then selects only registered events.
func TestAll_ExerciseUsesRegistryEvents(t *testing.T) {
	t.Parallel()
	for _, sc := range All() {
		s := drivertest.NewSession()
		require.NoError(t, sc.Exercise(context.Background(), s, "1650000000000001"), sc.FullName())

		calls := s.Calls()
		require.Equal(t, 1, s.Count("AuthenticateWithIdam"), sc.FullName())
		require.Equal(t, "ChooseNextStep|"+domain.EventAcceptCase.String(), firstWithPrefix(calls, "ChooseNextStep"), sc.FullName())
		for _, c := range calls {
			if ev, ok := strings.CutPrefix(c, "ChooseNextStep|"); ok {
				require.True(t, domain.Event(ev).Valid(), "%s: %s", sc.FullName(), ev)
			}
		}

		if sc.Expect != "" {
			got, err := s.CaseState(context.Background())
			require.NoError(t, err)
			require.Equal(t, sc.Expect, got, sc.FullName())
		}
	}
}

func TestRestrictedReportingScenario(t *testing.T) {
	t.Parallel()
	sc, ok := Lookup("Verify Manchester case Restricted Reporting")
	require.True(t, ok)
	require.Equal(t, "Create a Manchester Singles Case & Execute Restricted Reporting", sc.Feature)
	require.Equal(t, []string{"@e2e", "@manchester"}, sc.Tags)
	require.Equal(t, "ccd-case-manchester-data.json", sc.Fixture)
	require.Equal(t, domain.CaseTypeManchester, sc.CaseType)

	s := drivertest.NewSession()
	require.NoError(t, sc.Exercise(context.Background(), s, "1650000000000001"))
	require.Equal(t, []string{
		"Settle",
		"AuthenticateWithIdam",
		"Settle",
		"AmOnPage|/cases/case-details/1650000000000001",
		"ChooseNextStep|Accept/Reject Case",
		"AcceptTheCase",
		"ChooseNextStep|Restricted Reporting",
		"Settle",
		"ExecuteRestrictedReporting",
	}, s.Calls())
}

func TestLookup(t *testing.T) {
	t.Parallel()
	byFull, ok := Lookup("Create a Leeds Singles Case & Accept: Verify Leeds case is accepted")
	require.True(t, ok)
	byName, ok := Lookup("Verify Leeds case is accepted")
	require.True(t, ok)
	require.Equal(t, byFull.FullName(), byName.FullName())

	_, ok = Lookup("Verify Atlantis case")
	require.False(t, ok)
}

func TestSelectByOffice(t *testing.T) {
	t.Parallel()
	got := scenario.Select(All(), scenario.TagFilter{Include: []string{domain.CaseTypeGlasgow.Tag()}})
	require.Len(t, got, 2)
	for _, sc := range got {
		require.Equal(t, domain.CaseTypeGlasgow, sc.CaseType)
	}
}

func TestFixtureFor(t *testing.T) {
	t.Parallel()
	require.Equal(t, "ccd-case-leeds-data.json", FixtureFor(domain.CaseTypeLeeds))
	require.Equal(t, "ccd-case-londoncentral-data.json", FixtureFor(domain.CaseTypeLondonCentral))
}

func TestAll_OfficeTagsMatchCaseType(t *testing.T) {
	t.Parallel()
	for _, sc := range All() {
		require.Equal(t, []string{TagE2E, sc.CaseType.Tag()}, sc.Tags, sc.FullName())
	}
}

func firstWithPrefix(calls []string, method string) string {
	for _, c := range calls {
		if strings.HasPrefix(c, method+"|") {
			return c
		}
	}
	return ""
}
