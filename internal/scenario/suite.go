package scenario

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/errs"
	"github.com/kuitang/et-e2e/internal/fixture"
	"github.com/kuitang/et-e2e/internal/steps"
)

// suiteFile mirrors the YAML schema of a suite file:
//
//	feature: Create a Leeds Singles Case & Execute Jurisdiction
//	scenarios:
//	  - name: Verify Leeds case Jurisdiction
//	    tags: ["@e2e", "@leeds"]
//	    fixture: ccd-case-leeds-data.json
//	    case_type: Leeds
//	    unique: {feeGroupReference: "E2E"}
//	    steps:
//	      - step: accept_case
//	      - step: jurisdiction
//	    expect: Accepted
type suiteFile struct {
	Feature   string          `yaml:"feature"`
	Scenarios []suiteScenario `yaml:"scenarios"`
}

type suiteScenario struct {
	Name      string            `yaml:"name"`
	Feature   string            `yaml:"feature"`
	Tags      []string          `yaml:"tags"`
	Retries   *int              `yaml:"retries"`
	Fixture   string            `yaml:"fixture"`
	CaseType  string            `yaml:"case_type"`
	Overrides map[string]any    `yaml:"overrides"`
	Unique    map[string]string `yaml:"unique"` // JSON path -> prefix of a fresh value per attempt
	Steps     []suiteStep       `yaml:"steps"`
	Expect    string            `yaml:"expect"`
}

type suiteStep struct {
	Step     string `yaml:"step"`
	Event    string `yaml:"event"`
	Clerk    string `yaml:"clerk"`
	Location string `yaml:"location"`
	Track    string `yaml:"track"`
}

// stepDef binds a step name to its helper and the event it selects by default.
type stepDef struct {
	event domain.Event
	build func(s suiteStep, event domain.Event) (Exercise, error)
}

func eventStep(helper func(context.Context, steps.Actor, domain.Event) error) func(suiteStep, domain.Event) (Exercise, error) {
	return func(_ suiteStep, event domain.Event) (Exercise, error) {
		return func(ctx context.Context, a steps.Actor, _ domain.CaseID) error {
			return helper(ctx, a, event)
		}, nil
	}
}

var stepDefs = map[string]stepDef{
	"accept_case": {domain.EventAcceptCase, func(_ suiteStep, event domain.Event) (Exercise, error) {
		return func(ctx context.Context, a steps.Actor, caseID domain.CaseID) error {
			return steps.AcceptCaseEvent(ctx, a, caseID, event)
		}, nil
	}},
	"case_details": {domain.EventCaseDetails, func(s suiteStep, event domain.Event) (Exercise, error) {
		if s.Clerk == "" || s.Location == "" || s.Track == "" {
			return nil, errors.New("case_details needs clerk, location and track")
		}
		return func(ctx context.Context, a steps.Actor, _ domain.CaseID) error {
			return steps.CaseDetails(ctx, a, event, s.Clerk, s.Location, s.Track)
		}, nil
	}},
	"claimant_details":          {domain.EventClaimantDetails, eventStep(steps.ClaimantDetails)},
	"claimant_representative":   {domain.EventClaimantRepresentative, eventStep(steps.ClaimantRepresentative)},
	"respondent_details":        {domain.EventRespondentDetails, eventStep(steps.ClaimantRespondentDetails)},
	"respondent_representative": {domain.EventRespondentRep, eventStep(steps.RespondentRepresentative)},
	"jurisdiction":              {domain.EventJurisdiction, eventStep(steps.Jurisdiction)},
	"close_case":                {domain.EventCloseCase, eventStep(steps.CloseCase)},
	"restricted_reporting":      {domain.EventRestrictedReporting, eventStep(steps.RestrictedReporting)},
}

// StepNames lists the step names a suite file may use.
func StepNames() []string {
	names := make([]string, 0, len(stepDefs))
	for name := range stepDefs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LoadSuiteFile reads a suite file from disk.
func LoadSuiteFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.NotFound, "suite "+path, err)
	}
	scs, err := LoadSuite(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	return scs, nil
}

// LoadSuite parses and compiles a suite. Every problem is reported before anything runs.
func LoadSuite(r io.Reader) ([]Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file suiteFile
	if err := dec.Decode(&file); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "parse suite", err)
	}
	if len(file.Scenarios) == 0 {
		return nil, errs.New(errs.InvalidArgument, "suite declares no scenarios")
	}

	var problems []string
	out := make([]Scenario, 0, len(file.Scenarios))
	for i, raw := range file.Scenarios {
		sc, err := compile(file.Feature, raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("scenario %d (%s): %v", i+1, raw.Name, err))
			continue
		}
		out = append(out, sc)
	}
	if len(problems) > 0 {
		return nil, errs.New(errs.InvalidArgument, "invalid suite:\n  - "+strings.Join(problems, "\n  - "))
	}
	return out, nil
}

func compile(feature string, raw suiteScenario) (Scenario, error) {
	if raw.Feature != "" {
		feature = raw.Feature
	}
	caseType, err := domain.ParseCaseType(raw.CaseType)
	if err != nil {
		return Scenario{}, err
	}
	sc := Scenario{
		Feature:  feature,
		Name:     raw.Name,
		Tags:     raw.Tags,
		Retries:  DefaultRetries,
		Fixture:  raw.Fixture,
		CaseType: caseType,
	}
	if raw.Retries != nil {
		sc.Retries = *raw.Retries
	}
	if raw.Expect != "" {
		if sc.Expect, err = domain.ParseState(raw.Expect); err != nil {
			return Scenario{}, err
		}
	}
	if len(raw.Overrides)+len(raw.Unique) > 0 {
		sc.Overrides = make(map[string]any, len(raw.Overrides)+len(raw.Unique))
		for path, v := range raw.Overrides {
			sc.Overrides[path] = v
		}
		for path, prefix := range raw.Unique {
			sc.Overrides[path] = fixture.Unique(prefix)
		}
	}

	if len(raw.Steps) == 0 {
		return Scenario{}, errors.New("no steps")
	}
	exercises := make([]Exercise, 0, len(raw.Steps))
	for i, st := range raw.Steps {
		def, ok := stepDefs[st.Step]
		if !ok {
			return Scenario{}, fmt.Errorf("step %d: unknown step %q (known: %s)", i+1, st.Step, strings.Join(StepNames(), ", "))
		}
		event := def.event
		if st.Event != "" {
			if event, err = domain.ParseEvent(st.Event); err != nil {
				return Scenario{}, fmt.Errorf("step %d: %w", i+1, err)
			}
		}
		ex, err := def.build(st, event)
		if err != nil {
			return Scenario{}, fmt.Errorf("step %d: %w", i+1, err)
		}
		exercises = append(exercises, ex)
	}
	sc.Exercise = Sequence(exercises...)

	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

// Sequence runs exercises in order and stops at the first error.
func Sequence(exercises ...Exercise) Exercise {
	return func(ctx context.Context, a steps.Actor, caseID domain.CaseID) error {
		for _, ex := range exercises {
			if err := ex(ctx, a, caseID); err != nil {
				return err
			}
		}
		return nil
	}
}
