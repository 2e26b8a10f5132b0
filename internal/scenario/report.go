package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/errs"
)

// Phase names the part of an attempt that failed.
type Phase string

const (
	PhaseSeed     Phase = "seed"
	PhaseSession  Phase = "session"
	PhaseExercise Phase = "exercise"
	PhaseAssert   Phase = "assert"
)

// Attempt records one try at a scenario.
type Attempt struct {
	Number     int           `json:"number"`
	CaseID     domain.CaseID `json:"case_id,omitempty"`
	Phase      Phase         `json:"failed_phase,omitempty"`
	Code       errs.Code     `json:"error_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	Screenshot []string      `json:"screenshot,omitempty"`
	Duration   time.Duration `json:"duration_ns"`

	err error
}

// Err returns the attempt's failure, or nil.
func (a Attempt) Err() error { return a.err }

// Result records every attempt at one scenario.
type Result struct {
	Feature  string        `json:"feature"`
	Name     string        `json:"name"`
	Tags     []string      `json:"tags"`
	Passed   bool          `json:"passed"`
	Attempts []Attempt     `json:"attempts"`
	Duration time.Duration `json:"duration_ns"`
}

// Err returns the last attempt's failure when the scenario did not pass.
func (r Result) Err() error {
	if r.Passed || len(r.Attempts) == 0 {
		return nil
	}
	return r.Attempts[len(r.Attempts)-1].err
}

// Report summarizes a run.
type Report struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Results  []Result      `json:"results"`
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	if res.Passed {
		r.Passed++
	} else {
		r.Failed++
	}
}

// OK reports whether every scenario passed.
func (r *Report) OK() bool { return r.Failed == 0 }

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Save writes the report to path, creating parent directories.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// Summary is a one-line human summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d passed, %d failed in %s", r.Passed, r.Failed, r.Duration.Round(time.Millisecond))
}
