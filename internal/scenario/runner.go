package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kuitang/et-e2e/internal/ccd"
	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/errs"
	"github.com/kuitang/et-e2e/internal/obs"
	"github.com/kuitang/et-e2e/internal/steps"
)

// Runner executes scenarios.
type Runner struct {
	Seeder    Seeder
	Sessions  SessionFactory
	Retries   int // used by scenarios declaring DefaultRetries
	Workers   int // scenarios run in parallel by RunAll; at least 1
	Artifacts *Artifacts
	RunID     string // generated when empty

	// CaseDetailsRoute is the ExUI route prefix for opening a case;
	// steps.DefaultCaseDetailsRoute when empty.
	CaseDetailsRoute string
}

// Run executes sc until an attempt passes or its attempts are used up. Every failure,
// seeding included, uses up one attempt; the next attempt seeds a fresh case.
func (r *Runner) Run(ctx context.Context, sc Scenario) Result {
	r.ensureRunID()
	res := Result{Feature: sc.Feature, Name: sc.Name, Tags: sc.Tags}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	ctx = obs.WithCorrelation(ctx, obs.Correlation{
		RunID:    r.RunID,
		Scenario: sc.FullName(),
		CaseType: string(sc.CaseType),
	})
	logger := obs.From(ctx)
	if r.CaseDetailsRoute != "" {
		ctx = steps.WithCaseDetailsRoute(ctx, r.CaseDetailsRoute)
	}

	if err := sc.Validate(); err != nil {
		res.Attempts = append(res.Attempts, failed(1, "", PhaseSeed, err, 0))
		logger.Error("scenario_invalid", "error", err)
		return res
	}

	total := sc.attempts(r.Retries)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			res.Attempts = append(res.Attempts, failed(n, "", PhaseSeed, err, 0))
			break
		}
		att := r.attempt(ctx, sc, n)
		res.Attempts = append(res.Attempts, att)
		if att.err == nil {
			res.Passed = true
			logger.Info("scenario_passed", "attempts", n)
			return res
		}
		if n < total {
			logger.Warn("scenario_retry", "attempt", n, "of", total, "error", att.err)
		}
	}
	logger.Error("scenario_failed", "attempts", len(res.Attempts), "error", res.Err())
	return res
}

func (r *Runner) attempt(ctx context.Context, sc Scenario, n int) Attempt {
	start := time.Now()
	ctx = obs.WithCorrelation(ctx, obs.Correlation{Attempt: n})
	logger := obs.From(ctx)
	logger.Info("attempt_start")

	caseID, err := r.Seeder.Seed(ctx, ccd.SeedRequest{
		Fixture:   sc.Fixture,
		CaseType:  sc.CaseType,
		Overrides: sc.Overrides,
	})
	if err != nil {
		logger.Warn("attempt_failed", "phase", PhaseSeed, "error", err)
		return failed(n, "", PhaseSeed, err, time.Since(start))
	}
	ctx = obs.WithCorrelation(ctx, obs.Correlation{CaseID: caseID.String()})

	sess, err := r.Sessions(ctx)
	if err != nil {
		obs.From(ctx).Warn("attempt_failed", "phase", PhaseSession, "error", err)
		return failed(n, caseID, PhaseSession, err, time.Since(start))
	}
	defer func() {
		if err := sess.Close(); err != nil {
			obs.From(ctx).Warn("session_close_failed", "error", err)
		}
	}()

	phase := PhaseExercise
	err = sc.Exercise(ctx, sess, caseID)
	if err == nil && sc.Expect != "" {
		phase = PhaseAssert
		err = expectState(ctx, sess, sc)
	}
	if err == nil {
		obs.From(ctx).Info("attempt_passed", "dur_ms", time.Since(start).Milliseconds())
		return Attempt{Number: n, CaseID: caseID, Duration: time.Since(start)}
	}

	att := failed(n, caseID, phase, err, 0)
	att.Screenshot = r.capture(ctx, sess, sc, n)
	att.Duration = time.Since(start)
	obs.From(ctx).Warn("attempt_failed", "phase", phase, "error", err)
	return att
}

func expectState(ctx context.Context, sess Session, sc Scenario) error {
	got, err := sess.CaseState(ctx)
	if err != nil {
		return err
	}
	if got != sc.Expect {
		return errs.New(errs.FailedPrecondition, fmt.Sprintf("case state is %s, want %s", got, sc.Expect))
	}
	return nil
}

// capture stores a screenshot of the failed attempt. Problems are logged only; they
// never replace the attempt's own error.
func (r *Runner) capture(ctx context.Context, sess Session, sc Scenario, n int) []string {
	if r.Artifacts == nil {
		return nil
	}
	// The attempt context may be the reason for the failure.
	shotCtx := context.WithoutCancel(ctx)
	png, err := sess.Screenshot(shotCtx)
	if err != nil {
		obs.From(ctx).Warn("screenshot_failed", "error", err)
		return nil
	}
	locations, err := r.Artifacts.SaveScreenshot(shotCtx, r.RunID, sc.FullName(), n, png)
	if err != nil {
		obs.From(ctx).Warn("screenshot_store_failed", "error", err)
	}
	return locations
}

// RunAll runs scenarios with up to Workers in parallel. The report lists results in
// scenario order. The error is non-nil only when ctx ended the run early.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) (*Report, error) {
	r.ensureRunID()
	start := time.Now()
	report := &Report{RunID: r.RunID, Started: start.UTC()}

	results := make([]Result, len(scenarios))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Workers, 1))
	for i, sc := range scenarios {
		g.Go(func() error {
			results[i] = r.Run(gctx, sc)
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		report.add(res)
	}
	report.Duration = time.Since(start)
	obs.From(obs.WithCorrelation(ctx, obs.Correlation{RunID: r.RunID})).Info("run_finished",
		"passed", report.Passed, "failed", report.Failed, "dur_ms", report.Duration.Milliseconds())
	return report, ctx.Err()
}

func (r *Runner) ensureRunID() {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
}

func failed(n int, caseID domain.CaseID, phase Phase, err error, d time.Duration) Attempt {
	return Attempt{
		Number:   n,
		CaseID:   caseID,
		Phase:    phase,
		Code:     errs.CodeOf(err),
		Error:    err.Error(),
		Duration: d,
		err:      err,
	}
}
