package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/obs"
)

// Session drives one browser context. It is not safe for concurrent use; a scenario
// attempt is sequential.
type Session struct {
	opts Options
	bctx playwright.BrowserContext
	page playwright.Page
}

// AmOnPage opens path relative to the application base URL.
func (s *Session) AmOnPage(ctx context.Context, path string) error {
	return s.do(ctx, "am_on_page", func() error {
		_, err := s.page.Goto(s.opts.BaseURL+path, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   s.timeout(ctx, s.opts.SettleTimeout),
		})
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		return nil
	})
}

// AuthenticateWithIdam loads the application, which redirects to the IDAM login page,
// and signs in with the configured user.
func (s *Session) AuthenticateWithIdam(ctx context.Context) error {
	return s.do(ctx, "authenticate", func() error {
		if _, err := s.page.Goto(s.opts.BaseURL+"/", playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   s.timeout(ctx, s.opts.SettleTimeout),
		}); err != nil {
			return fmt.Errorf("open login: %w", err)
		}
		username := s.page.Locator(selIdamUsername)
		if err := s.visible(ctx, username, s.opts.SettleTimeout); err != nil {
			return fmt.Errorf("login form: %w", err)
		}
		if err := username.Fill(s.opts.User.Username); err != nil {
			return fmt.Errorf("fill username: %w", err)
		}
		if err := s.page.Locator(selIdamPassword).Fill(s.opts.User.Password); err != nil {
			return fmt.Errorf("fill password: %w", err)
		}
		if err := s.page.Locator(selIdamSubmit).First().Click(); err != nil {
			return fmt.Errorf("submit login: %w", err)
		}
		if err := s.page.WaitForURL(s.opts.BaseURL+"/**", playwright.PageWaitForURLOptions{
			Timeout: s.timeout(ctx, s.opts.SettleTimeout),
		}); err != nil {
			if msg := s.text(s.page.Locator(selIdamLoginError)); msg != "" {
				return fmt.Errorf("login rejected: %s", msg)
			}
			return fmt.Errorf("login did not return to the application: %w", err)
		}
		return nil
	})
}

// ChooseNextStep selects event in the Next step dropdown and presses Go.
func (s *Session) ChooseNextStep(ctx context.Context, event domain.Event) error {
	return s.do(ctx, "choose_next_step", func() error {
		next := s.page.Locator(selNextStep)
		if err := s.visible(ctx, next, s.opts.NextStepTimeout); err != nil {
			return fmt.Errorf("next step dropdown: %w", err)
		}
		if _, err := next.SelectOption(playwright.SelectOptionValues{
			Labels: playwright.StringSlice(event.String()),
		}, playwright.LocatorSelectOptionOptions{
			Timeout: s.timeout(ctx, s.opts.NextStepTimeout),
		}); err != nil {
			return fmt.Errorf("event %q not offered: %w", event, err)
		}
		if err := s.page.Locator(selGo).Click(); err != nil {
			return fmt.Errorf("press Go: %w", err)
		}
		return nil
	}, "event", event.String())
}

// Settle waits for network idle and for the ExUI spinner to disappear, then for the
// configured minimum delay.
func (s *Session) Settle(ctx context.Context) error {
	return s.do(ctx, "settle", func() error {
		start := time.Now()
		if err := s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateNetworkidle,
			Timeout: s.timeout(ctx, s.opts.SettleTimeout),
		}); err != nil {
			return fmt.Errorf("wait for network idle: %w", err)
		}
		if err := s.page.Locator(selSpinner).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateHidden,
			Timeout: s.timeout(ctx, s.opts.SettleTimeout),
		}); err != nil {
			return fmt.Errorf("wait for spinner: %w", err)
		}
		if remaining := s.opts.MinSettleDelay - time.Since(start); remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
		return nil
	})
}

func (s *Session) AcceptTheCase(ctx context.Context) error {
	return s.submit(ctx, acceptForm(s.opts.Now()))
}

func (s *Session) AmendTheCaseDetails(ctx context.Context, clerk, location, track string) error {
	return s.submit(ctx, caseDetailsForm(clerk, location, track))
}

func (s *Session) ExecuteClaimantDetails(ctx context.Context) error {
	return s.submit(ctx, claimantDetailsForm)
}

func (s *Session) ExecuteClaimantRepresentative(ctx context.Context) error {
	return s.submit(ctx, claimantRepresentativeForm)
}

func (s *Session) ExecuteRespondentDetails(ctx context.Context) error {
	return s.submit(ctx, respondentDetailsForm)
}

func (s *Session) ExecuteRespondentRepresentative(ctx context.Context) error {
	return s.submit(ctx, respondentRepresentativeForm)
}

func (s *Session) ExecuteAddAmendJurisdiction(ctx context.Context) error {
	return s.submit(ctx, jurisdictionForm)
}

func (s *Session) ExecuteCloseCase(ctx context.Context) error {
	return s.submit(ctx, closeCaseForm)
}

func (s *Session) ExecuteRestrictedReporting(ctx context.Context) error {
	return s.submit(ctx, restrictedReportingForm)
}

// CaseState reads the end state of the latest event from the History tab of the case
// currently open.
func (s *Session) CaseState(ctx context.Context) (domain.State, error) {
	var state domain.State
	err := s.do(ctx, "case_state", func() error {
		if err := s.page.Locator(selHistoryTab).Click(); err != nil {
			return fmt.Errorf("open history tab: %w", err)
		}
		cell := s.page.Locator(selEndState).First()
		if err := s.visible(ctx, cell, s.opts.ActionTimeout); err != nil {
			return fmt.Errorf("end state: %w", err)
		}
		text, err := cell.InnerText()
		if err != nil {
			return fmt.Errorf("end state: %w", err)
		}
		state, err = domain.ParseState(text)
		return err
	})
	return state, err
}

// Screenshot captures the full page as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Timeout:  playwright.Float(ms(s.opts.ActionTimeout)),
	})
}

// Close discards the browser context and everything in it.
func (s *Session) Close() error {
	return s.bctx.Close()
}

// submit completes f, presses Continue, then Submit on the check-your-answers page,
// and waits for the event confirmation banner.
func (s *Session) submit(ctx context.Context, f form) error {
	return s.do(ctx, "submit_event", func() error {
		for _, fld := range f.fields {
			if err := s.apply(ctx, fld); err != nil {
				return err
			}
		}
		if err := s.page.Locator(selContinue).First().Click(); err != nil {
			return fmt.Errorf("continue: %w", err)
		}
		submit := s.page.Locator(selSubmit).First()
		if err := s.visible(ctx, submit, s.opts.SettleTimeout); err != nil {
			if msg := s.text(s.page.Locator(selErrorSummary)); msg != "" {
				return fmt.Errorf("form rejected: %s", msg)
			}
			return fmt.Errorf("check your answers: %w", err)
		}
		if err := submit.Click(); err != nil {
			return fmt.Errorf("submit: %w", err)
		}
		if err := s.visible(ctx, s.page.Locator(selEventBanner).First(), s.opts.SettleTimeout); err != nil {
			return fmt.Errorf("event confirmation: %w", err)
		}
		return nil
	}, "event", f.event.String())
}

func (s *Session) apply(ctx context.Context, f field) error {
	loc := s.page.Locator(f.selector).First()
	var err error
	switch f.kind {
	case fill:
		err = loc.Fill(f.value)
	case choose:
		_, err = loc.SelectOption(playwright.SelectOptionValues{
			Labels: playwright.StringSlice(f.value),
		}, playwright.LocatorSelectOptionOptions{Timeout: s.timeout(ctx, s.opts.ActionTimeout)})
	case click:
		err = loc.Click()
	}
	if err != nil {
		return fmt.Errorf("field %s: %w", f.selector, err)
	}
	return nil
}

func (s *Session) visible(ctx context.Context, loc playwright.Locator, d time.Duration) error {
	return loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: s.timeout(ctx, d),
	})
}

// text returns the trimmed inner text of the first match, or "" when nothing matches.
func (s *Session) text(loc playwright.Locator) string {
	if n, err := loc.Count(); err != nil || n == 0 {
		return ""
	}
	t, err := loc.First().InnerText()
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(t), " ")
}

// timeout caps d at the time left before ctx's deadline.
func (s *Session) timeout(ctx context.Context, d time.Duration) *float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = max(left, time.Millisecond)
		}
	}
	return playwright.Float(ms(d))
}

// do runs one driver action with logging. Playwright calls do not take a context, so
// cancellation is checked before the action and deadlines are applied through timeout.
func (s *Session) do(ctx context.Context, action string, fn func() error, attrs ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	logger := obs.From(ctx).With(attrs...)
	if err != nil {
		logger.Warn("driver_action_failed", "action", action, "url", s.page.URL(), "dur_ms", time.Since(start).Milliseconds(), "error", err)
		return fmt.Errorf("driver: %s: %w", action, err)
	}
	logger.Debug("driver_action", "action", action, "dur_ms", time.Since(start).Milliseconds())
	return nil
}
