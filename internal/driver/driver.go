// Package driver implements the workflow actor on Playwright. One Browser is shared
// by a run; each scenario attempt gets its own Session backed by a fresh browser
// context, so cookies and IDAM sessions never leak between attempts.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/et-e2e/internal/obs"
)

// ErrUnavailable is returned by Launch when Playwright or its browser is not installed.
var ErrUnavailable = errors.New("driver: playwright unavailable")

// Credentials is the IDAM login used by AuthenticateWithIdam.
type Credentials struct {
	Username string
	Password string
}

// Options configures one session.
type Options struct {
	BaseURL         string
	User            Credentials
	ActionTimeout   time.Duration // default for every Playwright action
	NextStepTimeout time.Duration // how long the Next step dropdown may take to offer an event
	SettleTimeout   time.Duration
	MinSettleDelay  time.Duration
	Now             func() time.Time // dates typed into forms; defaults to time.Now
}

func (o *Options) defaults() {
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 5 * time.Second
	}
	if o.NextStepTimeout <= 0 {
		o.NextStepTimeout = 3 * time.Second
	}
	if o.SettleTimeout <= 0 {
		o.SettleTimeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Browser owns the Playwright process and one Chromium instance.
type Browser struct {
	logger  *slog.Logger
	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// Launch starts Playwright and Chromium. Errors wrap ErrUnavailable when the driver or
// browser binaries are missing, so callers can skip rather than fail.
func Launch(headless bool) (*Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("%w: launch chromium: %v", ErrUnavailable, err)
	}
	return &Browser{logger: obs.Pkg("driver"), pw: pw, browser: browser}, nil
}

// NewSession opens a fresh browser context and page configured by opts.
func (b *Browser) NewSession(ctx context.Context, opts Options) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts.defaults()
	b.mu.Lock()
	browser := b.browser
	b.mu.Unlock()
	if browser == nil {
		return nil, errors.New("driver: browser closed")
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		BaseURL:           playwright.String(opts.BaseURL),
		IgnoreHttpsErrors: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("driver: new context: %w", err)
	}
	bctx.SetDefaultTimeout(ms(opts.ActionTimeout))
	bctx.SetDefaultNavigationTimeout(ms(opts.SettleTimeout))

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("driver: new page: %w", err)
	}
	return &Session{opts: opts, bctx: bctx, page: page}, nil
}

// Close shuts down Chromium and the Playwright driver.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	var errs []error
	if err := b.browser.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := b.pw.Stop(); err != nil {
		errs = append(errs, err)
	}
	b.browser = nil
	if len(errs) > 0 {
		b.logger.Warn("browser_close_failed", "error", errors.Join(errs...))
	}
	return errors.Join(errs...)
}

func ms(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
