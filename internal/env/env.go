// Package env builds the live collaborators shared by the e2e command and the Go test
// entry point: the CCD seeder with its IDAM tokens, the S3 store and browser sessions.
package env

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kuitang/et-e2e/internal/ccd"
	"github.com/kuitang/et-e2e/internal/config"
	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/driver"
	"github.com/kuitang/et-e2e/internal/fixture"
	"github.com/kuitang/et-e2e/internal/idam"
	"github.com/kuitang/et-e2e/internal/s3client"
	"github.com/kuitang/et-e2e/internal/scenario"
)

// Options selects the optional parts of the environment.
type Options struct {
	Browser bool // launch Playwright and provide Sessions
	NeedS3  bool // fixtures are loaded from a bucket
}

// Env holds the collaborators of a run.
type Env struct {
	Seeder   scenario.Seeder
	Sessions scenario.SessionFactory // nil unless Options.Browser
	Store    scenario.ObjectPutter   // nil without S3

	closers []func() error
}

// Build wires cfg into a live environment. The S3 client is created when opts.NeedS3
// is set or cfg names an artifacts bucket.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Env, error) {
	e := &Env{}

	var store *s3client.Client
	if cfg.UsesS3() || opts.NeedS3 {
		var err error
		store, err = s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			UsePathStyle:    cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return nil, err
		}
		e.Store = store
	}

	users := make(map[domain.UserType]idam.Credentials, len(cfg.Users))
	for u, c := range cfg.Users {
		users[u] = idam.Credentials{Username: c.Username, Password: c.Password}
	}
	tokens, err := idam.New(ctx, idam.Config{
		IdamURL:      cfg.IdamURL,
		Issuer:       cfg.IdamIssuer,
		ClientID:     cfg.IdamClientID,
		ClientSecret: cfg.IdamClientSecret,
		Scopes:       strings.Fields(cfg.IdamScope),
		S2SURL:       cfg.S2SURL,
		Microservice: cfg.S2SMicroservice,
		Users:        users,
	})
	if err != nil {
		return nil, err
	}

	loader := &fixture.Loader{Dir: cfg.FixturesDir}
	if store != nil {
		loader.S3 = store
	}
	e.Seeder = ccd.New(ccd.Options{
		BaseURL:  cfg.DataStoreURL,
		Tokens:   tokens,
		Fixtures: loader,
		RPS:      cfg.SeedRPS,
	})

	if !opts.Browser {
		return e, nil
	}
	b, err := driver.Launch(cfg.Headless)
	if err != nil {
		if errors.Is(err, driver.ErrUnavailable) {
			return nil, fmt.Errorf("%w (install with: go run github.com/playwright-community/playwright-go/cmd/playwright install --with-deps chromium)", err)
		}
		return nil, err
	}
	caseworker := cfg.Users[domain.UserCaseworker]
	sessionOpts := driver.Options{
		BaseURL:         cfg.BaseURL,
		User:            driver.Credentials{Username: caseworker.Username, Password: caseworker.Password},
		ActionTimeout:   cfg.ActionTimeout,
		NextStepTimeout: cfg.NextStepTimeout,
		SettleTimeout:   cfg.SettleTimeout,
		MinSettleDelay:  cfg.MinSettleDelay,
	}
	e.Sessions = func(ctx context.Context) (scenario.Session, error) {
		s, err := b.NewSession(ctx, sessionOpts)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	e.closers = append(e.closers, b.Close)
	return e, nil
}

// Runner returns a runner over e configured from cfg, with failure artifacts going to
// the artifacts directory and bucket when either is set.
func (e *Env) Runner(cfg *config.Config) *scenario.Runner {
	r := &scenario.Runner{
		Seeder:           e.Seeder,
		Sessions:         e.Sessions,
		Retries:          cfg.Retries,
		Workers:          cfg.Workers,
		CaseDetailsRoute: cfg.CaseDetailsRoute,
	}
	if cfg.ArtifactsDir != "" || cfg.ArtifactsBucket != "" {
		r.Artifacts = &scenario.Artifacts{Dir: cfg.ArtifactsDir, Bucket: cfg.ArtifactsBucket, Store: e.Store}
	}
	return r
}

// Close releases the browser, if one was launched.
func (e *Env) Close() error {
	var errList []error
	for _, c := range e.closers {
		errList = append(errList, c())
	}
	return errors.Join(errList...)
}

// FixturesNeedS3 reports whether any scenario loads its fixture from a bucket.
func FixturesNeedS3(scs []scenario.Scenario) bool {
	for _, sc := range scs {
		if s3client.IsURI(sc.Fixture) {
			return true
		}
	}
	return false
}
