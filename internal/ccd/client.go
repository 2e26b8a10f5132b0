// Package ccd seeds cases directly through the CCD data store API so a scenario starts
// from a known case without driving the create-case journey in the browser.
//
// Seeding is two calls: fetch an event token for the initiateCase trigger, then submit
// the fixture data with that token. Failures are coded with internal/errs and are not
// retried here; the scenario runner retries the whole attempt.
package ccd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/time/rate"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/errs"
	"github.com/kuitang/et-e2e/internal/obs"
)

const (
	// Jurisdiction is the CCD jurisdiction every ET case type belongs to.
	Jurisdiction = "EMPLOYMENT"
	// InitiateEvent is the CCD event that creates a case.
	InitiateEvent = "initiateCase"

	maxErrorBody = 300
)

// Tokens supplies IDAM and S2S credentials.
type Tokens interface {
	UserToken(ctx context.Context, user domain.UserType) (string, error)
	UserID(ctx context.Context, user domain.UserType) (string, error)
	ServiceToken(ctx context.Context) (string, error)
	// Invalidate drops the cached user token and S2S lease so the next call fetches
	// fresh ones.
	Invalidate(user domain.UserType)
}

// Fixtures loads fixture documents.
type Fixtures interface {
	Load(ctx context.Context, ref string, overrides map[string]any) ([]byte, error)
}

// Options configures a Client.
type Options struct {
	BaseURL    string // CCD data store API
	HTTPClient *http.Client
	Tokens     Tokens
	Fixtures   Fixtures
	RPS        float64         // seeds per second, shared by every caller of this Client
	User       domain.UserType // defaults to Caseworker
}

// SeedRequest describes one case to create.
type SeedRequest struct {
	Fixture   string
	CaseType  domain.CaseType
	Overrides map[string]any
}

// Client creates cases in the CCD data store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     Tokens
	fixtures   Fixtures
	limiter    *rate.Limiter
	user       domain.UserType
}

// New creates a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: obs.NewTransport("ccd", nil), Timeout: 60 * time.Second}
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	user := opts.User
	if user == "" {
		user = domain.UserCaseworker
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     opts.Tokens,
		fixtures:   opts.Fixtures,
		limiter:    rate.NewLimiter(limit, 1),
		user:       user,
	}
}

// CreateCase seeds a case from fixture as caseType and returns its reference.
func (c *Client) CreateCase(ctx context.Context, fixture string, caseType domain.CaseType) (domain.CaseID, error) {
	return c.Seed(ctx, SeedRequest{Fixture: fixture, CaseType: caseType})
}

// Seed creates a case. Every call creates a new case; seeding the same fixture twice
// yields two different references.
func (c *Client) Seed(ctx context.Context, req SeedRequest) (domain.CaseID, error) {
	if !req.CaseType.Valid() {
		return "", errs.New(errs.InvalidArgument, fmt.Sprintf("ccd: unknown case type %q", req.CaseType))
	}
	data, err := c.fixtures.Load(ctx, req.Fixture, req.Overrides)
	if err != nil {
		return "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	start := time.Now()
	requestID := uuid.NewString()
	ctx = obs.WithCorrelation(ctx, obs.Correlation{CaseType: string(req.CaseType)})
	logger := obs.From(ctx).With("request_id", requestID, "fixture", req.Fixture)

	h, uid, err := c.headers(ctx, requestID)
	if err != nil {
		return "", err
	}

	casesPath := fmt.Sprintf("/caseworkers/%s/jurisdictions/%s/case-types/%s",
		url.PathEscape(uid), Jurisdiction, url.PathEscape(string(req.CaseType)))

	tokenBody, err := c.call(ctx, http.MethodGet, casesPath+"/event-triggers/"+InitiateEvent+"/token", h, nil)
	if err != nil {
		return "", err
	}
	eventToken := gjson.GetBytes(tokenBody, "token").String()
	if eventToken == "" {
		return "", errs.New(errs.Internal, "ccd: event trigger response carried no token")
	}

	payload, err := startEventPayload(data, eventToken, requestID)
	if err != nil {
		return "", err
	}
	caseBody, err := c.call(ctx, http.MethodPost, casesPath+"/cases", h, payload)
	if err != nil {
		return "", err
	}

	id, err := domain.ParseCaseID(gjson.GetBytes(caseBody, "id").String())
	if err != nil {
		return "", errs.Wrap(errs.Internal, "ccd: case created without a usable id", err)
	}
	logger.Info("case_seeded", "case_id", string(id), "dur_ms", time.Since(start).Milliseconds())
	return id, nil
}

func (c *Client) headers(ctx context.Context, requestID string) (http.Header, string, error) {
	userToken, err := c.tokens.UserToken(ctx, c.user)
	if err != nil {
		return nil, "", err
	}
	uid, err := c.tokens.UserID(ctx, c.user)
	if err != nil {
		return nil, "", err
	}
	serviceToken, err := c.tokens.ServiceToken(ctx)
	if err != nil {
		return nil, "", err
	}

	h := http.Header{}
	h.Set("Authorization", "Bearer "+userToken)
	h.Set("ServiceAuthorization", "Bearer "+serviceToken)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-Request-Id", requestID)
	return h, uid, nil
}

// startEventPayload builds the submit-event body around the fixture's case data.
func startEventPayload(data []byte, eventToken, requestID string) ([]byte, error) {
	body, err := sjson.SetRawBytes([]byte(`{}`), "data", data)
	set := func(path string, value any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, value)
		}
	}
	set("event.id", InitiateEvent)
	set("event.summary", "Seeded by et-e2e")
	set("event.description", "request "+requestID)
	set("event_token", eventToken)
	set("ignore_warning", false)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "ccd: build payload", err)
	}
	return body, nil
}

func (c *Client) call(ctx context.Context, method, path string, h http.Header, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "ccd: build request", err)
	}
	req.Header = h.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("ccd: %s %s", method, path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "ccd: read response", err)
	}
	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			// A token revoked server-side would otherwise fail every later seed.
			c.tokens.Invalidate(c.user)
			obs.From(ctx).Warn("ccd_tokens_invalidated", "status", resp.StatusCode, "path", path)
		}
		msg := gjson.GetBytes(respBody, "message").String()
		if msg == "" {
			msg = obs.TruncateForLog(string(respBody), maxErrorBody)
		}
		return nil, errs.New(errs.FromHTTPStatus(resp.StatusCode),
			fmt.Sprintf("ccd: %s %s: status %d: %s", method, path, resp.StatusCode, msg))
	}
	return respBody, nil
}
