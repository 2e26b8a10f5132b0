// Package idam obtains the two credentials the CCD data store requires: a user access
// token from IDAM (OAuth2 password grant) and a service token leased from the S2S
// testing-support endpoint. Both are cached until shortly before they expire.
package idam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/oauth2"

	"github.com/kuitang/et-e2e/internal/domain"
	"github.com/kuitang/et-e2e/internal/errs"
	"github.com/kuitang/et-e2e/internal/obs"
)

const (
	// expirySkew is subtracted from every expiry so a token is never used in its last moments.
	expirySkew = 30 * time.Second
	// fallbackServiceTTL applies when a leased S2S token carries no readable exp claim.
	fallbackServiceTTL = 5 * time.Minute
)

// Credentials is an IDAM username and password.
type Credentials struct {
	Username string
	Password string
}

// Config configures a Client.
type Config struct {
	IdamURL      string // token endpoint {IdamURL}/o/token unless Issuer is set
	Issuer       string // optional OIDC issuer for endpoint discovery
	ClientID     string
	ClientSecret string
	Scopes       []string

	S2SURL       string
	Microservice string

	Users map[domain.UserType]Credentials

	// HTTPClient defaults to a client with an obs.Transport.
	HTTPClient *http.Client
}

// Client caches user and service tokens.
type Client struct {
	httpClient   *http.Client
	oauth        *oauth2.Config
	provider     *oidc.Provider
	userInfoURL  string
	s2sURL       string
	microservice string
	users        map[domain.UserType]Credentials
	now          func() time.Time

	mu         sync.Mutex
	tokens     map[domain.UserType]*oauth2.Token
	uids       map[domain.UserType]string
	service    string
	serviceExp time.Time
}

// New builds a Client. When cfg.Issuer is set the token and userinfo endpoints are
// discovered from its OIDC configuration, which requires network access.
func New(ctx context.Context, cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: obs.NewTransport("idam", nil), Timeout: 30 * time.Second}
	}
	idamURL := strings.TrimRight(cfg.IdamURL, "/")

	c := &Client{
		httpClient:   httpClient,
		userInfoURL:  idamURL + "/o/userinfo",
		s2sURL:       strings.TrimRight(cfg.S2SURL, "/"),
		microservice: cfg.Microservice,
		users:        cfg.Users,
		now:          time.Now,
		tokens:       make(map[domain.UserType]*oauth2.Token),
		uids:         make(map[domain.UserType]string),
	}

	endpoint := oauth2.Endpoint{
		TokenURL:  idamURL + "/o/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	if cfg.Issuer != "" {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.Issuer)
		if err != nil {
			return nil, errs.Wrap(errs.Unavailable, "idam: OIDC discovery", err)
		}
		c.provider = provider
		endpoint = provider.Endpoint()
		endpoint.AuthStyle = oauth2.AuthStyleInParams
	}

	c.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       cfg.Scopes,
	}
	return c, nil
}

// UserToken returns an access token for the given user type.
func (c *Client) UserToken(ctx context.Context, user domain.UserType) (string, error) {
	tok, err := c.userToken(ctx, user)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

func (c *Client) userToken(ctx context.Context, user domain.UserType) (*oauth2.Token, error) {
	c.mu.Lock()
	tok := c.tokens[user]
	c.mu.Unlock()
	if tok != nil && (tok.Expiry.IsZero() || c.now().Add(expirySkew).Before(tok.Expiry)) {
		return tok, nil
	}

	creds, ok := c.users[user]
	if !ok || creds.Username == "" {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("idam: no credentials for user type %q", user))
	}

	tok, err := c.oauth.PasswordCredentialsToken(oauth2ctx(ctx, c.httpClient), creds.Username, creds.Password)
	if err != nil {
		return nil, classifyTokenError(err)
	}

	c.mu.Lock()
	c.tokens[user] = tok
	c.mu.Unlock()
	obs.From(ctx).Info("idam_token", "user_type", string(user), "expires", tok.Expiry.UTC().Format(time.RFC3339))
	return tok, nil
}

// UserID returns the IDAM uid of the given user type, as required in CCD caseworker paths.
func (c *Client) UserID(ctx context.Context, user domain.UserType) (string, error) {
	c.mu.Lock()
	uid := c.uids[user]
	c.mu.Unlock()
	if uid != "" {
		return uid, nil
	}

	tok, err := c.userToken(ctx, user)
	if err != nil {
		return "", err
	}

	if c.provider != nil {
		info, err := c.provider.UserInfo(oauth2ctx(ctx, c.httpClient), oauth2.StaticTokenSource(tok))
		if err != nil {
			return "", errs.Wrap(errs.Unavailable, "idam: userinfo", err)
		}
		var claims struct {
			UID string `json:"uid"`
		}
		if err := info.Claims(&claims); err != nil {
			return "", errs.Wrap(errs.Internal, "idam: userinfo claims", err)
		}
		uid = claims.UID
		if uid == "" {
			uid = info.Subject
		}
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
		if err != nil {
			return "", errs.Wrap(errs.Internal, "idam: userinfo request", err)
		}
		tok.SetAuthHeader(req)
		body, err := c.do(req)
		if err != nil {
			return "", fmt.Errorf("idam: userinfo: %w", err)
		}
		uid = gjson.GetBytes(body, "uid").String()
		if uid == "" {
			uid = gjson.GetBytes(body, "sub").String()
		}
	}
	if uid == "" {
		return "", errs.New(errs.Internal, "idam: userinfo carried neither uid nor sub")
	}

	c.mu.Lock()
	c.uids[user] = uid
	c.mu.Unlock()
	return uid, nil
}

// ServiceToken returns an S2S token for the configured microservice.
func (c *Client) ServiceToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.service != "" && c.now().Add(expirySkew).Before(c.serviceExp) {
		tok := c.service
		c.mu.Unlock()
		return tok, nil
	}
	c.mu.Unlock()

	payload, err := sjson.SetBytes([]byte(`{}`), "microservice", c.microservice)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "s2s: lease body", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.s2sURL+"/testing-support/lease", strings.NewReader(string(payload)))
	if err != nil {
		return "", errs.Wrap(errs.Internal, "s2s: lease request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("s2s: lease: %w", err)
	}
	tok := strings.TrimSpace(string(body))
	if tok == "" {
		return "", errs.New(errs.Internal, "s2s: lease returned an empty token")
	}

	exp, ok := tokenExpiry(tok)
	if !ok {
		exp = c.now().Add(fallbackServiceTTL)
		obs.From(ctx).Warn("s2s_token_no_expiry", "microservice", c.microservice)
	}

	c.mu.Lock()
	c.service = tok
	c.serviceExp = exp
	c.mu.Unlock()
	return tok, nil
}

// Invalidate forgets the cached token of user and the S2S lease. The user id is kept;
// it does not change when a token is revoked.
func (c *Client) Invalidate(user domain.UserType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, user)
	c.service = ""
	c.serviceExp = time.Time{}
}

// tokenExpiry reads the exp claim of a compact JWT without verifying its signature.
// The token is only forwarded to CCD, which verifies it.
func tokenExpiry(raw string) (time.Time, bool) {
	parsed, err := jwt.ParseSigned(raw)
	if err != nil {
		return time.Time{}, false
	}
	var claims jwt.Claims
	if err := parsed.UnsafeClaimsWithoutVerification(&claims); err != nil || claims.Expiry == nil {
		return time.Time{}, false
	}
	return claims.Expiry.Time(), true
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "read response", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, errs.New(errs.FromHTTPStatus(resp.StatusCode),
			fmt.Sprintf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, obs.TruncateForLog(string(body), 200)))
	}
	return body, nil
}

func oauth2ctx(ctx context.Context, client *http.Client) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return errs.Wrap(errs.FromHTTPStatus(re.Response.StatusCode), "idam: password grant", err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.Wrap(errs.Unavailable, "idam: password grant", err)
}
