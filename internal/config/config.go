// Package config loads suite configuration from environment variables, validates it in
// one pass and provides defaults suited to running against a preview environment.
//
// Secrets (IDAM client secret, user passwords, S2S microservice) always come from the
// environment. The e2e command may override tags, workers and retries with flags.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/et-e2e/internal/domain"
)

const (
	defaultIdamScope       = "openid profile roles"
	defaultS2SMicroservice = "ccd_gw"
	defaultRegion          = "eu-west-2"

	defaultCaseDetailsRoute = "/cases/case-details/"
)

// Config holds everything the runner needs to seed cases and drive the browser.
type Config struct {
	// Application under test
	BaseURL string // TEST_E2E_URL, e.g. https://manage-case.aat.platform.hmcts.net

	// IDAM (user auth)
	IdamURL          string // IDAM_URL; token endpoint is {IdamURL}/o/token
	IdamIssuer       string // IDAM_ISSUER; when set, endpoints come from OIDC discovery
	IdamClientID     string
	IdamClientSecret string
	IdamScope        string

	// Users, one per domain.UserType
	Users map[domain.UserType]Credentials

	// CCD data store and S2S
	DataStoreURL    string  // CCD_DATA_STORE_API_URL
	S2SURL          string  // S2S_URL
	S2SMicroservice string  // S2S_MICROSERVICE
	SeedRPS         float64 // CCD_SEED_RPS, seeding calls per second across workers

	// Runner
	Retries         int           // TEST_RETRY_SCENARIOS
	Workers         int           // E2E_WORKERS
	Headless        bool          // E2E_HEADLESS
	ActionTimeout   time.Duration // E2E_ACTION_TIMEOUT, default per playwright action
	NextStepTimeout time.Duration // E2E_NEXT_STEP_TIMEOUT
	SettleTimeout   time.Duration // E2E_SETTLE_TIMEOUT
	MinSettleDelay  time.Duration // E2E_MIN_SETTLE_DELAY, floor under every Settle
	FixturesDir     string        // E2E_FIXTURES_DIR
	ArtifactsDir    string        // E2E_ARTIFACTS_DIR, screenshots and report
	Tags            []string      // E2E_TAGS, comma separated
	ExcludeTags     []string      // E2E_EXCLUDE_TAGS
	// E2E_CASE_DETAILS_ROUTE, ExUI route prefix for a case; older ExUI builds
	// serve /case-details/
	CaseDetailsRoute string

	// S3 (fixtures via s3:// URIs and failure artifacts)
	ArtifactsBucket    string // E2E_ARTIFACTS_BUCKET
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
}

// Credentials is an IDAM username and password.
type Credentials struct {
	Username string
	Password string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration from the environment without validating it.
func FromEnv() *Config {
	cfg := &Config{}

	cfg.BaseURL = strings.TrimRight(getEnvOrDefault("TEST_E2E_URL", "http://localhost:3455"), "/")

	cfg.IdamURL = strings.TrimRight(getEnvOrDefault("IDAM_URL", "http://localhost:5000"), "/")
	cfg.IdamIssuer = getEnvOrDefault("IDAM_ISSUER", "")
	cfg.IdamClientID = getEnvOrDefault("IDAM_CLIENT_ID", "xuiwebapp")
	cfg.IdamClientSecret = os.Getenv("IDAM_CLIENT_SECRET")
	cfg.IdamScope = getEnvOrDefault("IDAM_SCOPE", defaultIdamScope)

	cfg.Users = map[domain.UserType]Credentials{
		domain.UserCaseworker: {
			Username: getEnvOrDefault("CASEWORKER_USERNAME", ""),
			Password: os.Getenv("CASEWORKER_PASSWORD"),
		},
		domain.UserJudge: {
			Username: getEnvOrDefault("JUDGE_USERNAME", ""),
			Password: os.Getenv("JUDGE_PASSWORD"),
		},
	}

	cfg.DataStoreURL = strings.TrimRight(getEnvOrDefault("CCD_DATA_STORE_API_URL", "http://localhost:4452"), "/")
	cfg.S2SURL = strings.TrimRight(getEnvOrDefault("S2S_URL", "http://localhost:4502"), "/")
	cfg.S2SMicroservice = getEnvOrDefault("S2S_MICROSERVICE", defaultS2SMicroservice)
	cfg.SeedRPS = parseFloat64OrDefault("CCD_SEED_RPS", 2)

	cfg.Retries = parseIntOrDefault("TEST_RETRY_SCENARIOS", 3)
	cfg.Workers = parseIntOrDefault("E2E_WORKERS", 1)
	cfg.Headless = parseBoolOrDefault("E2E_HEADLESS", true)
	cfg.ActionTimeout = parseDurationOrDefault("E2E_ACTION_TIMEOUT", 5*time.Second)
	cfg.NextStepTimeout = parseDurationOrDefault("E2E_NEXT_STEP_TIMEOUT", 3*time.Second)
	cfg.SettleTimeout = parseDurationOrDefault("E2E_SETTLE_TIMEOUT", 10*time.Second)
	cfg.MinSettleDelay = parseDurationOrDefault("E2E_MIN_SETTLE_DELAY", 0)
	cfg.FixturesDir = getEnvOrDefault("E2E_FIXTURES_DIR", "./data")
	cfg.ArtifactsDir = getEnvOrDefault("E2E_ARTIFACTS_DIR", "")
	cfg.Tags = NormalizeTags(splitList(os.Getenv("E2E_TAGS")))
	cfg.ExcludeTags = NormalizeTags(splitList(os.Getenv("E2E_EXCLUDE_TAGS")))
	cfg.CaseDetailsRoute = getEnvOrDefault("E2E_CASE_DETAILS_ROUTE", defaultCaseDetailsRoute)

	cfg.ArtifactsBucket = getEnvOrDefault("E2E_ARTIFACTS_BUCKET", "")
	cfg.AWSEndpointS3 = getEnvOrDefault("AWS_ENDPOINT_URL_S3", "")
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", defaultRegion)
	cfg.AWSAccessKeyID = getEnvOrDefault("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnvOrDefault("AWS_SECRET_ACCESS_KEY", "")

	return cfg
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	for _, u := range []struct {
		key string
		val string
	}{
		{"TEST_E2E_URL", c.BaseURL},
		{"IDAM_URL", c.IdamURL},
		{"CCD_DATA_STORE_API_URL", c.DataStoreURL},
		{"S2S_URL", c.S2SURL},
	} {
		if msg := checkURL(u.key, u.val); msg != "" {
			errs = append(errs, msg)
		}
	}
	if c.IdamIssuer != "" {
		if msg := checkURL("IDAM_ISSUER", c.IdamIssuer); msg != "" {
			errs = append(errs, msg)
		}
	}

	if c.IdamClientSecret == "" {
		errs = append(errs, "IDAM_CLIENT_SECRET is required")
	}
	caseworker := c.Users[domain.UserCaseworker]
	if caseworker.Username == "" || caseworker.Password == "" {
		errs = append(errs, "CASEWORKER_USERNAME and CASEWORKER_PASSWORD are required")
	}
	judge := c.Users[domain.UserJudge]
	if (judge.Username == "") != (judge.Password == "") {
		errs = append(errs, "JUDGE_USERNAME and JUDGE_PASSWORD must be set together")
	}
	if c.S2SMicroservice == "" {
		errs = append(errs, "S2S_MICROSERVICE must not be empty")
	}
	if c.SeedRPS <= 0 {
		errs = append(errs, "CCD_SEED_RPS must be positive")
	}

	if c.Retries < 0 {
		errs = append(errs, "TEST_RETRY_SCENARIOS must not be negative")
	}
	if c.Workers < 1 {
		errs = append(errs, "E2E_WORKERS must be at least 1")
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, "E2E_ACTION_TIMEOUT must be positive")
	}
	if c.NextStepTimeout <= 0 {
		errs = append(errs, "E2E_NEXT_STEP_TIMEOUT must be positive")
	}
	if c.SettleTimeout <= 0 {
		errs = append(errs, "E2E_SETTLE_TIMEOUT must be positive")
	}
	if c.MinSettleDelay < 0 || c.MinSettleDelay > c.SettleTimeout {
		errs = append(errs, "E2E_MIN_SETTLE_DELAY must be between 0 and E2E_SETTLE_TIMEOUT")
	}
	if c.FixturesDir == "" {
		errs = append(errs, "E2E_FIXTURES_DIR must not be empty")
	}
	if !strings.HasPrefix(c.CaseDetailsRoute, "/") {
		errs = append(errs, fmt.Sprintf("E2E_CASE_DETAILS_ROUTE must start with /, got %q", c.CaseDetailsRoute))
	}

	if c.ArtifactsBucket != "" && (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
		errs = append(errs, "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// UsesS3 reports whether an S3 client is needed for artifacts.
func (c *Config) UsesS3() bool {
	return c.ArtifactsBucket != ""
}

// PrintSummary writes a human-readable summary of the configuration to stderr.
func (c *Config) PrintSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "et-e2e starting...")
	fmt.Fprintf(os.Stderr, "  App:       %s\n", c.BaseURL)
	fmt.Fprintf(os.Stderr, "  IDAM:      %s (client %s)\n", c.IdamURL, c.IdamClientID)
	fmt.Fprintf(os.Stderr, "  CCD:       %s\n", c.DataStoreURL)
	fmt.Fprintf(os.Stderr, "  Retries:   %d\n", c.Retries)
	fmt.Fprintf(os.Stderr, "  Workers:   %d\n", c.Workers)
	fmt.Fprintf(os.Stderr, "  Headless:  %t\n", c.Headless)
	fmt.Fprintf(os.Stderr, "  Fixtures:  %s\n", c.FixturesDir)
	if c.ArtifactsBucket != "" {
		fmt.Fprintf(os.Stderr, "  Artifacts: s3://%s\n", c.ArtifactsBucket)
	} else if c.ArtifactsDir != "" {
		fmt.Fprintf(os.Stderr, "  Artifacts: %s\n", c.ArtifactsDir)
	}
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func checkURL(key, value string) string {
	if value == "" {
		return key + " is required"
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return key + " must be an absolute URL"
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// NormalizeTags trims tags, drops empty ones and adds the leading @ where missing.
func NormalizeTags(tags []string) []string {
	var out []string
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "@") {
			t = "@" + t
		}
		out = append(out, t)
	}
	return out
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
