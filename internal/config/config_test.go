package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kuitang/et-e2e/internal/domain"
	"pgregory.net/rapid"
)

func validTestConfig() Config {
	return Config{
		BaseURL:          "http://localhost:3455",
		IdamURL:          "http://localhost:5000",
		IdamClientID:     "xuiwebapp",
		IdamClientSecret: "secret",
		IdamScope:        defaultIdamScope,
		Users: map[domain.UserType]Credentials{
			domain.UserCaseworker: {Username: "caseworker@example.com", Password: "Password12"},
		},
		DataStoreURL:    "http://localhost:4452",
		S2SURL:          "http://localhost:4502",
		S2SMicroservice: defaultS2SMicroservice,
		SeedRPS:         2,
		Retries:         3,
		Workers:         1,
		Headless:        true,
		ActionTimeout:   5 * time.Second,
		NextStepTimeout: 3 * time.Second,
		SettleTimeout:   10 * time.Second,
		FixturesDir:     "./data",

		CaseDetailsRoute: defaultCaseDetailsRoute,
	}
}

func TestValidate_MinimalConfigPasses(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.BaseURL = "not a url"
	cfg.IdamClientSecret = ""
	cfg.Users = nil
	cfg.Workers = 0
	cfg.SeedRPS = 0

	err := cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	msg := err.Error()
	for _, expected := range []string{
		"TEST_E2E_URL",
		"IDAM_CLIENT_SECRET",
		"CASEWORKER_USERNAME",
		"E2E_WORKERS",
		"CCD_SEED_RPS",
	} {
		if !strings.Contains(msg, expected) {
			t.Fatalf("expected validation error to mention %q, got: %v", expected, err)
		}
	}
	if len(verr.Errors) != 5 {
		t.Fatalf("expected 5 problems, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

func TestValidate_JudgeCredentialsTogether(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.Users[domain.UserJudge] = Credentials{Username: "judge@example.com"}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "JUDGE_PASSWORD") {
		t.Fatalf("expected judge credential error, got %v", err)
	}
}

func testValidate_RejectsSettleDelayAboveTimeout(t *rapid.T) {
	cfg := validTestConfig()
	timeout := time.Duration(rapid.IntRange(1, 60).Draw(t, "timeout_s")) * time.Second
	extra := time.Duration(rapid.IntRange(1, 1000).Draw(t, "extra_ms")) * time.Millisecond
	cfg.SettleTimeout = timeout
	cfg.MinSettleDelay = timeout + extra

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "E2E_MIN_SETTLE_DELAY") {
		t.Fatalf("expected settle delay error, got %v", err)
	}
}

func TestValidate_RejectsSettleDelayAboveTimeout(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_RejectsSettleDelayAboveTimeout)
}

func TestFromEnv_ReadsOverrides(t *testing.T) {
	t.Setenv("TEST_E2E_URL", "https://manage-case.example.net/")
	t.Setenv("TEST_RETRY_SCENARIOS", "5")
	t.Setenv("E2E_WORKERS", "4")
	t.Setenv("E2E_HEADLESS", "false")
	t.Setenv("E2E_TAGS", "@e2e, @manchester ,")
	t.Setenv("E2E_MIN_SETTLE_DELAY", "500ms")
	t.Setenv("CASEWORKER_USERNAME", "  caseworker@example.com  ")

	cfg := FromEnv()
	if cfg.BaseURL != "https://manage-case.example.net" {
		t.Fatalf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.Retries != 5 || cfg.Workers != 4 || cfg.Headless {
		t.Fatalf("retries=%d workers=%d headless=%t", cfg.Retries, cfg.Workers, cfg.Headless)
	}
	if len(cfg.Tags) != 2 || cfg.Tags[0] != "@e2e" || cfg.Tags[1] != "@manchester" {
		t.Fatalf("Tags = %q", cfg.Tags)
	}
	if cfg.MinSettleDelay != 500*time.Millisecond {
		t.Fatalf("MinSettleDelay = %v", cfg.MinSettleDelay)
	}
	if got := cfg.Users[domain.UserCaseworker].Username; got != "caseworker@example.com" {
		t.Fatalf("caseworker username = %q", got)
	}
}

func TestFromEnv_NormalizesTags(t *testing.T) {
	t.Setenv("E2E_TAGS", "glasgow, @leeds")
	t.Setenv("E2E_EXCLUDE_TAGS", " wip ,,")

	cfg := FromEnv()
	if strings.Join(cfg.Tags, ",") != "@glasgow,@leeds" {
		t.Fatalf("Tags = %q", cfg.Tags)
	}
	if strings.Join(cfg.ExcludeTags, ",") != "@wip" {
		t.Fatalf("ExcludeTags = %q", cfg.ExcludeTags)
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()
	got := NormalizeTags([]string{"e2e", " @leeds ", ""})
	if strings.Join(got, ",") != "@e2e,@leeds" {
		t.Fatalf("NormalizeTags = %q", got)
	}
	if NormalizeTags(nil) != nil {
		t.Fatalf("NormalizeTags(nil) should be nil")
	}
}

func TestFromEnv_CaseDetailsRoute(t *testing.T) {
	t.Setenv("E2E_CASE_DETAILS_ROUTE", "")
	if got := FromEnv().CaseDetailsRoute; got != "/cases/case-details/" {
		t.Fatalf("default CaseDetailsRoute = %q", got)
	}

	t.Setenv("E2E_CASE_DETAILS_ROUTE", "/case-details/")
	if got := FromEnv().CaseDetailsRoute; got != "/case-details/" {
		t.Fatalf("CaseDetailsRoute = %q", got)
	}
}

func TestValidate_CaseDetailsRoute(t *testing.T) {
	t.Parallel()
	cfg := validTestConfig()
	cfg.CaseDetailsRoute = "case-details"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "E2E_CASE_DETAILS_ROUTE") {
		t.Fatalf("expected route error, got %v", err)
	}
}

func TestHelperParsers_DefaultOnBadInput(t *testing.T) {
	t.Setenv("CFG_TEST_INT", "not-an-int")
	t.Setenv("CFG_TEST_FLOAT", "not-a-float")
	t.Setenv("CFG_TEST_DUR", "not-a-duration")
	t.Setenv("CFG_TEST_BOOL", "maybe")
	if got := parseIntOrDefault("CFG_TEST_INT", 7); got != 7 {
		t.Fatalf("parseIntOrDefault fallback mismatch: got=%d want=7", got)
	}
	if got := parseFloat64OrDefault("CFG_TEST_FLOAT", 3.5); got != 3.5 {
		t.Fatalf("parseFloat64OrDefault fallback mismatch: got=%v want=3.5", got)
	}
	if got := parseDurationOrDefault("CFG_TEST_DUR", 2*time.Minute); got != 2*time.Minute {
		t.Fatalf("parseDurationOrDefault fallback mismatch: got=%v want=%v", got, 2*time.Minute)
	}
	if got := parseBoolOrDefault("CFG_TEST_BOOL", true); !got {
		t.Fatal("parseBoolOrDefault fallback mismatch: got=false want=true")
	}
}
