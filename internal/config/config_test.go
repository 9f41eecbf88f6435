package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// isolate points ENV_FILE at a missing file so a stray .env cannot leak in.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("SERVICE_NAME", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		Port:                 "8080",
		ReadTimeout:          15 * time.Second,
		ReadHeaderTimeout:    10 * time.Second,
		WriteTimeout:         20 * time.Second,
		IdleTimeout:          time.Minute,
		MaxHeaderBytes:       1 << 20,
		GinMode:              "release",
		LogLevel:             "info",
		APIBasePath:          "/api/v1",
		BaseDir:              "data",
		Domain:               "localhost",
		DomainPort:           443,
		HTTPPrefix:           "https",
		DBPath:               "data/fedi.db",
		WebfingerTimeout:     10 * time.Second,
		FollowsPerPage:       12,
		UnauthorizedPageSize: 6,
		InactiveDays:         90,
		RateRPS:              5,
		RateBurst:            10,
		Security:             SecurityConfig{HSTSMaxAge: 180 * 24 * time.Hour},
		IdempotencyTTL:       24 * time.Hour,
		OTEL: OTELConfig{
			Endpoint:    "localhost:4317",
			Insecure:    true,
			ServiceName: "go-fedi-core",
			SampleRatio: 1,
		},
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("defaults:\n got %+v\nwant %+v", cfg, want)
	}
	if cfg.FullDomain() != "localhost" {
		t.Fatalf("FullDomain = %q", cfg.FullDomain())
	}
}

func TestLoad_Overrides(t *testing.T) {
	isolate(t)
	for k, v := range map[string]string{
		"PORT":                    "9000",
		"GIN_MODE":                "bogus",
		"LOG_LEVEL":               "WARNING",
		"LOG_PRETTY":              "yes",
		"SWAGGER_ENABLED":         "on",
		"API_BASE_PATH":           "api/v2/",
		"BASE_DIR":                "/var/lib/fedi",
		"DOMAIN":                  "Social.Example.com:8443",
		"HTTP_PREFIX":             "HTTP",
		"ONION_DOMAIN":            "ABCDEFGHIJKLMNOP.onion",
		"WEBFINGER_TIMEOUT":       "3s",
		"FOLLOWS_PER_PAGE":        "20",
		"UNAUTHORIZED_PAGE_SIZE":  "4",
		"INACTIVE_DAYS":           "30",
		"OPEN_REGISTRATION":       "1",
		"RATE_RPS":                "0.5",
		"CORS_ALLOWED_ORIGINS":    " https://a.example , ,https://b.example ",
		"ENABLE_HSTS":             "true",
		"TRUST_CALLER_HEADER":     "yes",
		"OTEL_ENABLED":            "y",
		"SERVICE_NAME":            "fedi-edge",
		"OTEL_TRACES_SAMPLER_ARG": "0.25",
	} {
		t.Setenv(k, v)
	}
	t.Setenv("OTEL_SERVICE_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	switch {
	case cfg.Port != "9000", cfg.GinMode != "release", cfg.LogLevel != "warn":
		t.Fatalf("listener/log: %+v", cfg)
	case !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2":
		t.Fatalf("docs: %+v", cfg)
	case cfg.Domain != "social.example.com" || cfg.DomainPort != 8443 || cfg.HTTPPrefix != "http":
		t.Fatalf("addressing: %+v", cfg)
	case cfg.FullDomain() != "social.example.com:8443":
		t.Fatalf("FullDomain = %q", cfg.FullDomain())
	case cfg.OnionDomain != "abcdefghijklmnop.onion" || cfg.BaseDir != "/var/lib/fedi":
		t.Fatalf("storage: %+v", cfg)
	case cfg.WebfingerTimeout != 3*time.Second || cfg.FollowsPerPage != 20 || cfg.UnauthorizedPageSize != 4 || cfg.InactiveDays != 30 || !cfg.OpenRegistration:
		t.Fatalf("federation: %+v", cfg)
	case cfg.RateRPS != 0.5 || !cfg.Security.EnableHSTS || !cfg.Security.TrustCallerHeader:
		t.Fatalf("protection: %+v", cfg)
	case !cfg.OTEL.Enabled || cfg.OTEL.ServiceName != "fedi-edge" || cfg.OTEL.SampleRatio != 0.25:
		t.Fatalf("otel: %+v", cfg.OTEL)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.CORS.AllowedOrigins, want) {
		t.Fatalf("origins = %q", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_ParseErrorsAreReported(t *testing.T) {
	isolate(t)
	t.Setenv("RATE_BURST", "lots")
	t.Setenv("READ_TIMEOUT", "15")
	t.Setenv("LOG_PRETTY", "maybe")
	t.Setenv("TRUST_CALLER_HEADER", "sometimes")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected parse errors")
	}
	for _, want := range []string{`RATE_BURST="lots"`, `READ_TIMEOUT="15"`, `LOG_PRETTY="maybe": not a boolean`, `TRUST_CALLER_HEADER="sometimes"`} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q lacks %q", err, want)
		}
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		key, val string
		want     string
	}{
		{"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"READ_TIMEOUT", "-1s", "timeouts must be positive"},
		{"MAX_HEADER_BYTES", "0", "MAX_HEADER_BYTES"},
		{"DOMAIN", "example.com/path", "DOMAIN must be a bare host name"},
		{"DOMAIN_PORT", "70000", "DOMAIN_PORT"},
		{"HTTP_PREFIX", "gopher", "HTTP_PREFIX"},
		{"ONION_DOMAIN", "hidden.example", "ONION_DOMAIN"},
		{"WEBFINGER_TIMEOUT", "0s", "WEBFINGER_TIMEOUT"},
		{"UNAUTHORIZED_PAGE_SIZE", "0", "UNAUTHORIZED_PAGE_SIZE"},
		{"INACTIVE_DAYS", "0", "INACTIVE_DAYS"},
		{"RATE_RPS", "-1", "RATE_RPS"},
		{"RATE_BURST", "0", "RATE_BURST"},
		{"HSTS_MAX_AGE", "-1h", "HSTS_MAX_AGE"},
		{"IDEMPOTENCY_TTL", "0s", "IDEMPOTENCY_TTL"},
		{"OTEL_TRACES_SAMPLER_ARG", "1.5", "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			isolate(t)
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("%s=%s: err = %v; want mention of %q", tc.key, tc.val, err, tc.want)
			}
		})
	}
}

func TestLoad_ValidationJoinsErrors(t *testing.T) {
	isolate(t)
	t.Setenv("RATE_BURST", "0")
	t.Setenv("INACTIVE_DAYS", "0")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "RATE_BURST") || !strings.Contains(err.Error(), "INACTIVE_DAYS") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("FEDI_TEST_ONLY_IN_FILE=file\nDOMAIN=from-file.example\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENV_FILE", envFile)
	t.Setenv("DOMAIN", "from-env.example")
	t.Setenv("FEDI_TEST_ONLY_IN_FILE", "")
	os.Unsetenv("FEDI_TEST_ONLY_IN_FILE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != "from-env.example" {
		t.Fatalf("environment must win over .env, got %q", cfg.Domain)
	}
	if os.Getenv("FEDI_TEST_ONLY_IN_FILE") != "file" {
		t.Fatalf(".env values should be loaded into the environment")
	}
}

func TestMustLoad(t *testing.T) {
	isolate(t)
	if cfg := MustLoad(); cfg.Port != "8080" {
		t.Fatalf("MustLoad = %+v", cfg)
	}

	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if recover() == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	MustLoad()
}

func TestCSVAndBasePath(t *testing.T) {
	if got := csv(""); got != nil {
		t.Fatalf("csv(\"\") = %q", got)
	}
	if got := csv("a, b,,c "); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("csv = %q", got)
	}
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"api", "/api"},
		{" /api/v1// ", "/api/v1"},
	}
	for _, tc := range cases {
		if got := cleanBasePath(tc.in); got != tc.want {
			t.Fatalf("cleanBasePath(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}
