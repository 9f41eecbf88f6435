// Package config loads the instance configuration from the environment.
// A .env file (ENV_FILE, default ".env") is read first and never overrides
// variables that are already set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tbourn/go-fedi-core/internal/sysutil"
	"github.com/tbourn/go-fedi-core/internal/utils"
)

// CORSConfig lists the browser origins allowed to call the API. Empty
// means any origin.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig controls HSTS and where the acting account comes from.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration

	// TrustCallerHeader takes the caller from X-User-ID. Leave it off unless
	// an authenticating proxy sets that header and strips client copies.
	TrustCallerHeader bool
}

// OTELConfig controls trace export over OTLP/gRPC.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE
	ServiceName string  // OTEL_SERVICE_NAME, then SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG
}

// Config is the full process configuration.
type Config struct {
	// Listener
	Port              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	GinMode           string // debug|release|test

	LogLevel       string
	LogPretty      bool
	SwaggerEnabled bool
	APIBasePath    string

	// Instance addressing and storage
	BaseDir     string // holds accounts/ and wfendpoints/
	Domain      string // without port
	DomainPort  int    // 0, 80 and 443 are left out of URLs
	HTTPPrefix  string // http|https
	OnionDomain string
	DBPath      string

	// Federation
	WebfingerTimeout     time.Duration
	FollowsPerPage       int
	UnauthorizedPageSize int
	InactiveDays         int
	OpenRegistration     bool

	RateRPS   float64
	RateBurst int

	CORS     CORSConfig
	Security SecurityConfig

	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// FullDomain is the public host with the port when the scheme does not
// imply it.
func (c Config) FullDomain() string { return utils.FullDomain(c.Domain, c.DomainPort) }

// MustLoad is Load that panics on error.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads, normalizes and validates the configuration. Malformed numbers,
// booleans and durations are errors rather than silent defaults.
func Load() (Config, error) {
	_ = godotenv.Load(lookup("ENV_FILE", ".env"))

	var e env
	cfg := Config{
		Port:              lookup("PORT", "8080"),
		ReadTimeout:       e.duration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: e.duration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      e.duration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       e.duration("IDLE_TIMEOUT", time.Minute),
		MaxHeaderBytes:    e.int("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(lookup("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(lookup("LOG_LEVEL", "info")),
		LogPretty:      e.bool("LOG_PRETTY", false),
		SwaggerEnabled: e.bool("SWAGGER_ENABLED", false),
		APIBasePath:    cleanBasePath(lookup("API_BASE_PATH", "/api/v1")),

		BaseDir:     lookup("BASE_DIR", "data"),
		Domain:      strings.ToLower(lookup("DOMAIN", "localhost")),
		DomainPort:  e.int("DOMAIN_PORT", 443),
		HTTPPrefix:  strings.ToLower(lookup("HTTP_PREFIX", "https")),
		OnionDomain: strings.ToLower(lookup("ONION_DOMAIN", "")),
		DBPath:      lookup("DB_PATH", "data/fedi.db"),

		WebfingerTimeout:     e.duration("WEBFINGER_TIMEOUT", 10*time.Second),
		FollowsPerPage:       e.int("FOLLOWS_PER_PAGE", 12),
		UnauthorizedPageSize: e.int("UNAUTHORIZED_PAGE_SIZE", 6),
		InactiveDays:         e.int("INACTIVE_DAYS", 90),
		OpenRegistration:     e.bool("OPEN_REGISTRATION", false),

		RateRPS:   e.float("RATE_RPS", 5),
		RateBurst: e.int("RATE_BURST", 10),

		CORS: CORSConfig{AllowedOrigins: csv(lookup("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{
			EnableHSTS: e.bool("ENABLE_HSTS", false),
			HSTSMaxAge: e.duration("HSTS_MAX_AGE", 180*24*time.Hour),

			TrustCallerHeader: e.bool("TRUST_CALLER_HEADER", false),
		},

		IdempotencyTTL: e.duration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     e.bool("OTEL_ENABLED", false),
			Endpoint:    lookup("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    e.bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: sysutil.FirstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), os.Getenv("SERVICE_NAME"), "go-fedi-core"),
			SampleRatio: e.float("OTEL_TRACES_SAMPLER_ARG", 1),
		},
	}
	if len(e.errs) > 0 {
		return cfg, errors.Join(e.errs...)
	}

	cfg.normalize()
	return cfg, cfg.validate()
}

func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	// DOMAIN=example.com:8443 is shorthand for DOMAIN_PORT=8443
	if host, port, ok := strings.Cut(c.Domain, ":"); ok {
		if p, err := strconv.Atoi(port); err == nil {
			c.Domain, c.DomainPort = host, p
		}
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
}

// validate reports every violated constraint at once.
func (c Config) validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error, fatal, panic", c.LogLevel))
	}
	check(strings.TrimSpace(c.Port) != "", "PORT must not be empty")
	check(c.ReadTimeout > 0 && c.ReadHeaderTimeout > 0 && c.WriteTimeout > 0 && c.IdleTimeout > 0, "timeouts must be positive")
	check(c.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(strings.TrimSpace(c.DBPath) != "", "DB_PATH must not be empty")
	check(strings.TrimSpace(c.BaseDir) != "", "BASE_DIR must not be empty")
	check(c.Domain != "" && !strings.ContainsAny(c.Domain, "/@ "), "DOMAIN must be a bare host name")
	check(c.DomainPort >= 0 && c.DomainPort <= 65535, "DOMAIN_PORT must be in [0,65535]")
	check(c.HTTPPrefix == "https" || c.HTTPPrefix == "http", "HTTP_PREFIX must be http or https")
	check(c.OnionDomain == "" || strings.HasSuffix(c.OnionDomain, ".onion"), "ONION_DOMAIN must end in .onion")
	check(c.WebfingerTimeout > 0, "WEBFINGER_TIMEOUT must be > 0")
	check(c.FollowsPerPage >= 1 && c.UnauthorizedPageSize >= 1, "FOLLOWS_PER_PAGE and UNAUTHORIZED_PAGE_SIZE must be >= 1")
	check(c.InactiveDays >= 1, "INACTIVE_DAYS must be >= 1")
	check(c.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(c.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio >= 0 && c.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	return errors.Join(errs...)
}

// lookup returns the variable, or def when unset or empty.
func lookup(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// env parses typed variables and collects the ones that fail to parse.
type env struct {
	errs []error
}

func (e *env) parse(k string, fn func(string) error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return
	}
	if err := fn(v); err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", k, v, err))
	}
}

func (e *env) int(k string, def int) int {
	e.parse(k, func(v string) (err error) {
		def, err = strconv.Atoi(v)
		return err
	})
	return def
}

func (e *env) float(k string, def float64) float64 {
	e.parse(k, func(v string) (err error) {
		def, err = strconv.ParseFloat(v, 64)
		return err
	})
	return def
}

func (e *env) duration(k string, def time.Duration) time.Duration {
	e.parse(k, func(v string) (err error) {
		def, err = time.ParseDuration(v)
		return err
	})
	return def
}

func (e *env) bool(k string, def bool) bool {
	e.parse(k, func(v string) error {
		switch {
		case sysutil.IsTruthy(v):
			def = true
		case sysutil.IsFalsy(v):
			def = false
		default:
			return errors.New("not a boolean")
		}
		return nil
	})
	return def
}

func csv(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cleanBasePath gives p a leading slash and drops trailing ones; empty
// becomes "/".
func cleanBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
