package sysutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	for in, want := range map[string]zerolog.Level{
		"  DeBuG ": zerolog.DebugLevel,
		"":         zerolog.InfoLevel,
		"WARNING":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"panic":    zerolog.PanicLevel,
		"chatty":   zerolog.InfoLevel,
	} {
		SetLogLevel(in)
		if got := zerolog.GlobalLevel(); got != want {
			t.Errorf("SetLogLevel(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestTruthyFalsy(t *testing.T) {
	cases := []struct {
		in            string
		truthy, falsy bool
	}{
		{"1", true, false},
		{" Yes ", true, false},
		{"ON", true, false},
		{"y", true, false},
		{"0", false, true},
		{"False", false, true},
		{" off", false, true},
		{"n", false, true},
		{"", false, false},
		{"maybe", false, false},
	}
	for _, tc := range cases {
		if IsTruthy(tc.in) != tc.truthy || IsFalsy(tc.in) != tc.falsy {
			t.Fatalf("%q: truthy=%v falsy=%v", tc.in, IsTruthy(tc.in), IsFalsy(tc.in))
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{" ", "\t"}, ""},
		{[]string{"", "  otel-svc ", "fallback"}, "  otel-svc "},
		{[]string{"first", "second"}, "first"},
	}
	for _, tc := range cases {
		if got := FirstNonEmpty(tc.in...); got != tc.want {
			t.Errorf("FirstNonEmpty(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestSetupLogger_StampsInstance(t *testing.T) {
	orig := zerolog.GlobalLevel()
	origLogger := log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(orig)
		log.Logger = origLogger
	})

	var buf bytes.Buffer
	l := SetupLogger(&buf, "warn", false, "example.com", "1.2.3")
	l.Info().Msg("dropped")
	log.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info should be filtered at warn: %s", out)
	}
	if !strings.Contains(out, `"instance":"example.com"`) || !strings.Contains(out, `"version":"1.2.3"`) {
		t.Fatalf("missing fields: %s", out)
	}
}

func TestEnsureLayout(t *testing.T) {
	base := filepath.Join(t.TempDir(), "data")
	db := filepath.Join(t.TempDir(), "db", "fedi.db")
	if err := EnsureLayout(base, db); err != nil {
		t.Fatalf("EnsureLayout: %v", err)
	}
	for _, d := range []string{base, filepath.Join(base, "accounts"), filepath.Join(base, "wfendpoints"), filepath.Dir(db)} {
		if fi, err := os.Stat(d); err != nil || !fi.IsDir() {
			t.Fatalf("%s not created: %v", d, err)
		}
	}

	// in-memory DSNs have no directory to create
	if err := EnsureLayout(base, "file:mem?mode=memory"); err != nil {
		t.Fatalf("EnsureLayout memory dsn: %v", err)
	}

	// a file in place of the base dir is reported
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureLayout(blocker, ""); err == nil {
		t.Fatalf("expected error when base dir is a file")
	}
}
