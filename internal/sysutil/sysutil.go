// Package sysutil holds process bootstrap helpers: logger setup, environment
// flag parsing and the on-disk layout the server expects at startup.
package sysutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetLogLevel sets the global zerolog level from a name such as "debug" or
// "WARN". "warning" is accepted for warn; blank or unknown names mean info.
func SetLogLevel(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// SetupLogger sets the global level and replaces log.Logger with one that
// writes to w (console-formatted when pretty) and stamps every event with
// the instance domain and build version.
func SetupLogger(w io.Writer, level string, pretty bool, domain, version string) zerolog.Logger {
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(w).With().
		Timestamp().
		Str("instance", domain).
		Str("version", version).
		Logger()
	log.Logger = l
	return l
}

var flagWords = map[string]bool{
	"1": true, "true": true, "yes": true, "y": true, "on": true,
	"0": false, "false": false, "no": false, "n": false, "off": false,
}

// IsTruthy reports whether v is one of 1, true, yes, y or on, ignoring case
// and surrounding space.
func IsTruthy(v string) bool {
	b, ok := flagWords[strings.ToLower(strings.TrimSpace(v))]
	return ok && b
}

// IsFalsy reports whether v is one of 0, false, no, n or off.
func IsFalsy(v string) bool {
	b, ok := flagWords[strings.ToLower(strings.TrimSpace(v))]
	return ok && !b
}

// FirstNonEmpty returns the first value that is not blank, unmodified.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// EnsureLayout creates the storage root and its fixed subdirectories, plus
// the parent directory of the SQLite file.
func EnsureLayout(baseDir, dbPath string) error {
	dirs := []string{
		baseDir,
		filepath.Join(baseDir, "accounts"),
		filepath.Join(baseDir, "wfendpoints"),
	}
	if dbPath != "" && !strings.HasPrefix(dbPath, "file:") {
		dirs = append(dirs, filepath.Dir(dbPath))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}
