// Package testutil provides fixture builders and mock implementations for
// testing the scanning pipeline.
package testutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestLogHandler returns a slog handler that writes through t.Log so
// that log output is attached to the failing test.
func NewTestLogHandler(t *testing.T) slog.Handler {
	t.Helper()
	return slog.NewTextHandler(testWriter{t: t}, &slog.HandlerOptions{Level: slog.LevelDebug})
}

// NewTestLogger returns a debug-level *slog.Logger backed by t.Log.
func NewTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(NewTestLogHandler(t))
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// CreateDummyFile writes content to path, creating parent directories. It
// fails the test on any error.
func CreateDummyFile(t *testing.T, path string, content string) {
	t.Helper()
	full := filepath.Clean(path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755), "create directory for %s", full)
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644), "write dummy file %s", full)
}

// WriteFITSFrame writes a minimal FITS-style header to dir/name and returns
// the full path. Fields maps header keywords to values; string values are
// quoted, numeric-looking values are written bare, matching how capture
// software emits keyword records.
func WriteFITSFrame(t *testing.T, dir, name string, fields map[string]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("SIMPLE  =                    T / conforms to FITS standard\n")
	b.WriteString("BITPIX  =                   16\n")
	for key, val := range fields {
		if isNumericLiteral(val) {
			fmt.Fprintf(&b, "%-8s= %20s\n", key, val)
		} else {
			fmt.Fprintf(&b, "%-8s= '%s'\n", key, val)
		}
	}
	b.WriteString("END\n")

	path := filepath.Join(dir, name)
	CreateDummyFile(t, path, b.String())
	return path
}

// WriteXISFFrame writes a minimal XISF-style header to dir/name and returns
// the full path.
func WriteXISFFrame(t *testing.T, dir, name string, fields map[string]string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<xisf version="1.0">` + "\n")
	b.WriteString(`<Image geometry="4:4:1" sampleFormat="UInt16">` + "\n")
	for key, val := range fields {
		fmt.Fprintf(&b, "<FITSKeyword name=%q value=%q comment=\"\"/>\n", key, val)
	}
	b.WriteString("</Image>\n</xisf>\n")

	path := filepath.Join(dir, name)
	CreateDummyFile(t, path, b.String())
	return path
}

// WriteSessionLog writes a WBPP-style log referencing the given paths as
// registered frames and returns the log path.
func WriteSessionLog(t *testing.T, dir string, registered []string, excluded []string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("PixInsight WBPP pipeline\n* Begin registration\nmeasurements: [")
	for i, p := range registered {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "[true, %q, 0.9]", p)
	}
	for _, p := range excluded {
		fmt.Fprintf(&b, ", [false, %q, 0.1]", p)
	}
	b.WriteString("]\n* End registration\n")

	path := filepath.Join(dir, "autorun.log")
	CreateDummyFile(t, path, b.String())
	return path
}

func isNumericLiteral(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '+' && r != '-' {
			return false
		}
	}
	return true
}
