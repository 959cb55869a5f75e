package scanner

import "errors"

// Sentinel errors returned by the scanning pipeline. Callers should match
// them with errors.Is; the wrapped message carries the detail.
var (
	// ErrConfigValidation indicates invalid or inconsistent options.
	ErrConfigValidation = errors.New("configuration validation failed")

	// ErrLogNotFound indicates the session log does not exist or could not
	// be opened.
	ErrLogNotFound = errors.New("session log not found or unreadable")

	// ErrNoCandidates indicates the session log was read but contained no
	// registered file paths. It is a warning condition: no output table is
	// produced, but nothing failed.
	ErrNoCandidates = errors.New("no registered file paths found in session log")

	// ErrOutputWrite indicates the aggregated table could not be persisted.
	ErrOutputWrite = errors.New("failed to write output")
)
