package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"

	"github.com/stackvity/astro-tally/pkg/scanner/encoding"
)

// Registered frames appear in the WBPP session log as JSON-ish fragments of
// the form [true, "<path>"]; entries flagged false were excluded by the
// pipeline and are not candidates.
var pathMarkerPattern = regexp.MustCompile(`\[true,\s*"(.*?)"`)

// Discoverer extracts candidate frame paths from a session log.
type Discoverer struct {
	decoder encoding.DecodeHandler
	hooks   Hooks
	logger  *slog.Logger
}

// NewDiscoverer wires a Discoverer from run options.
func NewDiscoverer(opts *Options, logger *slog.Logger) *Discoverer {
	dec := opts.Decoder
	if dec == nil {
		dec = encoding.NewPermissiveDecodeHandler(opts.HeaderEncoding)
	}
	hooks := opts.EventHooks
	if hooks == nil {
		hooks = NoOpHooks{}
	}
	return &Discoverer{
		decoder: dec,
		hooks:   hooks,
		logger:  logger.With(slog.String("component", "discoverer")),
	}
}

// Discover reads the log and returns the deduplicated candidate paths in
// sorted order. A missing or unopenable log returns an error wrapping
// ErrLogNotFound; a readable log with no markers returns an empty slice and
// a nil error, which the caller maps to the no-candidates warning.
func (d *Discoverer) Discover(logPath string) ([]string, error) {
	raw, err := os.ReadFile(logPath)
	if err != nil {
		d.logger.Error("Cannot read session log", slog.String("path", logPath), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %s: %w", ErrLogNotFound, logPath, err)
	}

	// Session logs are mostly ASCII; the permissive decode keeps any stray
	// high bytes from derailing the match.
	text := d.decoder.Decode(raw)

	seen := make(map[string]struct{})
	var paths []string
	for _, m := range pathMarkerPattern.FindAllStringSubmatch(text, -1) {
		path := m[1]
		if path == "" {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if hookErr := d.hooks.OnCandidateDiscovered(path); hookErr != nil {
			d.logger.Warn("OnCandidateDiscovered hook failed", slog.String("path", path), slog.String("error", hookErr.Error()))
		}
	}

	d.logger.Info("Discovery complete", slog.String("path", logPath), slog.Int("candidates", len(paths)))
	return paths, nil
}
