package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/stackvity/astro-tally/pkg/scanner/cache"
	"github.com/stackvity/astro-tally/pkg/scanner/encoding"
	"github.com/stackvity/astro-tally/pkg/scanner/filter"
)

// Hooks receives progress events from the scanning pipeline. Implementations
// back the TUI and progress bar in the CLI; NoOpHooks is used when nothing
// listens. Hook errors are logged and never interrupt a run.
type Hooks interface {
	// OnCandidateDiscovered fires once per unique path found in the log.
	OnCandidateDiscovered(path string) error
	// OnFileStatusUpdate fires whenever a candidate changes state.
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	// OnProgress fires after each candidate reaches a terminal state.
	OnProgress(completed, total int) error
	// OnRunComplete fires once with the final report.
	OnRunComplete(report Report) error
}

// NoOpHooks is a Hooks implementation that does nothing.
type NoOpHooks struct{}

func (NoOpHooks) OnCandidateDiscovered(string) error                        { return nil }
func (NoOpHooks) OnFileStatusUpdate(string, Status, string, time.Duration) error { return nil }
func (NoOpHooks) OnProgress(int, int) error                                 { return nil }
func (NoOpHooks) OnRunComplete(Report) error                                { return nil }

// noOpCacheManager satisfies cache.Manager when caching is disabled.
type noOpCacheManager struct{}

func (noOpCacheManager) Load(string) error { return nil }
func (noOpCacheManager) Check(string, time.Time, int64, string) (bool, cache.Record) {
	return false, cache.Record{}
}
func (noOpCacheManager) Update(string, time.Time, int64, string, cache.Record) error { return nil }
func (noOpCacheManager) Persist(string) error                                        { return nil }

// Options configures a scanning run. Fields tagged with mapstructure are
// populated from configuration files and flags by the CLI layer; the
// untagged interface fields are injection points for embedding callers and
// tests.
type Options struct {
	// LogPath is the WBPP session log to scan.
	LogPath string `mapstructure:"logPath"`
	// OutputPath is where the aggregated CSV is written. Empty means
	// DefaultOutputFileName in the log's directory; derivation happens in
	// the CLI layer.
	OutputPath string `mapstructure:"outputPath"`
	// Bortle is the sky quality value stamped on every output row.
	Bortle int `mapstructure:"bortle"`
	// Concurrency sizes the worker pool. Zero selects DefaultConcurrency.
	Concurrency int `mapstructure:"concurrency"`
	// HeaderWindowBytes bounds how much of each file is read. Zero selects
	// DefaultHeaderWindowBytes.
	HeaderWindowBytes int `mapstructure:"headerWindowBytes"`
	// HeaderEncoding names the charset used to decode header windows.
	// Empty selects latin-1.
	HeaderEncoding string `mapstructure:"headerEncoding"`
	// FilterOverrides extends or replaces the built-in filter catalog,
	// keyed by raw header token.
	FilterOverrides map[string]int `mapstructure:"filterOverrides"`
	// OutputFormat selects the run report rendering in the CLI.
	OutputFormat OutputFormat `mapstructure:"outputFormat"`
	// CacheEnabled turns the classification cache on.
	CacheEnabled bool `mapstructure:"cache"`
	// ClearCache discards any existing cache file before the run.
	ClearCache bool `mapstructure:"clearCache"`
	// TuiEnabled turns the terminal UI on in the CLI layer.
	TuiEnabled bool `mapstructure:"tuiEnabled"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`

	// AppVersion is stamped into cache entries and the report.
	AppVersion string `mapstructure:"-"`
	// ConfigFilePath records which config file was loaded, for the report.
	ConfigFilePath string `mapstructure:"-"`
	// ProfileName records which config profile was applied, for the report.
	ProfileName string `mapstructure:"-"`
	// CacheFilePath locates the cache file. Empty means
	// DefaultCacheFileName in the log's directory.
	CacheFilePath string `mapstructure:"-"`

	// Logger receives structured logs. Nil discards them.
	Logger slog.Handler `mapstructure:"-"`
	// EventHooks receives progress events. Nil means NoOpHooks.
	EventHooks Hooks `mapstructure:"-"`
	// CacheManager overrides the cache implementation. Nil selects a
	// file-backed manager when CacheEnabled, else a no-op.
	CacheManager cache.Manager `mapstructure:"-"`
	// Decoder overrides header window decoding. Nil selects the
	// permissive single-byte decoder for HeaderEncoding.
	Decoder encoding.DecodeHandler `mapstructure:"-"`
	// Normalizer overrides filter name resolution. Nil selects the catalog
	// normalizer with FilterOverrides applied.
	Normalizer filter.Normalizer `mapstructure:"-"`
}

// configHash fingerprints every option that influences classification
// results. Cache entries written under a different hash never hit.
func (o *Options) configHash() string {
	h := sha256.New()
	fmt.Fprintf(h, "window=%d\n", o.HeaderWindowBytes)
	fmt.Fprintf(h, "encoding=%s\n", o.HeaderEncoding)
	keys := make([]string, 0, len(o.FilterOverrides))
	for k := range o.FilterOverrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "override=%s:%d\n", k, o.FilterOverrides[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
