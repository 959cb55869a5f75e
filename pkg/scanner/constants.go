package scanner

const (
	// DefaultConcurrency is the worker pool size used when the caller does
	// not specify one.
	DefaultConcurrency = 20

	// DefaultHeaderWindowBytes is how much of each file is read for header
	// extraction. Both supported formats keep their metadata well inside
	// this prefix.
	DefaultHeaderWindowBytes = 50000

	// DefaultBortle is the sky quality value written to every output row
	// when none is configured.
	DefaultBortle = 4

	// DefaultOutputFileName is the CSV written next to the session log when
	// no explicit output path is given.
	DefaultOutputFileName = "astrobin_import.csv"

	// DefaultCacheFileName is the classification cache stored next to the
	// session log when caching is enabled.
	DefaultCacheFileName = ".astrotally.cache"

	// lightFrameMarker gates classification: a frame counts only when its
	// type field contains this token, case-insensitively.
	lightFrameMarker = "LIGHT"

	// Fallback field values, matching what AstroBin's CSV importer accepts
	// for unknown data.
	unknownDate     = "Unknown"
	unknownFilter   = "Unknown"
	defaultExposure = "0"
	defaultGain     = "0"
	defaultBinning  = "1"

	// ReportSchemaVersion identifies the JSON report layout.
	ReportSchemaVersion = "1.0"
)
