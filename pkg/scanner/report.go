package scanner

import "time"

// FrameRecord is the normalized metadata extracted from one light frame.
// All fields are strings because the output table is textual and several
// fields pass through raw header values when parsing fails.
type FrameRecord struct {
	Path            string `json:"path"`
	Date            string `json:"date"`
	FilterID        string `json:"filterId"`
	ExposureSeconds string `json:"exposureSeconds"`
	Binning         string `json:"binning"`
	Gain            string `json:"gain"`
	// FromCache marks records supplied by the classification cache.
	FromCache bool `json:"fromCache,omitempty"`
}

// Key returns the aggregation identity of the record.
func (r FrameRecord) Key() AggregationKey {
	return AggregationKey{
		Date:            r.Date,
		FilterID:        r.FilterID,
		ExposureSeconds: r.ExposureSeconds,
		Binning:         r.Binning,
		Gain:            r.Gain,
	}
}

// RejectInfo describes a candidate excluded from the tally.
type RejectInfo struct {
	Path   string       `json:"path"`
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

// ErrorInfo describes an unexpected internal failure for one candidate.
type ErrorInfo struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ReportSummary holds run-level counters and context.
type ReportSummary struct {
	LogPath         string    `json:"logPath"`
	OutputPath      string    `json:"outputPath"`
	ProfileUsed     string    `json:"profileUsed,omitempty"`
	ConfigFilePath  string    `json:"configFilePath,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	DurationSeconds float64   `json:"durationSeconds"`
	Concurrency     int       `json:"concurrency"`
	Bortle          int       `json:"bortle"`
	CacheEnabled    bool      `json:"cacheEnabled"`
	CandidateCount  int       `json:"candidateCount"`
	LightFrameCount int       `json:"lightFrameCount"`
	CachedCount     int       `json:"cachedCount"`
	RejectCount     int       `json:"rejectCount"`
	ErrorCount      int       `json:"errorCount"`
	SchemaVersion   string    `json:"schemaVersion"`
}

// Report is the complete result of one scanning run.
type Report struct {
	Summary ReportSummary `json:"summary"`
	Rows    []Row         `json:"rows"`
	Rejects []RejectInfo  `json:"rejects,omitempty"`
	Errors  []ErrorInfo   `json:"errors,omitempty"`
}
