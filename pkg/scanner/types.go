package scanner

// Status represents the terminal classification state of a candidate file.
type Status string

const (
	// StatusPending indicates the file is queued but not yet classified.
	StatusPending Status = "pending"
	// StatusProcessing indicates a worker is currently reading the file.
	StatusProcessing Status = "processing"
	// StatusMatched indicates the file is a light frame and contributed a
	// record to the tally.
	StatusMatched Status = "matched"
	// StatusCached indicates a valid cache entry supplied the record
	// without re-reading the header.
	StatusCached Status = "cached"
	// StatusRejected indicates the file was excluded (missing, unreadable,
	// no type field, or not a light frame).
	StatusRejected Status = "rejected"
	// StatusFailed indicates an unexpected internal error, such as a
	// recovered panic, while classifying the file.
	StatusFailed Status = "failed"
)

// RejectReason categorises why a candidate was excluded from the tally.
type RejectReason string

const (
	// RejectReasonMissing: the path from the log no longer exists on disk.
	RejectReasonMissing RejectReason = "missing"
	// RejectReasonUnreadable: the file exists but its header window could
	// not be read.
	RejectReasonUnreadable RejectReason = "unreadable"
	// RejectReasonNoType: no type field was found in the header window.
	RejectReasonNoType RejectReason = "no-type"
	// RejectReasonNotLight: the type field does not describe a light frame.
	RejectReasonNotLight RejectReason = "not-light"
)

// OutputFormat selects the rendering of the final run report.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// IsValid checks whether the format is one of the supported values.
func (f OutputFormat) IsValid() bool {
	return f == OutputFormatText || f == OutputFormatJSON
}
