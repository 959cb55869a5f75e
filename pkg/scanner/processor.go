package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/stackvity/astro-tally/pkg/scanner/cache"
	"github.com/stackvity/astro-tally/pkg/scanner/encoding"
	"github.com/stackvity/astro-tally/pkg/scanner/filter"
	"github.com/stackvity/astro-tally/pkg/scanner/header"
)

// FrameClassifier reads a candidate file's header window and decides whether
// it is a light frame, extracting the normalized metadata when it is. One
// classifier instance is shared by all workers; it holds no per-file state.
type FrameClassifier struct {
	logger       *slog.Logger
	decoder      encoding.DecodeHandler
	normalizer   filter.Normalizer
	cacheManager cache.Manager
	windowBytes  int
	configHash   string
}

// NewFrameClassifier wires a classifier from run options. Nil injection
// points fall back to the default implementations.
func NewFrameClassifier(opts *Options, logger *slog.Logger) *FrameClassifier {
	dec := opts.Decoder
	if dec == nil {
		dec = encoding.NewPermissiveDecodeHandler(opts.HeaderEncoding)
	}
	norm := opts.Normalizer
	if norm == nil {
		norm = filter.NewCatalogNormalizer(opts.FilterOverrides, opts.Logger)
	}
	cm := opts.CacheManager
	if cm == nil {
		cm = noOpCacheManager{}
	}
	window := opts.HeaderWindowBytes
	if window <= 0 {
		window = DefaultHeaderWindowBytes
	}
	return &FrameClassifier{
		logger:       logger.With(slog.String("component", "classifier")),
		decoder:      dec,
		normalizer:   norm,
		cacheManager: cm,
		windowBytes:  window,
		configHash:   opts.configHash(),
	}
}

// Classify processes one candidate path. It returns exactly one of a
// FrameRecord (the file is a light frame), a RejectInfo (the file is
// excluded), or an ErrorInfo (cancelled mid-run). I/O problems with the
// file itself are rejections, not errors: a vanished or unreadable frame
// must not abort the run.
func (c *FrameClassifier) Classify(ctx context.Context, path string) (any, Status) {
	if err := ctx.Err(); err != nil {
		return ErrorInfo{Path: path, Error: err.Error()}, StatusFailed
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("Candidate no longer exists", slog.String("path", path))
			return RejectInfo{Path: path, Reason: RejectReasonMissing, Detail: err.Error()}, StatusRejected
		}
		return RejectInfo{Path: path, Reason: RejectReasonUnreadable, Detail: err.Error()}, StatusRejected
	}

	if hit, cached := c.cacheManager.Check(path, info.ModTime(), info.Size(), c.configHash); hit {
		if !cached.IsLight {
			return RejectInfo{Path: path, Reason: RejectReason(cached.RejectReason)}, StatusRejected
		}
		return FrameRecord{
			Path:            path,
			Date:            cached.Date,
			FilterID:        cached.FilterID,
			ExposureSeconds: cached.ExposureSeconds,
			Binning:         cached.Binning,
			Gain:            cached.Gain,
			FromCache:       true,
		}, StatusCached
	}

	text, err := c.readWindow(path)
	if err != nil {
		c.logger.Warn("Cannot read header window", slog.String("path", path), slog.String("error", err.Error()))
		return RejectInfo{Path: path, Reason: RejectReasonUnreadable, Detail: err.Error()}, StatusRejected
	}

	patterns := header.ForPath(path)

	frameType, ok := patterns.Extract(header.FieldType, text)
	if !ok {
		c.cacheReject(path, info, RejectReasonNoType)
		return RejectInfo{Path: path, Reason: RejectReasonNoType}, StatusRejected
	}
	if !strings.Contains(strings.ToUpper(frameType), lightFrameMarker) {
		c.cacheReject(path, info, RejectReasonNotLight)
		return RejectInfo{
			Path:   path,
			Reason: RejectReasonNotLight,
			Detail: fmt.Sprintf("type %q", frameType),
		}, StatusRejected
	}

	rec := FrameRecord{
		Path:            path,
		Date:            normalizeDate(patterns, text),
		FilterID:        c.normalizer.Normalize(normalizeFilter(patterns, text)),
		ExposureSeconds: normalizeExposure(patterns, text),
		Binning:         normalizeBinning(patterns, text),
		Gain:            normalizeGain(patterns, text),
	}

	if err := c.cacheManager.Update(path, info.ModTime(), info.Size(), c.configHash, cache.Record{
		Date:            rec.Date,
		FilterID:        rec.FilterID,
		ExposureSeconds: rec.ExposureSeconds,
		Binning:         rec.Binning,
		Gain:            rec.Gain,
		IsLight:         true,
	}); err != nil {
		c.logger.Warn("Cache update failed", slog.String("path", path), slog.String("error", err.Error()))
	}

	return rec, StatusMatched
}

// readWindow reads at most windowBytes from the start of the file and
// decodes them permissively. The handle is closed before returning so the
// worker never holds more than one descriptor at a time.
func (c *FrameClassifier) readWindow(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, c.windowBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	return c.decoder.Decode(buf[:n]), nil
}

func (c *FrameClassifier) cacheReject(path string, info os.FileInfo, reason RejectReason) {
	err := c.cacheManager.Update(path, info.ModTime(), info.Size(), c.configHash, cache.Record{
		IsLight:      false,
		RejectReason: string(reason),
	})
	if err != nil {
		c.logger.Warn("Cache update failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// normalizeDate keeps the calendar part of an ISO-ish timestamp.
func normalizeDate(ps *header.PatternSet, text string) string {
	val, ok := ps.Extract(header.FieldDate, text)
	if !ok || val == "" {
		return unknownDate
	}
	return strings.SplitN(val, "T", 2)[0]
}

func normalizeFilter(ps *header.PatternSet, text string) string {
	val, ok := ps.Extract(header.FieldFilter, text)
	if !ok || val == "" {
		return unknownFilter
	}
	return val
}

// normalizeExposure renders the duration with two decimals. Absent or
// unparseable values become the literal "0", not "0.00"; AstroBin treats
// them differently.
func normalizeExposure(ps *header.PatternSet, text string) string {
	val, ok := ps.Extract(header.FieldExposure, text)
	if !ok {
		return defaultExposure
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return defaultExposure
	}
	return fmt.Sprintf("%.2f", f)
}

// normalizeGain truncates fractional gains to an integer string.
func normalizeGain(ps *header.PatternSet, text string) string {
	val, ok := ps.Extract(header.FieldGain, text)
	if !ok {
		return defaultGain
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return defaultGain
	}
	return strconv.Itoa(int(f))
}

func normalizeBinning(ps *header.PatternSet, text string) string {
	val, ok := ps.Extract(header.FieldBinning, text)
	if !ok || val == "" {
		return defaultBinning
	}
	return val
}
