// Package sink persists the aggregated tally and reports run outcomes to
// the user. It is the only place the CLI writes the output table, so the
// TUI, the progress bar and plain logging all share one notification path.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/stackvity/astro-tally/pkg/scanner"
)

// Sink receives the final table and user-facing notifications.
type Sink interface {
	// WriteTable persists the aggregated rows. Every row is stamped with
	// the configured Bortle value.
	WriteTable(rows []scanner.Row, bortle int) error
	// Notify surfaces an outcome message to the user.
	Notify(title, message string, isError bool)
}

// csvHeader matches the column set AstroBin's acquisition importer expects.
var csvHeader = []string{"date", "filter", "number", "duration", "binning", "gain", "bortle"}

// CSVSink writes the table as a CSV file and notifies through stderr plus
// structured logs.
type CSVSink struct {
	outputPath string
	logger     *slog.Logger
	notifyOut  io.Writer
}

// NewCSVSink creates a sink writing to outputPath. Notifications go to
// stderr so they survive shell redirection of the table itself.
func NewCSVSink(outputPath string, loggerHandler slog.Handler) *CSVSink {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	return &CSVSink{
		outputPath: outputPath,
		logger:     slog.New(loggerHandler).With(slog.String("component", "sink")),
		notifyOut:  os.Stderr,
	}
}

// OutputPath reports where the table is written.
func (s *CSVSink) OutputPath() string { return s.outputPath }

// WriteTable implements Sink. Failures wrap scanner.ErrOutputWrite.
func (s *CSVSink) WriteTable(rows []scanner.Row, bortle int) error {
	if err := os.MkdirAll(filepath.Dir(s.outputPath), 0o755); err != nil {
		return fmt.Errorf("%w: create output directory: %w", scanner.ErrOutputWrite, err)
	}
	f, err := os.Create(s.outputPath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", scanner.ErrOutputWrite, s.outputPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("%w: write header: %w", scanner.ErrOutputWrite, err)
	}
	bortleStr := strconv.Itoa(bortle)
	for _, row := range rows {
		record := []string{
			row.Date,
			row.FilterID,
			strconv.Itoa(row.Count),
			row.ExposureSeconds,
			row.Binning,
			row.Gain,
			bortleStr,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("%w: write row: %w", scanner.ErrOutputWrite, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flush %s: %w", scanner.ErrOutputWrite, s.outputPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", scanner.ErrOutputWrite, s.outputPath, err)
	}

	s.logger.Info("Output table written",
		slog.String("path", s.outputPath),
		slog.Int("rows", len(rows)))
	return nil
}

// Notify implements Sink.
func (s *CSVSink) Notify(title, message string, isError bool) {
	if isError {
		s.logger.Error(message, slog.String("title", title))
	} else {
		s.logger.Info(message, slog.String("title", title))
	}
	fmt.Fprintf(s.notifyOut, "%s: %s\n", title, message)
}
