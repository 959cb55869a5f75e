// Package cli orchestrates a scanning run for the command line entry point:
// it picks the presentation mode (TUI, progress bar or plain logs), runs the
// scanner, writes the output table and renders the final summary.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/schollz/progressbar/v3"

	"github.com/stackvity/astro-tally/internal/cli/hooks"
	"github.com/stackvity/astro-tally/internal/cli/sink"
	"github.com/stackvity/astro-tally/internal/cli/ui"
	"github.com/stackvity/astro-tally/pkg/scanner"
)

// Run executes the scan with the validated options and handles all user
// facing reporting. The returned error is non-nil only for fatal outcomes:
// a missing log, a failed table write, or cancellation.
func Run(ctx context.Context, opts scanner.Options, logger *slog.Logger) error {
	out := sink.NewCSVSink(opts.OutputPath, opts.Logger)

	if opts.TuiEnabled {
		return runWithTUI(ctx, opts, logger, out)
	}
	return runPlain(ctx, opts, logger, out)
}

func runPlain(ctx context.Context, opts scanner.Options, logger *slog.Logger, out *sink.CSVSink) error {
	var barFactory hooks.BarFactory
	if !opts.Verbose {
		barFactory = func(total int) hooks.ProgressBar {
			return progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Classifying headers"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
	}
	opts.EventHooks = hooks.NewCLIHooks(logger, false, opts.Verbose, nil, barFactory)

	report, err := scanner.Scan(ctx, opts)
	return finish(report, err, opts, logger, out)
}

func runWithTUI(ctx context.Context, opts scanner.Options, logger *slog.Logger, out *sink.CSVSink) error {
	model := ui.NewModel()
	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(os.Stderr))
	opts.EventHooks = hooks.NewCLIHooks(logger, true, opts.Verbose, program, nil)

	var report scanner.Report
	var scanErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		report, scanErr = scanner.Scan(ctx, opts)
		program.Quit()
	}()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		logger.Warn("Terminal UI terminated abnormally", slog.String("error", err.Error()))
	}
	<-done

	return finish(report, scanErr, opts, logger, out)
}

// finish maps the scan outcome onto notifications, the table write and the
// final summary.
func finish(report scanner.Report, scanErr error, opts scanner.Options, logger *slog.Logger, out *sink.CSVSink) error {
	switch {
	case scanErr == nil:
		// Proceed to the table write.
	case errors.Is(scanErr, scanner.ErrNoCandidates):
		// A log with no registered frames is a warning, not a failure, and
		// produces no table.
		out.Notify("Warning", "No registered file paths found in this log.", true)
		return nil
	case errors.Is(scanErr, scanner.ErrLogNotFound):
		out.Notify("Error", "File not found.", true)
		return scanErr
	case errors.Is(scanErr, context.Canceled) || errors.Is(scanErr, context.DeadlineExceeded):
		out.Notify("Aborted", "Scan cancelled before completion.", true)
		return scanErr
	default:
		out.Notify("Error", scanErr.Error(), true)
		return scanErr
	}

	if err := out.WriteTable(report.Rows, opts.Bortle); err != nil {
		logger.Error("Output write failed", slog.String("error", err.Error()))
		out.Notify("Error", fmt.Sprintf("Could not write CSV: %v", err), true)
		return err
	}

	out.Notify("Success", fmt.Sprintf("Processed %d light frames.\nCSV saved to: %s",
		report.Summary.LightFrameCount, opts.OutputPath), false)

	return renderSummary(report, opts)
}

func renderSummary(report scanner.Report, opts scanner.Options) error {
	switch opts.OutputFormat {
	case scanner.OutputFormatJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to render JSON report: %w", err)
		}
	default:
		fmt.Fprintf(os.Stdout,
			"Candidates: %d  Light: %d (cached %d)  Rejected: %d  Errors: %d  Rows: %d  Duration: %.2fs\n",
			report.Summary.CandidateCount,
			report.Summary.LightFrameCount,
			report.Summary.CachedCount,
			report.Summary.RejectCount,
			report.Summary.ErrorCount,
			len(report.Rows),
			report.Summary.DurationSeconds,
		)
	}
	return nil
}
