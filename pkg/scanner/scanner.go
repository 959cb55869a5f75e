// Package scanner turns a PixInsight WBPP session log into an aggregated
// tally of the light frames the pipeline registered. It discovers candidate
// file paths in the log, classifies each file by reading a bounded header
// window, and counts light frames per (date, filter, exposure, binning,
// gain) so the result can be fed to AstroBin's CSV importer.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
)

// Scan is the main entry point for the scanning library. It runs discovery
// and classification end to end and returns the aggregated report.
//
// Error conditions: an unreadable log returns ErrLogNotFound; a log with no
// registered frames returns ErrNoCandidates together with a report whose
// summary is filled in (callers decide whether that is fatal). Per-file
// failures never surface here; they are folded into the report.
func Scan(ctx context.Context, opts Options) (Report, error) {
	engine, err := NewEngine(opts)
	if err != nil {
		return Report{}, err
	}
	validated := engine.Options()
	logger := slog.New(validated.Logger)

	logger.Info("Starting scan",
		slog.String("log", validated.LogPath),
		slog.String("version", versionOrDev(validated.AppVersion)))

	discoverer := NewDiscoverer(validated, logger)
	paths, err := discoverer.Discover(validated.LogPath)
	if err != nil {
		return Report{}, err
	}

	if len(paths) == 0 {
		logger.Warn("Session log contains no registered file paths", slog.String("log", validated.LogPath))
		report, runErr := engine.Run(ctx, nil)
		if runErr != nil {
			return report, runErr
		}
		return report, fmt.Errorf("%w: %s", ErrNoCandidates, validated.LogPath)
	}

	return engine.Run(ctx, paths)
}

func versionOrDev(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}
