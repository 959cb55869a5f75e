// Package hooks bridges scanner progress events to the CLI's presentation
// layer: the Bubble Tea TUI when attached to a terminal, a progress bar for
// plain TTY runs, or structured logs otherwise.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stackvity/astro-tally/pkg/scanner"
)

// Messages forwarded to the Bubble Tea program.

// CandidateDiscoveredMsg signals a path found in the session log.
type CandidateDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg signals a change in a candidate's classification state.
type FileStatusUpdateMsg struct {
	Path     string
	Status   scanner.Status
	Message  string
	Duration time.Duration
}

// ProgressMsg carries the completed/total counters after each terminal state.
type ProgressMsg struct {
	Completed int
	Total     int
}

// RunCompleteMsg signals the end of the run with the final report.
type RunCompleteMsg struct{ Report scanner.Report }

// TUIProgram is the slice of tea.Program the hooks need.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// ProgressBar is the slice of schollz/progressbar the hooks need. The bar
// is created lazily because the candidate total is unknown until discovery
// finishes.
type ProgressBar interface {
	Add(num int) error
	Close() error
}

// BarFactory builds a progress bar once the total is known.
type BarFactory func(total int) ProgressBar

// CLIHooks implements scanner.Hooks for the CLI.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	barFactory     BarFactory

	mu  sync.Mutex
	bar ProgressBar
}

// NewCLIHooks creates the hook bridge. tuiProgram may be nil when the TUI
// is disabled; barFactory may be nil when no progress bar should be shown.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProgram TUIProgram, barFactory BarFactory) scanner.Hooks {
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProgram,
		barFactory:     barFactory,
	}
}

// OnCandidateDiscovered implements scanner.Hooks.
func (h *CLIHooks) OnCandidateDiscovered(path string) error {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(CandidateDiscoveredMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("Candidate discovered", slog.String("path", path))
	}
	return nil
}

// OnFileStatusUpdate implements scanner.Hooks. It is called concurrently by
// the worker pool.
func (h *CLIHooks) OnFileStatusUpdate(path string, status scanner.Status, message string, duration time.Duration) error {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(FileStatusUpdateMsg{
			Path:     path,
			Status:   status,
			Message:  message,
			Duration: duration,
		})
		return nil
	}

	if h.verboseEnabled {
		level := slog.LevelDebug
		logMsg := "File status updated"
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(status)),
		}
		if duration > 0 {
			attrs = append(attrs, slog.Duration("duration", duration))
		}
		if message != "" {
			key := "message"
			if status == scanner.StatusFailed {
				key = "error"
			}
			attrs = append(attrs, slog.String(key, message))
		}
		switch status {
		case scanner.StatusMatched, scanner.StatusCached, scanner.StatusRejected:
			level = slog.LevelInfo
		case scanner.StatusFailed:
			level = slog.LevelError
			logMsg = "File classification failed"
		}
		h.logger.Log(context.Background(), level, logMsg, attrs...)
		return nil
	}

	// Progress bar and plain modes still surface hard failures.
	if status == scanner.StatusFailed {
		h.logger.Error("File classification failed", slog.String("path", path), slog.String("error", message))
	}
	return nil
}

// OnProgress implements scanner.Hooks. In progress bar mode the first call
// creates the bar, beyond that each call advances it by the delta since the
// last one.
func (h *CLIHooks) OnProgress(completed, total int) error {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(ProgressMsg{Completed: completed, Total: total})
		return nil
	}
	if h.barFactory == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bar == nil {
		h.bar = h.barFactory(total)
	}
	_ = h.bar.Add(1)
	return nil
}

// OnRunComplete implements scanner.Hooks.
func (h *CLIHooks) OnRunComplete(report scanner.Report) error {
	if h.tuiEnabled && h.tuiProgram != nil {
		h.tuiProgram.Send(RunCompleteMsg{Report: report})
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bar != nil {
		_ = h.bar.Close()
		h.bar = nil
		// Keep the shell prompt off the bar's final line.
		fmt.Fprintln(os.Stderr)
	}
	return nil
}
