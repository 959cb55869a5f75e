package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/stackvity/astro-tally/pkg/scanner/cache"
)

// Engine coordinates the classification run: it fans candidate paths out to
// a bounded worker pool and folds the results into a Tally through a single
// aggregator goroutine.
type Engine struct {
	opts       *Options
	logger     *slog.Logger
	hooks      Hooks
	cacheMgr   cache.Manager
	classifier *FrameClassifier
}

// NewEngine validates the options and wires default implementations for
// every injection point left nil.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.NewTextHandler(io.Discard, nil)
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.LogPath == "" {
		err := fmt.Errorf("%w: log path cannot be empty", ErrConfigValidation)
		logger.Error(err.Error())
		return nil, err
	}
	if opts.Concurrency < 0 {
		err := fmt.Errorf("%w: concurrency cannot be negative", ErrConfigValidation)
		logger.Error(err.Error(), slog.Int("concurrency", opts.Concurrency))
		return nil, err
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.HeaderWindowBytes < 0 {
		err := fmt.Errorf("%w: header window cannot be negative", ErrConfigValidation)
		return nil, err
	}
	if opts.HeaderWindowBytes == 0 {
		opts.HeaderWindowBytes = DefaultHeaderWindowBytes
	}
	if opts.EventHooks == nil {
		opts.EventHooks = NoOpHooks{}
	}
	if opts.CacheManager == nil {
		if opts.CacheEnabled {
			opts.CacheManager = cache.NewFileManager(opts.Logger, opts.AppVersion, cache.FormatGob)
		} else {
			opts.CacheManager = noOpCacheManager{}
		}
	}

	return &Engine{
		opts:       &opts,
		logger:     logger,
		hooks:      opts.EventHooks,
		cacheMgr:   opts.CacheManager,
		classifier: NewFrameClassifier(&opts, slog.New(opts.Logger)),
	}, nil
}

// Options returns the validated options the engine runs with.
func (e *Engine) Options() *Options { return e.opts }

// Run classifies every candidate path and returns the aggregated report.
// Per-file problems are absorbed into the report; the returned error is
// reserved for cancellation and cache persistence failures.
func (e *Engine) Run(ctx context.Context, paths []string) (report Report, err error) {
	startTime := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic during scanning run",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("internal error: panic during scanning run: %v", r)
		}
	}()

	if e.opts.CacheEnabled && e.opts.CacheFilePath != "" && !e.opts.ClearCache {
		if loadErr := e.cacheMgr.Load(e.opts.CacheFilePath); loadErr != nil {
			e.logger.Warn("Cache load failed, continuing without cache",
				slog.String("path", e.opts.CacheFilePath), slog.String("error", loadErr.Error()))
		}
	}

	total := len(paths)
	concurrency := e.opts.Concurrency
	if concurrency > total && total > 0 {
		concurrency = total
	}

	e.logger.Info("Starting classification",
		slog.Int("candidates", total),
		slog.Int("concurrency", concurrency))

	workerChan := make(chan string, concurrency)
	resultsChan := make(chan classification, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go e.worker(ctx, i, &wg, workerChan, resultsChan)
	}

	tally := NewTally()
	var rejects []RejectInfo
	var errorInfos []ErrorInfo
	var lightCount, cachedCount int

	aggregatorDone := make(chan struct{})
	go func() {
		defer close(aggregatorDone)
		completed := 0
		for res := range resultsChan {
			completed++
			switch v := res.result.(type) {
			case FrameRecord:
				tally.Add(v)
				lightCount++
				if v.FromCache {
					cachedCount++
				}
			case RejectInfo:
				rejects = append(rejects, v)
			case ErrorInfo:
				errorInfos = append(errorInfos, v)
			}
			if hookErr := e.hooks.OnProgress(completed, total); hookErr != nil {
				e.logger.Warn("OnProgress hook failed", slog.String("error", hookErr.Error()))
			}
		}
	}()

feed:
	for _, path := range paths {
		select {
		case workerChan <- path:
		case <-ctx.Done():
			e.logger.Warn("Run cancelled while queueing candidates", slog.String("reason", ctx.Err().Error()))
			break feed
		}
	}
	close(workerChan)

	wg.Wait()
	close(resultsChan)
	<-aggregatorDone

	if e.opts.CacheEnabled && e.opts.CacheFilePath != "" {
		if persistErr := e.cacheMgr.Persist(e.opts.CacheFilePath); persistErr != nil {
			e.logger.Error("Cache persist failed", slog.String("error", persistErr.Error()))
		}
	}

	report = Report{
		Summary: ReportSummary{
			LogPath:         e.opts.LogPath,
			OutputPath:      e.opts.OutputPath,
			ProfileUsed:     e.opts.ProfileName,
			ConfigFilePath:  e.opts.ConfigFilePath,
			Timestamp:       time.Now(),
			DurationSeconds: time.Since(startTime).Seconds(),
			Concurrency:     e.opts.Concurrency,
			Bortle:          e.opts.Bortle,
			CacheEnabled:    e.opts.CacheEnabled,
			CandidateCount:  total,
			LightFrameCount: lightCount,
			CachedCount:     cachedCount,
			RejectCount:     len(rejects),
			ErrorCount:      len(errorInfos),
			SchemaVersion:   ReportSchemaVersion,
		},
		Rows:    tally.Rows(),
		Rejects: rejects,
		Errors:  errorInfos,
	}

	if hookErr := e.hooks.OnRunComplete(report); hookErr != nil {
		e.logger.Warn("OnRunComplete hook failed", slog.String("error", hookErr.Error()))
	}

	e.logger.Info("Classification finished",
		slog.Int("lightFrames", lightCount),
		slog.Int("cached", cachedCount),
		slog.Int("rejected", len(rejects)),
		slog.Int("errors", len(errorInfos)),
		slog.Float64("seconds", report.Summary.DurationSeconds))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, ctxErr
	}
	return report, nil
}

type classification struct {
	path   string
	result any
	status Status
}

// worker pulls candidate paths until the channel closes. A panic while
// classifying one file is converted to an ErrorInfo for that file so the
// rest of the run survives.
func (e *Engine) worker(ctx context.Context, id int, wg *sync.WaitGroup, in <-chan string, out chan<- classification) {
	defer wg.Done()
	logger := e.logger.With(slog.Int("worker", id))

	for path := range in {
		e.notifyStatus(path, StatusProcessing, "", 0)
		start := time.Now()

		result, status := e.classifyWithRecover(ctx, logger, path)

		var message string
		switch v := result.(type) {
		case RejectInfo:
			message = string(v.Reason)
		case ErrorInfo:
			message = v.Error
		}
		e.notifyStatus(path, status, message, time.Since(start))

		out <- classification{path: path, result: result, status: status}
	}
}

func (e *Engine) classifyWithRecover(ctx context.Context, logger *slog.Logger, path string) (result any, status Status) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while classifying file",
				slog.String("path", path),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			result = ErrorInfo{Path: path, Error: fmt.Sprintf("panic: %v", r)}
			status = StatusFailed
		}
	}()
	return e.classifier.Classify(ctx, path)
}

func (e *Engine) notifyStatus(path string, status Status, message string, duration time.Duration) {
	if hookErr := e.hooks.OnFileStatusUpdate(path, status, message, duration); hookErr != nil {
		e.logger.Warn("OnFileStatusUpdate hook failed",
			slog.String("path", path), slog.String("error", hookErr.Error()))
	}
}
