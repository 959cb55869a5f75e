package hooks

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/astro-tally/internal/testutil"
	"github.com/stackvity/astro-tally/pkg/scanner"
)

type recordingProgram struct {
	mu   sync.Mutex
	msgs []interface{}
}

func (p *recordingProgram) Send(msg tea.Msg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
}

type recordingBar struct {
	mu     sync.Mutex
	added  int
	closed bool
}

func (b *recordingBar) Add(num int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added += num
	return nil
}

func (b *recordingBar) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func TestTUIModeForwardsMessages(t *testing.T) {
	program := &recordingProgram{}
	h := NewCLIHooks(testutil.NewTestLogger(t), true, false, program, nil)

	require.NoError(t, h.OnCandidateDiscovered("/data/a.fits"))
	require.NoError(t, h.OnFileStatusUpdate("/data/a.fits", scanner.StatusMatched, "", 12*time.Millisecond))
	require.NoError(t, h.OnProgress(1, 2))
	require.NoError(t, h.OnRunComplete(scanner.Report{}))

	require.Len(t, program.msgs, 4)
	assert.Equal(t, CandidateDiscoveredMsg{Path: "/data/a.fits"}, program.msgs[0])
	update, ok := program.msgs[1].(FileStatusUpdateMsg)
	require.True(t, ok)
	assert.Equal(t, scanner.StatusMatched, update.Status)
	assert.Equal(t, ProgressMsg{Completed: 1, Total: 2}, program.msgs[2])
	_, ok = program.msgs[3].(RunCompleteMsg)
	assert.True(t, ok)
}

func TestProgressBarModeLazyCreation(t *testing.T) {
	bar := &recordingBar{}
	var gotTotal int
	factory := func(total int) ProgressBar {
		gotTotal = total
		return bar
	}
	h := NewCLIHooks(testutil.NewTestLogger(t), false, false, nil, factory)

	for i := 1; i <= 5; i++ {
		require.NoError(t, h.OnProgress(i, 5))
	}
	require.NoError(t, h.OnRunComplete(scanner.Report{}))

	assert.Equal(t, 5, gotTotal, "bar is created with the discovered total")
	assert.Equal(t, 5, bar.added)
	assert.True(t, bar.closed)
}

type capturingHandler struct {
	mu      sync.Mutex
	records []slog.Record
	ctxs    []context.Context
}

func (h *capturingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capturingHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	h.ctxs = append(h.ctxs, ctx)
	return nil
}

func (h *capturingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capturingHandler) WithGroup(string) slog.Handler      { return h }

func TestVerboseModeLogsStatusUpdates(t *testing.T) {
	handler := &capturingHandler{}
	h := NewCLIHooks(slog.New(handler), false, true, nil, nil)

	require.NoError(t, h.OnFileStatusUpdate("/data/a.fits", scanner.StatusMatched, "", 5*time.Millisecond))
	require.NoError(t, h.OnFileStatusUpdate("/data/b.fits", scanner.StatusFailed, "read error", 0))

	require.Len(t, handler.records, 2)
	assert.Equal(t, slog.LevelInfo, handler.records[0].Level)
	assert.Equal(t, slog.LevelError, handler.records[1].Level)
	assert.Equal(t, "File classification failed", handler.records[1].Message)
	for _, ctx := range handler.ctxs {
		assert.NotNil(t, ctx, "log records carry a real context")
	}
}

func TestPlainModeIsQuiet(t *testing.T) {
	h := NewCLIHooks(testutil.NewTestLogger(t), false, false, nil, nil)

	assert.NoError(t, h.OnCandidateDiscovered("/data/a.fits"))
	assert.NoError(t, h.OnFileStatusUpdate("/data/a.fits", scanner.StatusRejected, "not-light", 0))
	assert.NoError(t, h.OnProgress(1, 1))
	assert.NoError(t, h.OnRunComplete(scanner.Report{}))
}

func TestConcurrentProgressUpdates(t *testing.T) {
	bar := &recordingBar{}
	h := NewCLIHooks(testutil.NewTestLogger(t), false, false, nil, func(int) ProgressBar { return bar })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = h.OnProgress(i+1, 20)
			_ = h.OnFileStatusUpdate("/data/x.fits", scanner.StatusMatched, "", 0)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, bar.added)
}
