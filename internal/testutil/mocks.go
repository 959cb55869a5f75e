package testutil

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stackvity/astro-tally/pkg/scanner"
	"github.com/stackvity/astro-tally/pkg/scanner/cache"
)

// MockHooks is a testify mock of the scanner.Hooks interface. Configure
// expectations with .On(...).Return(...); hook methods may be invoked
// concurrently by the worker pool, which testify's mock supports.
type MockHooks struct {
	mock.Mock
}

var _ scanner.Hooks = (*MockHooks)(nil)

func (m *MockHooks) OnCandidateDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockHooks) OnFileStatusUpdate(path string, status scanner.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

func (m *MockHooks) OnProgress(completed, total int) error {
	args := m.Called(completed, total)
	return args.Error(0)
}

func (m *MockHooks) OnRunComplete(report scanner.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

// MockCacheManager is a testify mock of the cache.Manager interface.
type MockCacheManager struct {
	mock.Mock
}

var _ cache.Manager = (*MockCacheManager)(nil)

func (m *MockCacheManager) Load(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

func (m *MockCacheManager) Check(filePath string, modTime time.Time, size int64, configHash string) (bool, cache.Record) {
	args := m.Called(filePath, modTime, size, configHash)
	hit, _ := args.Get(0).(bool)
	rec, _ := args.Get(1).(cache.Record)
	return hit, rec
}

func (m *MockCacheManager) Update(filePath string, modTime time.Time, size int64, configHash string, rec cache.Record) error {
	args := m.Called(filePath, modTime, size, configHash, rec)
	return args.Error(0)
}

func (m *MockCacheManager) Persist(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// MockNormalizer is a testify mock of the filter.Normalizer interface.
type MockNormalizer struct {
	mock.Mock
}

func (m *MockNormalizer) Normalize(raw string) string {
	args := m.Called(raw)
	return args.String(0)
}

// MockDecodeHandler is a testify mock of the encoding.DecodeHandler
// interface.
type MockDecodeHandler struct {
	mock.Mock
}

func (m *MockDecodeHandler) Decode(raw []byte) string {
	args := m.Called(raw)
	return args.String(0)
}
