// Package cache persists frame classification results between runs so that
// re-scanning a session log does not re-read unchanged files.
package cache

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SchemaVersion identifies the cache file layout. Bump it whenever Record or
// Entry changes incompatibly; mismatched files are discarded on Load.
const SchemaVersion = "1.0"

const (
	FormatGob     = "gob"
	FormatJSON    = "json"
	defaultFormat = FormatGob
)

var (
	// ErrLoad indicates a critical error reading the cache file. Corruption
	// and version mismatches are not critical; they degrade to an empty
	// index.
	ErrLoad = errors.New("failed to load classification cache")

	// ErrPersist indicates the cache index could not be written back.
	ErrPersist = errors.New("failed to persist classification cache")
)

// Record holds the extracted frame metadata stored per cached file.
type Record struct {
	Date            string `json:"date"`
	FilterID        string `json:"filterId"`
	ExposureSeconds string `json:"exposureSeconds"`
	Binning         string `json:"binning"`
	Gain            string `json:"gain"`
	// IsLight distinguishes cached light frames from cached rejections, so
	// a non-light frame is not re-read either.
	IsLight      bool   `json:"isLight"`
	RejectReason string `json:"rejectReason,omitempty"`
}

// Entry is one cached classification keyed by file path.
type Entry struct {
	ModTime       time.Time `json:"modTime"`
	Size          int64     `json:"size"`
	ConfigHash    string    `json:"configHash"`
	Record        Record    `json:"record"`
	SchemaVersion string    `json:"schemaVersion"`
	AppVersion    string    `json:"appVersion"`
}

type fileHeader struct {
	SchemaVersion string `json:"schemaVersion"`
	AppVersion    string `json:"appVersion"`
}

// Manager loads, queries, updates and persists the classification index.
// Check and Update must be safe for concurrent use by the worker pool.
type Manager interface {
	Load(cachePath string) error
	Check(filePath string, modTime time.Time, size int64, configHash string) (bool, Record)
	Update(filePath string, modTime time.Time, size int64, configHash string, rec Record) error
	Persist(cachePath string) error
}

type fileManager struct {
	mu            sync.RWMutex
	index         map[string]Entry
	logger        *slog.Logger
	schemaVersion string
	appVersion    string
	format        string
}

// NewFileManager creates a file-backed Manager. The format selects the
// serialization on disk ("gob" or "json", defaulting to gob).
func NewFileManager(loggerHandler slog.Handler, appVersion string, format string) Manager {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	format = strings.ToLower(format)
	if format != FormatJSON && format != FormatGob {
		format = defaultFormat
	}
	if appVersion == "" {
		appVersion = "dev"
	}
	logger := slog.New(loggerHandler).With(
		slog.String("component", "cache"),
		slog.String("format", format),
	)
	return &fileManager{
		index:         make(map[string]Entry),
		logger:        logger,
		schemaVersion: SchemaVersion,
		appVersion:    appVersion,
		format:        format,
	}
}

// Load reads the index from disk. A missing file, corruption or a version
// mismatch all yield an empty index and a nil error; only hard I/O failures
// (e.g. permissions) return an error wrapping ErrLoad.
func (m *fileManager) Load(cachePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.index = make(map[string]Entry)

	file, err := os.Open(cachePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Debug("No cache file, starting with empty index", slog.String("path", cachePath))
			return nil
		}
		return fmt.Errorf("%w: open %s: %w", ErrLoad, cachePath, err)
	}
	defer file.Close()

	var header fileHeader
	var loaded map[string]Entry
	var decodeErr error

	if m.format == FormatJSON {
		var doc struct {
			Header fileHeader       `json:"header"`
			Index  map[string]Entry `json:"index"`
		}
		decodeErr = json.NewDecoder(file).Decode(&doc)
		header, loaded = doc.Header, doc.Index
	} else {
		dec := gob.NewDecoder(file)
		if decodeErr = dec.Decode(&header); decodeErr == nil {
			decodeErr = dec.Decode(&loaded)
		}
	}

	if decodeErr != nil {
		if errors.Is(decodeErr, io.EOF) || errors.Is(decodeErr, io.ErrUnexpectedEOF) {
			m.logger.Warn("Cache file is empty or truncated, ignoring it", slog.String("path", cachePath))
		} else {
			m.logger.Warn("Cache file is corrupt or in another format, ignoring it",
				slog.String("path", cachePath), slog.String("error", decodeErr.Error()))
		}
		return nil
	}

	if header.SchemaVersion != m.schemaVersion {
		m.logger.Warn("Cache schema version mismatch, discarding cache",
			slog.String("path", cachePath),
			slog.String("found", header.SchemaVersion),
			slog.String("expected", m.schemaVersion))
		return nil
	}
	if header.AppVersion != m.appVersion && header.AppVersion != "dev" && m.appVersion != "dev" {
		m.logger.Warn("Cache written by another release, discarding cache",
			slog.String("path", cachePath), slog.String("found", header.AppVersion))
		return nil
	}

	if loaded == nil {
		loaded = make(map[string]Entry)
	}
	m.index = loaded
	m.logger.Debug("Cache loaded", slog.String("path", cachePath), slog.Int("entries", len(m.index)))
	return nil
}

// Check reports whether a valid entry exists for the file. An entry hits
// only when size, modification time and the configuration hash all match.
func (m *fileManager) Check(filePath string, modTime time.Time, size int64, configHash string) (bool, Record) {
	m.mu.RLock()
	entry, found := m.index[filePath]
	m.mu.RUnlock()

	if !found {
		return false, Record{}
	}
	if entry.SchemaVersion != m.schemaVersion {
		return false, Record{}
	}
	if !entry.ModTime.Equal(modTime) || entry.Size != size || entry.ConfigHash != configHash {
		m.logger.Debug("Cache entry stale", slog.String("path", filePath))
		return false, Record{}
	}
	return true, entry.Record
}

// Update stores or replaces the entry for the file in memory.
func (m *fileManager) Update(filePath string, modTime time.Time, size int64, configHash string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index == nil {
		m.index = make(map[string]Entry)
	}
	m.index[filePath] = Entry{
		ModTime:       modTime,
		Size:          size,
		ConfigHash:    configHash,
		Record:        rec,
		SchemaVersion: m.schemaVersion,
		AppVersion:    m.appVersion,
	}
	return nil
}

// Persist writes the index atomically (temp file, then rename). An empty
// index removes any existing cache file instead.
func (m *fileManager) Persist(cachePath string) error {
	m.mu.RLock()
	indexCopy := make(map[string]Entry, len(m.index))
	for k, v := range m.index {
		indexCopy[k] = v
	}
	m.mu.RUnlock()

	if len(indexCopy) == 0 {
		if err := os.Remove(cachePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("Failed to remove empty cache file", slog.String("path", cachePath), slog.String("error", err.Error()))
		}
		return nil
	}

	dir := filepath.Dir(cachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create cache directory %s: %w", ErrPersist, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(cachePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %w", ErrPersist, dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		if _, statErr := os.Stat(tmpPath); statErr == nil {
			os.Remove(tmpPath)
		}
	}()

	header := fileHeader{SchemaVersion: m.schemaVersion, AppVersion: m.appVersion}
	var encodeErr error
	if m.format == FormatJSON {
		enc := json.NewEncoder(tmp)
		enc.SetIndent("", "  ")
		encodeErr = enc.Encode(struct {
			Header fileHeader       `json:"header"`
			Index  map[string]Entry `json:"index"`
		}{header, indexCopy})
	} else {
		enc := gob.NewEncoder(tmp)
		if encodeErr = enc.Encode(header); encodeErr == nil {
			encodeErr = enc.Encode(indexCopy)
		}
	}
	if encodeErr != nil {
		return fmt.Errorf("%w: encode cache (%s): %w", ErrPersist, m.format, encodeErr)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file %s: %w", ErrPersist, tmpPath, err)
	}
	if err := os.Rename(tmpPath, cachePath); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %w", ErrPersist, tmpPath, cachePath, err)
	}

	m.logger.Debug("Cache persisted", slog.String("path", cachePath), slog.Int("entries", len(indexCopy)))
	return nil
}
