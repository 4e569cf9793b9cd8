package history

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📄 document is the on-disk JSON layout
type document struct {
	SchemaVersion string    `json:"schema_version"`
	UpdatedAt     time.Time `json:"updated_at"`
	Entries       []Entry   `json:"entries"`
}

// 💾 FileStore keeps the history in one JSON document, rewritten atomically on flush
type FileStore struct {
	path    string
	entries map[string]Entry
	dirty   bool
}

// 🏭 NewFileStore creates a store backed by the JSON file at path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, entries: map[string]Entry{}}
}

// Load implements Store
func (s *FileStore) Load(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", s.path).Msg("loading history")

	s.entries = map[string]Entry{}
	s.dirty = false

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", s.path).Msg("no history yet, starting empty")
			return nil
		}
		return &LoadError{Path: s.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var doc document
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return &LoadError{Path: s.path, Err: errors.Errorf("decoding JSON: %w", err)}
	}
	if !strings.HasPrefix(doc.SchemaVersion, "1.") {
		return &LoadError{Path: s.path, Err: errors.Errorf("unsupported schema version %q", doc.SchemaVersion)}
	}

	for _, e := range doc.Entries {
		if err := validateEntry(e); err != nil {
			return &LoadError{Path: s.path, Err: err}
		}
		if prev, ok := s.entries[e.Folder]; ok {
			logger.Warn().Str("folder", e.Folder).Msg("duplicate history entry, keeping the newest")
			if prev.ProcessedAt.After(e.ProcessedAt) {
				continue
			}
		}
		s.entries[e.Folder] = e
	}

	logger.Debug().Int("entries", len(s.entries)).Msg("history loaded")
	return nil
}

// Get implements Store
func (s *FileStore) Get(folder string) (Entry, bool) {
	e, ok := s.entries[folder]
	return e, ok
}

// IsProcessed implements Store
func (s *FileStore) IsProcessed(folder string) bool {
	e, ok := s.entries[folder]
	return ok && e.Succeeded()
}

// Record implements Store; the entry is durable only after Flush
func (s *FileStore) Record(ctx context.Context, e Entry) error {
	if err := validateEntry(e); err != nil {
		return err
	}
	prev, ok := s.entries[e.Folder]
	s.entries[e.Folder] = merge(prev, ok, e)
	s.dirty = true
	return nil
}

// Entries implements Store
func (s *FileStore) Entries() []Entry {
	return sortedEntries(s.entries)
}

// Flush implements Store by writing a temp file next to the target and renaming it over
func (s *FileStore) Flush(ctx context.Context) error {
	if !s.dirty {
		return nil
	}

	doc := document{
		SchemaVersion: SchemaVersion,
		UpdatedAt:     time.Now().UTC(),
		Entries:       s.Entries(),
	}
	data, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		return errors.Errorf("encoding history: %w", err)
	}

	if err := writeFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return err
	}

	s.dirty = false
	zerolog.Ctx(ctx).Trace().Str("path", s.path).Int("entries", len(doc.Entries)).Msg("history flushed")
	return nil
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Errorf("creating history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		cleanup()
		return errors.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return errors.Errorf("renaming temp file: %w", err)
	}
	return nil
}
