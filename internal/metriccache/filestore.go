package metriccache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ddwolfer/Financial-Assistant/pkg/fileutil"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// FileStore persists the cache as one JSON object keyed by identifier.
// Writes go to a temp file in the same directory and are renamed over the
// target, so a crash never leaves a half-written cache behind.
type FileStore struct {
	path   string
	logger *logger.Logger
}

// NewFileStore creates a file-backed store at path
func NewFileStore(path string, log *logger.Logger) *FileStore {
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{
		path:   path,
		logger: log.WithComponent("metriccache.file"),
	}
}

// Path returns the cache file location
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the cache file. A missing file is an empty cache; an
// unreadable file degrades to an empty cache with a warning; each corrupt
// entry is discarded on its own.
func (s *FileStore) Load(ctx context.Context) (map[string]Record, error) {
	records := make(map[string]Record)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return records, nil
	}
	if err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("Metric cache unreadable, starting empty")
		return records, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.WithError(err).WithField("path", s.path).Warn("Metric cache file corrupt, starting empty")
		return records, nil
	}

	for key, msg := range raw {
		var r Record
		if err := json.Unmarshal(msg, &r); err != nil {
			s.discard(key, err)
			continue
		}
		if err := r.validate(); err != nil {
			s.discard(key, err)
			continue
		}
		records[NormalizeKey(key)] = r
	}

	return records, nil
}

func (s *FileStore) discard(key string, err error) {
	s.logger.WithFields(map[string]interface{}{
		"symbol": key,
		"error":  err.Error(),
	}).Warn("Discarding corrupt cache entry")
}

// Save rewrites the whole file atomically
func (s *FileStore) Save(ctx context.Context, all map[string]Record, changed []string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	return fileutil.WriteAtomic(s.path, data, 0o644)
}

// Clear writes an empty cache file
func (s *FileStore) Clear(ctx context.Context) error {
	return fileutil.WriteAtomic(s.path, []byte("{}\n"), 0o644)
}
