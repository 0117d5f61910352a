package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/pkg/fileutil"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

const timestampLayout = "20060102_150405"

// screening_<tag>_<yyyymmdd_hhmmss>_<runid8>.json
var fileNamePattern = regexp.MustCompile(`^screening_([A-Za-z0-9-]+)_(\d{8}_\d{6})_([A-Za-z0-9]+)\.json$`)

var unsafeTagChars = regexp.MustCompile(`[^A-Za-z0-9-]+`)

// FileStore persists one JSON document per batch in a directory
// ⭐ SSOT: 파일 기반 결과 저장은 여기서만
type FileStore struct {
	dir    string
	logger *logger.Logger
}

var _ contracts.ResultsStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string, log *logger.Logger) *FileStore {
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{dir: dir, logger: log.WithComponent("results")}
}

// FileName returns the document name for a batch
func FileName(b *contracts.ScreeningBatch) string {
	return fmt.Sprintf("screening_%s_%s_%s.json",
		SanitizeTag(b.Tag),
		b.Timestamp.UTC().Format(timestampLayout),
		shortRunID(b.RunID),
	)
}

// SanitizeTag keeps letters, digits and dashes so tags survive file names
func SanitizeTag(tag string) string {
	t := strings.Trim(unsafeTagChars.ReplaceAllString(strings.TrimSpace(tag), "-"), "-")
	if t == "" {
		return "untagged"
	}
	return t
}

func shortRunID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return "00000000"
	}
	return id
}

// Save writes the batch atomically and returns its path
func (s *FileStore) Save(ctx context.Context, b *contracts.ScreeningBatch) (string, error) {
	if b == nil {
		return "", errors.New("nil batch")
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}

	path := filepath.Join(s.dir, FileName(b))
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write batch: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id": b.RunID,
		"tag":    b.Tag,
		"path":   path,
	}).Debug("Batch written")

	return path, nil
}

// Latest returns the newest batch for tag (any tag when empty)
func (s *FileStore) Latest(ctx context.Context, tag string) (*contracts.ScreeningBatch, error) {
	refs, err := s.List(ctx, tag)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: tag %q in %s", contracts.ErrNoBatch, tag, s.dir)
	}
	return Load(refs[0].Location)
}

// List returns references for stored batches, newest first
func (s *FileStore) List(ctx context.Context, tag string) ([]contracts.BatchRef, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results dir: %w", err)
	}

	want := ""
	if tag != "" {
		want = SanitizeTag(tag)
	}

	refs := make([]contracts.BatchRef, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := fileNamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if want != "" && m[1] != want {
			continue
		}
		if _, err := time.Parse(timestampLayout, m[2]); err != nil {
			continue
		}

		path := filepath.Join(s.dir, e.Name())
		ref, err := readRef(path)
		if err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable batch file")
			continue
		}
		refs = append(refs, ref)
	}

	// 파일명 시각은 초 단위라서 문서 안의 전체 정밀도 시각으로 정렬
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].Timestamp.Equal(refs[j].Timestamp) {
			return refs[i].Timestamp.After(refs[j].Timestamp)
		}
		return refs[i].RunID > refs[j].RunID
	})

	return refs, nil
}

// batchHeader decodes everything but the results
type batchHeader struct {
	RunID         string         `json:"run_id"`
	Timestamp     time.Time      `json:"timestamp"`
	Mode          contracts.Mode `json:"mode"`
	Tag           string         `json:"tag"`
	TotalScreened int            `json:"total_screened"`
	TotalPassed   int            `json:"total_passed"`
}

func readRef(path string) (contracts.BatchRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return contracts.BatchRef{}, err
	}
	var h batchHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return contracts.BatchRef{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return contracts.BatchRef{
		RunID:         h.RunID,
		Tag:           h.Tag,
		Mode:          h.Mode,
		Timestamp:     h.Timestamp,
		TotalScreened: h.TotalScreened,
		TotalPassed:   h.TotalPassed,
		Location:      path,
	}, nil
}

// Load reads one batch document
func Load(path string) (*contracts.ScreeningBatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var b contracts.ScreeningBatch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", filepath.Base(path), err)
	}
	return &b, nil
}
