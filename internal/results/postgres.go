package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ddwolfer/Financial-Assistant/internal/contracts"
	"github.com/ddwolfer/Financial-Assistant/pkg/database"
	"github.com/ddwolfer/Financial-Assistant/pkg/logger"
)

// Schema is the DDL for the batches table
var Schema = []string{
	`CREATE SCHEMA IF NOT EXISTS screening`,
	`CREATE TABLE IF NOT EXISTS screening.batches (
		run_id          TEXT PRIMARY KEY,
		tag             TEXT NOT NULL,
		mode            TEXT NOT NULL,
		universe        TEXT NOT NULL DEFAULT '',
		thresholds_hash TEXT NOT NULL,
		total_screened  INTEGER NOT NULL,
		total_passed    INTEGER NOT NULL,
		screened_at     TIMESTAMPTZ NOT NULL,
		results         JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_batches_tag_screened_at
		ON screening.batches (tag, screened_at DESC)`,
}

// PostgresStore persists batches in screening.batches
// ⭐ SSOT: 스크리닝 결과 DB 저장/조회는 여기서만
type PostgresStore struct {
	db     *database.DB
	logger *logger.Logger
}

var _ contracts.ResultsStore = (*PostgresStore)(nil)

// NewPostgresStore creates a new store
func NewPostgresStore(db *database.DB, log *logger.Logger) *PostgresStore {
	if log == nil {
		log = logger.Nop()
	}
	return &PostgresStore{db: db, logger: log.WithComponent("results")}
}

// Migrate creates the schema if it does not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if err := s.db.EnsureSchema(ctx, Schema...); err != nil {
		return fmt.Errorf("migrate screening schema: %w", err)
	}
	return nil
}

// Save upserts the batch by run ID
func (s *PostgresStore) Save(ctx context.Context, b *contracts.ScreeningBatch) (string, error) {
	if b == nil {
		return "", errors.New("nil batch")
	}

	resultsJSON, err := json.Marshal(b.Results)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}

	query := `
		INSERT INTO screening.batches (
			run_id, tag, mode, universe, thresholds_hash,
			total_screened, total_passed, screened_at, results
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id) DO UPDATE SET
			tag = EXCLUDED.tag,
			mode = EXCLUDED.mode,
			universe = EXCLUDED.universe,
			thresholds_hash = EXCLUDED.thresholds_hash,
			total_screened = EXCLUDED.total_screened,
			total_passed = EXCLUDED.total_passed,
			screened_at = EXCLUDED.screened_at,
			results = EXCLUDED.results
	`

	_, err = s.db.Pool.Exec(ctx, query,
		b.RunID, b.Tag, string(b.Mode), b.Universe, b.ThresholdsHash,
		b.TotalScreened, b.TotalPassed, b.Timestamp, resultsJSON,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save screening batch: %w", err)
	}

	return Location(b.RunID), nil
}

// Location is the reference string returned for a stored batch
func Location(runID string) string {
	return "postgres://screening.batches/" + runID
}

// Latest returns the newest batch for tag (any tag when empty)
func (s *PostgresStore) Latest(ctx context.Context, tag string) (*contracts.ScreeningBatch, error) {
	query := `
		SELECT run_id, tag, mode, universe, thresholds_hash,
		       total_screened, total_passed, screened_at, results
		FROM screening.batches
		WHERE ($1 = '' OR tag = $1)
		ORDER BY screened_at DESC, run_id DESC
		LIMIT 1
	`

	var b contracts.ScreeningBatch
	var mode string
	var resultsJSON []byte

	err := s.db.Pool.QueryRow(ctx, query, tag).Scan(
		&b.RunID, &b.Tag, &mode, &b.Universe, &b.ThresholdsHash,
		&b.TotalScreened, &b.TotalPassed, &b.Timestamp, &resultsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: tag %q", contracts.ErrNoBatch, tag)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest batch: %w", err)
	}

	b.Mode = contracts.Mode(mode)
	b.Timestamp = b.Timestamp.UTC()
	if err := json.Unmarshal(resultsJSON, &b.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}

	return &b, nil
}

// List returns batch references newest first
func (s *PostgresStore) List(ctx context.Context, tag string) ([]contracts.BatchRef, error) {
	query := `
		SELECT run_id, tag, mode, screened_at, total_screened, total_passed
		FROM screening.batches
		WHERE ($1 = '' OR tag = $1)
		ORDER BY screened_at DESC, run_id DESC
	`

	rows, err := s.db.Pool.Query(ctx, query, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var refs []contracts.BatchRef
	for rows.Next() {
		var ref contracts.BatchRef
		var mode string
		if err := rows.Scan(&ref.RunID, &ref.Tag, &mode, &ref.Timestamp, &ref.TotalScreened, &ref.TotalPassed); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		ref.Mode = contracts.Mode(mode)
		ref.Timestamp = ref.Timestamp.UTC()
		ref.Location = Location(ref.RunID)
		refs = append(refs, ref)
	}

	return refs, rows.Err()
}
