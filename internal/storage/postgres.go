package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists StageRecords in a single `stage_records` table
// keyed by (block_number, stage, kind), matching the schema from
// SPEC_FULL.md §3. It realizes the "at-most-once submission" invariant
// with `ON CONFLICT DO NOTHING` rather than a read-then-write race.
//
//	CREATE TABLE stage_records (
//	    block_number BIGINT NOT NULL,
//	    stage        TEXT   NOT NULL,
//	    kind         TEXT   NOT NULL,
//	    value        BYTEA  NOT NULL,
//	    PRIMARY KEY (block_number, stage, kind)
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-connected pool. Callers own the pool's
// lifecycle (pgxpool.New / Close).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const (
	kindProof   = "proof"
	kindPIE     = "pie"
	kindQueryID = "query_id"
)

func (s *PostgresStore) get(ctx context.Context, block uint64, stage, kind string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM stage_records WHERE block_number = $1 AND stage = $2 AND kind = $3`,
		block, stage, kind,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query stage record: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) addOnce(ctx context.Context, block uint64, stage, kind string, value []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stage_records (block_number, stage, kind, value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (block_number, stage, kind) DO NOTHING`,
		block, stage, kind, value,
	)
	if err != nil {
		return fmt.Errorf("insert stage record: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProof(ctx context.Context, block uint64, step Step) ([]byte, error) {
	return s.get(ctx, block, string(step), kindProof)
}

func (s *PostgresStore) AddProof(ctx context.Context, block uint64, step Step, proof []byte) error {
	return s.addOnce(ctx, block, string(step), kindProof, proof)
}

func (s *PostgresStore) GetPIE(ctx context.Context, block uint64, step Step) ([]byte, error) {
	return s.get(ctx, block, string(step), kindPIE)
}

func (s *PostgresStore) AddPIE(ctx context.Context, block uint64, step Step, pie []byte) error {
	return s.addOnce(ctx, block, string(step), kindPIE, pie)
}

func (s *PostgresStore) GetQueryID(ctx context.Context, block uint64, kind QueryKind) (string, error) {
	value, err := s.get(ctx, block, string(kind), kindQueryID)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (s *PostgresStore) AddQueryID(ctx context.Context, block uint64, kind QueryKind, queryID string) error {
	return s.addOnce(ctx, block, string(kind), kindQueryID, []byte(queryID))
}

var _ Store = (*PostgresStore)(nil)
