// Package storage defines the StageRecord persistence contract the proving
// pipeline checkpoints against, and provides an in-memory implementation
// (for tests) plus a Postgres-backed one (for production use — a
// relational database is assumed but not mandated by the spec; pgx is the
// concrete driver this module wires, following oriys-nova's use of
// github.com/jackc/pgx/v5).
package storage

import (
	"context"
	"errors"
)

// Step identifies which stage an intermediate artifact belongs to.
type Step string

const (
	StepSnos   Step = "snos"
	StepBridge Step = "bridge"
)

// QueryKind identifies which in-flight remote job a query id tracks.
type QueryKind string

const (
	QueryBridgeTrace QueryKind = "bridge_trace"
	QueryBridgeProof QueryKind = "bridge_proof"
)

// ErrNotFound is returned by every Get* method when no record exists yet
// for the given key. Callers treat it as a cache miss, never as failure.
var ErrNotFound = errors.New("storage: record not found")

// Store is the StageRecord key-value schema from SPEC_FULL.md §3, indexed
// by (block, Step) for proofs/PIEs and (block, QueryKind) for in-flight
// remote job ids. Implementations must make AddQueryID an at-most-once
// write: a second call for the same (block, kind) must not overwrite or
// error, it must be a silent no-op, so callers can safely read-check-write
// without a transaction.
type Store interface {
	GetProof(ctx context.Context, block uint64, step Step) ([]byte, error)
	AddProof(ctx context.Context, block uint64, step Step, proof []byte) error

	GetPIE(ctx context.Context, block uint64, step Step) ([]byte, error)
	AddPIE(ctx context.Context, block uint64, step Step, pie []byte) error

	GetQueryID(ctx context.Context, block uint64, kind QueryKind) (string, error)
	AddQueryID(ctx context.Context, block uint64, kind QueryKind, queryID string) error
}
