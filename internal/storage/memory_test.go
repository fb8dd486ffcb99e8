package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_ProofRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetProof(ctx, 100, StepBridge)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.AddProof(ctx, 100, StepBridge, []byte("proof-bytes")))

	got, err := store.GetProof(ctx, 100, StepBridge)
	require.NoError(t, err)
	assert.Equal(t, []byte("proof-bytes"), got)
}

func TestMemoryStore_AddQueryID_AtMostOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.AddQueryID(ctx, 7, QueryBridgeProof, "job-1"))
	require.NoError(t, store.AddQueryID(ctx, 7, QueryBridgeProof, "job-2"))

	got, err := store.GetQueryID(ctx, 7, QueryBridgeProof)
	require.NoError(t, err)
	assert.Equal(t, "job-1", got, "second write must be a no-op so at-most-one job is ever submitted")
}

func TestMemoryStore_IndependentKinds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.AddQueryID(ctx, 1, QueryBridgeTrace, "trace-job"))
	require.NoError(t, store.AddQueryID(ctx, 1, QueryBridgeProof, "proof-job"))

	trace, err := store.GetQueryID(ctx, 1, QueryBridgeTrace)
	require.NoError(t, err)
	assert.Equal(t, "trace-job", trace)

	proof, err := store.GetQueryID(ctx, 1, QueryBridgeProof)
	require.NoError(t, err)
	assert.Equal(t, "proof-job", proof)
}
