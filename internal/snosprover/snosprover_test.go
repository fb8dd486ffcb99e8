package snosprover

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
	"github.com/compose-network/proving-orchestrator/internal/storage"
)

func TestProver_CacheHitSkipsProving(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.AddProof(context.Background(), 1, storage.StepSnos, []byte("cached-proof")))

	var proveCalls int32
	prove := func(context.Context, pipeline.NewBlock) (string, error) {
		atomic.AddInt32(&proveCalls, 1)
		return "fresh-proof", nil
	}

	in := make(chan pipeline.NewBlock, 1)
	out := make(chan pipeline.SnosProof[string], 1)
	prover, err := NewBuilder(prove, store).Input(in).Output(out).Build()
	require.NoError(t, err)

	prover.Start(context.Background())
	in <- pipeline.NewBlock{Number: 1}

	select {
	case got := <-out:
		assert.Equal(t, "cached-proof", got.Proof)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for proof")
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&proveCalls))

	close(in)
	prover.finishHandle.ShutdownHandle().Wait()
}

func TestProver_ProvesAndPersistsOnMiss(t *testing.T) {
	store := storage.NewMemoryStore()
	prove := func(_ context.Context, b pipeline.NewBlock) (string, error) {
		return fmt.Sprintf("proof-for-%d", b.Number), nil
	}

	in := make(chan pipeline.NewBlock, 1)
	out := make(chan pipeline.SnosProof[string], 1)
	prover, err := NewBuilder(prove, store).Input(in).Output(out).Build()
	require.NoError(t, err)

	prover.Start(context.Background())
	in <- pipeline.NewBlock{Number: 42}

	select {
	case got := <-out:
		assert.Equal(t, "proof-for-42", got.Proof)
		assert.Equal(t, uint64(42), got.BlockNumber)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for proof")
	}

	persisted, err := store.GetProof(context.Background(), 42, storage.StepSnos)
	require.NoError(t, err)
	assert.Equal(t, "proof-for-42", string(persisted))

	close(in)
}

func TestProver_RecordsMetricsOnForward(t *testing.T) {
	m := metrics.NewPipelineMetrics()
	store := storage.NewMemoryStore()
	prove := func(_ context.Context, b pipeline.NewBlock) (string, error) {
		return fmt.Sprintf("proof-for-%d", b.Number), nil
	}

	in := make(chan pipeline.NewBlock, 1)
	out := make(chan pipeline.SnosProof[string], 1)
	prover, err := NewBuilder(prove, store).Input(in).Output(out).Metrics(m).Build()
	require.NoError(t, err)

	prover.Start(context.Background())
	in <- pipeline.NewBlock{Number: 7}

	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for proof")
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SnosProofsGenerated))
	close(in)
}

func TestProver_StopsOnInputClose(t *testing.T) {
	store := storage.NewMemoryStore()
	prove := func(context.Context, pipeline.NewBlock) (string, error) { return "", nil }

	in := make(chan pipeline.NewBlock)
	out := make(chan pipeline.SnosProof[string], 1)
	prover, err := NewBuilder(prove, store).Input(in).Output(out).Build()
	require.NoError(t, err)

	prover.Start(context.Background())
	close(in)
	prover.finishHandle.ShutdownHandle().Wait()
}
