package bridgeprover

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
	"github.com/compose-network/proving-orchestrator/internal/remoteprover"
	"github.com/compose-network/proving-orchestrator/internal/storage"
)

// identityCodec treats the raw bytes as both the parsed form and the
// output, avoiding any dependency on a real STARK proof parser in tests.
type identityCodec struct{}

func (identityCodec) Parse(raw []byte) (pipeline.ParsedStarkProof, error) {
	return pipeline.ParsedStarkProof{Raw: raw}, nil
}

func (identityCodec) CalculateOutput(pipeline.ParsedStarkProof) []*big.Int {
	return []*big.Int{big.NewInt(1)}
}

func TestBridgeProver_FullFlow(t *testing.T) {
	origProofPoll, origTracePoll := proofStatusPollInterval, traceStatusPollInterval
	proofStatusPollInterval = 10 * time.Millisecond
	traceStatusPollInterval = 10 * time.Millisecond
	defer func() {
		proofStatusPollInterval = origProofPoll
		traceStatusPollInterval = origTracePoll
	}()

	store := storage.NewMemoryStore()
	client := remoteprover.NewFakeClient()

	in := make(chan pipeline.SnosProof[string], 1)
	out := make(chan pipeline.RecursiveProof, 1)

	prover, err := NewBuilder(client, identityCodec{}, store).
		Input(in).
		Output(out).
		WorkerCount(1).
		LayoutBridgeProgram([]byte("layout-bridge-program")).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	prover.Start(ctx)

	in <- pipeline.SnosProof[string]{BlockNumber: 9, Proof: "snos-proof-9"}

	// Wait for the trace-generation job to appear, then complete it so the
	// trace poll loop (shrunk to 10ms above) sees it finish.
	require.Eventually(t, func() bool {
		return client.TraceSubmitCount() == 1
	}, time.Second, time.Millisecond)

	// Drain the fake client's only in-flight query id for BridgeTrace and
	// mark it completed immediately.
	traceQueryID, err := store.GetQueryID(ctx, 9, storage.QueryBridgeTrace)
	for err != nil {
		time.Sleep(time.Millisecond)
		traceQueryID, err = store.GetQueryID(ctx, 9, storage.QueryBridgeTrace)
	}
	client.CompleteJob(traceQueryID, remoteprover.JobNameTraceGeneration)

	require.Eventually(t, func() bool {
		return client.ProofSubmitCount() == 1
	}, 2*time.Second, time.Millisecond)

	proofQueryID, err := store.GetQueryID(ctx, 9, storage.QueryBridgeProof)
	for err != nil {
		time.Sleep(time.Millisecond)
		proofQueryID, err = store.GetQueryID(ctx, 9, storage.QueryBridgeProof)
	}
	client.CompleteJob(proofQueryID, remoteprover.JobNameProofGeneration)

	select {
	case got := <-out:
		assert.Equal(t, uint64(9), got.BlockNumber)
		assert.Len(t, got.SnosOutput, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for recursive proof")
	}
}

func TestBridgeProver_CachedFinalProofSkipsRemoteWork(t *testing.T) {
	m := metrics.NewPipelineMetrics()
	store := storage.NewMemoryStore()
	client := remoteprover.NewFakeClient()
	require.NoError(t, store.AddProof(context.Background(), 3, storage.StepBridge, []byte("cached-bridge-proof")))

	in := make(chan pipeline.SnosProof[string], 1)
	out := make(chan pipeline.RecursiveProof, 1)

	prover, err := NewBuilder(client, identityCodec{}, store).
		Input(in).
		Output(out).
		WorkerCount(1).
		LayoutBridgeProgram([]byte("layout-bridge-program")).
		Metrics(m).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	prover.Start(ctx)

	in <- pipeline.SnosProof[string]{BlockNumber: 3, Proof: "snos-proof-3"}

	select {
	case got := <-out:
		assert.Equal(t, uint64(3), got.BlockNumber)
		assert.Equal(t, []byte("cached-bridge-proof"), got.LayoutBridgeProof.Raw)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cached proof to forward")
	}
	assert.Equal(t, 0, client.TraceSubmitCount())
	assert.Equal(t, 0, client.ProofSubmitCount())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BridgeProofsGenerated))
}

func TestBuilder_MissingFieldsRejected(t *testing.T) {
	_, err := NewBuilder(remoteprover.NewFakeClient(), identityCodec{}, storage.NewMemoryStore()).Build()
	require.ErrorIs(t, err, ErrConfigurationIncomplete)
}
