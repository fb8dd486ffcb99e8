package settlement

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
)

func TestSettlement_MockedLayoutBridgeSkipsIntegrity(t *testing.T) {
	m := metrics.NewPipelineMetrics()
	chain := newFakeChainClient()
	in := make(chan pipeline.DataAvailabilityCursor[pipeline.RecursiveProof], 1)
	out := make(chan pipeline.SettlementCursor, 1)

	stage, err := NewBuilder(Config{
		PiltoverAddress:     "0xabc",
		UseMockLayoutBridge: true,
	}, chain, identityProofCodec{}).Input(in).Output(out).Metrics(m).Build()
	require.NoError(t, err)

	stage.Start(context.Background())

	in <- pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]{
		BlockNumber: 4,
		FullPayload: pipeline.RecursiveProof{
			BlockNumber: 4,
			SnosOutput:  []*big.Int{},
		},
	}

	select {
	case cursor := <-out:
		assert.Equal(t, uint64(4), cursor.BlockNumber)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for settlement cursor")
	}
	assert.Equal(t, 1, chain.TxCount(), "only the update_state transaction should be sent when mocked")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SettlementsConfirmed))
}

func TestSettlement_VerifiesOnIntegrityThenSettles(t *testing.T) {
	chain := newFakeChainClient()
	in := make(chan pipeline.DataAvailabilityCursor[pipeline.RecursiveProof], 1)
	out := make(chan pipeline.SettlementCursor, 1)

	stage, err := NewBuilder(Config{
		IntegrityAddress: "0xdef",
		PiltoverAddress:  "0xabc",
	}, chain, identityProofCodec{}).Input(in).Output(out).Build()
	require.NoError(t, err)

	stage.Start(context.Background())

	proof := pipeline.RecursiveProof{
		BlockNumber:       7,
		LayoutBridgeProof: pipeline.ParsedStarkProof{Raw: make([]byte, maxProofChunkBytes*2+10)},
	}
	in <- pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]{BlockNumber: 7, FullPayload: proof}

	select {
	case cursor := <-out:
		assert.Equal(t, uint64(7), cursor.BlockNumber)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for settlement cursor")
	}

	// Each proof chunk is its own transaction (Ethereum has no native
	// Starknet-style call-batching within one tx), so 3 proof chunks
	// yield 3 integrity transactions, plus 1 update_state transaction.
	assert.Equal(t, 4, chain.TxCount())
	nonces := chain.SentNonces()
	require.Len(t, nonces, 4)
	assert.Equal(t, []uint64{0, 1, 2}, nonces[:3], "integrity transactions use a single sequentially-incremented nonce")
}
