package dapublisher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []uint64
	failOn    map[uint64]bool
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failOn: make(map[uint64]bool)}
}

func (f *fakePublisher) Publish(_ context.Context, blockNumber uint64, _ pipeline.RecursiveProof) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[blockNumber] {
		return assert.AnError
	}
	f.published = append(f.published, blockNumber)
	return nil
}

func TestDAPublisher_ForwardsCursor(t *testing.T) {
	pub := newFakePublisher()
	in := make(chan pipeline.RecursiveProof, 1)
	out := make(chan pipeline.DataAvailabilityCursor[pipeline.RecursiveProof], 1)

	stage, err := NewBuilder(pub).Input(in).Output(out).Build()
	require.NoError(t, err)

	stage.Start(context.Background())
	in <- pipeline.RecursiveProof{BlockNumber: 12}

	select {
	case cursor := <-out:
		assert.Equal(t, uint64(12), cursor.BlockNumber)
		assert.Equal(t, uint64(12), cursor.FullPayload.BlockNumber)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cursor")
	}

	close(in)
}

func TestDAPublisher_StopsOnPublishError(t *testing.T) {
	m := metrics.NewPipelineMetrics()
	pub := newFakePublisher()
	pub.failOn[5] = true

	in := make(chan pipeline.RecursiveProof, 1)
	out := make(chan pipeline.DataAvailabilityCursor[pipeline.RecursiveProof], 1)

	stage, err := NewBuilder(pub).Input(in).Output(out).Metrics(m).Build()
	require.NoError(t, err)

	stage.Start(context.Background())
	in <- pipeline.RecursiveProof{BlockNumber: 5}

	stage.finishHandle.ShutdownHandle().Wait()

	select {
	case <-out:
		t.Fatal("no cursor should have been forwarded")
	default:
	}
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StageErrorsTotal.WithLabelValues("da")))
}
