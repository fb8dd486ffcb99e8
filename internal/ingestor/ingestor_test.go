package ingestor

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
	"github.com/compose-network/proving-orchestrator/internal/rpcclient"
)

type fakeRPC struct {
	mu       sync.Mutex
	failOnce map[uint64]bool
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{failOnce: make(map[uint64]bool)}
}

func (f *fakeRPC) FailNext(block uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOnce[block] = true
}

func (f *fakeRPC) ProveBlock(_ context.Context, block uint64) ([]byte, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnce[block] {
		f.failOnce[block] = false
		return nil, 0, rpcclient.ErrBlockNotFound
	}
	return []byte("pie"), block, nil
}

func TestIngestor_MonotonicBlockNumbers(t *testing.T) {
	out := make(chan pipeline.NewBlock, 10)
	ing, err := NewBuilder(newFakeRPC()).
		StartBlock(5).
		Channel(out).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ing.Start(ctx)

	var got []uint64
	for i := 0; i < 3; i++ {
		select {
		case b := <-out:
			got = append(got, b.Number)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for block")
		}
	}
	ing.ShutdownHandle().Shutdown()
	ing.ShutdownHandle().Wait()

	assert.Equal(t, []uint64{5, 6, 7}, got)
}

func TestIngestor_RetriesOnBlockNotFound(t *testing.T) {
	rpc := newFakeRPC()
	rpc.FailNext(0)

	out := make(chan pipeline.NewBlock, 10)
	ing, err := NewBuilder(rpc).
		StartBlock(0).
		Channel(out).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ing.Start(ctx)

	select {
	case b := <-out:
		assert.Equal(t, uint64(0), b.Number)
	case <-time.After(2 * proveBlockFailureBackoff):
		t.Fatal("timed out waiting for retried block")
	}
	ing.ShutdownHandle().Shutdown()
	ing.ShutdownHandle().Wait()
}

func TestIngestor_ShutsDownWithoutSend(t *testing.T) {
	out := make(chan pipeline.NewBlock) // unbuffered: send would block forever
	ing, err := NewBuilder(newFakeRPC()).
		StartBlock(0).
		Channel(out).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle := ing.ShutdownHandle()
	handle.Shutdown()
	ing.Start(ctx)

	done := make(chan struct{})
	go func() {
		handle.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ingestor did not finish after shutdown was requested before start")
	}
}

func TestIngestor_RecordsMetrics(t *testing.T) {
	m := metrics.NewPipelineMetrics()

	// Unbuffered so the ingestor cannot hand off more than the one block
	// received below before shutdown.
	out := make(chan pipeline.NewBlock)
	ing, err := NewBuilder(newFakeRPC()).
		StartBlock(10).
		Channel(out).
		Metrics(m).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ing.Start(ctx)

	<-out
	ing.ShutdownHandle().Shutdown()
	ing.ShutdownHandle().Wait()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.BlocksIngested))
	assert.Equal(t, float64(10), testutil.ToFloat64(m.CurrentBlockHeight))
}

func TestBuilder_MissingFieldsRejected(t *testing.T) {
	_, err := NewBuilder(newFakeRPC()).Build()
	require.ErrorIs(t, err, ErrConfigurationIncomplete)

	out := make(chan pipeline.NewBlock, 1)
	_, err = NewBuilder(newFakeRPC()).Channel(out).Build()
	require.ErrorIs(t, err, ErrConfigurationIncomplete)
}
