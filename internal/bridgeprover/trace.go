package bridgeprover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/remoteprover"
	"github.com/compose-network/proving-orchestrator/internal/service"
	"github.com/compose-network/proving-orchestrator/internal/storage"
)

// traceStatusPollInterval also governs trace-generation polling, matching
// original_source/saya/core/src/prover/trace/atlantic.rs using the same
// constant as the proof-status poll in layout_bridge.rs. A var, not a
// const, so tests can shrink it rather than waiting out the real
// interval.
var traceStatusPollInterval = 10 * time.Second

// addQueryIDMaxAttempts / addQueryIDRetryDelay match atlantic.rs's
// retry_with_backoff(.., "add_query_id", 3, Duration::from_secs(2)).
const (
	addQueryIDMaxAttempts = 3
	addQueryIDRetryDelay  = 2 * time.Second
)

// TraceGenerator obtains the layout-bridge execution trace (PIE) for a
// block's SNOS statement, submitting a remote TRACE_GENERATION job the
// first time and resuming an in-flight one on restart. Grounded on
// original_source/saya/core/src/prover/trace/atlantic.rs.
type TraceGenerator struct {
	client  remoteprover.Client
	store   storage.Store
	log     zerolog.Logger
	metrics *metrics.PipelineMetrics
}

func NewTraceGenerator(client remoteprover.Client, store storage.Store, log zerolog.Logger, m *metrics.PipelineMetrics) *TraceGenerator {
	return &TraceGenerator{
		client:  client,
		store:   store,
		log:     log.With().Str("component", "trace-generator").Logger(),
		metrics: m,
	}
}

// Generate returns the PIE trace bytes for blockNumber, using program and
// input as the submission payload and label to tag the remote job.
func (g *TraceGenerator) Generate(ctx context.Context, blockNumber uint64, label string, program, input []byte) ([]byte, error) {
	queryID, err := g.store.GetQueryID(ctx, blockNumber, storage.QueryBridgeTrace)
	if errors.Is(err, storage.ErrNotFound) {
		queryID, err = g.client.SubmitTraceGeneration(ctx, label, program, input)
		if err != nil {
			return nil, fmt.Errorf("submit trace generation for block %d: %w", blockNumber, err)
		}
		if g.metrics != nil {
			g.metrics.RemoteJobsSubmitted.WithLabelValues("trace").Inc()
		}

		retryErr := service.RetryWithBackoff(ctx, g.log, func(ctx context.Context) error {
			return g.store.AddQueryID(ctx, blockNumber, storage.QueryBridgeTrace, queryID)
		}, "add_query_id", addQueryIDMaxAttempts, addQueryIDRetryDelay)
		if retryErr != nil {
			return nil, service.NewFatalError("trace-generator", fmt.Errorf("persist trace query id for block %d: %w", blockNumber, retryErr))
		}
	} else if err != nil {
		return nil, fmt.Errorf("load trace query id for block %d: %w", blockNumber, err)
	}

	g.log.Info().Uint64("block_number", blockNumber).Str("query_id", queryID).Msg("trace generation submitted")

	if err := g.waitForCompletion(ctx, queryID); err != nil {
		return nil, err
	}

	pie, err := g.client.GetTrace(ctx, queryID)
	if err != nil {
		return nil, fmt.Errorf("fetch trace for query %s: %w", queryID, err)
	}

	g.log.Info().Str("query_id", queryID).Msg("trace generated")
	return pie, nil
}

func (g *TraceGenerator) waitForCompletion(ctx context.Context, queryID string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(traceStatusPollInterval):
		}

		jobs, err := g.client.GetQueryJobs(ctx, queryID)
		if err != nil {
			// TODO: surface persistent polling errors instead of silently retrying
			continue
		}

		for _, job := range jobs {
			if job.JobName != remoteprover.JobNameTraceGeneration {
				continue
			}
			switch job.Status {
			case remoteprover.JobCompleted:
				return nil
			case remoteprover.JobFailed:
				if g.metrics != nil {
					g.metrics.RemoteJobFailures.WithLabelValues("trace").Inc()
				}
				return service.NewFatalError("trace-generator", fmt.Errorf("trace generation %s failed", queryID))
			case remoteprover.JobInProgress:
			}
		}
	}
}
