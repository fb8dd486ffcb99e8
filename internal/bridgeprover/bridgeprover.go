// Package bridgeprover implements the layout-bridge proving stage: a
// worker pool that takes each block's raw SNOS proof, derives (or
// reuses) a layout-bridge execution trace, submits it for recursive
// proof generation against a remote prover, and forwards the resulting
// RecursiveProof downstream. Grounded line-for-line on
// original_source/saya/core/src/prover/atlantic/layout_bridge.rs's
// worker() function: Step A (final-proof cache hit) through Step F
// (fetch/persist/parse/forward).
package bridgeprover

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
	"github.com/compose-network/proving-orchestrator/internal/remoteprover"
	"github.com/compose-network/proving-orchestrator/internal/service"
	"github.com/compose-network/proving-orchestrator/internal/storage"
)

// WorkerCount is the default size of the worker pool, matching
// layout_bridge.rs's WORKER_COUNT = 10.
const WorkerCount = 10

// proofStatusPollInterval matches layout_bridge.rs's
// PROOF_STATUS_POLL_INTERVAL = 10s. A var, not a const, so tests can
// shrink it rather than waiting out the real interval.
var proofStatusPollInterval = 10 * time.Second

// traceGenMaxAttempts/traceGenRetryDelay match the worker()'s inline
// "MAX_ATTEMPTS = 3" / 1s sleep loop around trace generation.
const (
	traceGenMaxAttempts = 3
	traceGenRetryDelay  = 1 * time.Second
)

const layoutConfiguration = "recursive_with_poseidon"

// Prover is the layout-bridge proving stage worker pool.
type Prover struct {
	client              remoteprover.Client
	codec               pipeline.ProofCodec
	traceGen            *TraceGenerator
	store               storage.Store
	workerCount         int
	layoutBridgeProgram []byte
	inMu                sync.Mutex
	in                  <-chan pipeline.SnosProof[string]
	out                 chan<- pipeline.RecursiveProof
	finishHandle        *service.FinishHandle
	log                 zerolog.Logger
	metrics             *metrics.PipelineMetrics
}

// Builder assembles a Prover in two phases.
type Builder struct {
	client              remoteprover.Client
	codec               pipeline.ProofCodec
	store               storage.Store
	workerCount         int
	layoutBridgeProgram []byte
	in                  <-chan pipeline.SnosProof[string]
	out                 chan<- pipeline.RecursiveProof
	log                 *zerolog.Logger
	metrics             *metrics.PipelineMetrics
}

func NewBuilder(client remoteprover.Client, codec pipeline.ProofCodec, store storage.Store) *Builder {
	return &Builder{client: client, codec: codec, store: store, workerCount: WorkerCount}
}

func (b *Builder) Input(in <-chan pipeline.SnosProof[string]) *Builder {
	b.in = in
	return b
}

func (b *Builder) Output(out chan<- pipeline.RecursiveProof) *Builder {
	b.out = out
	return b
}

// WorkerCount overrides the default pool size (see SPEC_FULL.md Open
// Questions: made configurable rather than hardcoded).
func (b *Builder) WorkerCount(n int) *Builder {
	b.workerCount = n
	return b
}

func (b *Builder) Logger(log zerolog.Logger) *Builder {
	b.log = &log
	return b
}

// Metrics attaches the shared pipeline metrics. Optional: a nil value
// leaves every counter/gauge update a no-op.
func (b *Builder) Metrics(m *metrics.PipelineMetrics) *Builder {
	b.metrics = m
	return b
}

// LayoutBridgeProgram sets the layout-bridge program bytes submitted
// alongside every trace-generation job, matching layout_bridge.rs's
// required layout_bridge: Cow<'static, [u8]> field.
func (b *Builder) LayoutBridgeProgram(program []byte) *Builder {
	b.layoutBridgeProgram = program
	return b
}

var ErrConfigurationIncomplete = errors.New("bridgeprover: configuration incomplete")

func (b *Builder) Build() (*Prover, error) {
	if b.client == nil {
		return nil, fmt.Errorf("%w: remote prover client not set", ErrConfigurationIncomplete)
	}
	if b.codec == nil {
		return nil, fmt.Errorf("%w: proof codec not set", ErrConfigurationIncomplete)
	}
	if b.store == nil {
		return nil, fmt.Errorf("%w: store not set", ErrConfigurationIncomplete)
	}
	if b.in == nil {
		return nil, fmt.Errorf("%w: input channel not set", ErrConfigurationIncomplete)
	}
	if b.out == nil {
		return nil, fmt.Errorf("%w: output channel not set", ErrConfigurationIncomplete)
	}
	if len(b.layoutBridgeProgram) == 0 {
		return nil, fmt.Errorf("%w: layout bridge program not set", ErrConfigurationIncomplete)
	}
	if b.workerCount <= 0 {
		b.workerCount = WorkerCount
	}
	log := zerolog.Nop()
	if b.log != nil {
		log = *b.log
	}
	log = log.With().Str("component", "layout-bridge-prover").Logger()
	return &Prover{
		client:              b.client,
		codec:               b.codec,
		traceGen:            NewTraceGenerator(b.client, b.store, log, b.metrics),
		store:               b.store,
		workerCount:         b.workerCount,
		layoutBridgeProgram: b.layoutBridgeProgram,
		in:                  b.in,
		out:                 b.out,
		finishHandle:        service.NewFinishHandle(),
		log:                 log,
		metrics:             b.metrics,
	}, nil
}

func (p *Prover) ShutdownHandle() *service.ShutdownHandle {
	return p.finishHandle.ShutdownHandle()
}

// Start launches the worker pool, all sharing the same input channel
// behind a mutex-guarded receive, mirroring the Arc<Mutex<Receiver<_>>>
// pattern in original_source.
func (p *Prover) Start(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		go func() {
			defer wg.Done()
			p.worker(ctx)
		}()
	}
	go func() {
		wg.Wait()
		p.log.Debug().Msg("graceful shutdown finished")
		p.finishHandle.Finish()
	}()
}

// recv serializes access to the shared input channel across the pool,
// matching the Arc<Mutex<Receiver<SnosProof>>> pattern in
// original_source: only one worker is ever blocked in a receive at a
// time.
func (p *Prover) recv() (pipeline.SnosProof[string], bool) {
	p.inMu.Lock()
	defer p.inMu.Unlock()
	statement, ok := <-p.in
	return statement, ok
}

func (p *Prover) worker(ctx context.Context) {
	for {
		statement, ok := p.recv()
		if !ok {
			return
		}

		p.log.Debug().Uint64("block_number", statement.BlockNumber).Msg("received raw SNOS proof")

		proof, err := p.handle(ctx, statement)
		if err != nil {
			var fatal *service.FatalError
			if errors.As(err, &fatal) {
				p.log.Error().Err(fatal).Msg("layout-bridge worker hit fatal error")
			} else {
				p.log.Error().Err(err).Uint64("block_number", statement.BlockNumber).Msg("layout-bridge proving failed")
			}
			if p.metrics != nil {
				p.metrics.StageErrorsTotal.WithLabelValues("bridge").Inc()
			}
			return
		}

		select {
		case <-p.finishHandle.ShutdownRequested():
			return
		case p.out <- proof:
			if p.metrics != nil {
				p.metrics.BridgeProofsGenerated.Inc()
			}
		}
	}
}

func (p *Prover) handle(ctx context.Context, statement pipeline.SnosProof[string]) (pipeline.RecursiveProof, error) {
	block := statement.BlockNumber
	parsedSnos, err := p.codec.Parse([]byte(statement.Proof))
	if err != nil {
		return pipeline.RecursiveProof{}, fmt.Errorf("parse snos proof for block %d: %w", block, err)
	}
	snosOutput := p.codec.CalculateOutput(parsedSnos)

	// Step A: final proof already generated.
	if cached, err := p.store.GetProof(ctx, block, storage.StepBridge); err == nil {
		p.log.Info().Uint64("block_number", block).Msg("bridge proof already generated")
		parsed, err := p.codec.Parse(cached)
		if err != nil {
			return pipeline.RecursiveProof{}, fmt.Errorf("parse cached bridge proof for block %d: %w", block, err)
		}
		return pipeline.RecursiveProof{BlockNumber: block, SnosOutput: snosOutput, LayoutBridgeProof: parsed}, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return pipeline.RecursiveProof{}, fmt.Errorf("check bridge proof cache for block %d: %w", block, err)
	}

	// Step B: proof generation already submitted; resume polling it.
	if queryID, err := p.store.GetQueryID(ctx, block, storage.QueryBridgeProof); err == nil {
		p.log.Info().Uint64("block_number", block).Str("query_id", queryID).Msg("bridge proof generation already submitted")
		return p.awaitAndFetchProof(ctx, queryID, block, snosOutput)
	} else if !errors.Is(err, storage.ErrNotFound) {
		return pipeline.RecursiveProof{}, fmt.Errorf("check bridge query id for block %d: %w", block, err)
	}

	// Step C: trace PIE, cached or freshly generated (with retry, fatal on
	// exhaustion).
	pie, err := p.store.GetPIE(ctx, block, storage.StepBridge)
	if errors.Is(err, storage.ErrNotFound) {
		pie, err = p.generateTraceWithRetry(ctx, block, statement.Proof)
		if err != nil {
			return pipeline.RecursiveProof{}, err
		}
		if err := p.store.AddPIE(ctx, block, storage.StepBridge, pie); err != nil {
			return pipeline.RecursiveProof{}, fmt.Errorf("persist bridge pie for block %d: %w", block, err)
		}
	} else if err != nil {
		return pipeline.RecursiveProof{}, fmt.Errorf("check bridge pie cache for block %d: %w", block, err)
	}

	// Step D: submit proof generation, persist query id before awaiting.
	label := fmt.Sprintf("layout-%d", block)
	queryID, err := p.client.SubmitProofGeneration(ctx, pie, layoutConfiguration, label)
	if err != nil {
		return pipeline.RecursiveProof{}, fmt.Errorf("submit bridge proof generation for block %d: %w", block, err)
	}
	if p.metrics != nil {
		p.metrics.RemoteJobsSubmitted.WithLabelValues("proof").Inc()
	}
	if err := p.store.AddQueryID(ctx, block, storage.QueryBridgeProof, queryID); err != nil {
		return pipeline.RecursiveProof{}, fmt.Errorf("persist bridge query id for block %d: %w", block, err)
	}
	p.log.Info().Uint64("block_number", block).Str("query_id", queryID).Msg("bridge proof generation submitted")

	// Step E + F: poll to completion, fetch, persist, parse.
	return p.awaitAndFetchProof(ctx, queryID, block, snosOutput)
}

func (p *Prover) generateTraceWithRetry(ctx context.Context, block uint64, snosProofJSON string) ([]byte, error) {
	input := fmt.Sprintf("{\n\t\"proof\": %s\n}", snosProofJSON)
	label := fmt.Sprintf("layout-trace-%d", block)

	var lastErr error
	for attempt := 1; attempt <= traceGenMaxAttempts; attempt++ {
		pie, err := p.traceGen.Generate(ctx, block, label, p.layoutBridgeProgram, []byte(input))
		if err == nil {
			return pie, nil
		}
		lastErr = err

		var fatal *service.FatalError
		if errors.As(err, &fatal) {
			return nil, err
		}

		if attempt >= traceGenMaxAttempts {
			break
		}
		p.log.Debug().Err(err).Int("attempt", attempt).Msg("trace generation attempt failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(traceGenRetryDelay):
		}
	}

	return nil, service.NewFatalError("layout-bridge-prover",
		fmt.Errorf("failed to generate trace for block %d after %d attempts: %w", block, traceGenMaxAttempts, lastErr))
}

func (p *Prover) awaitAndFetchProof(ctx context.Context, queryID string, block uint64, snosOutput []*big.Int) (pipeline.RecursiveProof, error) {
	if err := p.waitForProof(ctx, queryID); err != nil {
		return pipeline.RecursiveProof{}, err
	}

	p.log.Debug().Str("query_id", queryID).Msg("bridge proof generation finished")

	raw, err := p.client.GetProof(ctx, queryID)
	if err != nil {
		return pipeline.RecursiveProof{}, fmt.Errorf("fetch bridge proof for query %s: %w", queryID, err)
	}
	if err := p.store.AddProof(ctx, block, storage.StepBridge, raw); err != nil {
		return pipeline.RecursiveProof{}, fmt.Errorf("persist bridge proof for block %d: %w", block, err)
	}

	parsed, err := p.codec.Parse(raw)
	if err != nil {
		return pipeline.RecursiveProof{}, fmt.Errorf("parse bridge proof for block %d: %w", block, err)
	}

	p.log.Info().Uint64("block_number", block).Msg("bridge proof generated")
	return pipeline.RecursiveProof{BlockNumber: block, SnosOutput: snosOutput, LayoutBridgeProof: parsed}, nil
}

func (p *Prover) waitForProof(ctx context.Context, queryID string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(proofStatusPollInterval):
		}

		if p.finishHandle.IsShutdownRequested() {
			return context.Canceled
		}

		jobs, err := p.client.GetQueryJobs(ctx, queryID)
		if err != nil {
			// TODO: surface persistent polling errors instead of silently retrying
			continue
		}

		for _, job := range jobs {
			if job.JobName != remoteprover.JobNameProofGeneration {
				continue
			}
			switch job.Status {
			case remoteprover.JobCompleted:
				return nil
			case remoteprover.JobFailed:
				if p.metrics != nil {
					p.metrics.RemoteJobFailures.WithLabelValues("proof").Inc()
				}
				return service.NewFatalError("layout-bridge-prover", fmt.Errorf("bridge proof generation %s failed", queryID))
			case remoteprover.JobInProgress:
			}
		}
	}
}
