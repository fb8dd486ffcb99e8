// Package snosprover implements the SNOS prover stage: it consumes
// NewBlock values, checks storage for an already-persisted SNOS proof
// before invoking the prover, and forwards SnosProof[string] downstream.
// Structurally identical to the ingestor/bridge-prover skeleton; grounded
// on the same worker shape as original_source's block-ingestor/
// layout-bridge stages and on the teacher's proofPipeline (§x/superblock/
// proofs_pipeline.go) for the builder/Start/ShutdownHandle wiring.
package snosprover

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
	"github.com/compose-network/proving-orchestrator/internal/service"
	"github.com/compose-network/proving-orchestrator/internal/storage"
)

// ProveBlockFunc performs the out-of-scope SNOS proving step itself
// (cryptographic proving is explicitly excluded, see SPEC_FULL.md §1);
// callers inject a concrete implementation.
type ProveBlockFunc func(ctx context.Context, block pipeline.NewBlock) (string, error)

// Prover is the SNOS-proving stage worker.
type Prover struct {
	prove        ProveBlockFunc
	store        storage.Store
	in           <-chan pipeline.NewBlock
	out          chan<- pipeline.SnosProof[string]
	finishHandle *service.FinishHandle
	log          zerolog.Logger
	metrics      *metrics.PipelineMetrics
}

// Builder assembles a Prover in two phases.
type Builder struct {
	prove   ProveBlockFunc
	store   storage.Store
	in      <-chan pipeline.NewBlock
	out     chan<- pipeline.SnosProof[string]
	log     *zerolog.Logger
	metrics *metrics.PipelineMetrics
}

func NewBuilder(prove ProveBlockFunc, store storage.Store) *Builder {
	return &Builder{prove: prove, store: store}
}

func (b *Builder) Input(in <-chan pipeline.NewBlock) *Builder {
	b.in = in
	return b
}

func (b *Builder) Output(out chan<- pipeline.SnosProof[string]) *Builder {
	b.out = out
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

var ErrConfigurationIncomplete = errors.New("snosprover: configuration incomplete")

func (b *Builder) Build() (*Prover, error) {
	if b.prove == nil {
		return nil, fmt.Errorf("%w: prove function not set", ErrConfigurationIncomplete)
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
	log := zerolog.Nop()
	if b.log != nil {
		log = *b.log
	}
	return &Prover{
		prove:        b.prove,
		store:        b.store,
		in:           b.in,
		out:          b.out,
		finishHandle: service.NewFinishHandle(),
		log:          log.With().Str("component", "snos-prover").Logger(),
		metrics:      b.metrics,
	}, nil
}

func (p *Prover) ShutdownHandle() *service.ShutdownHandle {
	return p.finishHandle.ShutdownHandle()
}

func (p *Prover) Start(ctx context.Context) {
	go p.run(ctx)
}

func (p *Prover) run(ctx context.Context) {
	defer p.finishHandle.Finish()

	for {
		select {
		case <-p.finishHandle.ShutdownRequested():
			return
		case block, ok := <-p.in:
			if !ok {
				return
			}
			if err := p.handleBlock(ctx, block); err != nil {
				p.log.Error().Err(err).Uint64("block_number", block.Number).Msg("snos proving failed")
				if p.metrics != nil {
					p.metrics.StageErrorsTotal.WithLabelValues("snos").Inc()
				}
				return
			}
		}
	}
}

func (p *Prover) handleBlock(ctx context.Context, block pipeline.NewBlock) error {
	if cached, err := p.store.GetProof(ctx, block.Number, storage.StepSnos); err == nil {
		p.log.Debug().Uint64("block_number", block.Number).Msg("snos proof cache hit")
		return p.forward(ctx, pipeline.SnosProof[string]{BlockNumber: block.Number, Proof: string(cached)})
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("check snos proof cache for block %d: %w", block.Number, err)
	}

	proof, err := p.prove(ctx, block)
	if err != nil {
		return fmt.Errorf("prove block %d: %w", block.Number, err)
	}

	if err := p.store.AddProof(ctx, block.Number, storage.StepSnos, []byte(proof)); err != nil {
		return fmt.Errorf("persist snos proof for block %d: %w", block.Number, err)
	}

	return p.forward(ctx, pipeline.SnosProof[string]{BlockNumber: block.Number, Proof: proof})
}

func (p *Prover) forward(ctx context.Context, proof pipeline.SnosProof[string]) error {
	select {
	case <-p.finishHandle.ShutdownRequested():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case p.out <- proof:
		if p.metrics != nil {
			p.metrics.SnosProofsGenerated.Inc()
		}
		return nil
	}
}
