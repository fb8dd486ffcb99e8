// Package dapublisher implements the data-availability publisher stage:
// it consumes a RecursiveProof, publishes its payload to an external DA
// layer, and emits a DataAvailabilityCursor. Structurally identical to
// the other single-input/single-output stages; the Publisher contract is
// grounded on the shape of x/superblock/l1/interfaces.go's Publisher
// interface (publish-and-return-a-handle).
package dapublisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
	"github.com/compose-network/proving-orchestrator/internal/service"
)

// Publisher pushes a block's full proof payload to an external
// data-availability layer. The concrete DA backend (blob submission,
// object storage, a committee API, ...) is out of scope for this module;
// callers inject an implementation.
type Publisher interface {
	Publish(ctx context.Context, blockNumber uint64, proof pipeline.RecursiveProof) error
}

// Stage is the DA-publisher stage worker.
type Stage struct {
	publisher    Publisher
	in           <-chan pipeline.RecursiveProof
	out          chan<- pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]
	finishHandle *service.FinishHandle
	log          zerolog.Logger
	metrics      *metrics.PipelineMetrics
}

// Builder assembles a Stage in two phases.
type Builder struct {
	publisher Publisher
	in        <-chan pipeline.RecursiveProof
	out       chan<- pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]
	log       *zerolog.Logger
	metrics   *metrics.PipelineMetrics
}

func NewBuilder(publisher Publisher) *Builder {
	return &Builder{publisher: publisher}
}

func (b *Builder) Input(in <-chan pipeline.RecursiveProof) *Builder {
	b.in = in
	return b
}

func (b *Builder) Output(out chan<- pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]) *Builder {
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

var ErrConfigurationIncomplete = errors.New("dapublisher: configuration incomplete")

func (b *Builder) Build() (*Stage, error) {
	if b.publisher == nil {
		return nil, fmt.Errorf("%w: publisher not set", ErrConfigurationIncomplete)
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
	return &Stage{
		publisher:    b.publisher,
		in:           b.in,
		out:          b.out,
		finishHandle: service.NewFinishHandle(),
		log:          log.With().Str("component", "da-publisher").Logger(),
		metrics:      b.metrics,
	}, nil
}

func (s *Stage) ShutdownHandle() *service.ShutdownHandle {
	return s.finishHandle.ShutdownHandle()
}

func (s *Stage) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Stage) run(ctx context.Context) {
	defer s.finishHandle.Finish()

	for {
		select {
		case <-s.finishHandle.ShutdownRequested():
			return
		case proof, ok := <-s.in:
			if !ok {
				return
			}
			if err := s.handle(ctx, proof); err != nil {
				s.log.Error().Err(err).Uint64("block_number", proof.BlockNumber).Msg("data availability publish failed")
				if s.metrics != nil {
					s.metrics.StageErrorsTotal.WithLabelValues("da").Inc()
				}
				return
			}
		}
	}
}

func (s *Stage) handle(ctx context.Context, proof pipeline.RecursiveProof) error {
	if err := s.publisher.Publish(ctx, proof.BlockNumber, proof); err != nil {
		return fmt.Errorf("publish block %d for data availability: %w", proof.BlockNumber, err)
	}

	cursor := pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]{
		BlockNumber: proof.BlockNumber,
		FullPayload: proof,
	}

	select {
	case <-s.finishHandle.ShutdownRequested():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case s.out <- cursor:
		s.log.Info().Uint64("block_number", proof.BlockNumber).Msg("block published for data availability")
		return nil
	}
}
