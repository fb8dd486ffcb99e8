package dapublisher

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/compose-network/proving-orchestrator/internal/pipeline"
)

// LogPublisher is the default Publisher the orchestrator binary wires
// when no dedicated DA backend is configured: it records that a block's
// payload would have been published and always succeeds. The actual DA
// layer (blob submission, object storage, a committee API) is an
// external contract this module does not implement.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher builds a LogPublisher.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "da-log-publisher").Logger()}
}

// Publish logs the payload size and always succeeds.
func (p *LogPublisher) Publish(_ context.Context, blockNumber uint64, proof pipeline.RecursiveProof) error {
	p.log.Info().
		Uint64("block_number", blockNumber).
		Int("proof_bytes", len(proof.LayoutBridgeProof.Raw)).
		Msg("data availability payload recorded (no DA backend configured)")
	return nil
}

var _ Publisher = (*LogPublisher)(nil)
