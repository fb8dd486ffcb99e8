package snosprover

import (
	"context"
	"encoding/json"

	"github.com/compose-network/proving-orchestrator/internal/pipeline"
)

// DefaultProveBlock is the ProveBlockFunc the orchestrator binary wires
// when no dedicated SNOS prover is configured: it wraps the block's PIE
// (already produced by the ingestor) into a JSON envelope rather than
// invoking a real cryptographic prover, which is out of scope for this
// module.
func DefaultProveBlock(_ context.Context, block pipeline.NewBlock) (string, error) {
	envelope := struct {
		BlockNumber uint64 `json:"block_number"`
		PIE         []byte `json:"pie"`
		NTxs        uint64 `json:"n_txs"`
	}{
		BlockNumber: block.Number,
		PIE:         block.PIE,
		NTxs:        block.NTxs,
	}

	out, err := json.Marshal(envelope)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
