// Package pipeline defines the entities that flow between stage workers:
// NewBlock, SnosProof, RecursiveProof, DataAvailabilityCursor and
// SettlementCursor, plus the parsed-proof types the layout-bridge and
// settlement stages exchange.
package pipeline

import "math/big"

// NewBlock is produced by the block ingestor and consumed by the SNOS
// prover. PIE is the opaque execution artifact ("program input
// execution", proving-trace bytes) for the block.
type NewBlock struct {
	Number uint64
	PIE    []byte
	NTxs   uint64
}

// SnosProof wraps an inner STARK proof for a block. T is string in this
// pipeline (the raw JSON-encoded proof text), generic so the same stage
// code can serve sovereign/persistent/sharding modes that may pass the
// proof around in different encodings.
type SnosProof[T any] struct {
	BlockNumber uint64
	Proof       T
}

// ParsedStarkProof is the decoded form of a layout-bridge proof, already
// deserialized from the wire bytes persisted in storage. The concrete
// proof parser/verifier encoding is an external contract (see
// ProofCodec); only the fields the settlement stage needs are modeled
// here.
type ParsedStarkProof struct {
	Raw []byte
}

// RecursiveProof is produced by the layout-bridge prover and consumed by
// both the DA publisher and the settlement backend.
type RecursiveProof struct {
	BlockNumber       uint64
	SnosOutput        []*big.Int
	LayoutBridgeProof ParsedStarkProof
}

// DataAvailabilityCursor marks that a recursive proof's payload has been
// published externally. P is RecursiveProof in this pipeline.
type DataAvailabilityCursor[P any] struct {
	BlockNumber uint64
	FullPayload P
}

// SettlementCursor is the pipeline's terminal output: the on-chain
// transaction that settled a block.
type SettlementCursor struct {
	BlockNumber     uint64
	TransactionHash [32]byte
}

// ProofCodec parses/derives values from a raw proof without depending on
// the concrete STARK verifier implementation, which is out of scope for
// this module (see SPEC_FULL.md §1).
type ProofCodec interface {
	Parse(raw []byte) (ParsedStarkProof, error)
	CalculateOutput(proof ParsedStarkProof) []*big.Int
}
