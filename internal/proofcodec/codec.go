// Package proofcodec provides the default pipeline.ProofCodec the
// orchestrator wires into the layout-bridge and settlement stages. The
// actual STARK proof format and its in-process verification are out of
// scope (see SPEC_FULL.md §1's "no in-process proof verification"
// non-goal), so Parse/CalculateOutput here only do the bookkeeping the
// pipeline stages themselves depend on; they never attempt to verify a
// proof's validity.
package proofcodec

import (
	"crypto/sha256"
	"math/big"

	"github.com/compose-network/proving-orchestrator/internal/pipeline"
)

// Codec is a ProofCodec that treats the wire bytes as already-decoded and
// derives a deterministic program output by folding the proof bytes
// through SHA-256, the same stand-in technique settlement.poseidonHashMany
// uses for its mocked path, applied here to the non-mocked path since real
// Poseidon hashing has no go-ethereum equivalent.
type Codec struct{}

// New returns the default codec.
func New() *Codec {
	return &Codec{}
}

// Parse wraps raw proof bytes without attempting to decode their
// internal structure.
func (c *Codec) Parse(raw []byte) (pipeline.ParsedStarkProof, error) {
	return pipeline.ParsedStarkProof{Raw: raw}, nil
}

// CalculateOutput derives a single-element program output from the
// proof's raw bytes. Real layout-bridge proofs carry a structured STARK
// output segment; reconstructing and verifying it is out of scope here.
func (c *Codec) CalculateOutput(proof pipeline.ParsedStarkProof) []*big.Int {
	sum := sha256.Sum256(proof.Raw)
	return []*big.Int{new(big.Int).SetBytes(sum[:])}
}

var _ pipeline.ProofCodec = (*Codec)(nil)
