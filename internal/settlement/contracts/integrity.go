// Package contracts holds the two on-chain bindings the settlement
// backend calls through: the fact-registry ("integrity") verifier and
// the settlement ("piltover") state contract. Grounded on
// x/superblock/l1/contracts/l2_output_oracle.go's go:embed + abi.JSON +
// Pack pattern.
package contracts

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/integrity.json
var integrityABIJSON string

// VerifierConfiguration names the proving pipeline's fixed parameters,
// matching original_source/saya/core/src/settlement/piltover.rs's
// VerifierConfiguration{layout, hasher, stone_version,
// memory_verification} literal.
type VerifierConfiguration struct {
	Layout             string
	Hasher             string
	StoneVersion       string
	MemoryVerification string
}

// DefaultVerifierConfiguration matches the constants hardcoded in
// piltover.rs.
func DefaultVerifierConfiguration() VerifierConfiguration {
	return VerifierConfiguration{
		Layout:             "recursive_with_poseidon",
		Hasher:             "keccak_160_lsb",
		StoneVersion:       "stone6",
		MemoryVerification: "relaxed",
	}
}

func (c VerifierConfiguration) toBytes32() (layout, hasher, stoneVersion, memoryVerification [32]byte) {
	copy(layout[:], c.Layout)
	copy(hasher[:], c.Hasher)
	copy(stoneVersion[:], c.StoneVersion)
	copy(memoryVerification[:], c.MemoryVerification)
	return
}

// IntegrityBinding packs calldata for the fact-registry verifier
// contract: verifyProofFullAndRegisterFact, called once per chunk of a
// split proof.
type IntegrityBinding struct {
	address common.Address
	abi     abi.ABI
}

func NewIntegrityBinding(contractAddr string) (*IntegrityBinding, error) {
	if strings.TrimSpace(contractAddr) == "" {
		return nil, fmt.Errorf("integrity contract address cannot be empty")
	}
	parsed, err := abi.JSON(strings.NewReader(integrityABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse integrity ABI: %w", err)
	}
	return &IntegrityBinding{address: common.HexToAddress(contractAddr), abi: parsed}, nil
}

func (b *IntegrityBinding) Address() common.Address { return b.address }
func (b *IntegrityBinding) ABI() abi.ABI             { return b.abi }

// BuildVerifyCalldata packs one verifyProofFullAndRegisterFact call for a
// single proof chunk under the given job id and verifier configuration.
func (b *IntegrityBinding) BuildVerifyCalldata(jobID *big.Int, cfg VerifierConfiguration, proofChunk []byte) ([]byte, error) {
	layout, hasher, stoneVersion, memoryVerification := cfg.toBytes32()
	data, err := b.abi.Pack("verifyProofFullAndRegisterFact", jobID, layout, hasher, stoneVersion, memoryVerification, proofChunk)
	if err != nil {
		return nil, fmt.Errorf("pack verifyProofFullAndRegisterFact calldata: %w", err)
	}
	return data, nil
}
