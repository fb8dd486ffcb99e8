package contracts

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/piltover.json
var piltoverABIJSON string

// AppchainState is the decoded result of get_state(), matching
// piltover.rs's AppchainState{state_root, block_number, block_hash}.
type AppchainState struct {
	StateRoot   [32]byte
	BlockNumber uint64
	BlockHash   [32]byte
}

// PiltoverBinding packs/unpacks calldata for the settlement contract's
// update_state entry and get_state view.
type PiltoverBinding struct {
	address common.Address
	abi     abi.ABI
}

func NewPiltoverBinding(contractAddr string) (*PiltoverBinding, error) {
	if strings.TrimSpace(contractAddr) == "" {
		return nil, fmt.Errorf("piltover contract address cannot be empty")
	}
	parsed, err := abi.JSON(strings.NewReader(piltoverABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse piltover ABI: %w", err)
	}
	return &PiltoverBinding{address: common.HexToAddress(contractAddr), abi: parsed}, nil
}

func (b *PiltoverBinding) Address() common.Address { return b.address }
func (b *PiltoverBinding) ABI() abi.ABI             { return b.abi }

// BuildUpdateStateCalldata packs one update_state call, matching
// piltover.rs's UpdateStateCalldata{snos_output, program_output,
// onchain_data_hash, onchain_data_size}.
func (b *PiltoverBinding) BuildUpdateStateCalldata(snosOutput, programOutput []*big.Int, onchainDataHash [32]byte, onchainDataSize *big.Int) ([]byte, error) {
	data, err := b.abi.Pack("update_state", snosOutput, programOutput, onchainDataHash, onchainDataSize)
	if err != nil {
		return nil, fmt.Errorf("pack update_state calldata: %w", err)
	}
	return data, nil
}

// BuildGetStateCalldata packs the zero-argument get_state() view call.
func (b *PiltoverBinding) BuildGetStateCalldata() ([]byte, error) {
	data, err := b.abi.Pack("get_state")
	if err != nil {
		return nil, fmt.Errorf("pack get_state calldata: %w", err)
	}
	return data, nil
}

// DecodeState unpacks a get_state() view result into AppchainState,
// matching piltover.rs's get_block_number() decode step.
func (b *PiltoverBinding) DecodeState(raw []byte) (AppchainState, error) {
	values, err := b.abi.Unpack("get_state", raw)
	if err != nil {
		return AppchainState{}, fmt.Errorf("unpack get_state result: %w", err)
	}
	if len(values) != 3 {
		return AppchainState{}, fmt.Errorf("unexpected get_state result arity: %d", len(values))
	}

	stateRoot, ok := values[0].([32]byte)
	if !ok {
		return AppchainState{}, fmt.Errorf("unexpected state_root type %T", values[0])
	}
	blockNumber, ok := values[1].(uint64)
	if !ok {
		return AppchainState{}, fmt.Errorf("unexpected block_number type %T", values[1])
	}
	blockHash, ok := values[2].([32]byte)
	if !ok {
		return AppchainState{}, fmt.Errorf("unexpected block_hash type %T", values[2])
	}

	return AppchainState{StateRoot: stateRoot, BlockNumber: blockNumber, BlockHash: blockHash}, nil
}
