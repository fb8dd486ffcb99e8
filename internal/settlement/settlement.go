// Package settlement implements the settlement backend stage: it
// consumes a DataAvailabilityCursor, verifies the layout-bridge proof
// on-chain via a fact-registry ("integrity") contract, submits the
// state-update ("piltover") transaction, and emits a SettlementCursor.
// Grounded directly on
// original_source/saya/core/src/settlement/piltover.rs; the on-chain
// client contract (ChainClient below) stands in for the original's
// starknet.rs SingleOwnerAccount, bound instead to
// github.com/ethereum/go-ethereum's ethclient/rpc, already the teacher's
// primary chain dependency.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
	"github.com/compose-network/proving-orchestrator/internal/service"
	"github.com/compose-network/proving-orchestrator/internal/settlement/contracts"
)

// TxReceipt is the minimal confirmation data the settlement stage needs
// back from a submitted transaction: its hash and the fee actually
// charged, matching piltover.rs's receipt.actual_fee accumulation.
type TxReceipt struct {
	TransactionHash common.Hash
	ActualFee       *big.Int
}

// ChainClient is the on-chain contract the settlement stage drives: read
// the account's next nonce, send one transaction, and wait for its
// receipt. A single signing account is used sequentially, driven only by
// the settlement stage's one worker goroutine.
type ChainClient interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, to common.Address, nonce uint64, calldata []byte) (common.Hash, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (TxReceipt, error)
	Call(ctx context.Context, to common.Address, calldata []byte) ([]byte, error)
	Account() common.Address
}

// ProofCodec is the subset of pipeline.ProofCodec the settlement stage
// needs to recompute program output when not using a mocked
// layout-bridge proof.
type ProofCodec interface {
	CalculateOutput(proof pipeline.ParsedStarkProof) []*big.Int
}

// Config captures the stage's fixed addresses and the mock-layout-bridge
// escape hatch from piltover.rs's use_mock_layout_bridge field.
type Config struct {
	IntegrityAddress      string
	PiltoverAddress       string
	UseMockLayoutBridge   bool
	VerifierConfiguration contracts.VerifierConfiguration
}

// Stage is the settlement-backend stage worker.
type Stage struct {
	cfg          Config
	chain        ChainClient
	codec        ProofCodec
	integrity    *contracts.IntegrityBinding
	piltover     *contracts.PiltoverBinding
	in           <-chan pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]
	out          chan<- pipeline.SettlementCursor
	finishHandle *service.FinishHandle
	log          zerolog.Logger
	metrics      *metrics.PipelineMetrics
}

// Builder assembles a Stage in two phases.
type Builder struct {
	cfg     Config
	chain   ChainClient
	codec   ProofCodec
	in      <-chan pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]
	out     chan<- pipeline.SettlementCursor
	log     *zerolog.Logger
	metrics *metrics.PipelineMetrics
}

func NewBuilder(cfg Config, chain ChainClient, codec ProofCodec) *Builder {
	if cfg.VerifierConfiguration == (contracts.VerifierConfiguration{}) {
		cfg.VerifierConfiguration = contracts.DefaultVerifierConfiguration()
	}
	return &Builder{cfg: cfg, chain: chain, codec: codec}
}

func (b *Builder) Input(in <-chan pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]) *Builder {
	b.in = in
	return b
}

func (b *Builder) Output(out chan<- pipeline.SettlementCursor) *Builder {
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

var ErrConfigurationIncomplete = errors.New("settlement: configuration incomplete")

func (b *Builder) Build() (*Stage, error) {
	if b.chain == nil {
		return nil, fmt.Errorf("%w: chain client not set", ErrConfigurationIncomplete)
	}
	if b.codec == nil {
		return nil, fmt.Errorf("%w: proof codec not set", ErrConfigurationIncomplete)
	}
	if b.in == nil {
		return nil, fmt.Errorf("%w: input channel not set", ErrConfigurationIncomplete)
	}
	if b.out == nil {
		return nil, fmt.Errorf("%w: output channel not set", ErrConfigurationIncomplete)
	}

	var integrity *contracts.IntegrityBinding
	var piltover *contracts.PiltoverBinding
	var err error
	if !b.cfg.UseMockLayoutBridge {
		integrity, err = contracts.NewIntegrityBinding(b.cfg.IntegrityAddress)
		if err != nil {
			return nil, fmt.Errorf("build integrity binding: %w", err)
		}
	}
	piltover, err = contracts.NewPiltoverBinding(b.cfg.PiltoverAddress)
	if err != nil {
		return nil, fmt.Errorf("build piltover binding: %w", err)
	}

	log := zerolog.Nop()
	if b.log != nil {
		log = *b.log
	}
	return &Stage{
		cfg:          b.cfg,
		chain:        b.chain,
		codec:        b.codec,
		integrity:    integrity,
		piltover:     piltover,
		in:           b.in,
		out:          b.out,
		finishHandle: service.NewFinishHandle(),
		log:          log.With().Str("component", "settlement-backend").Logger(),
		metrics:      b.metrics,
	}, nil
}

func (s *Stage) ShutdownHandle() *service.ShutdownHandle {
	return s.finishHandle.ShutdownHandle()
}

// GetBlockNumber decodes get_state()'s view result into the settled
// block number, matching piltover.rs's get_block_number().
func (s *Stage) GetBlockNumber(ctx context.Context) (uint64, error) {
	calldata, err := s.piltover.BuildGetStateCalldata()
	if err != nil {
		return 0, err
	}
	raw, err := s.chain.Call(ctx, s.piltover.Address(), calldata)
	if err != nil {
		return 0, fmt.Errorf("call get_state: %w", err)
	}
	state, err := s.piltover.DecodeState(raw)
	if err != nil {
		return 0, err
	}
	return state.BlockNumber, nil
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
		case cursor, ok := <-s.in:
			if !ok {
				return
			}
			if err := s.handle(ctx, cursor); err != nil {
				s.log.Error().Err(err).Uint64("block_number", cursor.BlockNumber).Msg("settlement failed")
				if s.metrics != nil {
					s.metrics.StageErrorsTotal.WithLabelValues("settlement").Inc()
				}
				return
			}
		}
	}
}

func (s *Stage) handle(ctx context.Context, cursor pipeline.DataAvailabilityCursor[pipeline.RecursiveProof]) error {
	start := time.Now()
	proof := cursor.FullPayload
	s.log.Debug().Uint64("block_number", cursor.BlockNumber).Msg("received new DA cursor")

	if !s.cfg.UseMockLayoutBridge {
		if err := s.verifyOnIntegrity(ctx, proof); err != nil {
			return err
		}
	}

	programOutput := s.programOutput(proof)

	updateCalldata, err := s.piltover.BuildUpdateStateCalldata(proof.SnosOutput, programOutput, [32]byte{}, big.NewInt(0))
	if err != nil {
		return fmt.Errorf("build update_state calldata for block %d: %w", cursor.BlockNumber, err)
	}

	nonce, err := s.chain.PendingNonceAt(ctx, s.chain.Account())
	if err != nil {
		return fmt.Errorf("fetch account nonce: %w", err)
	}

	txHash, err := s.chain.SendTransaction(ctx, s.piltover.Address(), nonce, updateCalldata)
	if err != nil {
		return fmt.Errorf("send update_state transaction for block %d: %w", cursor.BlockNumber, err)
	}
	s.log.Info().Uint64("block_number", cursor.BlockNumber).Str("tx_hash", txHash.Hex()).Msg("settlement transaction sent")

	if _, err := s.chain.WaitForReceipt(ctx, txHash); err != nil {
		return fmt.Errorf("await update_state confirmation for block %d: %w", cursor.BlockNumber, err)
	}
	s.log.Info().Uint64("block_number", cursor.BlockNumber).Str("tx_hash", txHash.Hex()).Msg("settlement transaction confirmed")

	var hashArray [32]byte
	copy(hashArray[:], txHash.Bytes())
	newCursor := pipeline.SettlementCursor{BlockNumber: cursor.BlockNumber, TransactionHash: hashArray}

	select {
	case <-s.finishHandle.ShutdownRequested():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case s.out <- newCursor:
		if s.metrics != nil {
			s.metrics.SettlementsConfirmed.Inc()
			s.metrics.StageLatencySeconds.WithLabelValues("settlement").Observe(time.Since(start).Seconds())
		}
		return nil
	}
}

// verifyOnIntegrity splits the layout-bridge proof, submits one
// verifyProofFullAndRegisterFact transaction per proof chunk
// sequentially, starting from one fetched nonce and incrementing it per
// transaction, and sums the fees actually
// charged. Each chunk becomes exactly one transaction: unlike the
// original's Starknet account, a single Ethereum transaction cannot
// bundle multiple contract calls without a dedicated multicall
// contract, which is out of scope here.
func (s *Stage) verifyOnIntegrity(ctx context.Context, proof pipeline.RecursiveProof) error {
	chunks := splitProof(proof.LayoutBridgeProof)
	if len(chunks) == 0 {
		return nil
	}

	jobID, err := randomJobID()
	if err != nil {
		return fmt.Errorf("mint integrity job id: %w", err)
	}

	calls := make([]call, 0, len(chunks))
	for _, chunk := range chunks {
		calldata, err := s.integrity.BuildVerifyCalldata(jobID, s.cfg.VerifierConfiguration, chunk)
		if err != nil {
			return fmt.Errorf("build integrity calldata for block %d: %w", proof.BlockNumber, err)
		}
		var to [20]byte
		copy(to[:], s.integrity.Address().Bytes())
		calls = append(calls, call{to: to, calldata: calldata})
	}

	s.log.Debug().Int("transactions", len(calls)).Str("job_id", jobID.String()).Msg("integrity verification transactions generated")

	nonce, err := s.chain.PendingNonceAt(ctx, s.chain.Account())
	if err != nil {
		return fmt.Errorf("fetch account nonce for integrity verification: %w", err)
	}

	totalFee := big.NewInt(0)
	for i, c := range calls {
		to := common.BytesToAddress(c.to[:])
		txHash, err := s.chain.SendTransaction(ctx, to, nonce, c.calldata)
		if err != nil {
			return fmt.Errorf("send integrity verification transaction %d/%d for block %d: %w", i+1, len(calls), proof.BlockNumber, err)
		}
		s.log.Debug().Int("index", i+1).Int("total", len(calls)).Str("tx_hash", txHash.Hex()).Msg("integrity verification transaction sent")

		receipt, err := s.chain.WaitForReceipt(ctx, txHash)
		if err != nil {
			return fmt.Errorf("await integrity verification transaction %d/%d for block %d: %w", i+1, len(calls), proof.BlockNumber, err)
		}
		if receipt.ActualFee != nil {
			totalFee.Add(totalFee, receipt.ActualFee)
		}
		nonce++
	}

	s.log.Info().Uint64("block_number", proof.BlockNumber).Str("total_fee_wei", totalFee.String()).Msg("proof verified on integrity")
	return nil
}

// programOutput returns the mocked or real program output for the
// update_state call, matching piltover.rs's use_mock_layout_bridge
// branch (only the SNOS output hash slot matters when mocked, since the
// fact registry is bypassed entirely).
func (s *Stage) programOutput(proof pipeline.RecursiveProof) []*big.Int {
	if s.cfg.UseMockLayoutBridge {
		return []*big.Int{
			big.NewInt(0), big.NewInt(0), big.NewInt(0), big.NewInt(0),
			poseidonHashMany(proof.SnosOutput),
		}
	}
	return s.codec.CalculateOutput(proof.LayoutBridgeProof)
}
