// Package orchestrator wires the five pipeline stages — block ingestor,
// SNOS prover, layout-bridge prover, DA publisher, settlement backend —
// into one running pipeline connected by bounded channels, following the
// same construct-then-Start shape the teacher's sbadapter.WrapPublisher /
// App.initialize use to assemble a publisher out of its collaborators.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/compose-network/proving-orchestrator/internal/bridgeprover"
	"github.com/compose-network/proving-orchestrator/internal/config"
	"github.com/compose-network/proving-orchestrator/internal/dapublisher"
	"github.com/compose-network/proving-orchestrator/internal/ingestor"
	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
	"github.com/compose-network/proving-orchestrator/internal/remoteprover"
	"github.com/compose-network/proving-orchestrator/internal/rpcclient"
	"github.com/compose-network/proving-orchestrator/internal/service"
	"github.com/compose-network/proving-orchestrator/internal/settlement"
	"github.com/compose-network/proving-orchestrator/internal/settlement/contracts"
	"github.com/compose-network/proving-orchestrator/internal/snosprover"
	"github.com/compose-network/proving-orchestrator/internal/storage"
)

// stageChannelBuffer bounds the depth of every inter-stage channel. A
// single constant keeps every stage's backpressure behavior identical,
// the same choice the teacher's queue.Config{MaxSize} makes for its
// single shared queue.
const stageChannelBuffer = 32

// Dependencies are the external-contract collaborators SPEC_FULL.md
// leaves abstract: the upstream RPC client, the remote prover transport,
// the StageRecord store, the DA backend, and the settlement chain
// client. The orchestrator only wires them together; it never
// constructs a concrete instance of any of them.
type Dependencies struct {
	RPC                 rpcclient.SnosTraceClient
	ProveBlock          snosprover.ProveBlockFunc
	RemoteProver        remoteprover.Client
	Store               storage.Store
	DAPublisher         dapublisher.Publisher
	Chain               settlement.ChainClient
	Codec               Codec
	Metrics             *metrics.PipelineMetrics
	LayoutBridgeProgram []byte
}

// Codec is satisfied by the same concrete type for both pipeline.ProofCodec
// (bridge prover) and settlement.ProofCodec (settlement stage); keeping it
// as its own named interface here avoids importing settlement's narrower
// interface just to re-declare the one method it shares with pipeline's.
type Codec interface {
	pipeline.ProofCodec
}

// Pipeline owns every stage worker plus the ShutdownController that fans
// a single shutdown request out across all of them.
type Pipeline struct {
	ingestor     *ingestor.Ingestor
	snos         *snosprover.Prover
	bridge       *bridgeprover.Prover
	da           *dapublisher.Stage
	settlement   *settlement.Stage
	controller   *service.ShutdownController
	settlements  <-chan pipeline.SettlementCursor
	log          zerolog.Logger
}

// Build constructs every stage from cfg and deps, connecting them with
// bounded channels in the fixed order ingestor -> snos -> bridge -> da ->
// settlement, per SPEC_FULL.md §2/§5.
func Build(cfg *config.Config, deps Dependencies, log zerolog.Logger) (*Pipeline, error) {
	blocks := make(chan pipeline.NewBlock, stageChannelBuffer)
	snosProofs := make(chan pipeline.SnosProof[string], stageChannelBuffer)
	recursiveProofs := make(chan pipeline.RecursiveProof, stageChannelBuffer)
	daCursors := make(chan pipeline.DataAvailabilityCursor[pipeline.RecursiveProof], stageChannelBuffer)
	settlements := make(chan pipeline.SettlementCursor, stageChannelBuffer)

	ing, err := ingestor.NewBuilder(deps.RPC).
		StartBlock(cfg.Ingestor.StartBlock).
		Channel(blocks).
		Logger(log).
		DumpPIE(cfg.Ingestor.DumpPIE).
		Metrics(deps.Metrics).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build ingestor: %w", err)
	}

	snos, err := snosprover.NewBuilder(deps.ProveBlock, deps.Store).
		Input(blocks).
		Output(snosProofs).
		Logger(log).
		Metrics(deps.Metrics).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build snos prover: %w", err)
	}

	bridge, err := bridgeprover.NewBuilder(deps.RemoteProver, deps.Codec, deps.Store).
		Input(snosProofs).
		Output(recursiveProofs).
		WorkerCount(cfg.Prover.BridgeWorkers).
		LayoutBridgeProgram(deps.LayoutBridgeProgram).
		Logger(log).
		Metrics(deps.Metrics).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build layout-bridge prover: %w", err)
	}

	da, err := dapublisher.NewBuilder(deps.DAPublisher).
		Input(recursiveProofs).
		Output(daCursors).
		Logger(log).
		Metrics(deps.Metrics).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build DA publisher: %w", err)
	}

	settlementCfg := settlement.Config{
		IntegrityAddress:      cfg.Settlement.IntegrityAddress,
		PiltoverAddress:       cfg.Settlement.PiltoverAddress,
		UseMockLayoutBridge:   cfg.Settlement.UseMockLayoutBridge,
		VerifierConfiguration: contracts.DefaultVerifierConfiguration(),
	}
	settle, err := settlement.NewBuilder(settlementCfg, deps.Chain, deps.Codec).
		Input(daCursors).
		Output(settlements).
		Logger(log).
		Metrics(deps.Metrics).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build settlement backend: %w", err)
	}

	controller := service.NewShutdownController(log)
	controller.Register(ing.ShutdownHandle())
	controller.Register(snos.ShutdownHandle())
	controller.Register(bridge.ShutdownHandle())
	controller.Register(da.ShutdownHandle())
	controller.Register(settle.ShutdownHandle())

	return &Pipeline{
		ingestor:    ing,
		snos:        snos,
		bridge:      bridge,
		da:          da,
		settlement:  settle,
		controller:  controller,
		settlements: settlements,
		log:         log.With().Str("component", "orchestrator-pipeline").Logger(),
	}, nil
}

// Start launches every stage's goroutines. Stages are started downstream
// first so no upstream stage can send onto a channel nobody is reading
// from yet.
func (p *Pipeline) Start(ctx context.Context) {
	p.settlement.Start(ctx)
	p.da.Start(ctx)
	p.bridge.Start(ctx)
	p.snos.Start(ctx)
	p.ingestor.Start(ctx)
	p.log.Info().Msg("pipeline started")
}

// Settlements exposes the terminal SettlementCursor stream for callers
// that want to observe completed blocks (e.g. the binary's settlement
// logger).
func (p *Pipeline) Settlements() <-chan pipeline.SettlementCursor {
	return p.settlements
}

// Shutdown requests every stage to stop and blocks until all have
// drained, via the shared ShutdownController.
func (p *Pipeline) Shutdown() {
	p.controller.Shutdown()
}
