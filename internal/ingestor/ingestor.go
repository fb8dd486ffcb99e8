// Package ingestor implements the block-ingestor stage: it pulls new
// blocks from the upstream chain, obtains each block's SNOS execution
// trace (PIE), and feeds NewBlock values into the pipeline. Grounded on
// original_source/saya/core/src/block_ingestor/polling.rs: the same
// PROVE_BLOCK_FAILURE_BACKOFF, the same "check shutdown immediately after
// proving, before the bounded send" ordering, and the same per-block
// monotonic advance on success.
package ingestor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/pipeline"
	"github.com/compose-network/proving-orchestrator/internal/rpcclient"
	"github.com/compose-network/proving-orchestrator/internal/service"
)

// proveBlockFailureBackoff is how long the ingestor waits before retrying
// a block whose trace generation failed transiently (e.g. the node has
// not produced it yet).
const proveBlockFailureBackoff = 5 * time.Second

// Ingestor polls an upstream chain RPC endpoint for new blocks and emits
// NewBlock onto its output channel in strictly increasing order.
type Ingestor struct {
	rpc          rpcclient.SnosTraceClient
	currentBlock uint64
	out          chan<- pipeline.NewBlock
	finishHandle *service.FinishHandle
	log          zerolog.Logger
	dumpPIE      bool
	metrics      *metrics.PipelineMetrics
}

// Builder assembles an Ingestor in two phases, mirroring the teacher's
// config-then-build pattern (see PollingBlockIngestorBuilder): fields are
// set one at a time and Build validates all are present.
type Builder struct {
	rpc        rpcclient.SnosTraceClient
	startBlock *uint64
	out        chan<- pipeline.NewBlock
	log        *zerolog.Logger
	dumpPIE    bool
	metrics    *metrics.PipelineMetrics
}

func NewBuilder(rpc rpcclient.SnosTraceClient) *Builder {
	return &Builder{rpc: rpc}
}

func (b *Builder) StartBlock(n uint64) *Builder {
	b.startBlock = &n
	return b
}

func (b *Builder) Channel(out chan<- pipeline.NewBlock) *Builder {
	b.out = out
	return b
}

func (b *Builder) Logger(log zerolog.Logger) *Builder {
	b.log = &log
	return b
}

// DumpPIE enables writing each generated PIE to a debug JSON file,
// matching the teacher's debug file-dump in polling.rs. Default false.
func (b *Builder) DumpPIE(dump bool) *Builder {
	b.dumpPIE = dump
	return b
}

// Metrics attaches the shared pipeline metrics. Optional: a nil value
// leaves every counter/gauge update a no-op.
func (b *Builder) Metrics(m *metrics.PipelineMetrics) *Builder {
	b.metrics = m
	return b
}

// ErrConfigurationIncomplete is returned by Build when a required field
// was never set.
var ErrConfigurationIncomplete = errors.New("ingestor: configuration incomplete")

func (b *Builder) Build() (*Ingestor, error) {
	if b.rpc == nil {
		return nil, fmt.Errorf("%w: rpc client not set", ErrConfigurationIncomplete)
	}
	if b.startBlock == nil {
		return nil, fmt.Errorf("%w: start_block not set", ErrConfigurationIncomplete)
	}
	if b.out == nil {
		return nil, fmt.Errorf("%w: channel not set", ErrConfigurationIncomplete)
	}
	log := zerolog.Nop()
	if b.log != nil {
		log = *b.log
	}
	return &Ingestor{
		rpc:          b.rpc,
		currentBlock: *b.startBlock,
		out:          b.out,
		finishHandle: service.NewFinishHandle(),
		log:          log.With().Str("component", "block-ingestor").Logger(),
		dumpPIE:      b.dumpPIE,
		metrics:      b.metrics,
	}, nil
}

// ShutdownHandle exposes the cooperative-shutdown handle so the caller can
// register it with a ShutdownController.
func (i *Ingestor) ShutdownHandle() *service.ShutdownHandle {
	return i.finishHandle.ShutdownHandle()
}

// Start launches the ingestor's run loop in a new goroutine, matching the
// teacher's Daemon.start(self) { tokio::spawn(self.run()) } pattern.
func (i *Ingestor) Start(ctx context.Context) {
	go i.run(ctx)
}

func (i *Ingestor) run(ctx context.Context) {
	defer i.finishHandle.Finish()

	for {
		start := time.Now()
		trace, nTxs, err := i.rpc.ProveBlock(ctx, i.currentBlock)
		if err != nil {
			if !errors.Is(err, rpcclient.ErrBlockNotFound) {
				i.log.Error().Err(err).Uint64("block_number", i.currentBlock).Msg("failed to prove block")
				if i.metrics != nil {
					i.metrics.StageErrorsTotal.WithLabelValues("ingestor").Inc()
				}
			}

			select {
			case <-i.finishHandle.ShutdownRequested():
				return
			case <-time.After(proveBlockFailureBackoff):
				continue
			}
		}

		i.log.Debug().Uint64("block_number", i.currentBlock).Uint64("n_txs", nTxs).Msg("PIE generated")

		if i.dumpPIE {
			i.dumpTrace(trace, nTxs)
		}

		// No way to hook into trace generation for cancellation; the next
		// best thing is checking right after it completes.
		if i.finishHandle.IsShutdownRequested() {
			return
		}

		block := pipeline.NewBlock{
			Number: i.currentBlock,
			PIE:    trace,
			NTxs:   nTxs,
		}

		select {
		case <-i.finishHandle.ShutdownRequested():
			return
		case i.out <- block:
			if i.metrics != nil {
				i.metrics.BlocksIngested.Inc()
				i.metrics.CurrentBlockHeight.Set(float64(block.Number))
				i.metrics.StageLatencySeconds.WithLabelValues("ingestor").Observe(time.Since(start).Seconds())
			}
		}

		i.currentBlock++
	}
}

func (i *Ingestor) dumpTrace(trace []byte, nTxs uint64) {
	name := fmt.Sprintf("pie_%d_%d.json", i.currentBlock, nTxs)
	f, err := os.Create(name)
	if err != nil {
		i.log.Warn().Err(err).Str("file", name).Msg("failed to open PIE dump file")
		return
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(trace); err != nil {
		i.log.Warn().Err(err).Str("file", name).Msg("failed to write PIE dump")
	}
}
