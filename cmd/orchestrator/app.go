package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/compose-network/proving-orchestrator/internal/config"
	"github.com/compose-network/proving-orchestrator/internal/dapublisher"
	"github.com/compose-network/proving-orchestrator/internal/logging"
	"github.com/compose-network/proving-orchestrator/internal/metrics"
	"github.com/compose-network/proving-orchestrator/internal/orchestrator"
	"github.com/compose-network/proving-orchestrator/internal/proofcodec"
	"github.com/compose-network/proving-orchestrator/internal/remoteprover"
	"github.com/compose-network/proving-orchestrator/internal/rpcclient"
	"github.com/compose-network/proving-orchestrator/internal/settlement"
	"github.com/compose-network/proving-orchestrator/internal/snosprover"
	"github.com/compose-network/proving-orchestrator/internal/storage"
	apisrv "github.com/compose-network/proving-orchestrator/server/api"
	apimw "github.com/compose-network/proving-orchestrator/server/api/middleware"
)

// App wires one running pipeline plus its status/metrics HTTP server,
// mirroring publisher-leader-app/app.go's App: construct everything in
// initialize, then Run blocks until a shutdown signal arrives.
type App struct {
	cfg       *config.Config
	mode      string
	log       zerolog.Logger
	pipeline  *orchestrator.Pipeline
	apiServer *apisrv.Server
	pgPool    *pgxpool.Pool
	metrics   *metrics.PipelineMetrics
}

// runApp is the shared body every subcommand's RunE calls into; only the
// mode label differs between sovereign/persistent/sharding (see
// SPEC_FULL.md §6).
func runApp(cmd *cobra.Command, mode string) error {
	overrides := &appConfigOverrides{}
	applyFlags(cmd, overrides)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if overrides.logLevel != "" {
		cfg.Log.Level = overrides.logLevel
	}
	if cmd.Flag("log-pretty").Changed {
		cfg.Log.Pretty = overrides.logPretty
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Str("mode", mode).Str("config_file", cfgFile).Msg("starting proving orchestrator")

	app, err := NewApp(cmd.Context(), cfg, mode, log)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	return app.Run(cmd.Context())
}

// NewApp constructs every collaborator the pipeline needs and builds it,
// but does not start anything yet.
func NewApp(ctx context.Context, cfg *config.Config, mode string, log zerolog.Logger) (*App, error) {
	app := &App{cfg: cfg, mode: mode, log: log}
	if err := app.initialize(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *App) initialize(ctx context.Context) error {
	upstreamEth, err := ethclient.DialContext(ctx, a.cfg.RPC.URL)
	if err != nil {
		return fmt.Errorf("dial upstream rpc: %w", err)
	}
	rpc := rpcclient.New(upstreamEth, a.log, rpcclient.DefaultTraceFunc)

	store, err := a.buildStore(ctx)
	if err != nil {
		return err
	}

	proverClient, err := remoteprover.NewHTTPClient(a.cfg.Prover.BaseURL, &http.Client{Timeout: a.cfg.Prover.Timeout}, a.log)
	if err != nil {
		return fmt.Errorf("build remote prover client: %w", err)
	}

	chain, err := a.buildChainClient(ctx)
	if err != nil {
		return err
	}

	codec := proofcodec.New()

	layoutBridgeProgram, err := os.ReadFile(a.cfg.Prover.LayoutBridgeELF)
	if err != nil {
		return fmt.Errorf("read layout bridge program %q: %w", a.cfg.Prover.LayoutBridgeELF, err)
	}

	if a.cfg.Metrics.Enabled {
		a.metrics = metrics.NewPipelineMetrics()
	}

	pl, err := orchestrator.Build(a.cfg, orchestrator.Dependencies{
		RPC:                 rpc,
		ProveBlock:          snosprover.DefaultProveBlock,
		RemoteProver:        proverClient,
		Store:               store,
		DAPublisher:         dapublisher.NewLogPublisher(a.log),
		Chain:               chain,
		Codec:               codec,
		Metrics:             a.metrics,
		LayoutBridgeProgram: layoutBridgeProgram,
	}, a.log)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	a.pipeline = pl

	if a.cfg.Metrics.Enabled {
		a.apiServer = a.buildAPIServer()
	}

	return nil
}

func (a *App) buildStore(ctx context.Context) (storage.Store, error) {
	switch a.cfg.Storage.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, a.cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pgPool = pool
		return storage.NewPostgresStore(pool), nil
	default:
		return storage.NewMemoryStore(), nil
	}
}

func (a *App) buildChainClient(ctx context.Context) (settlement.ChainClient, error) {
	l1Eth, err := ethclient.DialContext(ctx, a.cfg.Settlement.L1RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial L1 rpc: %w", err)
	}

	keyHex := strings.TrimPrefix(a.cfg.Settlement.SigningKeyHex, "0x")
	privateKey, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse settlement signing key: %w", err)
	}

	chain, err := settlement.NewEthChainClient(l1Eth, big.NewInt(a.cfg.Settlement.ChainID), privateKey, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("build settlement chain client: %w", err)
	}
	return chain, nil
}

func (a *App) buildAPIServer() *apisrv.Server {
	apiCfg := apisrv.DefaultConfig()
	apiCfg.ListenAddr = a.cfg.Metrics.ListenAddr

	s := apisrv.NewServer(apiCfg, a.log)
	s.Use(apimw.Recover(a.log))
	s.Use(apimw.RequestID())
	s.Use(apimw.Logger(a.log))

	s.Router.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	s.Router.HandleFunc("/ready", a.handleReady).Methods(http.MethodGet)

	path := a.cfg.Metrics.Path
	if path == "" {
		path = "/metrics"
	}
	s.Router.Handle(path, promhttp.Handler()).Methods(http.MethodGet)

	return s
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, map[string]any{"status": "healthy", "mode": a.mode})
}

func (a *App) handleReady(w http.ResponseWriter, r *http.Request) {
	apisrv.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// Run starts the pipeline and the status server, then blocks until a
// shutdown signal or the context is canceled.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.pipeline.Start(runCtx)

	if a.apiServer != nil {
		go func() {
			if err := a.apiServer.Start(runCtx); err != nil {
				a.log.Error().Err(err).Msg("status server error")
			}
		}()
	}

	go a.logSettlements(runCtx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-runCtx.Done():
		a.log.Info().Msg("context canceled, shutting down")
	case sig := <-sigCh:
		a.log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	}

	cancel()
	a.pipeline.Shutdown()

	if a.pgPool != nil {
		a.pgPool.Close()
	}

	a.log.Info().Msg("orchestrator stopped")
	return nil
}

func (a *App) logSettlements(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cursor, ok := <-a.pipeline.Settlements():
			if !ok {
				return
			}
			a.log.Info().
				Uint64("block_number", cursor.BlockNumber).
				Hex("transaction_hash", cursor.TransactionHash[:]).
				Msg("block settled")
		}
	}
}
