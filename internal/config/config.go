// Package config loads the orchestrator's configuration from a YAML file
// with environment-variable overrides, grounded on
// shared-publisher-leader-app/config/config.go: a viper instance per
// Load call, SetDefault calls for every field, AutomaticEnv with a
// dot-to-underscore key replacer, and a post-unmarshal Validate pass.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the orchestrator's complete configuration tree.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Storage    StorageConfig    `mapstructure:"storage"`
	RPC        RPCConfig        `mapstructure:"rpc"`
	Prover     ProverConfig     `mapstructure:"prover"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Ingestor   IngestorConfig   `mapstructure:"ingestor"`
}

// LogConfig controls the base zerolog logger, the idiomatic Go analogue
// of the original's per-crate RUST_LOG string (see SPEC_FULL.md §6).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// MetricsConfig controls the Prometheus metrics HTTP endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Path       string `mapstructure:"path"`
}

// StorageConfig selects and configures the StageRecord store.
type StorageConfig struct {
	Driver        string `mapstructure:"driver"` // "memory" or "postgres"
	PostgresDSN   string `mapstructure:"postgres_dsn"`
}

// RPCConfig configures the upstream chain client the block ingestor
// polls.
type RPCConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProverConfig configures the remote prover client and the layout-bridge
// worker pool.
type ProverConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BridgeWorkers   int           `mapstructure:"bridge_workers"`
	LayoutBridgeELF string        `mapstructure:"layout_bridge_elf_path"`
}

// SettlementConfig configures the settlement backend's contract
// addresses and signing account.
type SettlementConfig struct {
	L1RPCURL            string `mapstructure:"l1_rpc_url"`
	ChainID             int64  `mapstructure:"chain_id"`
	IntegrityAddress    string `mapstructure:"integrity_address"`
	PiltoverAddress     string `mapstructure:"piltover_address"`
	SigningKeyHex       string `mapstructure:"signing_key_hex"`
	UseMockLayoutBridge bool   `mapstructure:"use_mock_layout_bridge"`
}

// IngestorConfig configures the block ingestor, including the debug PIE
// dump escape hatch from SPEC_FULL.md §4.2.
type IngestorConfig struct {
	StartBlock uint64 `mapstructure:"start_block"`
	DumpPIE    bool   `mapstructure:"dump_pie"`
}

// Load reads configuration from configPath, applying defaults first and
// environment-variable overrides last.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_addr", ":9090")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.postgres_dsn", "")

	v.SetDefault("rpc.url", "")
	v.SetDefault("rpc.timeout", "30s")

	v.SetDefault("prover.base_url", "")
	v.SetDefault("prover.timeout", "60s")
	v.SetDefault("prover.bridge_workers", 10)
	v.SetDefault("prover.layout_bridge_elf_path", "")

	v.SetDefault("settlement.l1_rpc_url", "")
	v.SetDefault("settlement.chain_id", 0)
	v.SetDefault("settlement.integrity_address", "")
	v.SetDefault("settlement.piltover_address", "")
	v.SetDefault("settlement.signing_key_hex", "")
	v.SetDefault("settlement.use_mock_layout_bridge", false)

	v.SetDefault("ingestor.start_block", 0)
	v.SetDefault("ingestor.dump_pie", false)
}

// Validate checks that the configuration is internally consistent
// enough to build a pipeline from, matching the teacher's per-section
// validateXxx breakdown.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateRPC(); err != nil {
		return err
	}
	if err := c.validateProver(); err != nil {
		return err
	}
	if err := c.validateSettlement(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "memory":
		return nil
	case "postgres":
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return fmt.Errorf("storage.postgres_dsn is required when storage.driver is \"postgres\"")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
}

func (c *Config) validateRPC() error {
	if strings.TrimSpace(c.RPC.URL) == "" {
		return fmt.Errorf("rpc.url is required")
	}
	return nil
}

func (c *Config) validateProver() error {
	if strings.TrimSpace(c.Prover.BaseURL) == "" {
		return fmt.Errorf("prover.base_url is required")
	}
	if c.Prover.BridgeWorkers <= 0 {
		return fmt.Errorf("prover.bridge_workers must be positive")
	}
	if strings.TrimSpace(c.Prover.LayoutBridgeELF) == "" {
		return fmt.Errorf("prover.layout_bridge_elf_path is required")
	}
	return nil
}

func (c *Config) validateSettlement() error {
	if strings.TrimSpace(c.Settlement.L1RPCURL) == "" {
		return fmt.Errorf("settlement.l1_rpc_url is required")
	}
	if strings.TrimSpace(c.Settlement.PiltoverAddress) == "" {
		return fmt.Errorf("settlement.piltover_address is required")
	}
	if !c.Settlement.UseMockLayoutBridge && strings.TrimSpace(c.Settlement.IntegrityAddress) == "" {
		return fmt.Errorf("settlement.integrity_address is required unless use_mock_layout_bridge is set")
	}
	if strings.TrimSpace(c.Settlement.SigningKeyHex) == "" {
		return fmt.Errorf("settlement.signing_key_hex is required")
	}
	return nil
}
