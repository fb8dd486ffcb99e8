package config

import "testing"

func validSettlement() SettlementConfig {
	return SettlementConfig{
		L1RPCURL:         "https://l1.example/rpc",
		PiltoverAddress:  "0xabc",
		IntegrityAddress: "0xdef",
		SigningKeyHex:    "0x01",
	}
}

func validProver() ProverConfig {
	return ProverConfig{
		BaseURL:         "https://prover.example",
		BridgeWorkers:   10,
		LayoutBridgeELF: "/etc/orchestrator/layout_bridge.elf",
	}
}

func TestConfig_ValidateRejectsMissingRPCURL(t *testing.T) {
	cfg := &Config{
		Storage:    StorageConfig{Driver: "memory"},
		Prover:     validProver(),
		Settlement: validSettlement(),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing rpc.url")
	}
}

func TestConfig_ValidateRequiresPostgresDSNWhenSelected(t *testing.T) {
	cfg := &Config{
		Storage:    StorageConfig{Driver: "postgres"},
		RPC:        RPCConfig{URL: "https://rpc.example"},
		Prover:     validProver(),
		Settlement: validSettlement(),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing storage.postgres_dsn")
	}
}

func TestConfig_ValidateAllowsMockLayoutBridgeWithoutIntegrityAddress(t *testing.T) {
	settlement := validSettlement()
	settlement.IntegrityAddress = ""
	settlement.UseMockLayoutBridge = true

	cfg := &Config{
		Storage:    StorageConfig{Driver: "memory"},
		RPC:        RPCConfig{URL: "https://rpc.example"},
		Prover:     validProver(),
		Settlement: settlement,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

func TestConfig_ValidateRejectsZeroBridgeWorkers(t *testing.T) {
	cfg := &Config{
		Storage:    StorageConfig{Driver: "memory"},
		RPC:        RPCConfig{URL: "https://rpc.example"},
		Prover:     ProverConfig{BaseURL: "https://prover.example", BridgeWorkers: 0, LayoutBridgeELF: "/etc/orchestrator/layout_bridge.elf"},
		Settlement: validSettlement(),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for non-positive bridge_workers")
	}
}

func TestConfig_ValidateRejectsMissingLayoutBridgeELF(t *testing.T) {
	cfg := &Config{
		Storage:    StorageConfig{Driver: "memory"},
		RPC:        RPCConfig{URL: "https://rpc.example"},
		Prover:     ProverConfig{BaseURL: "https://prover.example", BridgeWorkers: 10},
		Settlement: validSettlement(),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing prover.layout_bridge_elf_path")
	}
}
