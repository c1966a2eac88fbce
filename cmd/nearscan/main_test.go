package main

import (
	"testing"

	"github.com/nearscan/nearscan/config"
)

func TestParseFlags_Defaults(t *testing.T) {
	cfg, blocksPath, exit, code := parseFlags([]string{})
	if exit {
		t.Fatalf("unexpected exit with code %d", code)
	}
	if blocksPath != "-" {
		t.Errorf("blocksPath = %q, want -", blocksPath)
	}

	defaults := config.DefaultConfig()
	if cfg.Chain != defaults.Chain {
		t.Errorf("Chain = %q, want %q", cfg.Chain, defaults.Chain)
	}
	if !cfg.Strict {
		t.Error("Strict should be true by default")
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.StartMode != config.StartFromInterruption {
		t.Errorf("StartMode = %q, want %q", cfg.StartMode, config.StartFromInterruption)
	}
	if cfg.InterruptionDelta != config.DefaultInterruptionDelta {
		t.Errorf("InterruptionDelta = %d, want %d", cfg.InterruptionDelta, config.DefaultInterruptionDelta)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q, want :9090", cfg.MetricsAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestParseFlags_AllFlags(t *testing.T) {
	args := []string{
		"-blocks", "/var/lib/nearscan/blocks.ndjson",
		"-database-url", "postgres://db/indexer",
		"-rpc-url", "https://rpc.mainnet.example.org",
		"-chain", "testnet",
		"-strict=false",
		"-concurrency", "8",
		"-start-mode", "from-height",
		"-start-height", "9820210",
		"-interruption-delta", "100",
		"-metrics-addr", ":9191",
		"-log-level", "debug",
	}

	cfg, blocksPath, exit, _ := parseFlags(args)
	if exit {
		t.Fatal("unexpected exit")
	}

	if blocksPath != "/var/lib/nearscan/blocks.ndjson" {
		t.Errorf("blocksPath = %q", blocksPath)
	}
	if cfg.DatabaseURL != "postgres://db/indexer" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.RPCURL != "https://rpc.mainnet.example.org" {
		t.Errorf("RPCURL = %q", cfg.RPCURL)
	}
	if cfg.Chain != config.ChainTestnet {
		t.Errorf("Chain = %q, want testnet", cfg.Chain)
	}
	if cfg.Strict {
		t.Error("Strict should be false")
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.StartMode != config.StartFromHeight {
		t.Errorf("StartMode = %q, want from-height", cfg.StartMode)
	}
	if cfg.StartHeight != 9820210 {
		t.Errorf("StartHeight = %d, want 9820210", cfg.StartHeight)
	}
	if cfg.InterruptionDelta != 100 {
		t.Errorf("InterruptionDelta = %d, want 100", cfg.InterruptionDelta)
	}
	if cfg.MetricsAddr != ":9191" {
		t.Errorf("MetricsAddr = %q, want :9191", cfg.MetricsAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestParseFlags_EnvOverlay(t *testing.T) {
	t.Setenv("CHAIN_ID", "testnet")
	t.Setenv("CONCURRENCY", "4")

	// Flags win over environment.
	cfg, _, exit, _ := parseFlags([]string{"-concurrency", "2"})
	if exit {
		t.Fatal("unexpected exit")
	}
	if cfg.Chain != config.ChainTestnet {
		t.Errorf("Chain = %q, want testnet from env", cfg.Chain)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2 from flag", cfg.Concurrency)
	}
}

func TestParseFlags_Version(t *testing.T) {
	_, _, exit, code := parseFlags([]string{"-version"})
	if !exit {
		t.Fatal("expected exit for -version")
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestParseFlags_InvalidFlag(t *testing.T) {
	_, _, exit, code := parseFlags([]string{"-unknown-flag"})
	if !exit {
		t.Fatal("expected exit for unknown flag")
	}
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestParseFlags_InvalidStartHeight(t *testing.T) {
	_, _, exit, code := parseFlags([]string{"-start-height", "notanumber"})
	if !exit {
		t.Fatal("expected exit for invalid start height")
	}
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}
