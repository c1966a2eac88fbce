// Package config holds the runtime configuration of the indexer,
// loaded from the environment and overridable by CLI flags.
package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Start modes for the streamer.
const (
	StartFromInterruption = "from-interruption"
	StartFromLatest       = "from-latest"
	StartFromGenesis      = "from-genesis"
	StartFromHeight       = "from-height"
)

// Chain profiles. The circulating-supply engine only runs on mainnet.
const (
	ChainMainnet = "mainnet"
	ChainTestnet = "testnet"
)

// DefaultInterruptionDelta is how many blocks below the last stored
// height a from-interruption start rewinds, to re-cover blocks that may
// have been partially written.
const DefaultInterruptionDelta = 50

// Config holds all configuration for a nearscan process.
type Config struct {
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// RPCURL is the chain node's JSON-RPC endpoint.
	RPCURL string

	// Chain selects the network profile (mainnet, testnet).
	Chain string

	// Strict demands full receipt resolution and enables the account
	// projections.
	Strict bool

	// Concurrency bounds the blocks in flight (default 1).
	Concurrency int

	// StartMode selects where the streamer begins.
	StartMode string

	// StartHeight is the explicit height for from-height mode.
	StartHeight uint64

	// InterruptionDelta is the rewind applied in from-interruption mode.
	InterruptionDelta uint64

	// MetricsAddr is the listen address of the metrics endpoint; empty
	// disables it.
	MetricsAddr string

	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Chain:             ChainMainnet,
		Strict:            true,
		Concurrency:       1,
		StartMode:         StartFromInterruption,
		InterruptionDelta: DefaultInterruptionDelta,
		MetricsAddr:       ":9090",
		LogLevel:          "info",
	}
}

// FromEnv overlays environment variables onto the defaults.
func FromEnv() (Config, error) {
	c := DefaultConfig()
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.RPCURL = os.Getenv("RPC_URL")
	if v := os.Getenv("CHAIN_ID"); v != "" {
		c.Chain = v
	}
	if v := os.Getenv("STRICT_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, errors.Wrapf(err, "config: STRICT_MODE %q", v)
		}
		c.Strict = b
	}
	if v := os.Getenv("CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, errors.Wrapf(err, "config: CONCURRENCY %q", v)
		}
		c.Concurrency = n
	}
	if v := os.Getenv("START_MODE"); v != "" {
		c.StartMode = v
	}
	if v := os.Getenv("START_HEIGHT"); v != "" {
		h, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c, errors.Wrapf(err, "config: START_HEIGHT %q", v)
		}
		c.StartHeight = h
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return c, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("config: database url must not be empty")
	}
	if c.RPCURL == "" {
		return errors.New("config: rpc url must not be empty")
	}
	switch c.Chain {
	case ChainMainnet, ChainTestnet:
	default:
		return errors.Errorf("config: unknown chain %q", c.Chain)
	}
	if c.Concurrency < 1 {
		return errors.Errorf("config: invalid concurrency %d", c.Concurrency)
	}
	switch c.StartMode {
	case StartFromInterruption, StartFromLatest, StartFromGenesis:
	case StartFromHeight:
		// Height 0 is genesis; allow it but require the mode to be
		// deliberate, so no extra check here.
	default:
		return errors.Errorf("config: unknown start mode %q", c.StartMode)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

// SupplyEnabled reports whether the circulating-supply engine should
// run for this profile.
func (c *Config) SupplyEnabled() bool {
	return c.Chain == ChainMainnet
}
