package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/nearscan/nearscan/config"
)

// parseFlags loads configuration from the environment and overlays CLI
// flags on top. When exit is true the caller should return code
// immediately (help or version was requested, or parsing failed).
func parseFlags(args []string) (cfg config.Config, blocksPath string, exit bool, code int) {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Println("Error:", err)
		return cfg, "", true, 1
	}

	fs := newCustomFlagSet("nearscan")
	fs.StringVar(&blocksPath, "blocks", "-", "block stream path, \"-\" for stdin")
	fs.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "postgres connection string")
	fs.StringVar(&cfg.RPCURL, "rpc-url", cfg.RPCURL, "chain json-rpc endpoint")
	fs.StringVar(&cfg.Chain, "chain", cfg.Chain, "chain profile (mainnet, testnet)")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "demand full receipt resolution")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "blocks in flight")
	fs.StringVar(&cfg.StartMode, "start-mode", cfg.StartMode, "from-interruption, from-latest, from-genesis or from-height")
	fs.Uint64Var(&cfg.StartHeight, "start-height", cfg.StartHeight, "explicit height for from-height mode")
	fs.Uint64Var(&cfg.InterruptionDelta, "interruption-delta", cfg.InterruptionDelta, "rewind applied in from-interruption mode")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "metrics listen address, empty disables")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log verbosity (debug, info, warn, error)")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return cfg, "", true, 0
		}
		return cfg, "", true, 2
	}
	if *showVersion {
		fmt.Printf("nearscan %s (%s)\n", version, commit)
		return cfg, "", true, 0
	}
	return cfg, blocksPath, false, 0
}

// flagSet wraps flag.FlagSet to add support for uint64 flags.
type flagSet struct {
	*flag.FlagSet
}

// newCustomFlagSet creates a flagSet with ContinueOnError behavior.
func newCustomFlagSet(name string) *flagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &flagSet{FlagSet: fs}
}

// Uint64Var defines a uint64 flag. Go's standard flag package lacks uint64
// support, so we use a custom Value implementation.
func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

// uint64Value implements flag.Value for uint64 flags.
type uint64Value struct {
	p *uint64
}

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 value %q", s)
	}
	*v.p = n
	return nil
}
