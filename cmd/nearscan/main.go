// Command nearscan ingests a chain block stream into Postgres and runs
// the daily circulating-supply engine.
//
// Usage:
//
//	nearscan [flags]
//
// Flags:
//
//	--blocks        Block stream path, "-" for stdin (default: -)
//	--database-url  Postgres connection string (env DATABASE_URL)
//	--rpc-url       Chain JSON-RPC endpoint (env RPC_URL)
//	--chain         Chain profile: mainnet, testnet (default: mainnet)
//	--strict        Demand full receipt resolution (default: true)
//	--concurrency   Blocks in flight (default: 1)
//	--start-mode    from-interruption, from-latest, from-genesis, from-height
//	--start-height  Explicit height for from-height mode
//	--metrics-addr  Metrics listen address, empty disables (default: :9090)
//	--log-level     debug, info, warn, error (default: info)
//	--version       Print version and exit
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nearscan/nearscan/config"
	"github.com/nearscan/nearscan/events"
	"github.com/nearscan/nearscan/indexer"
	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/nearrpc"
	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/stream"
	"github.com/nearscan/nearscan/supply"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.3.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, blocksPath, exit, code := parseFlags(args)
	if exit {
		return code
	}

	logger := log.New(log.LevelFromString(cfg.LogLevel))
	log.SetDefault(logger)

	logger.Info("nearscan starting",
		"version", version,
		"commit", commit,
		"chain", cfg.Chain,
		"strict", cfg.Strict,
		"concurrency", cfg.Concurrency,
		"start_mode", cfg.StartMode)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err.Error())
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connection failed", "error", err.Error())
		return 1
	}
	defer pool.Close()
	store := storage.New(pool, logger)

	rpcClient, err := nearrpc.Dial(ctx, cfg.RPCURL)
	if err != nil {
		logger.Error("rpc connection failed", "error", err.Error())
		return 1
	}
	defer rpcClient.Close()

	startHeight, err := resolveStartHeight(ctx, cfg, store)
	if err != nil {
		logger.Error("resolving start height failed", "error", err.Error())
		return 1
	}
	logger.Info("start height resolved", "height", startHeight)

	input, closeInput, err := openBlocks(blocksPath)
	if err != nil {
		logger.Error("opening block stream failed", "error", err.Error())
		return 1
	}
	defer closeInput()

	extractor := events.NewExtractor(store.Events, logger)
	ix := indexer.New(indexer.FromStore(store, extractor), indexer.Config{
		Strict:               cfg.Strict,
		Concurrency:          cfg.Concurrency,
		NonStrictRetryBudget: 4,
	}, logger)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ix.Run(gctx, stream.NewReader(input, startHeight))
	})
	if cfg.SupplyEnabled() {
		engine := supply.NewEngine(store.Blocks, store.Supply, rpcClient, logger)
		g.Go(func() error {
			err := engine.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pipeline failed", "error", err.Error())
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

// resolveStartHeight maps the configured start mode onto a concrete
// height using the database state.
func resolveStartHeight(ctx context.Context, cfg config.Config, store *storage.Store) (uint64, error) {
	switch cfg.StartMode {
	case config.StartFromHeight:
		return cfg.StartHeight, nil
	case config.StartFromGenesis:
		return 0, nil
	case config.StartFromLatest:
		height, err := store.Blocks.LatestHeight(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return height + 1, nil
	case config.StartFromInterruption:
		height, err := store.Blocks.LatestHeight(ctx)
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		if height < cfg.InterruptionDelta {
			return 0, nil
		}
		// Rewind to re-cover blocks that may have been partially written;
		// conflict-do-nothing makes the overlap harmless.
		return height - cfg.InterruptionDelta, nil
	default:
		return 0, fmt.Errorf("unknown start mode %q", cfg.StartMode)
	}
}

func openBlocks(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func serveMetrics(addr string, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics endpoint failed", "error", err.Error())
	}
}
