// Package indexer implements the per-block ingestion pipeline: the block
// orchestrator, the four-tier receipt parent-transaction resolver, the
// account projections, and the streamer loop feeding them.
package indexer

import (
	"context"

	"github.com/nearscan/nearscan/cache"
	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// Narrow views over the storage repositories. The pipeline depends on
// these instead of the concrete pgx repositories so the resolver and the
// orchestrator can be exercised against in-memory fakes.

// BlockStore persists block header rows.
type BlockStore interface {
	Store(ctx context.Context, row storage.BlockRow) error
}

// ChunkStore persists chunk rows.
type ChunkStore interface {
	Store(ctx context.Context, rows []storage.ChunkRow) error
}

// TransactionStore persists transactions and answers the
// converted-into-receipt joins.
type TransactionStore interface {
	Insert(ctx context.Context, rows []storage.TransactionRow) error
	InsertActions(ctx context.Context, rows []storage.TransactionActionRow) error
	StoredConvertedReceiptIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	ParentTxForConverted(ctx context.Context, receiptIDs []string) (map[string]string, error)
}

// ReceiptStore persists receipts and their action/data structures and
// answers the data-output join.
type ReceiptStore interface {
	Insert(ctx context.Context, rows []storage.ReceiptRow) error
	InsertActionReceipts(ctx context.Context, rows []storage.ActionReceiptRow) error
	InsertActionReceiptActions(ctx context.Context, rows []storage.ActionReceiptActionRow) error
	InsertInputData(ctx context.Context, rows []storage.ActionReceiptInputDataRow) error
	InsertOutputData(ctx context.Context, rows []storage.ActionReceiptOutputDataRow) error
	InsertDataReceipts(ctx context.Context, rows []storage.DataReceiptRow) error
	ParentTxForDataIDs(ctx context.Context, dataIDs []string) (map[string]string, error)
	ExistingReceiptIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
}

// OutcomeStore persists execution outcomes and answers the
// produced-receipt join.
type OutcomeStore interface {
	Insert(ctx context.Context, rows []storage.ExecutionOutcomeRow) error
	InsertReceiptEdges(ctx context.Context, rows []storage.ExecutionOutcomeReceiptRow) error
	ParentTxForProduced(ctx context.Context, receiptIDs []string) (map[string]string, error)
}

// AccountStore maintains the accounts projection.
type AccountStore interface {
	Insert(ctx context.Context, rows []storage.AccountRow) error
	MarkDeleted(ctx context.Context, accountID string, deletedBy *string, height uint64) error
	Update(ctx context.Context, row storage.AccountRow) error
	ResurrectImplicit(ctx context.Context, row storage.AccountRow) error
}

// AccessKeyStore maintains the access_keys projection.
type AccessKeyStore interface {
	Insert(ctx context.Context, rows []storage.AccessKeyRow) error
	MarkDeleted(ctx context.Context, publicKey, accountID string, deletedBy *string, height uint64) error
	Update(ctx context.Context, row storage.AccessKeyRow) error
}

// AccountChangeStore persists balance change records.
type AccountChangeStore interface {
	Insert(ctx context.Context, rows []storage.AccountChangeRow) error
}

// EventStore extracts and persists FT/NFT events of a block.
type EventStore interface {
	Store(ctx context.Context, shards []types.ShardView, blockTimestamp uint64) error
}

// Config holds the pipeline knobs.
type Config struct {
	// Strict demands that every receipt resolves to a parent transaction
	// (retrying indefinitely) and enables the account projections, which
	// need in-order processing. Non-strict mode bounds resolver retries
	// and skips receipts it cannot resolve.
	Strict bool
	// Concurrency bounds the number of blocks in flight. Only 1
	// guarantees that every receipt's parent transaction is persisted
	// before the next block's resolver needs it; higher values lean on
	// the resolver's retry loop.
	Concurrency int
	// NonStrictRetryBudget is the number of resolver retry rounds in
	// non-strict mode before remaining receipts are abandoned.
	NonStrictRetryBudget int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Strict:               true,
		Concurrency:          1,
		NonStrictRetryBudget: 4,
	}
}

// Stores bundles the storage views the pipeline writes through.
type Stores struct {
	Blocks         BlockStore
	Chunks         ChunkStore
	Transactions   TransactionStore
	Receipts       ReceiptStore
	Outcomes       OutcomeStore
	Accounts       AccountStore
	AccessKeys     AccessKeyStore
	AccountChanges AccountChangeStore
	Events         EventStore
}

// FromStore adapts a *storage.Store into the pipeline's Stores views,
// minus the event extractor (supplied separately since it wraps the
// event repository).
func FromStore(s *storage.Store, events EventStore) Stores {
	return Stores{
		Blocks:         s.Blocks,
		Chunks:         s.Chunks,
		Transactions:   s.Transactions,
		Receipts:       s.Receipts,
		Outcomes:       s.Outcomes,
		Accounts:       s.Accounts,
		AccessKeys:     s.AccessKeys,
		AccountChanges: s.AccountChanges,
		Events:         events,
	}
}

// Indexer runs the per-block ingestion pipeline. The receipt cache lives
// for the whole run so that entries seeded at block H resolve receipts at
// H+1 without touching the database.
type Indexer struct {
	stores Stores
	cache  *cache.ReceiptCache
	cfg    Config
	log    *log.Logger
}

// New creates an Indexer.
func New(stores Stores, cfg Config, logger *log.Logger) *Indexer {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.NonStrictRetryBudget < 1 {
		cfg.NonStrictRetryBudget = 4
	}
	return &Indexer{
		stores: stores,
		cache:  cache.New(cache.DefaultCapacity),
		cfg:    cfg,
		log:    logger.Module("indexer"),
	}
}

// Cache exposes the receipt cache, mainly for tests asserting the
// seeding behaviour.
func (ix *Indexer) Cache() *cache.ReceiptCache {
	return ix.cache
}
