// Package storage persists the normalized chain entities into a
// PostgreSQL database. Every bulk insert is idempotent ("on conflict do
// nothing") and wrapped in the retry harness; unique constraints on
// natural keys provide the at-least-once dedup contract.
package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// ErrNotFound is returned by lookups that matched no row.
var ErrNotFound = errors.New("storage: not found")

// DB is the subset of pgxpool.Pool the repositories use. Satisfied by
// *pgxpool.Pool, pgx.Tx, and test fakes.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store bundles one repository per entity over a shared connection pool.
type Store struct {
	Blocks         *BlockRepo
	Chunks         *ChunkRepo
	Transactions   *TransactionRepo
	Receipts       *ReceiptRepo
	Outcomes       *OutcomeRepo
	Accounts       *AccountRepo
	AccessKeys     *AccessKeyRepo
	AccountChanges *AccountChangeRepo
	Events         *EventRepo
	Supply         *SupplyRepo
}

// New creates a Store over db. All repositories share the retry attempt
// budget.
func New(db DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	l := logger.Module("storage")
	attempts := retry.DefaultAttempts
	return &Store{
		Blocks:         &BlockRepo{db: db, log: l, attempts: attempts},
		Chunks:         &ChunkRepo{db: db, log: l, attempts: attempts},
		Transactions:   &TransactionRepo{db: db, log: l, attempts: attempts},
		Receipts:       &ReceiptRepo{db: db, log: l, attempts: attempts},
		Outcomes:       &OutcomeRepo{db: db, log: l, attempts: attempts},
		Accounts:       &AccountRepo{db: db, log: l, attempts: attempts},
		AccessKeys:     &AccessKeyRepo{db: db, log: l, attempts: attempts},
		AccountChanges: &AccountChangeRepo{db: db, log: l, attempts: attempts},
		Events:         &EventRepo{db: db, log: l, attempts: attempts},
		Supply:         &SupplyRepo{db: db, log: l, attempts: attempts},
	}
}

// sendBatch queues every statement of b and drains the results, surfacing
// the first error.
func sendBatch(ctx context.Context, db DB, b *pgx.Batch) error {
	if b.Len() == 0 {
		return nil
	}
	res := db.SendBatch(ctx, b)
	defer res.Close()
	for i := 0; i < b.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// pgErr unwraps a *pgconn.PgError if err carries one.
func pgErr(err error) (*pgconn.PgError, bool) {
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		return pg, true
	}
	return nil, false
}

// uniqueViolationCode is the Postgres error code for unique-constraint
// violations.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation,
// optionally on the named constraint (empty matches any).
func IsUniqueViolation(err error, constraint string) bool {
	pg, ok := pgErr(err)
	if !ok || pg.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pg.ConstraintName == constraint
}
