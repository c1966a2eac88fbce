package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// AccountRepo maintains the accounts projection. All updates carry the
// monotonicity guard: a candidate with a lower last_update_block_height
// than the stored row is a no-op.
type AccountRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertAccountSQL = `
INSERT INTO accounts (account_id, created_by_receipt_id,
                      deleted_by_receipt_id, last_update_block_height)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING`

// Insert batch-inserts account rows, conflict-do-nothing.
func (r *AccountRepo) Insert(ctx context.Context, rows []AccountRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_accounts", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertAccountSQL,
				row.AccountID, row.CreatedByReceiptID, row.DeletedByReceiptID,
				row.LastUpdateBlockHeight)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const markAccountDeletedSQL = `
UPDATE accounts
SET deleted_by_receipt_id = $2,
    last_update_block_height = $3
WHERE account_id = $1
  AND last_update_block_height < $3`

// MarkDeleted applies a deletion to a live account row, monotonic in
// block height.
func (r *AccountRepo) MarkDeleted(ctx context.Context, accountID string, deletedBy *string, height uint64) error {
	return retry.Do(ctx, "update_account_deleted", r.attempts, nil, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, markAccountDeletedSQL, accountID, deletedBy, height)
		return err
	})
}

const updateAccountSQL = `
UPDATE accounts
SET created_by_receipt_id = $2,
    deleted_by_receipt_id = $3,
    last_update_block_height = $4
WHERE account_id = $1
  AND last_update_block_height < $4`

// Update re-applies a creation (and possible same-batch deletion) to an
// existing row, monotonic in block height.
func (r *AccountRepo) Update(ctx context.Context, row AccountRow) error {
	return retry.Do(ctx, "update_account", r.attempts, nil, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, updateAccountSQL,
			row.AccountID, row.CreatedByReceiptID, row.DeletedByReceiptID,
			row.LastUpdateBlockHeight)
		return err
	})
}

const resurrectImplicitAccountSQL = `
UPDATE accounts
SET created_by_receipt_id = $2,
    deleted_by_receipt_id = NULL,
    last_update_block_height = $3
WHERE account_id = $1
  AND deleted_by_receipt_id IS NOT NULL
  AND last_update_block_height < $3`

// ResurrectImplicit applies the "create" effect of a transfer to a 64-hex
// implicit account only when the stored row is deleted. The chain does not
// guarantee the account did not already exist, so live rows are never
// touched.
func (r *AccountRepo) ResurrectImplicit(ctx context.Context, row AccountRow) error {
	return retry.Do(ctx, "resurrect_implicit_account", r.attempts, nil, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, resurrectImplicitAccountSQL,
			row.AccountID, row.CreatedByReceiptID, row.LastUpdateBlockHeight)
		return err
	})
}
