package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// AccessKeyRepo maintains the access_keys projection with the same
// monotonic height guard as AccountRepo.
type AccessKeyRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertAccessKeySQL = `
INSERT INTO access_keys (public_key, account_id, created_by_receipt_id,
                         deleted_by_receipt_id, permission_kind,
                         last_update_block_height)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT DO NOTHING`

// Insert batch-inserts access key rows, conflict-do-nothing.
func (r *AccessKeyRepo) Insert(ctx context.Context, rows []AccessKeyRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_access_keys", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertAccessKeySQL,
				row.PublicKey, row.AccountID, row.CreatedByReceiptID,
				row.DeletedByReceiptID, row.PermissionKind,
				row.LastUpdateBlockHeight)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const markAccessKeyDeletedSQL = `
UPDATE access_keys
SET deleted_by_receipt_id = $3,
    last_update_block_height = $4
WHERE public_key = $1
  AND account_id = $2
  AND last_update_block_height < $4`

// MarkDeleted applies a deletion to a stored key, monotonic in block
// height.
func (r *AccessKeyRepo) MarkDeleted(ctx context.Context, publicKey, accountID string, deletedBy *string, height uint64) error {
	return retry.Do(ctx, "update_access_key_deleted", r.attempts, nil, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, markAccessKeyDeletedSQL,
			publicKey, accountID, deletedBy, height)
		return err
	})
}

const updateAccessKeySQL = `
UPDATE access_keys
SET created_by_receipt_id = $3,
    deleted_by_receipt_id = $4,
    permission_kind = $5,
    last_update_block_height = $6
WHERE public_key = $1
  AND account_id = $2
  AND last_update_block_height < $6`

// Update re-applies a creation (and possible same-batch deletion) to a
// stored key, monotonic in block height.
func (r *AccessKeyRepo) Update(ctx context.Context, row AccessKeyRow) error {
	return retry.Do(ctx, "update_access_key", r.attempts, nil, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, updateAccessKeySQL,
			row.PublicKey, row.AccountID, row.CreatedByReceiptID,
			row.DeletedByReceiptID, row.PermissionKind,
			row.LastUpdateBlockHeight)
		return err
	})
}
