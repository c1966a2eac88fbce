package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// AccountChangeRepo persists per-block balance change records.
type AccountChangeRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertAccountChangeSQL = `
INSERT INTO account_changes (affected_account_id, changed_in_block_timestamp,
                             changed_in_block_hash, index_in_block,
                             caused_by_transaction_hash, caused_by_receipt_id,
                             update_reason, affected_account_nonstaked_balance,
                             affected_account_staked_balance,
                             affected_account_storage_usage)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT DO NOTHING`

// Insert batch-inserts account change rows.
func (r *AccountChangeRepo) Insert(ctx context.Context, rows []AccountChangeRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_account_changes", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertAccountChangeSQL,
				row.AffectedAccountID, row.ChangedInBlockTimestamp,
				row.BlockHash, row.IndexInBlock, row.CausedByTransactionHash,
				row.CausedByReceiptID, row.UpdateReason,
				row.NonstakedBalance, row.StakedBalance, row.StorageUsage)
		}
		return sendBatch(ctx, r.db, b)
	})
}
