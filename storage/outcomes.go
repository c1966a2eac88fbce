package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// OutcomeRepo persists execution outcomes and their produced-receipt
// edges, and answers the produced-receipt join used by resolver tier 3.
type OutcomeRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertOutcomeSQL = `
INSERT INTO execution_outcomes (receipt_id, executed_in_block_hash,
                                executed_in_block_timestamp, index_in_chunk,
                                gas_burnt, tokens_burnt, executor_account_id,
                                status, shard_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT DO NOTHING`

// Insert batch-inserts outcome rows.
func (r *OutcomeRepo) Insert(ctx context.Context, rows []ExecutionOutcomeRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_execution_outcomes", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertOutcomeSQL,
				row.ReceiptID, row.BlockHash, row.BlockTimestamp,
				row.IndexInChunk, row.GasBurnt, row.TokensBurnt,
				row.ExecutorAccountID, row.Status, row.ShardID)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const insertOutcomeReceiptSQL = `
INSERT INTO execution_outcome_receipts (executed_receipt_id,
                                        index_in_execution_outcome,
                                        produced_receipt_id)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`

// InsertReceiptEdges batch-inserts outcome -> produced-receipt edges.
func (r *OutcomeRepo) InsertReceiptEdges(ctx context.Context, rows []ExecutionOutcomeReceiptRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_execution_outcome_receipts", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertOutcomeReceiptSQL,
				row.ExecutedReceiptID, row.IndexInExecutionOutcome,
				row.ProducedReceiptID)
		}
		return sendBatch(ctx, r.db, b)
	})
}

// ParentTxForProduced joins persisted outcome edges to their executed
// receipts: produced receipt id -> originating transaction hash
// (resolver tier 3).
func (r *OutcomeRepo) ParentTxForProduced(ctx context.Context, receiptIDs []string) (map[string]string, error) {
	if len(receiptIDs) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.db.Query(ctx, `
SELECT execution_outcome_receipts.produced_receipt_id,
       receipts.originated_from_transaction_hash
FROM execution_outcome_receipts
JOIN receipts ON execution_outcome_receipts.executed_receipt_id = receipts.receipt_id
WHERE execution_outcome_receipts.produced_receipt_id = ANY($1)`, receiptIDs)
	if err != nil {
		return nil, errors.Wrap(err, "parent tx for produced receipts")
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var producedID, txHash string
		if err := rows.Scan(&producedID, &txHash); err != nil {
			return nil, errors.Wrap(err, "scan produced receipt")
		}
		out[producedID] = txHash
	}
	return out, rows.Err()
}
