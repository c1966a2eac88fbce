package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// TransactionRepo persists transactions and their flattened action lists,
// and answers the converted-into-receipt joins used by the hash-collision
// escape hatch and the tier-4 receipt resolver.
type TransactionRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertTransactionSQL = `
INSERT INTO transactions (transaction_hash, included_in_block_hash,
                          included_in_chunk_hash, index_in_chunk,
                          block_timestamp, signer_account_id,
                          signer_public_key, nonce, receiver_account_id,
                          signature, status, converted_into_receipt_id,
                          receipt_conversion_gas_burnt,
                          receipt_conversion_tokens_burnt)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT DO NOTHING`

// Insert batch-inserts transaction rows, conflict-do-nothing.
func (r *TransactionRepo) Insert(ctx context.Context, rows []TransactionRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_transactions", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertTransactionSQL,
				row.Hash, row.BlockHash, row.ChunkHash, row.IndexInChunk,
				row.BlockTimestamp, row.SignerAccountID, row.SignerPublicKey,
				row.Nonce, row.ReceiverAccountID, row.Signature, row.Status,
				row.ConvertedIntoReceiptID, row.ReceiptConversionGasBurnt,
				row.ReceiptConversionTokensBurnt)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const insertTransactionActionSQL = `
INSERT INTO transaction_actions (transaction_hash, index_in_transaction,
                                 action_kind, args, is_delegate_action,
                                 delegate_parameters, delegate_parent_index_in_transaction)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT DO NOTHING`

// InsertActions batch-inserts flattened transaction action rows.
func (r *TransactionRepo) InsertActions(ctx context.Context, rows []TransactionActionRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_transaction_actions", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertTransactionActionSQL,
				row.TransactionHash, row.IndexInTransaction, row.ActionKind,
				row.Args, row.IsDelegateAction, row.DelegateParameters,
				row.DelegateParentIndex)
		}
		return sendBatch(ctx, r.db, b)
	})
}

// StoredConvertedReceiptIDs returns the subset of ids that exist as some
// transaction's converted_into_receipt_id. The transaction writer uses the
// missing ids to detect natural hash collisions.
func (r *TransactionRepo) StoredConvertedReceiptIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT converted_into_receipt_id FROM transactions WHERE converted_into_receipt_id = ANY($1)`,
		ids)
	if err != nil {
		return nil, errors.Wrap(err, "stored converted receipt ids")
	}
	defer rows.Close()
	out := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan converted receipt id")
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// ParentTxForConverted resolves receipt ids converted directly from a
// stored transaction: receipt id -> transaction hash (resolver tier 4).
func (r *TransactionRepo) ParentTxForConverted(ctx context.Context, receiptIDs []string) (map[string]string, error) {
	if len(receiptIDs) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.db.Query(ctx, `
SELECT converted_into_receipt_id, transaction_hash
FROM transactions
WHERE converted_into_receipt_id = ANY($1)`, receiptIDs)
	if err != nil {
		return nil, errors.Wrap(err, "parent tx for converted receipts")
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var receiptID, txHash string
		if err := rows.Scan(&receiptID, &txHash); err != nil {
			return nil, errors.Wrap(err, "scan converted receipt")
		}
		out[receiptID] = txHash
	}
	return out, rows.Err()
}
