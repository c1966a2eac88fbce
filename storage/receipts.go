package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// ReceiptRepo persists receipts and the action-receipt structures hanging
// off them, and answers the data-output join used by resolver tier 2.
type ReceiptRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertReceiptSQL = `
INSERT INTO receipts (receipt_id, included_in_block_hash,
                      included_in_chunk_hash, index_in_chunk,
                      included_in_block_timestamp, predecessor_account_id,
                      receiver_account_id, receipt_kind,
                      originated_from_transaction_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT DO NOTHING`

// Insert batch-inserts receipt rows. Every row's
// OriginatedFromTransactionHash must already be resolved.
func (r *ReceiptRepo) Insert(ctx context.Context, rows []ReceiptRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_receipts", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertReceiptSQL,
				row.ReceiptID, row.BlockHash, row.ChunkHash, row.IndexInChunk,
				row.BlockTimestamp, row.PredecessorAccountID,
				row.ReceiverAccountID, row.Kind,
				row.OriginatedFromTransactionHash)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const insertActionReceiptSQL = `
INSERT INTO action_receipts (receipt_id, signer_account_id,
                             signer_public_key, gas_price)
VALUES ($1, $2, $3, $4)
ON CONFLICT DO NOTHING`

// InsertActionReceipts batch-inserts action receipt rows.
func (r *ReceiptRepo) InsertActionReceipts(ctx context.Context, rows []ActionReceiptRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_action_receipts", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertActionReceiptSQL,
				row.ReceiptID, row.SignerAccountID, row.SignerPublicKey,
				row.GasPrice)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const insertActionReceiptActionSQL = `
INSERT INTO action_receipt_actions (receipt_id, index_in_action_receipt,
                                    action_kind, args,
                                    receipt_predecessor_account_id,
                                    receipt_receiver_account_id,
                                    receipt_included_in_block_timestamp,
                                    is_delegate_action, delegate_parameters,
                                    delegate_parent_index_in_action_receipt)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT DO NOTHING`

// InsertActionReceiptActions batch-inserts flattened action rows.
func (r *ReceiptRepo) InsertActionReceiptActions(ctx context.Context, rows []ActionReceiptActionRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_action_receipt_actions", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertActionReceiptActionSQL,
				row.ReceiptID, row.IndexInActionReceipt, row.ActionKind,
				row.Args, row.PredecessorAccountID, row.ReceiverAccountID,
				row.BlockTimestamp, row.IsDelegateAction,
				row.DelegateParameters, row.DelegateParentIndex)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const insertInputDataSQL = `
INSERT INTO action_receipt_input_data (input_data_id, input_to_receipt_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`

// InsertInputData batch-inserts input-data dependency edges.
func (r *ReceiptRepo) InsertInputData(ctx context.Context, rows []ActionReceiptInputDataRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_action_receipt_input_data", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertInputDataSQL, row.InputDataID, row.InputToReceiptID)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const insertOutputDataSQL = `
INSERT INTO action_receipt_output_data (output_data_id, output_from_receipt_id,
                                        receiver_account_id)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`

// InsertOutputData batch-inserts produced-data edges.
func (r *ReceiptRepo) InsertOutputData(ctx context.Context, rows []ActionReceiptOutputDataRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_action_receipt_output_data", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertOutputDataSQL,
				row.OutputDataID, row.OutputFromReceiptID, row.ReceiverAccountID)
		}
		return sendBatch(ctx, r.db, b)
	})
}

const insertDataReceiptSQL = `
INSERT INTO data_receipts (data_id, receipt_id, data)
VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`

// InsertDataReceipts batch-inserts data receipt rows.
func (r *ReceiptRepo) InsertDataReceipts(ctx context.Context, rows []DataReceiptRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_data_receipts", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertDataReceiptSQL, row.DataID, row.ReceiptID, row.Data)
		}
		return sendBatch(ctx, r.db, b)
	})
}

// ParentTxForDataIDs joins persisted data-output edges to their producing
// receipts: data id -> originating transaction hash (resolver tier 2).
func (r *ReceiptRepo) ParentTxForDataIDs(ctx context.Context, dataIDs []string) (map[string]string, error) {
	if len(dataIDs) == 0 {
		return map[string]string{}, nil
	}
	rows, err := r.db.Query(ctx, `
SELECT action_receipt_output_data.output_data_id,
       receipts.originated_from_transaction_hash
FROM action_receipt_output_data
JOIN receipts ON action_receipt_output_data.output_from_receipt_id = receipts.receipt_id
WHERE action_receipt_output_data.output_data_id = ANY($1)`, dataIDs)
	if err != nil {
		return nil, errors.Wrap(err, "parent tx for data ids")
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var dataID, txHash string
		if err := rows.Scan(&dataID, &txHash); err != nil {
			return nil, errors.Wrap(err, "scan data output join")
		}
		out[dataID] = txHash
	}
	return out, rows.Err()
}

// ExistingReceiptIDs returns the subset of ids present in the receipts
// table. The execution-outcome writer persists outcomes only for these.
func (r *ReceiptRepo) ExistingReceiptIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT receipt_id FROM receipts WHERE receipt_id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "existing receipt ids")
	}
	defer rows.Close()
	out := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan receipt id")
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
