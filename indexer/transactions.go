package indexer

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/cache"
	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// collisionSuffix marks re-submitted transactions whose hash already
// exists with a different converted-into receipt. The literal is part of
// the public dataset and must not change.
const collisionSuffix = "_issue84_"

// txBatch is one block's worth of prepared transaction writes. The cache
// seeds are applied by the orchestrator before the receipt resolver
// starts, so locally produced receipts resolve without a database query.
type txBatch struct {
	rows    []storage.TransactionRow
	actions map[string][]types.ActionView
	seeds   map[cache.Key]string
	height  uint64
}

// prepareTransactions flattens the block's chunks into transaction rows
// and the (converted-into-receipt-id -> tx-hash) cache seeds.
func (ix *Indexer) prepareTransactions(msg *types.StreamerMessage) (*txBatch, error) {
	batch := &txBatch{
		actions: make(map[string][]types.ActionView),
		seeds:   make(map[cache.Key]string),
		height:  msg.Block.Header.Height,
	}
	blockHash := string(msg.Block.Header.Hash)
	blockTimestamp := uint64(msg.Block.Header.Timestamp)

	for _, shard := range msg.Shards {
		if shard.Chunk == nil {
			continue
		}
		chunkHash := string(shard.Chunk.Header.ChunkHash)
		for i, tx := range shard.Chunk.Transactions {
			ids := tx.Outcome.ExecutionOutcome.Outcome.ReceiptIDs
			if len(ids) == 0 {
				return nil, errors.Errorf(
					"transaction %s in block %d has no converted receipt id",
					tx.Transaction.Hash, batch.height)
			}
			convertedInto := ids[0]

			hash := string(tx.Transaction.Hash)
			batch.seeds[cache.ReceiptID(convertedInto)] = hash
			batch.actions[hash] = tx.Transaction.Actions

			batch.rows = append(batch.rows, storage.TransactionRow{
				Hash:                         hash,
				BlockHash:                    blockHash,
				ChunkHash:                    chunkHash,
				IndexInChunk:                 int32(i),
				BlockTimestamp:               blockTimestamp,
				SignerAccountID:              string(tx.Transaction.SignerID),
				SignerPublicKey:              tx.Transaction.PublicKey,
				Nonce:                        tx.Transaction.Nonce,
				ReceiverAccountID:            string(tx.Transaction.ReceiverID),
				Signature:                    tx.Transaction.Signature,
				Status:                       string(tx.Outcome.ExecutionOutcome.Outcome.Status.Kind),
				ConvertedIntoReceiptID:       string(convertedInto),
				ReceiptConversionGasBurnt:    tx.Outcome.ExecutionOutcome.Outcome.GasBurnt,
				ReceiptConversionTokensBurnt: tx.Outcome.ExecutionOutcome.Outcome.TokensBurnt.String(),
			})
		}
	}
	return batch, nil
}

// writeTransactions persists a prepared batch and rescues hash
// collisions.
func (ix *Indexer) writeTransactions(ctx context.Context, batch *txBatch) error {
	if len(batch.rows) == 0 {
		return nil
	}
	if err := ix.stores.Transactions.Insert(ctx, batch.rows); err != nil {
		return err
	}
	var actionRows []storage.TransactionActionRow
	for _, row := range batch.rows {
		actionRows = append(actionRows, transactionActionRows(row.Hash, batch.actions[row.Hash])...)
	}
	if err := ix.stores.Transactions.InsertActions(ctx, actionRows); err != nil {
		return err
	}
	return ix.rescueHashCollisions(ctx, batch)
}

// rescueHashCollisions detects transactions whose conflict-do-nothing
// insert was swallowed by a pre-existing row with the same hash but a
// different converted-into receipt, and re-inserts them under a suffixed
// hash. Without the rescue the receipts of the re-submitted transaction
// could never resolve their parent.
func (ix *Indexer) rescueHashCollisions(ctx context.Context, batch *txBatch) error {
	ids := make([]string, len(batch.rows))
	for i, row := range batch.rows {
		ids[i] = row.ConvertedIntoReceiptID
	}
	stored, err := ix.stores.Transactions.StoredConvertedReceiptIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(stored) == len(ids) {
		return nil
	}

	var (
		collided   []storage.TransactionRow
		actionRows []storage.TransactionActionRow
		seeds      = make(map[cache.Key]string)
	)
	for _, row := range batch.rows {
		if _, ok := stored[row.ConvertedIntoReceiptID]; ok {
			continue
		}
		suffixed := row
		suffixed.Hash = fmt.Sprintf("%s%s%d", row.Hash, collisionSuffix, batch.height)
		ix.log.Warn("transaction hash collision, storing under suffixed hash",
			"tx_hash", row.Hash, "suffixed_hash", suffixed.Hash, "block_height", batch.height)
		collided = append(collided, suffixed)
		actionRows = append(actionRows, transactionActionRows(suffixed.Hash, batch.actions[row.Hash])...)
		seeds[cache.ReceiptID(types.CryptoHash(row.ConvertedIntoReceiptID))] = suffixed.Hash
	}

	ix.cache.PutBatch(seeds)
	if err := ix.stores.Transactions.Insert(ctx, collided); err != nil {
		return err
	}
	return ix.stores.Transactions.InsertActions(ctx, actionRows)
}

// transactionActionRows flattens one transaction's actions into rows.
func transactionActionRows(txHash string, actions []types.ActionView) []storage.TransactionActionRow {
	flat := flattenActions(actions)
	rows := make([]storage.TransactionActionRow, 0, len(flat))
	for _, fa := range flat {
		rows = append(rows, storage.TransactionActionRow{
			TransactionHash:     txHash,
			IndexInTransaction:  fa.Index,
			ActionKind:          string(fa.Kind),
			Args:                argsOrEmpty(fa.Args),
			IsDelegateAction:    fa.IsDelegate,
			DelegateParameters:  fa.DelegateParameters,
			DelegateParentIndex: fa.DelegateParent,
		})
	}
	return rows
}
