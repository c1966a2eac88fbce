package indexer

import (
	"context"

	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// storeOutcomes persists the execution outcomes of the block's shards,
// restricted to outcomes whose receipt row exists. An outcome can arrive
// for a receipt the indexer skipped (non-strict mode) or that belongs to
// a height range outside the indexed window; writing it would violate the
// receipts foreign key.
func (ix *Indexer) storeOutcomes(ctx context.Context, msg *types.StreamerMessage) error {
	blockHash := string(msg.Block.Header.Hash)
	blockTimestamp := uint64(msg.Block.Header.Timestamp)

	var ids []string
	for _, shard := range msg.Shards {
		for _, outcome := range shard.ReceiptExecutionOutcomes {
			ids = append(ids, string(outcome.ExecutionOutcome.ID))
		}
	}
	if len(ids) == 0 {
		return nil
	}
	known, err := ix.stores.Receipts.ExistingReceiptIDs(ctx, ids)
	if err != nil {
		return err
	}

	var (
		rows  []storage.ExecutionOutcomeRow
		edges []storage.ExecutionOutcomeReceiptRow
	)
	for _, shard := range msg.Shards {
		for i, outcome := range shard.ReceiptExecutionOutcomes {
			receiptID := string(outcome.ExecutionOutcome.ID)
			if _, ok := known[receiptID]; !ok {
				ix.log.Debug("skipping outcome for unknown receipt", "receipt_id", receiptID)
				continue
			}
			view := outcome.ExecutionOutcome.Outcome
			rows = append(rows, storage.ExecutionOutcomeRow{
				ReceiptID:         receiptID,
				BlockHash:         blockHash,
				BlockTimestamp:    blockTimestamp,
				IndexInChunk:      int32(i),
				GasBurnt:          view.GasBurnt,
				TokensBurnt:       view.TokensBurnt.String(),
				ExecutorAccountID: string(view.ExecutorID),
				Status:            string(view.Status.Kind),
				ShardID:           shard.ShardID,
			})
			for j, produced := range view.ReceiptIDs {
				edges = append(edges, storage.ExecutionOutcomeReceiptRow{
					ExecutedReceiptID:       receiptID,
					IndexInExecutionOutcome: int32(j),
					ProducedReceiptID:       string(produced),
				})
			}
		}
	}
	if err := ix.stores.Outcomes.Insert(ctx, rows); err != nil {
		return err
	}
	return ix.stores.Outcomes.InsertReceiptEdges(ctx, edges)
}
