package indexer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nearscan/nearscan/cache"
	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// storeReceipts persists the receipts of every chunk, after resolving
// each receipt's originating transaction. Receipts that stay unresolved
// within the retry budget (non-strict mode only) are skipped with a
// warning; every other row of the block still lands.
func (ix *Indexer) storeReceipts(ctx context.Context, msg *types.StreamerMessage) error {
	blockHash := string(msg.Block.Header.Hash)
	blockTimestamp := uint64(msg.Block.Header.Timestamp)

	var receipts []chunkReceipt
	for _, shard := range msg.Shards {
		if shard.Chunk == nil {
			continue
		}
		chunkHash := string(shard.Chunk.Header.ChunkHash)
		for i, view := range shard.Chunk.Receipts {
			receipts = append(receipts, chunkReceipt{
				view:         view,
				chunkHash:    chunkHash,
				indexInChunk: int32(i),
			})
		}
	}
	if len(receipts) == 0 {
		return nil
	}

	res, err := ix.resolveParents(ctx, receipts)
	if err != nil {
		return err
	}
	for _, r := range res.unresolved {
		ix.log.Warn("skipping receipt with unresolved parent transaction",
			"receipt_id", r.view.ReceiptID, "block_height", msg.Block.Header.Height)
		receiptsSkipped.Inc()
	}

	var (
		receiptRows []storage.ReceiptRow
		actionRows  []storage.ActionReceiptRow
		actionActs  []storage.ActionReceiptActionRow
		inputRows   []storage.ActionReceiptInputDataRow
		outputRows  []storage.ActionReceiptOutputDataRow
		dataRows    []storage.DataReceiptRow
		seeds       = make(map[cache.Key]string)
	)
	for _, r := range receipts {
		parentTx, ok := res.parents[r.view.ReceiptID]
		if !ok {
			continue
		}
		receiptID := string(r.view.ReceiptID)
		receiptRows = append(receiptRows, storage.ReceiptRow{
			ReceiptID:                     receiptID,
			BlockHash:                     blockHash,
			ChunkHash:                     r.chunkHash,
			IndexInChunk:                  r.indexInChunk,
			BlockTimestamp:                blockTimestamp,
			PredecessorAccountID:          string(r.view.PredecessorID),
			ReceiverAccountID:             string(r.view.ReceiverID),
			Kind:                          string(r.view.Receipt.Kind()),
			OriginatedFromTransactionHash: parentTx,
		})

		switch r.view.Receipt.Kind() {
		case types.ReceiptKindData:
			dataRows = append(dataRows, storage.DataReceiptRow{
				DataID:    string(r.view.Receipt.Data.DataID),
				ReceiptID: receiptID,
				Data:      r.view.Receipt.Data.Data,
			})
		default:
			action := r.view.Receipt.Action
			actionRows = append(actionRows, storage.ActionReceiptRow{
				ReceiptID:       receiptID,
				SignerAccountID: string(action.SignerID),
				SignerPublicKey: action.SignerPublicKey,
				GasPrice:        action.GasPrice.String(),
			})
			for _, fa := range flattenActions(action.Actions) {
				actionActs = append(actionActs, storage.ActionReceiptActionRow{
					ReceiptID:            receiptID,
					IndexInActionReceipt: fa.Index,
					ActionKind:           string(fa.Kind),
					Args:                 argsOrEmpty(fa.Args),
					PredecessorAccountID: string(r.view.PredecessorID),
					ReceiverAccountID:    string(r.view.ReceiverID),
					BlockTimestamp:       blockTimestamp,
					IsDelegateAction:     fa.IsDelegate,
					DelegateParameters:   fa.DelegateParameters,
					DelegateParentIndex:  fa.DelegateParent,
				})
			}
			for _, in := range action.InputDataIDs {
				inputRows = append(inputRows, storage.ActionReceiptInputDataRow{
					InputDataID:      string(in),
					InputToReceiptID: receiptID,
				})
			}
			for _, out := range action.OutputDataReceivers {
				outputRows = append(outputRows, storage.ActionReceiptOutputDataRow{
					OutputDataID:        string(out.DataID),
					OutputFromReceiptID: receiptID,
					ReceiverAccountID:   string(out.ReceiverID),
				})
			}
			// The future data receipts carrying these data ids inherit this
			// receipt's parent transaction.
			for _, out := range action.OutputDataReceivers {
				seeds[cache.DataID(out.DataID)] = parentTx
			}
		}
	}

	// Receipt rows first: every sub-structure references them.
	if err := ix.stores.Receipts.Insert(ctx, receiptRows); err != nil {
		return err
	}
	ix.cache.PutBatch(seeds)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ix.stores.Receipts.InsertActionReceipts(gctx, actionRows) })
	g.Go(func() error { return ix.stores.Receipts.InsertActionReceiptActions(gctx, actionActs) })
	g.Go(func() error { return ix.stores.Receipts.InsertInputData(gctx, inputRows) })
	g.Go(func() error { return ix.stores.Receipts.InsertOutputData(gctx, outputRows) })
	g.Go(func() error { return ix.stores.Receipts.InsertDataReceipts(gctx, dataRows) })
	return g.Wait()
}
