package indexer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// StoreBlock ingests one block message through the fixed dependency
// order: the block row, then its chunks, then transactions and receipts
// in parallel, then outcomes, projections, events and account changes in
// parallel. The transaction writer seeds the receipt cache inside one
// critical section before any insert, so the receipt resolver running
// alongside it observes either none or all of the block's bindings.
func (ix *Indexer) StoreBlock(ctx context.Context, msg *types.StreamerMessage) error {
	header := msg.Block.Header

	err := ix.stores.Blocks.Store(ctx, storage.BlockRow{
		Height:          header.Height,
		Hash:            string(header.Hash),
		PrevHash:        string(header.PrevHash),
		Timestamp:       uint64(header.Timestamp),
		TotalSupply:     header.TotalSupply.String(),
		GasPrice:        header.GasPrice.String(),
		AuthorAccountID: string(msg.Block.Author),
	})
	if err != nil {
		return err
	}
	if err := ix.stores.Chunks.Store(ctx, chunkRows(msg)); err != nil {
		return err
	}

	// Seed the cache before the receipt resolver starts its tier 1 pass:
	// all of this block's (converted-into-receipt -> tx-hash) bindings
	// land in one critical section, so locally produced receipts resolve
	// without a database query.
	batch, err := ix.prepareTransactions(msg)
	if err != nil {
		return err
	}
	ix.cache.PutBatch(batch.seeds)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ix.writeTransactions(gctx, batch) })
	g.Go(func() error { return ix.storeReceipts(gctx, msg) })
	if err := g.Wait(); err != nil {
		return err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error { return ix.storeOutcomes(gctx, msg) })
	g.Go(func() error { return ix.stores.Events.Store(gctx, msg.Shards, uint64(header.Timestamp)) })
	g.Go(func() error { return ix.storeAccountChanges(gctx, msg) })
	if ix.cfg.Strict {
		// The projections need in-order effects; with lossy ingestion they
		// would drift, so non-strict mode skips them.
		g.Go(func() error {
			if err := ix.storeAccounts(gctx, msg); err != nil {
				return err
			}
			return ix.storeAccessKeys(gctx, msg)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	blocksProcessed.Inc()
	latestBlockHeight.Set(float64(header.Height))
	ix.log.Info("block stored", "height", header.Height, "hash", header.Hash)
	return nil
}

func chunkRows(msg *types.StreamerMessage) []storage.ChunkRow {
	var rows []storage.ChunkRow
	for _, shard := range msg.Shards {
		if shard.Chunk == nil {
			continue
		}
		rows = append(rows, storage.ChunkRow{
			BlockHash: string(msg.Block.Header.Hash),
			Hash:      string(shard.Chunk.Header.ChunkHash),
			ShardID:   shard.Chunk.Header.ShardID,
			Signature: shard.Chunk.Header.Signature,
			GasLimit:  shard.Chunk.Header.GasLimit,
			GasUsed:   shard.Chunk.Header.GasUsed,
		})
	}
	return rows
}
