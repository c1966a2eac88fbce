package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// ChunkRepo persists per-chunk rows keyed to the containing block hash.
type ChunkRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertChunkSQL = `
INSERT INTO chunks (included_in_block_hash, chunk_hash, shard_id, signature,
                    gas_limit, gas_used)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT DO NOTHING`

// Store batch-inserts one row per chunk.
func (r *ChunkRepo) Store(ctx context.Context, rows []ChunkRow) error {
	if len(rows) == 0 {
		return nil
	}
	return retry.Do(ctx, "insert_chunks", r.attempts, nil, func(ctx context.Context) error {
		b := &pgx.Batch{}
		for _, row := range rows {
			b.Queue(insertChunkSQL,
				row.BlockHash, row.Hash, row.ShardID, row.Signature,
				row.GasLimit, row.GasUsed)
		}
		return sendBatch(ctx, r.db, b)
	})
}
