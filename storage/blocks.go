package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// BlockRepo persists block header rows and answers height/timestamp
// lookups for the streamer start modes and the supply engine.
type BlockRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertBlockSQL = `
INSERT INTO blocks (block_height, block_hash, prev_block_hash, block_timestamp,
                    total_supply, gas_price, author_account_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT DO NOTHING`

// Store idempotently inserts the block header row.
func (r *BlockRepo) Store(ctx context.Context, row BlockRow) error {
	return retry.Do(ctx, "insert_block", r.attempts, nil, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, insertBlockSQL,
			row.Height, row.Hash, row.PrevHash, row.Timestamp,
			row.TotalSupply, row.GasPrice, row.AuthorAccountID)
		return err
	})
}

// LatestHeight returns the largest stored block height. ErrNotFound when
// the blocks table is empty.
func (r *BlockRepo) LatestHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := r.db.QueryRow(ctx,
		`SELECT block_height FROM blocks ORDER BY block_height DESC LIMIT 1`,
	).Scan(&height)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrap(err, "latest height")
	}
	return height, nil
}

// LatestBefore returns the block with the largest timestamp not exceeding
// timestampNs. ErrNotFound when no such block exists.
func (r *BlockRepo) LatestBefore(ctx context.Context, timestampNs uint64) (BlockRow, error) {
	var row BlockRow
	err := r.db.QueryRow(ctx, `
SELECT block_height, block_hash, prev_block_hash, block_timestamp,
       total_supply, gas_price, author_account_id
FROM blocks
WHERE block_timestamp <= $1
ORDER BY block_timestamp DESC
LIMIT 1`, timestampNs,
	).Scan(&row.Height, &row.Hash, &row.PrevHash, &row.Timestamp,
		&row.TotalSupply, &row.GasPrice, &row.AuthorAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return BlockRow{}, ErrNotFound
	}
	if err != nil {
		return BlockRow{}, errors.Wrap(err, "latest block before timestamp")
	}
	return row, nil
}
