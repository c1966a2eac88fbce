package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// SupplyRepo persists the daily circulating-supply rows and enumerates the
// lockup contracts live at a given height via the accounts projection.
type SupplyRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

const insertSupplySQL = `
INSERT INTO aggregated__circulating_supply (computed_at_block_timestamp,
                                            computed_at_block_hash,
                                            circulating_tokens_supply,
                                            total_tokens_supply,
                                            total_lockup_contracts_count,
                                            unfinished_lockup_contracts_count,
                                            foundation_locked_tokens,
                                            lockups_locked_tokens)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT DO NOTHING`

// Insert stores one aggregated row, conflict-do-nothing on the block
// timestamp key.
func (r *SupplyRepo) Insert(ctx context.Context, row CirculatingSupplyRow) error {
	return retry.Do(ctx, "insert_circulating_supply", r.attempts, nil, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, insertSupplySQL,
			row.ComputedAtBlockTimestamp, row.ComputedAtBlockHash,
			row.CirculatingTokensSupply, row.TotalTokensSupply,
			row.TotalLockupContractsCount, row.UnfinishedLockupContractsCount,
			row.FoundationLockedTokens, row.LockupsLockedTokens)
		return err
	})
}

// Exists reports whether a row was already computed for the given block
// timestamp, meaning the day is done and the engine should advance.
func (r *SupplyRepo) Exists(ctx context.Context, blockTimestamp uint64) (bool, error) {
	var ts uint64
	err := r.db.QueryRow(ctx, `
SELECT computed_at_block_timestamp
FROM aggregated__circulating_supply
WHERE computed_at_block_timestamp = $1`, blockTimestamp).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "circulating supply exists")
	}
	return true, nil
}

// LiveLockups returns the account ids of lockup contracts created but not
// deleted as of blockHeight, from the aggregated__lockups projection over
// accounts.
func (r *SupplyRepo) LiveLockups(ctx context.Context, blockHeight uint64) ([]string, error) {
	rows, err := r.db.Query(ctx, `
SELECT account_id
FROM aggregated__lockups
WHERE creation_block_height <= $1
  AND (deletion_block_height IS NULL OR deletion_block_height > $1)`, blockHeight)
	if err != nil {
		return nil, errors.Wrap(err, "live lockups")
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan lockup account id")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
