package storage

import (
	"context"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/retry"
)

// Constraint names recognised by the event writers' benign predicate.
// A primary-key duplicate means the event was already ingested. The
// "unique" constraints deduplicate semantically identical events emitted
// twice by broken contracts; hitting one is success but worth a warning.
const (
	ftEventsPkey   = "fungible_token_events_pkey"
	ftEventsUnique = "fungible_token_events_unique"

	nftEventsPkey   = "non_fungible_token_events_pkey"
	nftEventsUnique = "non_fungible_token_events_unique"
)

// EventRepo persists FT and NFT event rows extracted from outcome logs.
// Unlike the other writers these inserts carry no ON CONFLICT clause; the
// retry predicate distinguishes the expected duplicate from the
// data-inconsistency duplicate.
type EventRepo struct {
	db       DB
	log      *log.Logger
	attempts int
}

// benignEventErr builds the predicate for one event table.
func (r *EventRepo) benignEventErr(pkey, unique string) retry.BenignFunc {
	return func(err error) bool {
		if IsUniqueViolation(err, pkey) {
			return true
		}
		if IsUniqueViolation(err, unique) {
			r.log.Warn("event already stored with different primary key, skipping",
				"constraint", unique, "error", err.Error())
			return true
		}
		return false
	}
}

const insertFTEventSQL = `
INSERT INTO fungible_token_events (emitted_for_receipt_id,
                                   emitted_at_block_timestamp,
                                   emitted_in_shard_id,
                                   emitted_index_of_event_entry_in_shard,
                                   emitted_by_contract_account_id, amount,
                                   event_kind, token_old_owner_account_id,
                                   token_new_owner_account_id, event_memo)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// InsertFungible persists NEP-141 event rows one at a time so a benign
// duplicate does not mask its batch neighbours.
func (r *EventRepo) InsertFungible(ctx context.Context, rows []FungibleTokenEventRow) error {
	benign := r.benignEventErr(ftEventsPkey, ftEventsUnique)
	for _, row := range rows {
		row := row
		err := retry.Do(ctx, "insert_fungible_token_event", r.attempts, benign, func(ctx context.Context) error {
			_, err := r.db.Exec(ctx, insertFTEventSQL,
				row.EmittedForReceiptID, row.EmittedAtBlockTimestamp,
				row.EmittedInShardID, row.EmittedIndexOfEventEntry,
				row.EmittedByContractAccountID, row.Amount, row.EventKind,
				row.TokenOldOwnerAccountID, row.TokenNewOwnerAccountID,
				row.EventMemo)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

const insertNFTEventSQL = `
INSERT INTO non_fungible_token_events (emitted_for_receipt_id,
                                       emitted_at_block_timestamp,
                                       emitted_in_shard_id,
                                       emitted_index_of_event_entry_in_shard,
                                       emitted_by_contract_account_id,
                                       token_id, event_kind,
                                       token_old_owner_account_id,
                                       token_new_owner_account_id,
                                       token_authorized_account_id, event_memo)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// InsertNonFungible persists NEP-171 event rows.
func (r *EventRepo) InsertNonFungible(ctx context.Context, rows []NonFungibleTokenEventRow) error {
	benign := r.benignEventErr(nftEventsPkey, nftEventsUnique)
	for _, row := range rows {
		row := row
		err := retry.Do(ctx, "insert_non_fungible_token_event", r.attempts, benign, func(ctx context.Context) error {
			_, err := r.db.Exec(ctx, insertNFTEventSQL,
				row.EmittedForReceiptID, row.EmittedAtBlockTimestamp,
				row.EmittedInShardID, row.EmittedIndexOfEventEntry,
				row.EmittedByContractAccountID, row.TokenID, row.EventKind,
				row.TokenOldOwnerAccountID, row.TokenNewOwnerAccountID,
				row.TokenAuthorizedAccountID, row.EventMemo)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
