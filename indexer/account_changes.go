package indexer

import (
	"context"
	"strings"

	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// storeAccountChanges persists one row per account-affecting state change
// of the block. The index-in-block counter is assigned in shard order and
// is what makes replayed blocks idempotent under the natural key.
func (ix *Indexer) storeAccountChanges(ctx context.Context, msg *types.StreamerMessage) error {
	blockHash := string(msg.Block.Header.Hash)
	blockTimestamp := uint64(msg.Block.Header.Timestamp)

	var (
		rows  []storage.AccountChangeRow
		index int32
	)
	for _, shard := range msg.Shards {
		for _, change := range shard.StateChanges {
			if change.Kind != types.ChangeAccountUpdate && change.Kind != types.ChangeAccountDeletion {
				continue
			}
			view, err := change.DecodeAccount()
			if err != nil {
				return err
			}
			row := storage.AccountChangeRow{
				BlockHash:               blockHash,
				IndexInBlock:            index,
				AffectedAccountID:       string(view.AccountID),
				ChangedInBlockTimestamp: blockTimestamp,
				UpdateReason:            updateReason(change.Cause.Kind),
				NonstakedBalance:        view.Amount.String(),
				StakedBalance:           view.Locked.String(),
				StorageUsage:            view.StorageUsage,
			}
			if change.Cause.TxHash != "" {
				row.CausedByTransactionHash = strPtr(string(change.Cause.TxHash))
			}
			if change.Cause.ReceiptHash != "" {
				row.CausedByReceiptID = strPtr(string(change.Cause.ReceiptHash))
			}
			rows = append(rows, row)
			index++
		}
	}
	return ix.stores.AccountChanges.Insert(ctx, rows)
}

// updateReason maps a wire cause kind to the persisted reason tag.
func updateReason(kind types.StateChangeCauseKind) string {
	return strings.ToUpper(string(kind))
}
