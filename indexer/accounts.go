package indexer

import (
	"context"

	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// accountCandidate accumulates the creation/deletion effects on one
// account within a single block.
type accountCandidate struct {
	accountID string
	createdBy *string
	deletedBy *string
	// implicit marks a 64-hex transfer recipient: its create effect may
	// only resurrect a deleted row, never touch a live one.
	implicit bool
}

// keyCandidate accumulates the effects on one (public key, account) pair
// within a single block.
type keyCandidate struct {
	publicKey  string
	accountID  string
	createdBy  *string
	deletedBy  *string
	permission types.AccessKeyPermissionKind
}

// storeAccounts derives account creations and deletions from the actions
// of executed receipts. Effects are merged per account so a create and a
// delete of the same account in one block land as a single row carrying
// both receipt ids.
func (ix *Indexer) storeAccounts(ctx context.Context, msg *types.StreamerMessage) error {
	blockHeight := msg.Block.Header.Height

	var (
		order      []string
		candidates = make(map[string]*accountCandidate)
	)
	upsert := func(accountID string) *accountCandidate {
		c, ok := candidates[accountID]
		if !ok {
			c = &accountCandidate{accountID: accountID}
			candidates[accountID] = c
			order = append(order, accountID)
		}
		return c
	}

	for _, shard := range msg.Shards {
		for _, outcome := range shard.ReceiptExecutionOutcomes {
			if !executionSucceeded(outcome.ExecutionOutcome.Outcome.Status) {
				continue
			}
			receipt := outcome.Receipt
			if receipt.Receipt.Action == nil {
				continue
			}
			receiptID := string(receipt.ReceiptID)
			for _, action := range receipt.Receipt.Action.Actions {
				switch action.Kind {
				case types.ActionCreateAccount:
					c := upsert(string(receipt.ReceiverID))
					c.createdBy = strPtr(receiptID)
					c.deletedBy = nil
					c.implicit = false
				case types.ActionTransfer:
					if !receipt.ReceiverID.IsImplicit() {
						continue
					}
					c := upsert(string(receipt.ReceiverID))
					if c.createdBy == nil {
						c.createdBy = strPtr(receiptID)
						c.implicit = true
					}
				case types.ActionDeleteAccount:
					c := upsert(string(receipt.ReceiverID))
					c.deletedBy = strPtr(receiptID)
				}
			}
		}
	}
	if len(order) == 0 {
		return nil
	}

	var (
		inserts  []storage.AccountRow
		updates  []*accountCandidate
		implicit []storage.AccountRow
	)
	for _, id := range order {
		c := candidates[id]
		row := storage.AccountRow{
			AccountID:             c.accountID,
			CreatedByReceiptID:    c.createdBy,
			DeletedByReceiptID:    c.deletedBy,
			LastUpdateBlockHeight: blockHeight,
		}
		switch {
		case c.implicit:
			implicit = append(implicit, row)
		case c.createdBy != nil:
			inserts = append(inserts, row)
			updates = append(updates, c)
		default:
			updates = append(updates, c)
		}
	}

	// Deletion-only candidates update existing rows first; then the
	// inserts land; then the guarded update pass wins over any stale row
	// the conflict-do-nothing insert left in place.
	for _, c := range updates {
		if c.createdBy == nil {
			if err := ix.stores.Accounts.MarkDeleted(ctx, c.accountID, c.deletedBy, blockHeight); err != nil {
				return err
			}
		}
	}
	if err := ix.stores.Accounts.Insert(ctx, inserts); err != nil {
		return err
	}
	for _, c := range updates {
		if c.createdBy == nil {
			continue
		}
		err := ix.stores.Accounts.Update(ctx, storage.AccountRow{
			AccountID:             c.accountID,
			CreatedByReceiptID:    c.createdBy,
			DeletedByReceiptID:    c.deletedBy,
			LastUpdateBlockHeight: blockHeight,
		})
		if err != nil {
			return err
		}
	}

	// Implicit accounts: the chain does not guarantee a 64-hex transfer
	// recipient did not already exist, so the create effect inserts fresh
	// rows and resurrects deleted ones but never rewrites a live row.
	if err := ix.stores.Accounts.Insert(ctx, implicit); err != nil {
		return err
	}
	for _, row := range implicit {
		if err := ix.stores.Accounts.ResurrectImplicit(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

// storeAccessKeys derives access key creations and deletions from the
// block's state changes caused by receipt processing.
func (ix *Indexer) storeAccessKeys(ctx context.Context, msg *types.StreamerMessage) error {
	blockHeight := msg.Block.Header.Height

	type pairKey struct{ publicKey, accountID string }
	var (
		order      []pairKey
		candidates = make(map[pairKey]*keyCandidate)
	)
	upsert := func(k pairKey) *keyCandidate {
		c, ok := candidates[k]
		if !ok {
			c = &keyCandidate{publicKey: k.publicKey, accountID: k.accountID}
			candidates[k] = c
			order = append(order, k)
		}
		return c
	}

	for _, shard := range msg.Shards {
		for _, change := range shard.StateChanges {
			if change.Cause.Kind != types.CauseReceiptProcessing {
				continue
			}
			switch change.Kind {
			case types.ChangeAccessKeyUpdate:
				view, err := change.DecodeAccessKey()
				if err != nil {
					return err
				}
				c := upsert(pairKey{view.PublicKey, string(view.AccountID)})
				c.createdBy = strPtr(string(change.Cause.ReceiptHash))
				c.deletedBy = nil
				if view.AccessKey != nil {
					c.permission = view.AccessKey.Permission.Kind
				}
			case types.ChangeAccessKeyDeletion:
				view, err := change.DecodeAccessKey()
				if err != nil {
					return err
				}
				c := upsert(pairKey{view.PublicKey, string(view.AccountID)})
				c.deletedBy = strPtr(string(change.Cause.ReceiptHash))
			}
		}
	}
	if len(order) == 0 {
		return nil
	}

	var (
		inserts []storage.AccessKeyRow
		created []*keyCandidate
	)
	for _, k := range order {
		c := candidates[k]
		if c.createdBy == nil {
			if err := ix.stores.AccessKeys.MarkDeleted(ctx, c.publicKey, c.accountID, c.deletedBy, blockHeight); err != nil {
				return err
			}
			continue
		}
		inserts = append(inserts, storage.AccessKeyRow{
			PublicKey:             c.publicKey,
			AccountID:             c.accountID,
			CreatedByReceiptID:    c.createdBy,
			DeletedByReceiptID:    c.deletedBy,
			PermissionKind:        string(c.permission),
			LastUpdateBlockHeight: blockHeight,
		})
		created = append(created, c)
	}
	if err := ix.stores.AccessKeys.Insert(ctx, inserts); err != nil {
		return err
	}
	for _, c := range created {
		err := ix.stores.AccessKeys.Update(ctx, storage.AccessKeyRow{
			PublicKey:             c.publicKey,
			AccountID:             c.accountID,
			CreatedByReceiptID:    c.createdBy,
			DeletedByReceiptID:    c.deletedBy,
			PermissionKind:        string(c.permission),
			LastUpdateBlockHeight: blockHeight,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// executionSucceeded reports whether the outcome status carries a success
// variant.
func executionSucceeded(s types.ExecutionStatusView) bool {
	return s.Kind == types.StatusSuccessValue || s.Kind == types.StatusSuccessReceiptID
}

func strPtr(s string) *string { return &s }
