package indexer

import (
	"context"

	"github.com/nearscan/nearscan/cache"
	"github.com/nearscan/nearscan/retry"
	"github.com/nearscan/nearscan/types"
)

// chunkReceipt pairs a receipt view with its position in the chunk that
// carried it.
type chunkReceipt struct {
	view         types.ReceiptView
	chunkHash    string
	indexInChunk int32
}

// resolution is the outcome of the parent-transaction search for one
// block's receipts: the resolved (receipt-id -> tx-hash) bindings and the
// receipts that stayed unresolved within the retry budget.
type resolution struct {
	parents    map[types.CryptoHash]string
	unresolved []chunkReceipt
}

// resolveParents finds the originating transaction hash of every receipt
// through four tiers: the in-process cache, the data-output join, the
// execution-outcome join, and the converted-into-receipt column of
// transactions. Receipts whose producer block is still being written land
// here before their parent is visible, so unresolved remainders are
// retried with exponential backoff: indefinitely in strict mode, for a
// bounded number of rounds otherwise.
func (ix *Indexer) resolveParents(ctx context.Context, receipts []chunkReceipt) (resolution, error) {
	res := resolution{parents: make(map[types.CryptoHash]string, len(receipts))}

	pending := ix.resolveFromCache(receipts, res.parents)
	if len(pending) == 0 {
		return res, nil
	}

	backoff := retry.NewBackoff()
	for round := 0; ; round++ {
		var err error
		pending, err = ix.resolveFromStorage(ctx, pending, res.parents)
		if err != nil {
			return res, err
		}
		if len(pending) == 0 {
			return res, nil
		}
		if !ix.cfg.Strict && round >= ix.cfg.NonStrictRetryBudget {
			res.unresolved = pending
			return res, nil
		}
		ix.log.Debug("receipts still unresolved, backing off",
			"count", len(pending), "round", round+1)
		if err := backoff.Sleep(ctx); err != nil {
			return res, err
		}
	}
}

// resolveFromCache is tier 1. Data-id entries are consumed on read; a
// data receipt appears in exactly one block, so its binding is dead after
// this lookup.
func (ix *Indexer) resolveFromCache(receipts []chunkReceipt, parents map[types.CryptoHash]string) []chunkReceipt {
	var pending []chunkReceipt
	for _, r := range receipts {
		var (
			tx string
			ok bool
		)
		if r.view.Receipt.Kind() == types.ReceiptKindData {
			tx, ok = ix.cache.Take(cache.DataID(r.view.Receipt.Data.DataID))
		} else {
			tx, ok = ix.cache.Get(cache.ReceiptID(r.view.ReceiptID))
		}
		if ok {
			parents[r.view.ReceiptID] = tx
		} else {
			pending = append(pending, r)
		}
	}
	return pending
}

// resolveFromStorage runs tiers 2 through 4 once and returns the receipts
// that remain unresolved.
func (ix *Indexer) resolveFromStorage(ctx context.Context, pending []chunkReceipt, parents map[types.CryptoHash]string) ([]chunkReceipt, error) {
	var dataIDs, actionIDs []string
	for _, r := range pending {
		if r.view.Receipt.Kind() == types.ReceiptKindData {
			dataIDs = append(dataIDs, string(r.view.Receipt.Data.DataID))
		} else {
			actionIDs = append(actionIDs, string(r.view.ReceiptID))
		}
	}

	// Tier 2: a data receipt's parent is the parent of the action receipt
	// that declared the data id as output.
	byDataID := map[string]string{}
	if len(dataIDs) > 0 {
		var err error
		byDataID, err = ix.stores.Receipts.ParentTxForDataIDs(ctx, dataIDs)
		if err != nil {
			return nil, err
		}
	}

	// Tier 3: the receipt was produced by an already-stored execution
	// outcome whose executed receipt has a known parent.
	byReceiptID := map[string]string{}
	if len(actionIDs) > 0 {
		var err error
		byReceiptID, err = ix.stores.Outcomes.ParentTxForProduced(ctx, actionIDs)
		if err != nil {
			return nil, err
		}
	}

	var remaining []chunkReceipt
	var tier4IDs []string
	for _, r := range pending {
		if r.view.Receipt.Kind() == types.ReceiptKindData {
			if tx, ok := byDataID[string(r.view.Receipt.Data.DataID)]; ok {
				parents[r.view.ReceiptID] = tx
			} else {
				remaining = append(remaining, r)
			}
			continue
		}
		if tx, ok := byReceiptID[string(r.view.ReceiptID)]; ok {
			parents[r.view.ReceiptID] = tx
			continue
		}
		remaining = append(remaining, r)
		tier4IDs = append(tier4IDs, string(r.view.ReceiptID))
	}
	if len(tier4IDs) == 0 {
		return remaining, nil
	}

	// Tier 4: the receipt is the direct conversion of a transaction.
	byConverted, err := ix.stores.Transactions.ParentTxForConverted(ctx, tier4IDs)
	if err != nil {
		return nil, err
	}
	var unresolved []chunkReceipt
	for _, r := range remaining {
		if r.view.Receipt.Kind() != types.ReceiptKindData {
			if tx, ok := byConverted[string(r.view.ReceiptID)]; ok {
				parents[r.view.ReceiptID] = tx
				continue
			}
		}
		unresolved = append(unresolved, r)
	}
	return unresolved, nil
}
