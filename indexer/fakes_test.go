package indexer

import (
	"context"
	"sync"

	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// fakeStores backs every store view in memory and records the rows each
// writer produced. Query behaviour is driven by the lookup maps;
// queryCounts tracks which resolver tiers touched storage.
type fakeStores struct {
	mu sync.Mutex

	blocks         []storage.BlockRow
	chunks         []storage.ChunkRow
	txs            []storage.TransactionRow
	txActions      []storage.TransactionActionRow
	receipts       []storage.ReceiptRow
	actionReceipts []storage.ActionReceiptRow
	receiptActions []storage.ActionReceiptActionRow
	inputData      []storage.ActionReceiptInputDataRow
	outputData     []storage.ActionReceiptOutputDataRow
	dataReceipts   []storage.DataReceiptRow
	outcomes       []storage.ExecutionOutcomeRow
	outcomeEdges   []storage.ExecutionOutcomeReceiptRow
	accounts       []storage.AccountRow
	accountOps     []string
	accessKeys     []storage.AccessKeyRow
	accessKeyOps   []string
	accountChanges []storage.AccountChangeRow
	eventShards    int

	// collisions lists converted-into receipt ids whose transaction insert
	// is pretended to have been swallowed by a pre-existing row. Consumed
	// on first query, as a real rescue re-insert would resolve them.
	collisions map[string]struct{}

	parentByData      map[string]string
	parentByProduced  map[string]string
	parentByConverted map[string]string

	queryCounts map[string]int
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		collisions:        map[string]struct{}{},
		parentByData:      map[string]string{},
		parentByProduced:  map[string]string{},
		parentByConverted: map[string]string{},
		queryCounts:       map[string]int{},
	}
}

func (f *fakeStores) stores() Stores {
	return Stores{
		Blocks:         fakeBlocks{f},
		Chunks:         fakeChunks{f},
		Transactions:   fakeTransactions{f},
		Receipts:       fakeReceipts{f},
		Outcomes:       fakeOutcomes{f},
		Accounts:       fakeAccounts{f},
		AccessKeys:     fakeAccessKeys{f},
		AccountChanges: fakeAccountChanges{f},
		Events:         fakeEvents{f},
	}
}

func (f *fakeStores) count(tier string) {
	f.mu.Lock()
	f.queryCounts[tier]++
	f.mu.Unlock()
}

func (f *fakeStores) tierQueries(tier string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCounts[tier]
}

type fakeBlocks struct{ *fakeStores }

func (f fakeBlocks) Store(ctx context.Context, row storage.BlockRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks = append(f.blocks, row)
	return nil
}

type fakeChunks struct{ *fakeStores }

func (f fakeChunks) Store(ctx context.Context, rows []storage.ChunkRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, rows...)
	return nil
}

type fakeTransactions struct{ *fakeStores }

func (f fakeTransactions) Insert(ctx context.Context, rows []storage.TransactionRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, rows...)
	return nil
}

func (f fakeTransactions) InsertActions(ctx context.Context, rows []storage.TransactionActionRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txActions = append(f.txActions, rows...)
	return nil
}

func (f fakeTransactions) StoredConvertedReceiptIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, collided := f.collisions[id]; !collided {
			out[id] = struct{}{}
		}
	}
	for k := range f.collisions {
		delete(f.collisions, k)
	}
	return out, nil
}

func (f fakeTransactions) ParentTxForConverted(ctx context.Context, receiptIDs []string) (map[string]string, error) {
	f.count("tier4")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for _, id := range receiptIDs {
		if tx, ok := f.parentByConverted[id]; ok {
			out[id] = tx
		}
	}
	return out, nil
}

type fakeReceipts struct{ *fakeStores }

func (f fakeReceipts) Insert(ctx context.Context, rows []storage.ReceiptRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts = append(f.receipts, rows...)
	return nil
}

func (f fakeReceipts) InsertActionReceipts(ctx context.Context, rows []storage.ActionReceiptRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actionReceipts = append(f.actionReceipts, rows...)
	return nil
}

func (f fakeReceipts) InsertActionReceiptActions(ctx context.Context, rows []storage.ActionReceiptActionRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receiptActions = append(f.receiptActions, rows...)
	return nil
}

func (f fakeReceipts) InsertInputData(ctx context.Context, rows []storage.ActionReceiptInputDataRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputData = append(f.inputData, rows...)
	return nil
}

func (f fakeReceipts) InsertOutputData(ctx context.Context, rows []storage.ActionReceiptOutputDataRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputData = append(f.outputData, rows...)
	return nil
}

func (f fakeReceipts) InsertDataReceipts(ctx context.Context, rows []storage.DataReceiptRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dataReceipts = append(f.dataReceipts, rows...)
	return nil
}

func (f fakeReceipts) ParentTxForDataIDs(ctx context.Context, dataIDs []string) (map[string]string, error) {
	f.count("tier2")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for _, id := range dataIDs {
		if tx, ok := f.parentByData[id]; ok {
			out[id] = tx
		}
	}
	return out, nil
}

func (f fakeReceipts) ExistingReceiptIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	known := make(map[string]struct{}, len(f.receipts))
	for _, row := range f.receipts {
		known[row.ReceiptID] = struct{}{}
	}
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := known[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

type fakeOutcomes struct{ *fakeStores }

func (f fakeOutcomes) Insert(ctx context.Context, rows []storage.ExecutionOutcomeRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, rows...)
	return nil
}

func (f fakeOutcomes) InsertReceiptEdges(ctx context.Context, rows []storage.ExecutionOutcomeReceiptRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomeEdges = append(f.outcomeEdges, rows...)
	return nil
}

func (f fakeOutcomes) ParentTxForProduced(ctx context.Context, receiptIDs []string) (map[string]string, error) {
	f.count("tier3")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for _, id := range receiptIDs {
		if tx, ok := f.parentByProduced[id]; ok {
			out[id] = tx
		}
	}
	return out, nil
}

type fakeAccounts struct{ *fakeStores }

func (f fakeAccounts) Insert(ctx context.Context, rows []storage.AccountRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, rows...)
	for _, row := range rows {
		f.accountOps = append(f.accountOps, "insert:"+row.AccountID)
	}
	return nil
}

func (f fakeAccounts) MarkDeleted(ctx context.Context, accountID string, deletedBy *string, height uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountOps = append(f.accountOps, "mark_deleted:"+accountID)
	return nil
}

func (f fakeAccounts) Update(ctx context.Context, row storage.AccountRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountOps = append(f.accountOps, "update:"+row.AccountID)
	return nil
}

func (f fakeAccounts) ResurrectImplicit(ctx context.Context, row storage.AccountRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountOps = append(f.accountOps, "resurrect:"+row.AccountID)
	return nil
}

type fakeAccessKeys struct{ *fakeStores }

func (f fakeAccessKeys) Insert(ctx context.Context, rows []storage.AccessKeyRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessKeys = append(f.accessKeys, rows...)
	for _, row := range rows {
		f.accessKeyOps = append(f.accessKeyOps, "insert:"+row.PublicKey+"@"+row.AccountID)
	}
	return nil
}

func (f fakeAccessKeys) MarkDeleted(ctx context.Context, publicKey, accountID string, deletedBy *string, height uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessKeyOps = append(f.accessKeyOps, "mark_deleted:"+publicKey+"@"+accountID)
	return nil
}

func (f fakeAccessKeys) Update(ctx context.Context, row storage.AccessKeyRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessKeyOps = append(f.accessKeyOps, "update:"+row.PublicKey+"@"+row.AccountID)
	return nil
}

type fakeAccountChanges struct{ *fakeStores }

func (f fakeAccountChanges) Insert(ctx context.Context, rows []storage.AccountChangeRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountChanges = append(f.accountChanges, rows...)
	return nil
}

type fakeEvents struct{ *fakeStores }

func (f fakeEvents) Store(ctx context.Context, shards []types.ShardView, blockTimestamp uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.eventShards += len(shards)
	return nil
}
