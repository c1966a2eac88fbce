package events

import (
	"testing"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/types"
)

func outcomeWithLogs(receiptID types.CryptoHash, executor types.AccountID, logs ...string) types.ExecutionOutcomeWithReceipt {
	return types.ExecutionOutcomeWithReceipt{
		ExecutionOutcome: types.ExecutionOutcomeWithID{
			ID: receiptID,
			Outcome: types.ExecutionOutcomeView{
				Logs:       logs,
				ExecutorID: executor,
			},
		},
	}
}

func newTestExtractor() *Extractor {
	return NewExtractor(nil, log.Default())
}

func TestExtractShard_FTMint(t *testing.T) {
	shard := types.ShardView{
		ShardID: 2,
		ReceiptExecutionOutcomes: []types.ExecutionOutcomeWithReceipt{
			outcomeWithLogs("r1", "token.near",
				`EVENT_JSON:{"standard":"nep141","version":"1.0.0","event":"ft_mint","data":[{"owner_id":"alice.near","amount":"100"}]}`),
		},
	}
	ft, nft := newTestExtractor().ExtractShard(shard, 999)
	if len(nft) != 0 {
		t.Fatalf("nft rows = %d", len(nft))
	}
	if len(ft) != 1 {
		t.Fatalf("ft rows = %d", len(ft))
	}
	row := ft[0]
	if row.EventKind != "MINT" || row.Amount != "100" {
		t.Fatalf("row = %+v", row)
	}
	if row.TokenOldOwnerAccountID != "" || row.TokenNewOwnerAccountID != "alice.near" {
		t.Fatalf("owners = %q -> %q", row.TokenOldOwnerAccountID, row.TokenNewOwnerAccountID)
	}
	if row.EmittedInShardID != 2 || row.EmittedAtBlockTimestamp != 999 {
		t.Fatalf("row = %+v", row)
	}
	if row.EmittedByContractAccountID != "token.near" {
		t.Fatalf("contract = %s", row.EmittedByContractAccountID)
	}
}

func TestExtractShard_FTTransferOwners(t *testing.T) {
	shard := types.ShardView{
		ReceiptExecutionOutcomes: []types.ExecutionOutcomeWithReceipt{
			outcomeWithLogs("r1", "token.near",
				`EVENT_JSON:{"standard":"nep141","version":"1.0.0","event":"ft_transfer","data":[{"old_owner_id":"a.near","new_owner_id":"b.near","amount":"7","memo":"hi"}]}`),
		},
	}
	ft, _ := newTestExtractor().ExtractShard(shard, 1)
	if len(ft) != 1 {
		t.Fatalf("ft rows = %d", len(ft))
	}
	if ft[0].TokenOldOwnerAccountID != "a.near" || ft[0].TokenNewOwnerAccountID != "b.near" {
		t.Fatalf("owners = %+v", ft[0])
	}
	if ft[0].EventMemo != "hi" {
		t.Fatalf("memo = %q", ft[0].EventMemo)
	}
}

func TestExtractShard_NFTOneRowPerToken(t *testing.T) {
	shard := types.ShardView{
		ReceiptExecutionOutcomes: []types.ExecutionOutcomeWithReceipt{
			outcomeWithLogs("r1", "nft.near",
				`EVENT_JSON:{"standard":"nep171","version":"1.0.0","event":"nft_transfer","data":[{"old_owner_id":"a.near","new_owner_id":"b.near","authorized_id":"mkt.near","token_ids":["t1","t2","t3"]}]}`),
		},
	}
	_, nft := newTestExtractor().ExtractShard(shard, 1)
	if len(nft) != 3 {
		t.Fatalf("nft rows = %d, want one per token", len(nft))
	}
	for i, row := range nft {
		if row.EmittedIndexOfEventEntry != int32(i) {
			t.Fatalf("row %d index = %d", i, row.EmittedIndexOfEventEntry)
		}
		if row.TokenAuthorizedAccountID != "mkt.near" {
			t.Fatalf("authorized = %q", row.TokenAuthorizedAccountID)
		}
	}
	if nft[1].TokenID != "t2" {
		t.Fatalf("token id = %s", nft[1].TokenID)
	}
}

func TestExtractShard_IndexMonotonicAcrossOutcomes(t *testing.T) {
	shard := types.ShardView{
		ReceiptExecutionOutcomes: []types.ExecutionOutcomeWithReceipt{
			outcomeWithLogs("r1", "token.near",
				`EVENT_JSON:{"standard":"nep141","version":"1.0.0","event":"ft_mint","data":[{"owner_id":"a.near","amount":"1"},{"owner_id":"b.near","amount":"2"}]}`),
			outcomeWithLogs("r2", "token.near",
				`EVENT_JSON:{"standard":"nep141","version":"1.0.0","event":"ft_burn","data":[{"owner_id":"a.near","amount":"1"}]}`),
		},
	}
	ft, _ := newTestExtractor().ExtractShard(shard, 1)
	if len(ft) != 3 {
		t.Fatalf("ft rows = %d", len(ft))
	}
	for i, row := range ft {
		if row.EmittedIndexOfEventEntry != int32(i) {
			t.Fatalf("row %d index = %d, want monotonic counter", i, row.EmittedIndexOfEventEntry)
		}
	}
	if ft[2].EventKind != "BURN" || ft[2].TokenOldOwnerAccountID != "a.near" {
		t.Fatalf("burn row = %+v", ft[2])
	}
}

func TestExtractShard_IgnoresNoise(t *testing.T) {
	shard := types.ShardView{
		ReceiptExecutionOutcomes: []types.ExecutionOutcomeWithReceipt{
			outcomeWithLogs("r1", "app.near",
				"plain log line",
				"EVENT_JSON:not json at all",
				`EVENT_JSON:{"standard":"nep999","version":"1.0.0","event":"ft_mint","data":[]}`,
				`  EVENT_JSON:{"standard":"nep141","version":"1.0.0","event":"ft_mint","data":[{"owner_id":"a.near","amount":"1"}]}`),
		},
	}
	ft, nft := newTestExtractor().ExtractShard(shard, 1)
	if len(nft) != 0 {
		t.Fatalf("nft rows = %d", len(nft))
	}
	// Only the last line is a valid nep141 event; leading whitespace is
	// trimmed before the prefix check.
	if len(ft) != 1 {
		t.Fatalf("ft rows = %d", len(ft))
	}
}

func TestExtractShard_UnknownEventKindSkipped(t *testing.T) {
	shard := types.ShardView{
		ReceiptExecutionOutcomes: []types.ExecutionOutcomeWithReceipt{
			outcomeWithLogs("r1", "token.near",
				`EVENT_JSON:{"standard":"nep141","version":"1.0.0","event":"ft_lock","data":[{"owner_id":"a.near","amount":"1"}]}`),
		},
	}
	ft, _ := newTestExtractor().ExtractShard(shard, 1)
	if len(ft) != 0 {
		t.Fatalf("ft rows = %d, want 0 for unknown kind", len(ft))
	}
}
