// Package events extracts NEP-141 (fungible token) and NEP-171
// (non-fungible token) events from execution outcome logs and persists
// them. An event is any log line that, after trimming, starts with the
// literal prefix "EVENT_JSON:" followed by a tagged JSON document.
package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nearscan/nearscan/log"
	"github.com/nearscan/nearscan/storage"
	"github.com/nearscan/nearscan/types"
)

// Prefix marks an event log line.
const Prefix = "EVENT_JSON:"

// Event standards recognised by the extractor.
const (
	StandardFT  = "nep141"
	StandardNFT = "nep171"
)

// EventKind is the persisted event classification.
type EventKind string

const (
	KindMint     EventKind = "MINT"
	KindTransfer EventKind = "TRANSFER"
	KindBurn     EventKind = "BURN"
)

// rawEvent is the top-level tagged-union event document.
type rawEvent struct {
	Standard string          `json:"standard"`
	Version  string          `json:"version"`
	Event    string          `json:"event"`
	Data     json.RawMessage `json:"data"`
}

// ftDataEntry is one element of a nep141 data array. Mint and burn carry
// owner_id; transfer carries old/new owner.
type ftDataEntry struct {
	OwnerID    types.AccountID `json:"owner_id"`
	OldOwnerID types.AccountID `json:"old_owner_id"`
	NewOwnerID types.AccountID `json:"new_owner_id"`
	Amount     string          `json:"amount"`
	Memo       string          `json:"memo"`
}

// nftDataEntry is one element of a nep171 data array; it expands into one
// row per token id.
type nftDataEntry struct {
	OwnerID      types.AccountID `json:"owner_id"`
	OldOwnerID   types.AccountID `json:"old_owner_id"`
	NewOwnerID   types.AccountID `json:"new_owner_id"`
	AuthorizedID types.AccountID `json:"authorized_id"`
	TokenIDs     []string        `json:"token_ids"`
	Memo         string          `json:"memo"`
}

// Extractor parses shard outcomes into event rows and persists them.
type Extractor struct {
	events *storage.EventRepo
	log    *log.Logger
}

// NewExtractor creates an Extractor writing through repo.
func NewExtractor(repo *storage.EventRepo, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{events: repo, log: logger.Module("events")}
}

// Store extracts all events of a block's shards and persists them.
func (e *Extractor) Store(ctx context.Context, shards []types.ShardView, blockTimestamp uint64) error {
	for _, shard := range shards {
		ft, nft := e.ExtractShard(shard, blockTimestamp)
		if err := e.events.InsertFungible(ctx, ft); err != nil {
			return err
		}
		if err := e.events.InsertNonFungible(ctx, nft); err != nil {
			return err
		}
	}
	return nil
}

// ExtractShard parses every outcome log line of one shard. The
// index-in-shard counter increases monotonically across all event entries
// of the shard, in outcome order.
func (e *Extractor) ExtractShard(shard types.ShardView, blockTimestamp uint64) ([]storage.FungibleTokenEventRow, []storage.NonFungibleTokenEventRow) {
	var (
		ft    []storage.FungibleTokenEventRow
		nft   []storage.NonFungibleTokenEventRow
		index int32
	)
	for _, outcome := range shard.ReceiptExecutionOutcomes {
		receiptID := string(outcome.ExecutionOutcome.ID)
		contract := string(outcome.ExecutionOutcome.Outcome.ExecutorID)
		for _, line := range outcome.ExecutionOutcome.Outcome.Logs {
			raw, ok := parseEventLine(line)
			if !ok {
				continue
			}
			switch raw.Standard {
			case StandardFT:
				rows, n := e.fungibleRows(raw, receiptID, contract, shard.ShardID, blockTimestamp, index)
				ft = append(ft, rows...)
				index += n
			case StandardNFT:
				rows, n := e.nonFungibleRows(raw, receiptID, contract, shard.ShardID, blockTimestamp, index)
				nft = append(nft, rows...)
				index += n
			default:
				e.log.Debug("ignoring event with unknown standard",
					"standard", raw.Standard, "receipt_id", receiptID)
			}
		}
	}
	return ft, nft
}

// parseEventLine recognises and decodes an EVENT_JSON line. Malformed
// documents are reported by the caller side effect of a false return.
func parseEventLine(line string) (rawEvent, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, Prefix) {
		return rawEvent{}, false
	}
	payload := trimmed[len(Prefix):]
	var raw rawEvent
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		log.Warn("malformed EVENT_JSON log line", "error", err.Error())
		return rawEvent{}, false
	}
	return raw, true
}

// eventKind maps the wire event name to the persisted kind for one
// standard's prefix ("ft" or "nft").
func eventKind(event, prefix string) (EventKind, bool) {
	switch event {
	case prefix + "_mint":
		return KindMint, true
	case prefix + "_transfer":
		return KindTransfer, true
	case prefix + "_burn":
		return KindBurn, true
	default:
		return "", false
	}
}

func (e *Extractor) fungibleRows(raw rawEvent, receiptID, contract string, shardID, blockTimestamp uint64, startIndex int32) ([]storage.FungibleTokenEventRow, int32) {
	kind, ok := eventKind(raw.Event, "ft")
	if !ok {
		e.log.Debug("unknown nep141 event kind", "event", raw.Event, "receipt_id", receiptID)
		return nil, 0
	}
	var entries []ftDataEntry
	if err := json.Unmarshal(raw.Data, &entries); err != nil {
		e.log.Warn("malformed nep141 event data", "receipt_id", receiptID, "error", err.Error())
		return nil, 0
	}
	rows := make([]storage.FungibleTokenEventRow, 0, len(entries))
	index := startIndex
	for _, entry := range entries {
		oldOwner, newOwner := entryOwners(kind, entry.OwnerID, entry.OldOwnerID, entry.NewOwnerID)
		rows = append(rows, storage.FungibleTokenEventRow{
			EmittedForReceiptID:        receiptID,
			EmittedAtBlockTimestamp:    blockTimestamp,
			EmittedInShardID:           shardID,
			EmittedIndexOfEventEntry:   index,
			EmittedByContractAccountID: contract,
			Amount:                     entry.Amount,
			EventKind:                  string(kind),
			TokenOldOwnerAccountID:     string(oldOwner),
			TokenNewOwnerAccountID:     string(newOwner),
			EventMemo:                  entry.Memo,
		})
		index++
	}
	return rows, index - startIndex
}

func (e *Extractor) nonFungibleRows(raw rawEvent, receiptID, contract string, shardID, blockTimestamp uint64, startIndex int32) ([]storage.NonFungibleTokenEventRow, int32) {
	kind, ok := eventKind(raw.Event, "nft")
	if !ok {
		e.log.Debug("unknown nep171 event kind", "event", raw.Event, "receipt_id", receiptID)
		return nil, 0
	}
	var entries []nftDataEntry
	if err := json.Unmarshal(raw.Data, &entries); err != nil {
		e.log.Warn("malformed nep171 event data", "receipt_id", receiptID, "error", err.Error())
		return nil, 0
	}
	var rows []storage.NonFungibleTokenEventRow
	index := startIndex
	for _, entry := range entries {
		oldOwner, newOwner := entryOwners(kind, entry.OwnerID, entry.OldOwnerID, entry.NewOwnerID)
		for _, tokenID := range entry.TokenIDs {
			rows = append(rows, storage.NonFungibleTokenEventRow{
				EmittedForReceiptID:        receiptID,
				EmittedAtBlockTimestamp:    blockTimestamp,
				EmittedInShardID:           shardID,
				EmittedIndexOfEventEntry:   index,
				EmittedByContractAccountID: contract,
				TokenID:                    tokenID,
				EventKind:                  string(kind),
				TokenOldOwnerAccountID:     string(oldOwner),
				TokenNewOwnerAccountID:     string(newOwner),
				TokenAuthorizedAccountID:   string(entry.AuthorizedID),
				EventMemo:                  entry.Memo,
			})
			index++
		}
	}
	return rows, index - startIndex
}

// entryOwners normalizes the owner fields: mint has only a new owner,
// burn only an old owner, transfer both.
func entryOwners(kind EventKind, owner, oldOwner, newOwner types.AccountID) (types.AccountID, types.AccountID) {
	switch kind {
	case KindMint:
		return "", owner
	case KindBurn:
		return owner, ""
	default:
		return oldOwner, newOwner
	}
}
