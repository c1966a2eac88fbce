package storage

// Row models, one per table. Numeric(…) columns that can exceed 64 bits
// travel as decimal strings; pgx encodes them into numeric natively.

// BlockRow is one row of the blocks table.
type BlockRow struct {
	Height          uint64
	Hash            string
	PrevHash        string
	Timestamp       uint64
	TotalSupply     string
	GasPrice        string
	AuthorAccountID string
}

// ChunkRow is one row of the chunks table.
type ChunkRow struct {
	BlockHash string
	Hash      string
	ShardID   uint64
	Signature string
	GasLimit  uint64
	GasUsed   uint64
}

// TransactionRow is one row of the transactions table. Hash may carry the
// historical "_issue84_<height>" collision suffix.
type TransactionRow struct {
	Hash                         string
	BlockHash                    string
	ChunkHash                    string
	IndexInChunk                 int32
	BlockTimestamp               uint64
	SignerAccountID              string
	SignerPublicKey              string
	Nonce                        uint64
	ReceiverAccountID            string
	Signature                    string
	Status                       string
	ConvertedIntoReceiptID       string
	ReceiptConversionGasBurnt    uint64
	ReceiptConversionTokensBurnt string
}

// TransactionActionRow is one action of a transaction, Delegate actions
// flattened.
type TransactionActionRow struct {
	TransactionHash     string
	IndexInTransaction  int32
	ActionKind          string
	Args                []byte
	IsDelegateAction    bool
	DelegateParameters  []byte
	DelegateParentIndex *int32
}

// ReceiptRow is one row of the receipts table.
type ReceiptRow struct {
	ReceiptID                     string
	BlockHash                     string
	ChunkHash                     string
	IndexInChunk                  int32
	BlockTimestamp                uint64
	PredecessorAccountID          string
	ReceiverAccountID             string
	Kind                          string
	OriginatedFromTransactionHash string
}

// ActionReceiptRow is the action-specific row of an action receipt.
type ActionReceiptRow struct {
	ReceiptID       string
	SignerAccountID string
	SignerPublicKey string
	GasPrice        string
}

// ActionReceiptActionRow is one action of an action receipt, Delegate
// actions flattened.
type ActionReceiptActionRow struct {
	ReceiptID            string
	IndexInActionReceipt int32
	ActionKind           string
	Args                 []byte
	PredecessorAccountID string
	ReceiverAccountID    string
	BlockTimestamp       uint64
	IsDelegateAction     bool
	DelegateParameters   []byte
	DelegateParentIndex  *int32
}

// ActionReceiptInputDataRow declares an input-data dependency edge.
type ActionReceiptInputDataRow struct {
	InputDataID     string
	InputToReceiptID string
}

// ActionReceiptOutputDataRow declares a produced-data edge and the
// account the data is routed to.
type ActionReceiptOutputDataRow struct {
	OutputDataID        string
	OutputFromReceiptID string
	ReceiverAccountID   string
}

// DataReceiptRow is the data-specific row of a data receipt.
type DataReceiptRow struct {
	DataID    string
	ReceiptID string
	Data      []byte
}

// ExecutionOutcomeRow is one row of the execution_outcomes table.
type ExecutionOutcomeRow struct {
	ReceiptID         string
	BlockHash         string
	BlockTimestamp    uint64
	IndexInChunk      int32
	GasBurnt          uint64
	TokensBurnt       string
	ExecutorAccountID string
	Status            string
	ShardID           uint64
}

// ExecutionOutcomeReceiptRow is one outcome -> produced-receipt edge.
type ExecutionOutcomeReceiptRow struct {
	ExecutedReceiptID       string
	IndexInExecutionOutcome int32
	ProducedReceiptID       string
}

// AccountRow is one row of the accounts projection.
type AccountRow struct {
	AccountID             string
	CreatedByReceiptID    *string
	DeletedByReceiptID    *string
	LastUpdateBlockHeight uint64
}

// AccessKeyRow is one row of the access_keys projection.
type AccessKeyRow struct {
	PublicKey             string
	AccountID             string
	CreatedByReceiptID    *string
	DeletedByReceiptID    *string
	PermissionKind        string
	LastUpdateBlockHeight uint64
}

// AccountChangeRow is one row of the account_changes table.
type AccountChangeRow struct {
	BlockHash               string
	IndexInBlock            int32
	AffectedAccountID       string
	ChangedInBlockTimestamp uint64
	CausedByTransactionHash *string
	CausedByReceiptID       *string
	UpdateReason            string
	NonstakedBalance        string
	StakedBalance           string
	StorageUsage            uint64
}

// FungibleTokenEventRow is one NEP-141 event row.
type FungibleTokenEventRow struct {
	EmittedForReceiptID       string
	EmittedAtBlockTimestamp   uint64
	EmittedInShardID          uint64
	EmittedIndexOfEventEntry  int32
	EmittedByContractAccountID string
	Amount                    string
	EventKind                 string
	TokenOldOwnerAccountID    string
	TokenNewOwnerAccountID    string
	EventMemo                 string
}

// NonFungibleTokenEventRow is one NEP-171 event row, one per token id.
type NonFungibleTokenEventRow struct {
	EmittedForReceiptID       string
	EmittedAtBlockTimestamp   uint64
	EmittedInShardID          uint64
	EmittedIndexOfEventEntry  int32
	EmittedByContractAccountID string
	TokenID                   string
	EventKind                 string
	TokenOldOwnerAccountID    string
	TokenNewOwnerAccountID    string
	TokenAuthorizedAccountID  string
	EventMemo                 string
}

// CirculatingSupplyRow is the single aggregated row computed per UTC day.
type CirculatingSupplyRow struct {
	ComputedAtBlockTimestamp       uint64
	ComputedAtBlockHash            string
	CirculatingTokensSupply        string
	TotalTokensSupply              string
	TotalLockupContractsCount      int32
	UnfinishedLockupContractsCount int32
	FoundationLockedTokens         string
	LockupsLockedTokens            string
}
