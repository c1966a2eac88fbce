package types

// StreamerMessage is one message of the upstream block stream: a block
// header plus every shard of that block.
type StreamerMessage struct {
	Block  BlockView   `json:"block"`
	Shards []ShardView `json:"shards"`
}

// BlockView carries the block author and header.
type BlockView struct {
	Author AccountID       `json:"author"`
	Header BlockHeaderView `json:"header"`
}

// BlockHeaderView is the subset of the chain block header the indexer
// persists.
type BlockHeaderView struct {
	Height      uint64     `json:"height"`
	Hash        CryptoHash `json:"hash"`
	PrevHash    CryptoHash `json:"prev_hash"`
	Timestamp   Timestamp  `json:"timestamp_nanosec"`
	TotalSupply Balance    `json:"total_supply"`
	GasPrice    Balance    `json:"gas_price"`
}

// ShardView is one shard of a block: its chunk (possibly absent when the
// shard produced no chunk this block), the execution outcomes of receipts
// executed in this shard, and the state changes those executions caused.
type ShardView struct {
	ShardID                  uint64                        `json:"shard_id"`
	Chunk                    *ChunkView                    `json:"chunk"`
	ReceiptExecutionOutcomes []ExecutionOutcomeWithReceipt `json:"receipt_execution_outcomes"`
	StateChanges             []StateChangeWithCause        `json:"state_changes"`
}

// ChunkView is a produced chunk with its transactions and incoming
// receipts.
type ChunkView struct {
	Author       AccountID                `json:"author"`
	Header       ChunkHeaderView          `json:"header"`
	Transactions []TransactionWithOutcome `json:"transactions"`
	Receipts     []ReceiptView            `json:"receipts"`
}

// ChunkHeaderView is the chunk header subset the indexer persists.
type ChunkHeaderView struct {
	ChunkHash CryptoHash `json:"chunk_hash"`
	ShardID   uint64     `json:"shard_id"`
	GasUsed   uint64     `json:"gas_used"`
	GasLimit  uint64     `json:"gas_limit"`
	Signature string     `json:"signature"`
}

// TransactionWithOutcome pairs a signed transaction with its conversion
// outcome (the outcome that names the receipt the transaction became).
type TransactionWithOutcome struct {
	Transaction SignedTransactionView `json:"transaction"`
	Outcome     TransactionOutcome    `json:"outcome"`
}

// SignedTransactionView is a user transaction as included in a chunk.
type SignedTransactionView struct {
	Hash       CryptoHash   `json:"hash"`
	SignerID   AccountID    `json:"signer_id"`
	PublicKey  string       `json:"public_key"`
	Nonce      uint64       `json:"nonce"`
	ReceiverID AccountID    `json:"receiver_id"`
	Signature  string       `json:"signature"`
	Actions    []ActionView `json:"actions"`
}

// TransactionOutcome wraps the execution outcome of converting a
// transaction into its initial receipt.
type TransactionOutcome struct {
	ExecutionOutcome ExecutionOutcomeWithID `json:"execution_outcome"`
}

// ExecutionOutcomeWithID pairs an outcome with the id of the transaction
// or receipt it belongs to.
type ExecutionOutcomeWithID struct {
	ID      CryptoHash           `json:"id"`
	Outcome ExecutionOutcomeView `json:"outcome"`
}

// ExecutionOutcomeView is the result of executing a transaction or
// receipt.
type ExecutionOutcomeView struct {
	Logs        []string            `json:"logs"`
	ReceiptIDs  []CryptoHash        `json:"receipt_ids"`
	GasBurnt    uint64              `json:"gas_burnt"`
	TokensBurnt Balance             `json:"tokens_burnt"`
	ExecutorID  AccountID           `json:"executor_id"`
	Status      ExecutionStatusView `json:"status"`
}

// ExecutionOutcomeWithReceipt pairs an executed receipt's outcome with the
// receipt view itself.
type ExecutionOutcomeWithReceipt struct {
	ExecutionOutcome ExecutionOutcomeWithID `json:"execution_outcome"`
	Receipt          ReceiptView            `json:"receipt"`
}

// ReceiptView is a receipt as included in a chunk or attached to an
// outcome.
type ReceiptView struct {
	PredecessorID AccountID   `json:"predecessor_id"`
	ReceiverID    AccountID   `json:"receiver_id"`
	ReceiptID     CryptoHash  `json:"receipt_id"`
	Receipt       ReceiptEnum `json:"receipt"`
}

// ReceiptKind distinguishes action receipts from data receipts.
type ReceiptKind string

const (
	ReceiptKindAction ReceiptKind = "ACTION"
	ReceiptKindData   ReceiptKind = "DATA"
)

// ReceiptEnum is the two-variant receipt body. Exactly one of Action and
// Data is non-nil.
type ReceiptEnum struct {
	Action *ActionReceiptView `json:"Action,omitempty"`
	Data   *DataReceiptView   `json:"Data,omitempty"`
}

// Kind reports which variant is populated.
func (r ReceiptEnum) Kind() ReceiptKind {
	if r.Data != nil {
		return ReceiptKindData
	}
	return ReceiptKindAction
}

// ActionReceiptView is the body of an action receipt.
type ActionReceiptView struct {
	SignerID            AccountID          `json:"signer_id"`
	SignerPublicKey     string             `json:"signer_public_key"`
	GasPrice            Balance            `json:"gas_price"`
	OutputDataReceivers []DataReceiverView `json:"output_data_receivers"`
	InputDataIDs        []CryptoHash       `json:"input_data_ids"`
	Actions             []ActionView       `json:"actions"`
}

// DataReceiverView declares that a future data receipt with DataID will be
// routed to ReceiverID.
type DataReceiverView struct {
	DataID     CryptoHash `json:"data_id"`
	ReceiverID AccountID  `json:"receiver_id"`
}

// DataReceiptView is the body of a data receipt. Data is base64 on the
// wire and may be null.
type DataReceiptView struct {
	DataID CryptoHash `json:"data_id"`
	Data   []byte     `json:"data"`
}
