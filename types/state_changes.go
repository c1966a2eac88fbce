package types

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// StateChangeKind names the value variant of a state change.
type StateChangeKind string

const (
	ChangeAccountUpdate     StateChangeKind = "account_update"
	ChangeAccountDeletion   StateChangeKind = "account_deletion"
	ChangeAccessKeyUpdate   StateChangeKind = "access_key_update"
	ChangeAccessKeyDeletion StateChangeKind = "access_key_deletion"
	ChangeDataUpdate        StateChangeKind = "data_update"
	ChangeDataDeletion      StateChangeKind = "data_deletion"
	ChangeContractUpdate    StateChangeKind = "contract_code_update"
	ChangeContractDeletion  StateChangeKind = "contract_code_deletion"
)

// StateChangeCauseKind names why a state change happened.
type StateChangeCauseKind string

const (
	CauseTransactionProcessing          StateChangeCauseKind = "transaction_processing"
	CauseActionReceiptProcessingStarted StateChangeCauseKind = "action_receipt_processing_started"
	CauseActionReceiptGasReward         StateChangeCauseKind = "action_receipt_gas_reward"
	CauseReceiptProcessing              StateChangeCauseKind = "receipt_processing"
	CausePostponedReceipt               StateChangeCauseKind = "postponed_receipt"
	CauseUpdatedDelayedReceipts         StateChangeCauseKind = "updated_delayed_receipts"
	CauseValidatorAccountsUpdate        StateChangeCauseKind = "validator_accounts_update"
	CauseMigration                      StateChangeCauseKind = "migration"
)

// StateChangeCause identifies the transaction or receipt that caused a
// state change. TxHash and ReceiptHash are set depending on Kind.
type StateChangeCause struct {
	Kind        StateChangeCauseKind `json:"type"`
	TxHash      CryptoHash           `json:"tx_hash,omitempty"`
	ReceiptHash CryptoHash           `json:"receipt_hash,omitempty"`
}

// StateChangeWithCause is one state change record of a shard.
type StateChangeWithCause struct {
	Cause  StateChangeCause `json:"cause"`
	Kind   StateChangeKind  `json:"type"`
	Change json.RawMessage  `json:"change"`
}

// AccountChangeView is the payload of account_update / account_deletion
// changes. Deletions carry only the account id.
type AccountChangeView struct {
	AccountID    AccountID `json:"account_id"`
	Amount       Balance   `json:"amount"`
	Locked       Balance   `json:"locked"`
	StorageUsage uint64    `json:"storage_usage"`
}

// AccessKeyChangeView is the payload of access_key_update /
// access_key_deletion changes. AccessKey is nil for deletions.
type AccessKeyChangeView struct {
	AccountID AccountID      `json:"account_id"`
	PublicKey string         `json:"public_key"`
	AccessKey *AccessKeyView `json:"access_key"`
}

// DecodeAccount decodes the change payload of an account change.
func (c StateChangeWithCause) DecodeAccount() (AccountChangeView, error) {
	var v AccountChangeView
	if c.Kind != ChangeAccountUpdate && c.Kind != ChangeAccountDeletion {
		return v, errors.Errorf("state change %q is not an account change", c.Kind)
	}
	if err := json.Unmarshal(c.Change, &v); err != nil {
		return v, errors.Wrap(err, "account change payload")
	}
	return v, nil
}

// DecodeAccessKey decodes the change payload of an access key change.
func (c StateChangeWithCause) DecodeAccessKey() (AccessKeyChangeView, error) {
	var v AccessKeyChangeView
	if c.Kind != ChangeAccessKeyUpdate && c.Kind != ChangeAccessKeyDeletion {
		return v, errors.Errorf("state change %q is not an access key change", c.Kind)
	}
	if err := json.Unmarshal(c.Change, &v); err != nil {
		return v, errors.Wrap(err, "access key change payload")
	}
	return v, nil
}
