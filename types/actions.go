package types

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ActionKind identifies the variant of a transaction or receipt action.
type ActionKind string

const (
	ActionCreateAccount  ActionKind = "CREATE_ACCOUNT"
	ActionDeployContract ActionKind = "DEPLOY_CONTRACT"
	ActionFunctionCall   ActionKind = "FUNCTION_CALL"
	ActionTransfer       ActionKind = "TRANSFER"
	ActionStake          ActionKind = "STAKE"
	ActionAddKey         ActionKind = "ADD_KEY"
	ActionDeleteKey      ActionKind = "DELETE_KEY"
	ActionDeleteAccount  ActionKind = "DELETE_ACCOUNT"
	ActionDelegate       ActionKind = "DELEGATE_ACTION"
	ActionUnknown        ActionKind = "UNKNOWN"
)

// wire names of the action enum variants as emitted by the streamer.
var actionWireNames = map[string]ActionKind{
	"CreateAccount":  ActionCreateAccount,
	"DeployContract": ActionDeployContract,
	"FunctionCall":   ActionFunctionCall,
	"Transfer":       ActionTransfer,
	"Stake":          ActionStake,
	"AddKey":         ActionAddKey,
	"DeleteKey":      ActionDeleteKey,
	"DeleteAccount":  ActionDeleteAccount,
	"Delegate":       ActionDelegate,
}

// ActionView is one action of a transaction or action receipt. On the wire
// an action is either a bare string for unit variants ("CreateAccount") or
// a single-key object {"Transfer": {...}}.
type ActionView struct {
	Kind ActionKind
	// Args is the raw JSON payload of the variant; "{}" for unit variants.
	Args json.RawMessage
	// Delegate is the decoded payload when Kind == ActionDelegate.
	Delegate *DelegateActionView
}

// DelegateActionView is the payload of a Delegate action: a signed bundle
// of inner actions executed on behalf of the sender.
type DelegateActionView struct {
	DelegateAction struct {
		SenderID       AccountID    `json:"sender_id"`
		ReceiverID     AccountID    `json:"receiver_id"`
		Actions        []ActionView `json:"actions"`
		Nonce          uint64       `json:"nonce"`
		MaxBlockHeight uint64       `json:"max_block_height"`
		PublicKey      string       `json:"public_key"`
	} `json:"delegate_action"`
	Signature string `json:"signature"`
}

// emptyArgs is the payload used for unit variants.
var emptyArgs = json.RawMessage(`{}`)

// UnmarshalJSON decodes the single-key-object (or bare string) encoding of
// the action enum.
func (a *ActionView) UnmarshalJSON(data []byte) error {
	// Unit variant: a bare string.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		kind, ok := actionWireNames[s]
		if !ok {
			kind = ActionUnknown
		}
		a.Kind = kind
		a.Args = emptyArgs
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "action view")
	}
	if len(obj) != 1 {
		return errors.Errorf("action view: expected one variant, got %d keys", len(obj))
	}
	for name, payload := range obj {
		kind, ok := actionWireNames[name]
		if !ok {
			kind = ActionUnknown
		}
		a.Kind = kind
		a.Args = payload
		if kind == ActionDelegate {
			var d DelegateActionView
			if err := json.Unmarshal(payload, &d); err != nil {
				return errors.Wrap(err, "delegate action payload")
			}
			a.Delegate = &d
		}
	}
	return nil
}

// MarshalJSON re-encodes the action in its wire form.
func (a ActionView) MarshalJSON() ([]byte, error) {
	for name, kind := range actionWireNames {
		if kind == a.Kind {
			if len(a.Args) == 0 || string(a.Args) == "{}" {
				return json.Marshal(name)
			}
			return json.Marshal(map[string]json.RawMessage{name: a.Args})
		}
	}
	return nil, errors.Errorf("unknown action kind %q", a.Kind)
}

// AccessKeyPermissionKind distinguishes full-access keys from restricted
// function-call keys.
type AccessKeyPermissionKind string

const (
	PermissionFullAccess   AccessKeyPermissionKind = "FULL_ACCESS"
	PermissionFunctionCall AccessKeyPermissionKind = "FUNCTION_CALL"
)

// AccessKeyPermissionView is the permission of an access key: the string
// "FullAccess" or {"FunctionCall": {...}} on the wire.
type AccessKeyPermissionView struct {
	Kind AccessKeyPermissionKind
	// FunctionCall holds the restriction payload for function-call keys.
	FunctionCall json.RawMessage
}

// UnmarshalJSON decodes the permission enum.
func (p *AccessKeyPermissionView) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "FullAccess" {
			return errors.Errorf("unknown access key permission %q", s)
		}
		p.Kind = PermissionFullAccess
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "access key permission")
	}
	if payload, ok := obj["FunctionCall"]; ok {
		p.Kind = PermissionFunctionCall
		p.FunctionCall = payload
		return nil
	}
	return errors.New("access key permission: no recognised variant")
}

// MarshalJSON re-encodes the permission in its wire form.
func (p AccessKeyPermissionView) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PermissionFullAccess:
		return json.Marshal("FullAccess")
	case PermissionFunctionCall:
		return json.Marshal(map[string]json.RawMessage{"FunctionCall": p.FunctionCall})
	default:
		return nil, errors.Errorf("unknown permission kind %q", p.Kind)
	}
}

// AccessKeyView is the on-chain state of an access key.
type AccessKeyView struct {
	Nonce      uint64                  `json:"nonce"`
	Permission AccessKeyPermissionView `json:"permission"`
}
