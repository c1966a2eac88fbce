package indexer

import (
	"encoding/json"

	"github.com/nearscan/nearscan/types"
)

// flatAction is one persisted action row after Delegate flattening. A
// Delegate action with k inner actions yields k+1 flatActions: the outer
// envelope row followed by one row per inner action pointing back at the
// envelope's index.
type flatAction struct {
	Index              int32
	Kind               types.ActionKind
	Args               json.RawMessage
	IsDelegate         bool
	DelegateParameters []byte
	DelegateParent     *int32
}

// delegateParameters is the persisted envelope of a Delegate action,
// without the inner actions (those become their own rows).
type delegateParameters struct {
	SenderID       types.AccountID `json:"sender_id"`
	ReceiverID     types.AccountID `json:"receiver_id"`
	Nonce          uint64          `json:"nonce"`
	MaxBlockHeight uint64          `json:"max_block_height"`
	PublicKey      string          `json:"public_key"`
	Signature      string          `json:"signature"`
}

// flattenActions expands a view action list into row order. Non-delegate
// actions map one to one; Delegate actions are flattened as described on
// flatAction.
func flattenActions(actions []types.ActionView) []flatAction {
	out := make([]flatAction, 0, len(actions))
	var index int32
	for _, action := range actions {
		if action.Kind != types.ActionDelegate || action.Delegate == nil {
			out = append(out, flatAction{
				Index: index,
				Kind:  action.Kind,
				Args:  action.Args,
			})
			index++
			continue
		}

		params, _ := json.Marshal(delegateParameters{
			SenderID:       action.Delegate.DelegateAction.SenderID,
			ReceiverID:     action.Delegate.DelegateAction.ReceiverID,
			Nonce:          action.Delegate.DelegateAction.Nonce,
			MaxBlockHeight: action.Delegate.DelegateAction.MaxBlockHeight,
			PublicKey:      action.Delegate.DelegateAction.PublicKey,
			Signature:      action.Delegate.Signature,
		})

		parent := index
		out = append(out, flatAction{
			Index:              index,
			Kind:               types.ActionDelegate,
			Args:               action.Args,
			IsDelegate:         true,
			DelegateParameters: params,
		})
		index++
		for _, inner := range action.Delegate.DelegateAction.Actions {
			p := parent
			out = append(out, flatAction{
				Index:              index,
				Kind:               inner.Kind,
				Args:               inner.Args,
				IsDelegate:         true,
				DelegateParameters: params,
				DelegateParent:     &p,
			})
			index++
		}
	}
	return out
}

// argsOrEmpty normalizes absent args to an empty JSON object so the
// database column is never null.
func argsOrEmpty(args json.RawMessage) []byte {
	if len(args) == 0 {
		return []byte(`{}`)
	}
	return args
}
