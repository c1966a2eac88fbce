package types

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ExecutionStatus is the coarse outcome status persisted to the database.
type ExecutionStatus string

const (
	StatusUnknown          ExecutionStatus = "UNKNOWN"
	StatusFailure          ExecutionStatus = "FAILURE"
	StatusSuccessValue     ExecutionStatus = "SUCCESS_VALUE"
	StatusSuccessReceiptID ExecutionStatus = "SUCCESS_RECEIPT_ID"
)

// ExecutionStatusView is the tagged-union outcome status as delivered on
// the wire: "Unknown", {"Failure": {...}}, {"SuccessValue": "<base64>"} or
// {"SuccessReceiptId": "<hash>"}.
type ExecutionStatusView struct {
	Kind ExecutionStatus
	// SuccessReceiptID is set when Kind == StatusSuccessReceiptID.
	SuccessReceiptID CryptoHash
	// SuccessValue is the base64 payload when Kind == StatusSuccessValue.
	SuccessValue string
	// Failure holds the raw error document when Kind == StatusFailure.
	Failure json.RawMessage
}

// UnmarshalJSON decodes the status enum.
func (s *ExecutionStatusView) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if str != "Unknown" {
			return errors.Errorf("unknown execution status %q", str)
		}
		s.Kind = StatusUnknown
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return errors.Wrap(err, "execution status")
	}
	if payload, ok := obj["Failure"]; ok {
		s.Kind = StatusFailure
		s.Failure = payload
		return nil
	}
	if payload, ok := obj["SuccessValue"]; ok {
		s.Kind = StatusSuccessValue
		return json.Unmarshal(payload, &s.SuccessValue)
	}
	if payload, ok := obj["SuccessReceiptId"]; ok {
		s.Kind = StatusSuccessReceiptID
		return json.Unmarshal(payload, &s.SuccessReceiptID)
	}
	return errors.New("execution status: no recognised variant")
}

// MarshalJSON re-encodes the status in its wire form.
func (s ExecutionStatusView) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case StatusUnknown, "":
		return json.Marshal("Unknown")
	case StatusFailure:
		return json.Marshal(map[string]json.RawMessage{"Failure": s.Failure})
	case StatusSuccessValue:
		v, err := json.Marshal(s.SuccessValue)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]json.RawMessage{"SuccessValue": v})
	case StatusSuccessReceiptID:
		v, err := json.Marshal(s.SuccessReceiptID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]json.RawMessage{"SuccessReceiptId": v})
	default:
		return nil, errors.Errorf("unknown execution status kind %q", s.Kind)
	}
}
