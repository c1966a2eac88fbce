// Package types defines the view structures delivered by the upstream
// block streamer, plus the primitive chain types (hashes, account ids,
// balances) shared across the indexer.
package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// CryptoHash is the base58 text form of a 32-byte chain hash. Receipt ids,
// data ids, transaction hashes and block hashes all live in this space.
type CryptoHash string

// String returns the base58 text.
func (h CryptoHash) String() string { return string(h) }

// AccountID is a human-readable chain account name ("alice.near") or a
// 64-hex implicit account.
type AccountID string

// String returns the account name.
func (a AccountID) String() string { return string(a) }

// implicitAccountLength is the exact length of an implicit account id,
// which is the lowercase hex encoding of an ed25519 public key.
const implicitAccountLength = 64

// IsImplicit reports whether the account id is a 64-character lowercase
// hex string, i.e. an account created implicitly by a Transfer.
func (a AccountID) IsImplicit() bool {
	if len(a) != implicitAccountLength {
		return false
	}
	for i := 0; i < len(a); i++ {
		c := a[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Balance is a 128-bit token amount. The chain serializes balances as
// decimal strings in JSON; the zero value is a zero balance.
type Balance struct {
	i *big.Int
}

// NewBalance parses a decimal string into a Balance.
func NewBalance(s string) (Balance, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Balance{}, errors.Errorf("invalid balance %q", s)
	}
	return Balance{i: i}, nil
}

// BalanceFromBig wraps an existing big.Int (copied) as a Balance.
func BalanceFromBig(i *big.Int) Balance {
	if i == nil {
		return Balance{}
	}
	return Balance{i: new(big.Int).Set(i)}
}

// BigInt returns a copy of the underlying integer. The zero Balance
// yields zero.
func (b Balance) BigInt() *big.Int {
	if b.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.i)
}

// String returns the decimal representation.
func (b Balance) String() string {
	if b.i == nil {
		return "0"
	}
	return b.i.String()
}

// MarshalJSON emits the balance as a decimal string.
func (b Balance) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON accepts either a decimal string (the chain's wire form)
// or a bare JSON number.
func (b *Balance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Not a string; try a raw number.
		s = string(data)
	}
	parsed, err := NewBalance(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Timestamp is a chain timestamp in nanoseconds since the Unix epoch.
type Timestamp uint64

// UnmarshalJSON accepts either a JSON number or a decimal string; block
// headers carry "timestamp_nanosec" as a string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var n uint64
	if err := json.Unmarshal(data, &n); err == nil {
		*t = Timestamp(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "timestamp")
	}
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return errors.Errorf("invalid timestamp %q", s)
	}
	*t = Timestamp(n)
	return nil
}

// MarshalJSON emits the timestamp as a decimal string, matching the
// block header wire form.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%d", uint64(t)))
}
