// Package nearrpc wraps a JSON-RPC connection to a chain node with the
// three read-only view calls the supply engine needs.
package nearrpc

import (
	"context"
	"encoding/base64"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/supply"
)

// Client is a read-only view client. It is safe for concurrent use.
type Client struct {
	rpc *rpc.Client
}

var _ supply.Viewer = (*Client)(nil)

// Dial connects to the node's JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rpc")
	}
	return &Client{rpc: c}, nil
}

// NewClient wraps an existing connection, mainly for tests.
func NewClient(c *rpc.Client) *Client {
	return &Client{rpc: c}
}

// Close tears down the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

type queryRequest struct {
	RequestType  string `json:"request_type"`
	BlockID      uint64 `json:"block_id,omitempty"`
	Finality     string `json:"finality,omitempty"`
	AccountID    string `json:"account_id"`
	PrefixBase64 string `json:"prefix_base64,omitempty"`
}

type viewAccountResponse struct {
	Amount       string `json:"amount"`
	Locked       string `json:"locked"`
	CodeHash     string `json:"code_hash"`
	StorageUsage uint64 `json:"storage_usage"`
}

type viewStateResponse struct {
	Values []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"values"`
}

type blockRequest struct {
	Finality string `json:"finality"`
}

type blockResponse struct {
	Header struct {
		TimestampNanosec string `json:"timestamp_nanosec"`
	} `json:"header"`
}

// ViewAccount fetches an account's balance and code hash at a block
// height.
func (c *Client) ViewAccount(ctx context.Context, accountID string, blockHeight uint64) (supply.AccountView, error) {
	var resp viewAccountResponse
	err := c.rpc.CallContext(ctx, &resp, "query", queryRequest{
		RequestType: "view_account",
		BlockID:     blockHeight,
		AccountID:   accountID,
	})
	if err != nil {
		return supply.AccountView{}, errors.Wrapf(err, "view_account %s", accountID)
	}
	amount, err := uint256.FromDecimal(resp.Amount)
	if err != nil {
		return supply.AccountView{}, errors.Wrapf(err, "account %s amount %q", accountID, resp.Amount)
	}
	return supply.AccountView{Amount: amount, CodeHash: resp.CodeHash}, nil
}

// ViewState fetches a contract's state entries under prefix at a block
// height.
func (c *Client) ViewState(ctx context.Context, accountID string, blockHeight uint64, prefix []byte) ([]supply.StateItem, error) {
	var resp viewStateResponse
	err := c.rpc.CallContext(ctx, &resp, "query", queryRequest{
		RequestType:  "view_state",
		BlockID:      blockHeight,
		AccountID:    accountID,
		PrefixBase64: base64.StdEncoding.EncodeToString(prefix),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "view_state %s", accountID)
	}
	items := make([]supply.StateItem, 0, len(resp.Values))
	for _, kv := range resp.Values {
		key, err := base64.StdEncoding.DecodeString(kv.Key)
		if err != nil {
			return nil, errors.Wrap(err, "state key")
		}
		value, err := base64.StdEncoding.DecodeString(kv.Value)
		if err != nil {
			return nil, errors.Wrap(err, "state value")
		}
		items = append(items, supply.StateItem{Key: key, Value: value})
	}
	return items, nil
}

// FinalTimestamp returns the timestamp of the latest finalized block.
func (c *Client) FinalTimestamp(ctx context.Context) (uint64, error) {
	var resp blockResponse
	if err := c.rpc.CallContext(ctx, &resp, "block", blockRequest{Finality: "final"}); err != nil {
		return 0, errors.Wrap(err, "final block")
	}
	ts, err := uint256.FromDecimal(resp.Header.TimestampNanosec)
	if err != nil {
		return 0, errors.Wrapf(err, "final block timestamp %q", resp.Header.TimestampNanosec)
	}
	return ts.Uint64(), nil
}
