// Package stream provides block sources for the indexer. The canonical
// deployment feeds the pipeline from an upstream streamer dump: one JSON
// streamer message per line, in ascending height order.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/types"
)

// maxMessageSize bounds one serialized block message. Busy blocks with
// hundreds of receipts run to a few MB.
const maxMessageSize = 64 << 20

// Reader yields messages from a newline-delimited JSON stream, skipping
// everything below the start height.
type Reader struct {
	scanner     *bufio.Scanner
	startHeight uint64
}

// NewReader wraps r. Messages with height below startHeight are skipped.
func NewReader(r io.Reader, startHeight uint64) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), maxMessageSize)
	return &Reader{scanner: scanner, startHeight: startHeight}
}

// Recv returns the next message at or above the start height, or io.EOF
// when the stream ends.
func (r *Reader) Recv(ctx context.Context) (*types.StreamerMessage, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return nil, errors.Wrap(err, "read block stream")
			}
			return nil, io.EOF
		}
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg types.StreamerMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, errors.Wrap(err, "decode block message")
		}
		if msg.Block.Header.Height < r.startHeight {
			continue
		}
		return &msg, nil
	}
}
