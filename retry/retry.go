// Package retry implements the bounded exponential-backoff harness that
// wraps every database operation of the indexer. It is the only layer at
// which transient database errors are tolerated; callers propagate all
// other errors unchanged.
package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nearscan/nearscan/log"
)

const (
	// InitialInterval is the first backoff delay.
	InitialInterval = 100 * time.Millisecond
	// MaxInterval caps the backoff delay.
	MaxInterval = 120 * time.Second
	// DefaultAttempts is the attempt budget used by most callsites.
	DefaultAttempts = 10
)

// Op is a retriable operation.
type Op func(ctx context.Context) error

// BenignFunc classifies an error as an expected no-op condition (for
// example a unique-constraint violation on an idempotent key). A benign
// error terminates the retry loop with success.
type BenignFunc func(error) bool

// Backoff produces the exponential delay sequence 100ms, 200ms, 400ms, ...
// capped at MaxInterval. The zero value is not usable; use NewBackoff.
type Backoff struct {
	next time.Duration
}

// NewBackoff returns a Backoff starting at InitialInterval.
func NewBackoff() *Backoff {
	return &Backoff{next: InitialInterval}
}

// Next returns the current delay and advances the sequence.
func (b *Backoff) Next() time.Duration {
	d := b.next
	b.next *= 2
	if b.next > MaxInterval {
		b.next = MaxInterval
	}
	return d
}

// Sleep waits for the next delay or until the context is cancelled.
func (b *Backoff) Sleep(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op up to attempts times, sleeping an exponential backoff between
// failures. A benign error (per the optional predicate) counts as success.
// When the budget is exhausted the last error is surfaced, tagged with the
// operation name.
func Do(ctx context.Context, tag string, attempts int, benign BenignFunc, op Op) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := NewBackoff()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if benign != nil && benign(err) {
			return nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		log.Warn("retrying operation", "op", tag, "attempt", attempt, "error", err.Error())
		if err := backoff.Sleep(ctx); err != nil {
			return errors.Wrapf(err, "%s: cancelled while backing off", tag)
		}
	}
	return errors.Wrapf(lastErr, "%s: retries exhausted after %d attempts", tag, attempts)
}
