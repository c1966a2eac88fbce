// Package cache implements the bounded in-memory lookup table that maps
// receipt and data identifiers to the hash of the transaction that
// originated them. It lets the receipt writer resolve locally-produced
// receipts without a database round-trip.
package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/nearscan/nearscan/types"
)

// DefaultCapacity bounds the cache to roughly one large block range of
// in-flight receipts.
const DefaultCapacity = 100_000

// KeyKind tags the two disjoint identifier spaces of the cache key.
type KeyKind uint8

const (
	// KindReceiptID keys an entry by a receipt's own id.
	KindReceiptID KeyKind = iota
	// KindDataID keys an entry by the data id a future data receipt will
	// carry.
	KindDataID
)

// Key is the cache key: a hash tagged with the space it belongs to.
// Receipt ids and data ids share the underlying hash space but are
// semantically disjoint; collapsing them into a bare hash could collide.
type Key struct {
	Kind KeyKind
	Hash types.CryptoHash
}

// ReceiptID builds a receipt-id key.
func ReceiptID(h types.CryptoHash) Key { return Key{Kind: KindReceiptID, Hash: h} }

// DataID builds a data-id key.
func DataID(h types.CryptoHash) Key { return Key{Kind: KindDataID, Hash: h} }

// ReceiptCache is a mutex-guarded bounded LRU from Key to the originating
// transaction hash. It is process-local and never persisted; cold-start
// misses fall through to database lookups.
type ReceiptCache struct {
	mu  sync.Mutex
	lru *lru.Cache[Key, string]
}

// New creates a ReceiptCache holding at most capacity entries.
func New(capacity int) *ReceiptCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// lru.New only fails on a non-positive size, which is ruled out above.
	inner, _ := lru.New[Key, string](capacity)
	return &ReceiptCache{lru: inner}
}

// Get returns the transaction hash for key, if cached.
func (c *ReceiptCache) Get(key Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(key)
}

// Take returns the transaction hash for key and removes the entry. Data-id
// entries are consumed exactly once (the data receipt appears in exactly
// one later block), so reads of them go through Take to bound growth.
func (c *ReceiptCache) Take(key Key) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(key)
	if ok {
		c.lru.Remove(key)
	}
	return v, ok
}

// Put stores one entry.
func (c *ReceiptCache) Put(key Key, txHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, txHash)
}

// PutBatch stores all entries inside one critical section. The transaction
// writer seeds its (initial-receipt-id -> tx-hash) entries with a single
// PutBatch so the receipt resolver, running concurrently, observes either
// none or all of them.
func (c *ReceiptCache) PutBatch(entries map[Key]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		c.lru.Add(k, v)
	}
}

// Remove drops one entry if present.
func (c *ReceiptCache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Len returns the number of cached entries.
func (c *ReceiptCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
