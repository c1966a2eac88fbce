package cache

import (
	"fmt"
	"testing"

	"github.com/nearscan/nearscan/types"
)

func TestReceiptCache_PutGet(t *testing.T) {
	c := New(10)
	c.Put(ReceiptID("r1"), "tx1")

	got, ok := c.Get(ReceiptID("r1"))
	if !ok || got != "tx1" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if _, ok := c.Get(DataID("r1")); ok {
		t.Fatal("receipt-id entry must not be visible under a data-id key")
	}
}

func TestReceiptCache_KeySpacesAreDisjoint(t *testing.T) {
	c := New(10)
	c.Put(ReceiptID("h"), "txA")
	c.Put(DataID("h"), "txB")

	if v, _ := c.Get(ReceiptID("h")); v != "txA" {
		t.Fatalf("receipt key = %q, want txA", v)
	}
	if v, _ := c.Get(DataID("h")); v != "txB" {
		t.Fatalf("data key = %q, want txB", v)
	}
}

func TestReceiptCache_Take(t *testing.T) {
	c := New(10)
	c.Put(DataID("d1"), "tx1")

	got, ok := c.Take(DataID("d1"))
	if !ok || got != "tx1" {
		t.Fatalf("Take = %q, %v", got, ok)
	}
	if _, ok := c.Get(DataID("d1")); ok {
		t.Fatal("entry must be gone after Take")
	}
	if _, ok := c.Take(DataID("d1")); ok {
		t.Fatal("second Take must miss")
	}
}

func TestReceiptCache_PutBatch(t *testing.T) {
	c := New(10)
	c.PutBatch(map[Key]string{
		ReceiptID("r1"): "tx1",
		ReceiptID("r2"): "tx2",
	})
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	if v, _ := c.Get(ReceiptID("r2")); v != "tx2" {
		t.Fatalf("r2 = %q", v)
	}
}

func TestReceiptCache_Eviction(t *testing.T) {
	c := New(4)
	for i := 0; i < 8; i++ {
		c.Put(ReceiptID(keyOf(i)), "tx")
	}
	if c.Len() != 4 {
		t.Fatalf("len = %d, want capacity 4", c.Len())
	}
	// Oldest entries must have been evicted.
	if _, ok := c.Get(ReceiptID(keyOf(0))); ok {
		t.Fatal("oldest entry survived eviction")
	}
	if _, ok := c.Get(ReceiptID(keyOf(7))); !ok {
		t.Fatal("newest entry evicted")
	}
}

func keyOf(i int) types.CryptoHash {
	return types.CryptoHash(fmt.Sprintf("receipt-%d", i))
}
