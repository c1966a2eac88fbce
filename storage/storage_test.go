package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nearscan/nearscan/log"
)

func testStore(db DB) *Store {
	s := New(db, log.Default())
	// Single attempt keeps failing-path tests fast.
	s.Blocks.attempts = 1
	s.Chunks.attempts = 1
	s.Transactions.attempts = 1
	s.Receipts.attempts = 1
	s.Outcomes.attempts = 1
	s.Accounts.attempts = 1
	s.AccessKeys.attempts = 1
	s.AccountChanges.attempts = 1
	s.Events.attempts = 1
	s.Supply.attempts = 1
	return s
}

func TestBlockRepo_Store(t *testing.T) {
	db := &fakeDB{}
	s := testStore(db)

	err := s.Blocks.Store(context.Background(), BlockRow{
		Height: 100, Hash: "h100", PrevHash: "h99", Timestamp: 1,
		TotalSupply: "10", GasPrice: "1", AuthorAccountID: "validator.near",
	})
	if err != nil {
		t.Fatal(err)
	}
	if db.execCount() != 1 {
		t.Fatalf("execs = %d", db.execCount())
	}
	if !strings.Contains(db.execs[0].sql, "ON CONFLICT DO NOTHING") {
		t.Fatal("block insert must be conflict-do-nothing")
	}
	if db.execs[0].args[0] != uint64(100) || db.execs[0].args[1] != "h100" {
		t.Fatalf("args = %v", db.execs[0].args)
	}
}

func TestBlockRepo_LatestHeight_Empty(t *testing.T) {
	s := testStore(&fakeDB{})
	_, err := s.Blocks.LatestHeight(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBlockRepo_LatestBefore(t *testing.T) {
	db := &fakeDB{queryFn: func(sql string, args []any) ([][]any, error) {
		if args[0] != uint64(500) {
			t.Fatalf("timestamp arg = %v", args[0])
		}
		return [][]any{{uint64(42), "h42", "h41", uint64(400), "10", "1", "v.near"}}, nil
	}}
	s := testStore(db)

	row, err := s.Blocks.LatestBefore(context.Background(), 500)
	if err != nil {
		t.Fatal(err)
	}
	if row.Height != 42 || row.Hash != "h42" || row.Timestamp != 400 {
		t.Fatalf("row = %+v", row)
	}
}

func TestBlockRepo_LatestBefore_NotFound(t *testing.T) {
	s := testStore(&fakeDB{})
	_, err := s.Blocks.LatestBefore(context.Background(), 500)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestChunkRepo_StoreBatches(t *testing.T) {
	db := &fakeDB{}
	s := testStore(db)

	err := s.Chunks.Store(context.Background(), []ChunkRow{
		{BlockHash: "b", Hash: "c0", ShardID: 0},
		{BlockHash: "b", Hash: "c1", ShardID: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if db.execCount() != 2 {
		t.Fatalf("execs = %d, want one per chunk", db.execCount())
	}
}

func TestChunkRepo_StoreEmptyIsNoop(t *testing.T) {
	db := &fakeDB{}
	s := testStore(db)
	if err := s.Chunks.Store(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if db.execCount() != 0 {
		t.Fatal("no statements expected for empty input")
	}
}

func TestTransactionRepo_ParentTxForConverted(t *testing.T) {
	db := &fakeDB{queryFn: func(sql string, args []any) ([][]any, error) {
		return [][]any{
			{"r1", "tx1"},
			{"r2", "tx2"},
		}, nil
	}}
	s := testStore(db)

	got, err := s.Transactions.ParentTxForConverted(context.Background(), []string{"r1", "r2", "r3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got["r1"] != "tx1" || got["r2"] != "tx2" {
		t.Fatalf("got = %v", got)
	}
}

func TestTransactionRepo_ParentTxForConverted_EmptyInput(t *testing.T) {
	s := testStore(&fakeDB{})
	got, err := s.Transactions.ParentTxForConverted(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got = %v, err = %v", got, err)
	}
}

func TestReceiptRepo_ParentTxForDataIDs(t *testing.T) {
	db := &fakeDB{queryFn: func(sql string, args []any) ([][]any, error) {
		if !strings.Contains(sql, "action_receipt_output_data") {
			t.Fatalf("unexpected sql: %s", sql)
		}
		return [][]any{{"d1", "tx1"}}, nil
	}}
	s := testStore(db)

	got, err := s.Receipts.ParentTxForDataIDs(context.Background(), []string{"d1", "d2"})
	if err != nil {
		t.Fatal(err)
	}
	if got["d1"] != "tx1" {
		t.Fatalf("got = %v", got)
	}
}

func TestReceiptRepo_ExistingReceiptIDs(t *testing.T) {
	db := &fakeDB{queryFn: func(sql string, args []any) ([][]any, error) {
		return [][]any{{"r1"}}, nil
	}}
	s := testStore(db)

	got, err := s.Receipts.ExistingReceiptIDs(context.Background(), []string{"r1", "r2"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := got["r1"]; !ok {
		t.Fatalf("got = %v", got)
	}
	if _, ok := got["r2"]; ok {
		t.Fatal("r2 must be absent")
	}
}

func TestAccountRepo_MonotonicGuardInSQL(t *testing.T) {
	db := &fakeDB{}
	s := testStore(db)

	deletedBy := "r9"
	if err := s.Accounts.MarkDeleted(context.Background(), "alice.near", &deletedBy, 100); err != nil {
		t.Fatal(err)
	}
	if err := s.Accounts.Update(context.Background(), AccountRow{AccountID: "alice.near", LastUpdateBlockHeight: 100}); err != nil {
		t.Fatal(err)
	}
	if err := s.Accounts.ResurrectImplicit(context.Background(), AccountRow{AccountID: strings.Repeat("ab", 32), LastUpdateBlockHeight: 100}); err != nil {
		t.Fatal(err)
	}
	for _, call := range db.execs {
		if !strings.Contains(call.sql, "last_update_block_height < ") {
			t.Fatalf("update lacks monotonic guard: %s", call.sql)
		}
	}
	if !strings.Contains(db.execs[2].sql, "deleted_by_receipt_id IS NOT NULL") {
		t.Fatal("implicit resurrection must only touch deleted rows")
	}
}

func TestEventRepo_BenignPrimaryKeyDuplicate(t *testing.T) {
	db := &fakeDB{execErr: func(sql string, args []any) error {
		return pgUniqueErr(ftEventsPkey)
	}}
	s := testStore(db)

	err := s.Events.InsertFungible(context.Background(), []FungibleTokenEventRow{
		{EmittedForReceiptID: "r1", EventKind: "MINT", Amount: "5"},
	})
	if err != nil {
		t.Fatalf("pkey duplicate must be benign, got %v", err)
	}
}

func TestEventRepo_BenignBrokenDataDuplicate(t *testing.T) {
	db := &fakeDB{execErr: func(sql string, args []any) error {
		return pgUniqueErr(nftEventsUnique)
	}}
	s := testStore(db)

	err := s.Events.InsertNonFungible(context.Background(), []NonFungibleTokenEventRow{
		{EmittedForReceiptID: "r1", EventKind: "TRANSFER", TokenID: "t1"},
	})
	if err != nil {
		t.Fatalf("broken-data duplicate must be benign, got %v", err)
	}
}

func TestEventRepo_OtherConstraintIsFatal(t *testing.T) {
	db := &fakeDB{execErr: func(sql string, args []any) error {
		return pgUniqueErr("some_other_constraint")
	}}
	s := testStore(db)

	err := s.Events.InsertFungible(context.Background(), []FungibleTokenEventRow{
		{EmittedForReceiptID: "r1"},
	})
	if err == nil {
		t.Fatal("unexpected constraint must not be benign")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := pgUniqueErr("my_constraint")
	if !IsUniqueViolation(err, "my_constraint") {
		t.Fatal("named constraint must match")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatal("empty constraint must match any unique violation")
	}
	if IsUniqueViolation(err, "other") {
		t.Fatal("different constraint must not match")
	}
	if IsUniqueViolation(errors.New("boom"), "") {
		t.Fatal("non-pg error must not match")
	}
}

func TestSupplyRepo_Exists(t *testing.T) {
	db := &fakeDB{queryFn: func(sql string, args []any) ([][]any, error) {
		return [][]any{{uint64(123)}}, nil
	}}
	s := testStore(db)

	ok, err := s.Supply.Exists(context.Background(), 123)
	if err != nil || !ok {
		t.Fatalf("ok = %v, err = %v", ok, err)
	}

	s2 := testStore(&fakeDB{})
	ok, err = s2.Supply.Exists(context.Background(), 123)
	if err != nil || ok {
		t.Fatalf("ok = %v, err = %v (empty table)", ok, err)
	}
}

func TestSupplyRepo_LiveLockups(t *testing.T) {
	db := &fakeDB{queryFn: func(sql string, args []any) ([][]any, error) {
		if args[0] != uint64(900) {
			t.Fatalf("height arg = %v", args[0])
		}
		return [][]any{{"a.lockup.near"}, {"b.lockup.near"}}, nil
	}}
	s := testStore(db)

	got, err := s.Supply.LiveLockups(context.Background(), 900)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "a.lockup.near" {
		t.Fatalf("got = %v", got)
	}
}
