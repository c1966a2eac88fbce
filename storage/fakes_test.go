package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeDB records executed statements and serves canned query results.
type fakeDB struct {
	mu    sync.Mutex
	execs []execCall
	// execErr, when set, is consulted for every Exec (including batched
	// ones).
	execErr func(sql string, args []any) error
	// queryFn serves rows for Query/QueryRow.
	queryFn func(sql string, args []any) ([][]any, error)
}

type execCall struct {
	sql  string
	args []any
}

func (f *fakeDB) record(sql string, args []any) error {
	f.mu.Lock()
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	f.mu.Unlock()
	if f.execErr != nil {
		return f.execErr(sql, args)
	}
	return nil
}

func (f *fakeDB) execCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.execs)
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f.record(sql, args)
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if f.queryFn == nil {
		return &fakeRows{}, nil
	}
	rows, err := f.queryFn(sql, args)
	if err != nil {
		return nil, err
	}
	return &fakeRows{rows: rows}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if f.queryFn == nil {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	rows, err := f.queryFn(sql, args)
	if err != nil {
		return &fakeRow{err: err}
	}
	if len(rows) == 0 {
		return &fakeRow{err: pgx.ErrNoRows}
	}
	return &fakeRow{values: rows[0]}
}

func (f *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	results := &fakeBatchResults{n: b.Len()}
	for _, q := range b.QueuedQueries {
		if err := f.record(q.SQL, q.Arguments); err != nil {
			results.err = err
		}
	}
	return results
}

type fakeBatchResults struct {
	n   int
	i   int
	err error
}

func (r *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	r.i++
	return pgconn.CommandTag{}, r.err
}

func (r *fakeBatchResults) Query() (pgx.Rows, error) { return &fakeRows{}, r.err }
func (r *fakeBatchResults) QueryRow() pgx.Row        { return &fakeRow{err: r.err} }
func (r *fakeBatchResults) Close() error             { return r.err }

type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(dest, r.rows[r.pos-1])
}

type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(dest, r.values)
}

// scanInto copies src values into the Scan destination pointers for the
// few Go types the repositories read back.
func scanInto(dest []any, src []any) error {
	if len(dest) != len(src) {
		return fmt.Errorf("scan: %d destinations, %d values", len(dest), len(src))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = src[i].(string)
		case *uint64:
			*p = src[i].(uint64)
		case *int32:
			*p = src[i].(int32)
		case *bool:
			*p = src[i].(bool)
		case *[]byte:
			*p = src[i].([]byte)
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

// pgUniqueErr builds a unique-violation error on the named constraint.
func pgUniqueErr(constraint string) error {
	return &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: constraint}
}
