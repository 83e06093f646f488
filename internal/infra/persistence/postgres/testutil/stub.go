// Package testutil provides a stub database/sql driver that understands the
// handful of statements the postgres snapshot store issues.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var stubSeq atomic.Int64

// StubConn records statements and keeps the state table in memory.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	State      map[string][]byte
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	FailUpsert bool
	RowsErr    error

	active *stubTx
}

// NewStubDB registers a uniquely named driver and returns a sql.DB backed by it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{State: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx. Writes are staged until commit.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	staged := make(map[string][]byte, len(c.State))
	for k, v := range c.State {
		staged[k] = v
	}
	tx := &stubTx{conn: c, staged: staged}
	c.active = tx
	return tx, nil
}

// Buckets returns the stored bucket names in sorted order.
func (c *StubConn) Buckets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.State))
	for k := range c.State {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	upper := strings.ToUpper(strings.TrimSpace(query))
	if strings.HasPrefix(upper, "INSERT INTO STATE") {
		if c.FailUpsert {
			return nil, fmt.Errorf("upsert fail")
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("expected bucket and payload args, got %d", len(args))
		}
		bucket, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		target := c.State
		if c.active != nil {
			target = c.active.staged
		}
		target[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

// QueryContext implements driver.QueryerContext for SELECT bucket, payload FROM state.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !strings.Contains(strings.ToLower(query), "from state") {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	keys := make([]string, 0, len(c.State))
	for k := range c.State {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]driver.Value, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []driver.Value{k, c.State[k]})
	}
	return &stubRows{cols: []string{"bucket", "payload"}, rows: rows, err: c.RowsErr}, nil
}

type stubTx struct {
	conn   *StubConn
	staged map[string][]byte
}

func (t *stubTx) Commit() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.active = nil
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	t.conn.State = t.staged
	return nil
}

func (t *stubTx) Rollback() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.active = nil
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
