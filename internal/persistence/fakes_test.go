package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRows struct {
	columns []string
	values  [][]any
	tag     string
	err     error

	pos    int
	closed bool
}

func (r *fakeRows) Close()                        { r.closed = true }
func (r *fakeRows) Err() error                    { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag(r.tag) }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fields := make([]pgconn.FieldDescription, len(r.columns))
	for i, c := range r.columns {
		fields[i] = pgconn.FieldDescription{Name: c}
	}
	return fields
}

func (r *fakeRows) Next() bool {
	if r.closed || r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return errors.New("scan not supported by fakeRows")
}

func (r *fakeRows) Values() ([]any, error) {
	return r.values[r.pos-1], nil
}

// fakeConn records every statement it receives.
type fakeConn struct {
	mu         sync.Mutex
	statements []string
	released   int

	// keyed by SQL text; unmatched queries return an empty result
	results  map[string]*fakeRows
	queryErr map[string]error
	execErr  map[string]error
	execTag  map[string]string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		results:  map[string]*fakeRows{},
		queryErr: map[string]error{},
		execErr:  map[string]error{},
		execTag:  map[string]string{},
	}
}

func (c *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.record(sql)
	if err := c.execErr[sql]; err != nil {
		return pgconn.CommandTag{}, err
	}
	tag := c.execTag[sql]
	if tag == "" {
		tag = sql
	}
	return pgconn.NewCommandTag(tag), nil
}

func (c *fakeConn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.record(sql)
	if err := c.queryErr[sql]; err != nil {
		return nil, err
	}
	if rows, ok := c.results[sql]; ok {
		return rows, nil
	}
	return &fakeRows{tag: "SELECT 0"}, nil
}

func (c *fakeConn) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released++
}

func (c *fakeConn) record(sql string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, sql)
}

func (c *fakeConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

func (c *fakeConn) Released() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.released
}

type fakePool struct {
	conn          *fakeConn
	initErr       error
	acquireErr    error
	initCalls     int
	acquireCalls  int
	releasedConns int
}

func (p *fakePool) Initialize(ctx context.Context) error {
	p.initCalls++
	return p.initErr
}

func (p *fakePool) Acquire(ctx context.Context) (Conn, error) {
	p.acquireCalls++
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return p.conn, nil
}

func (p *fakePool) Release(conn Conn) {
	p.releasedConns++
	conn.Release()
}
