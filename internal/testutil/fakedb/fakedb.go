// Package fakedb はDB接続なしのユニットテスト用に、固定レスポンスを返す
// database/sqlドライバを提供する。
//
// SQL文字列をキーに結果セットや影響行数を登録し、実行されたクエリと
// パラメータを記録する。SQLの照合は空白を正規化した完全一致で行う。
package fakedb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ResultSet は1つの結果セット（カラム名と行データ）を表す。
type ResultSet struct {
	Cols []string
	Rows [][]driver.Value
}

// Call は実行されたクエリとそのパラメータの記録。
type Call struct {
	Query string
	Args  []driver.Value
}

// Script はテストごとの固定レスポンス定義と呼び出し記録を保持する。
type Script struct {
	mu sync.Mutex

	// Queries はクエリ文字列（空白正規化後）に対する結果セット列。
	Queries map[string][]ResultSet
	// Execs はクエリ文字列に対する影響行数。
	Execs map[string]int64

	calls []Call
}

// Calls は実行されたクエリの記録を返す。
func (s *Script) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// record は呼び出しを記録する。
func (s *Script) record(query string, args []driver.NamedValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vals := make([]driver.Value, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}
	s.calls = append(s.calls, Call{Query: Normalize(query), Args: vals})
}

// Normalize は空白の連続を単一スペースに正規化する。
// Scriptのキーはこの正規化後の文字列で照合される。
func Normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

var (
	registerOnce sync.Once
	registryMu   sync.Mutex
	registry     = map[string]*Script{}
	nextID       int
)

// Open はScriptに紐付いた*sql.DBを返す。
// 返されたDBに対するクエリはScriptの定義に従って応答する。
func Open(script *Script) *sql.DB {
	registerOnce.Do(func() {
		sql.Register("fakedb", fakeDriver{})
	})

	registryMu.Lock()
	nextID++
	dsn := fmt.Sprintf("script-%d", nextID)
	registry[dsn] = script
	registryMu.Unlock()

	// 登録済みドライバ名でのOpenはエラーを返さない
	db, err := sql.Open("fakedb", dsn)
	if err != nil {
		panic(err)
	}
	return db
}

type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) {
	registryMu.Lock()
	script, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("fakedb: unknown dsn %q", name)
	}
	return &fakeConn{script: script}, nil
}

type fakeConn struct {
	script *Script
}

var (
	_ driver.QueryerContext = (*fakeConn)(nil)
	_ driver.ExecerContext  = (*fakeConn)(nil)
)

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("fakedb: prepared statements are not supported")
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) {
	return nil, fmt.Errorf("fakedb: transactions are not supported")
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.script.record(query, args)
	sets, ok := c.script.Queries[Normalize(query)]
	if !ok {
		return nil, fmt.Errorf("fakedb: unexpected query: %s", Normalize(query))
	}
	return &fakeRows{sets: sets}, nil
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.script.record(query, args)
	affected, ok := c.script.Execs[Normalize(query)]
	if !ok {
		return nil, fmt.Errorf("fakedb: unexpected exec: %s", Normalize(query))
	}
	return driver.RowsAffected(affected), nil
}

// fakeRows は複数結果セット対応の固定行カーソル。
type fakeRows struct {
	sets []ResultSet
	cur  int
	pos  int
}

var _ driver.RowsNextResultSet = (*fakeRows)(nil)

func (r *fakeRows) Columns() []string {
	if r.cur >= len(r.sets) {
		return nil
	}
	return r.sets[r.cur].Cols
}

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next(dest []driver.Value) error {
	if r.cur >= len(r.sets) {
		return io.EOF
	}
	set := r.sets[r.cur]
	if r.pos >= len(set.Rows) {
		return io.EOF
	}
	copy(dest, set.Rows[r.pos])
	r.pos++
	return nil
}

func (r *fakeRows) HasNextResultSet() bool {
	return r.cur+1 < len(r.sets)
}

func (r *fakeRows) NextResultSet() error {
	if !r.HasNextResultSet() {
		return io.EOF
	}
	r.cur++
	r.pos = 0
	return nil
}
