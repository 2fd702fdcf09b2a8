package dbexec

import (
	"context"
	"database/sql"
	"fmt"
)

// MultiReader は複数の結果セットを順に読み取るカーソル。
// 1つのSQL文字列にセミコロン区切りで複数のSELECTをまとめた場合、
// ReadMany / ReadSingle / ReadFirst の呼び出しごとに次の結果セットを消費する。
//
// 注意: lib/pqは複数文のバッチをバインドパラメータなしの場合のみ
// サポートする（simple query protocol）。パラメータ付きバッチは
// ドライバのエラーがそのまま伝播する。
type MultiReader struct {
	rows    *sql.Rows
	started bool
}

// QueryMultiple は複数文のバッチを実行し、結果セットを順に読むMultiReaderを返す。
// 使用後は未読の結果セットが残っていてもCloseを呼ぶこと。
func QueryMultiple(ctx context.Context, q Querier, query string, args ...any) (*MultiReader, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query multiple failed: %w", err)
	}
	return &MultiReader{rows: rows}, nil
}

// advance は次の結果セットへ進める。最初の呼び出しでは現在の結果セットをそのまま使う。
func (m *MultiReader) advance() error {
	if !m.started {
		m.started = true
		return nil
	}
	if !m.rows.NextResultSet() {
		if err := m.rows.Err(); err != nil {
			return fmt.Errorf("next result set failed: %w", err)
		}
		return fmt.Errorf("no more result sets: %w", sql.ErrNoRows)
	}
	return nil
}

// Close は基盤のカーソルを解放する。全結果セットを読み終えていなくても安全に呼べる。
func (m *MultiReader) Close() error {
	return m.rows.Close()
}

// ReadMany は次の結果セットの全行をScanFuncでマッピングして返す。
func ReadMany[T any](m *MultiReader, scan ScanFunc[T]) ([]T, error) {
	if err := m.advance(); err != nil {
		return nil, err
	}

	var results []T
	for m.rows.Next() {
		v, err := scan(m.rows)
		if err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		results = append(results, v)
	}
	if err := m.rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return results, nil
}

// ReadSingle は次の結果セットから厳密に1行を読み取る。
// 0行の場合はsql.ErrNoRows、2行以上の場合はErrMultipleRowsを返す。
func ReadSingle[T any](m *MultiReader, scan ScanFunc[T]) (T, error) {
	var zero T

	if err := m.advance(); err != nil {
		return zero, err
	}

	if !m.rows.Next() {
		if err := m.rows.Err(); err != nil {
			return zero, fmt.Errorf("rows iteration failed: %w", err)
		}
		return zero, fmt.Errorf("expected exactly one row: %w", sql.ErrNoRows)
	}

	v, err := scan(m.rows)
	if err != nil {
		return zero, fmt.Errorf("row scan failed: %w", err)
	}

	if m.rows.Next() {
		return zero, ErrMultipleRows
	}

	return v, nil
}

// ReadFirst は次の結果セットの先頭行を読み取る。残りの行は読み捨てられる。
// 0行の場合はsql.ErrNoRowsを返す。
func ReadFirst[T any](m *MultiReader, scan ScanFunc[T]) (T, error) {
	var zero T

	if err := m.advance(); err != nil {
		return zero, err
	}

	if !m.rows.Next() {
		if err := m.rows.Err(); err != nil {
			return zero, fmt.Errorf("rows iteration failed: %w", err)
		}
		return zero, fmt.Errorf("expected at least one row: %w", sql.ErrNoRows)
	}

	v, err := scan(m.rows)
	if err != nil {
		return zero, fmt.Errorf("row scan failed: %w", err)
	}

	return v, nil
}
