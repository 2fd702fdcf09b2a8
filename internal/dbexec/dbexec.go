// Package dbexec はSQL実行の薄い抽象化レイヤーを提供する。
//
// リポジトリ層を具体的なドライバから切り離し、*sql.DB・*sql.Conn・*sql.Tx の
// いずれに対しても同じ操作で実行できるようにする。行のマッピングはScanFuncで
// 呼び出し側が明示的に行う。ドライバのエラーは解釈せず、操作名を付与して
// そのまま伝播する。
package dbexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Querier はSQL実行に必要な最小限の能力を表すインターフェース。
// *sql.DB、*sql.Conn、*sql.Tx がこれを満たす。
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// コンパイル時の適合確認。
var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Conn)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// RowScanner は1行分のカラムを読み取るインターフェース。
// *sql.Row と *sql.Rows の共通部分。
type RowScanner interface {
	Scan(dest ...any) error
}

// ScanFunc は1行をT型の値にマッピングする関数。
type ScanFunc[T any] func(row RowScanner) (T, error)

// ErrMultipleRows は単一行を期待するクエリが複数行を返した場合のエラー。
var ErrMultipleRows = errors.New("query returned more than one row")

// ScanValue は単一カラムの値をそのまま読み取るScanFuncを返す。
// COUNT(*)やRETURNING idのようなスカラー読み取りに使用する。
func ScanValue[T any]() ScanFunc[T] {
	return func(row RowScanner) (T, error) {
		var v T
		err := row.Scan(&v)
		return v, err
	}
}

// WithTimeout はクエリ単位のタイムアウトを設定したコンテキストを返す。
// d <= 0 の場合は元のコンテキストをそのまま返す。
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// Query はクエリを実行し、全行をScanFuncでマッピングして返却順のまま返す。
func Query[T any](ctx context.Context, q Querier, query string, scan ScanFunc[T], args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("row scan failed: %w", err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return results, nil
}

// QuerySingle は厳密に1行を返すクエリを実行する。
// 0行の場合はsql.ErrNoRows、2行以上の場合はErrMultipleRowsを返す。
func QuerySingle[T any](ctx context.Context, q Querier, query string, scan ScanFunc[T], args ...any) (T, error) {
	var zero T

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return zero, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, fmt.Errorf("rows iteration failed: %w", err)
		}
		return zero, fmt.Errorf("expected exactly one row: %w", sql.ErrNoRows)
	}

	v, err := scan(rows)
	if err != nil {
		return zero, fmt.Errorf("row scan failed: %w", err)
	}

	if rows.Next() {
		return zero, ErrMultipleRows
	}
	if err := rows.Err(); err != nil {
		return zero, fmt.Errorf("rows iteration failed: %w", err)
	}

	return v, nil
}

// QuerySingleOrDefault は最大1行を返すクエリを実行する。
// 0行の場合は(ゼロ値, false, nil)、2行以上の場合はErrMultipleRowsを返す。
func QuerySingleOrDefault[T any](ctx context.Context, q Querier, query string, scan ScanFunc[T], args ...any) (T, bool, error) {
	var zero T

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return zero, false, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, false, fmt.Errorf("rows iteration failed: %w", err)
		}
		return zero, false, nil
	}

	v, err := scan(rows)
	if err != nil {
		return zero, false, fmt.Errorf("row scan failed: %w", err)
	}

	if rows.Next() {
		return zero, false, ErrMultipleRows
	}
	if err := rows.Err(); err != nil {
		return zero, false, fmt.Errorf("rows iteration failed: %w", err)
	}

	return v, true, nil
}

// QueryFirst は複数行を返しうるクエリの先頭行を返す。
// 0行の場合はsql.ErrNoRowsを返す。
func QueryFirst[T any](ctx context.Context, q Querier, query string, scan ScanFunc[T], args ...any) (T, error) {
	var zero T
	v, err := scan(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return zero, fmt.Errorf("query first failed: %w", err)
	}
	return v, nil
}

// QueryFirstOrDefault は複数行を返しうるクエリの先頭行を返す。
// 0行の場合は(ゼロ値, false, nil)を返す。
func QueryFirstOrDefault[T any](ctx context.Context, q Querier, query string, scan ScanFunc[T], args ...any) (T, bool, error) {
	var zero T
	v, err := scan(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("query first failed: %w", err)
	}
	return v, true, nil
}

// Execute は更新系のSQLを実行し、影響を受けた行数を返す。
func Execute(ctx context.Context, q Querier, query string, args ...any) (int64, error) {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("execute failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected failed: %w", err)
	}
	return affected, nil
}

// ExecuteScalar は単一値を返すクエリを実行する。
// 値がSQL NULLの場合はT型のゼロ値を返す。0行の場合はsql.ErrNoRowsを返す。
func ExecuteScalar[T any](ctx context.Context, q Querier, query string, args ...any) (T, error) {
	var zero T
	var p *T
	if err := q.QueryRowContext(ctx, query, args...).Scan(&p); err != nil {
		return zero, fmt.Errorf("execute scalar failed: %w", err)
	}
	if p == nil {
		return zero, nil
	}
	return *p, nil
}
