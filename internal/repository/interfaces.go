// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/userstore/internal/model"
	"github.com/hitoshi/userstore/internal/paging"
)

// SearchParams はユーザー検索の条件。
//
// SearchTermは前後の空白を除去した上で部分一致に使用され、空であれば
// 絞り込みを行わない。SortColumnが空の場合はID昇順で並べる。
type SearchParams struct {
	SearchTerm     string
	SortColumn     string
	SortDescending bool
	Page           int
	PageSize       int
	IncludeDeleted bool
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// List は全ユーザーを取得する。includeDeletedがfalseの場合は
	// 論理削除済みユーザーを除外する。
	List(ctx context.Context, includeDeleted bool) ([]model.User, error)

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	// includeDeletedがfalseの場合、論理削除済みユーザーは見つからない扱いになる。
	FindByID(ctx context.Context, id int64, includeDeleted bool) (*model.User, error)

	// Insert はユーザーを新規作成し、採番されたIDを返す。
	Insert(ctx context.Context, user *model.User) (int64, error)

	// Update は論理削除されていないユーザーの名前を更新し、影響行数を返す。
	// 対象が存在しない、または論理削除済みの場合は0を返す。
	Update(ctx context.Context, user *model.User) (int64, error)

	// SoftDelete は指定IDのユーザーを論理削除する。
	// 既に削除済み、または存在しない場合は何もしない。
	SoftDelete(ctx context.Context, id int64) error

	// Upsert はメールアドレスをキーにユーザーを作成または再有効化する。
	// 同じメールの有効ユーザーが既に存在する場合はエラーを返す。
	Upsert(ctx context.Context, user *model.User) (int64, error)

	// Search は検索条件に一致するユーザーをページングして返す。
	Search(ctx context.Context, params SearchParams) (paging.PagedResult[model.User], error)

	// Stats は有効ユーザー数と論理削除済みユーザー数を返す。
	Stats(ctx context.Context) (model.UserStats, error)
}
