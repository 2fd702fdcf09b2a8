// Package paging はページネーションのパラメータ正規化とページ結果の表現を提供する。
package paging

// ページネーションの既定値。
const (
	// DefaultPage はページ番号が不正な場合に使用する既定のページ番号（1始まり）。
	DefaultPage = 1
	// DefaultPageSize はページサイズが不正な場合に使用する既定のページサイズ。
	DefaultPageSize = 20
	// MaxPageSize はページサイズの上限。これを超える指定は上限値に丸められる。
	MaxPageSize = 1_000_000
)

// Sanitize はページ番号とページサイズを安全な範囲に正規化する。
// page <= 0 の場合はDefaultPage、pageSize <= 0 の場合はDefaultPageSizeに置き換え、
// pageSize > MaxPageSize の場合はMaxPageSizeに丸める。
// 副作用を持たず、常に成功する。
func Sanitize(page, pageSize int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// PagedResult は結果セットの1ページ分とナビゲーション情報を保持する値オブジェクト。
// Itemsの並び順はクエリの返却順をそのまま保持する。
type PagedResult[T any] struct {
	// Page は現在のページ番号（1始まり）。
	Page int
	// PageSize は1ページあたりの件数。
	PageSize int
	// TotalCount はフィルタ条件に一致する全件数。
	TotalCount int
	// Items は現在のページに含まれる要素。
	Items []T
}

// TotalPages は総ページ数を返す（ceil(TotalCount / PageSize)）。
// PageSizeが0以下の場合は0を返す。
func (p PagedResult[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return (p.TotalCount + p.PageSize - 1) / p.PageSize
}

// HasPreviousPage は前のページが存在するかを返す。
func (p PagedResult[T]) HasPreviousPage() bool {
	return p.Page > 1
}

// HasNextPage は次のページが存在するかを返す。
func (p PagedResult[T]) HasNextPage() bool {
	return p.Page < p.TotalPages()
}
