package paging

import "testing"

// page <= 0 は既定のページ番号に置き換えられることを検証
func TestSanitize_NonPositivePage_ReturnsDefault(t *testing.T) {
	for _, page := range []int{0, -1, -100} {
		got, _ := Sanitize(page, 20)
		if got != DefaultPage {
			t.Errorf("Sanitize(%d, 20) page = %d, want %d", page, got, DefaultPage)
		}
	}
}

// pageSize <= 0 は既定のページサイズに置き換えられることを検証
func TestSanitize_NonPositivePageSize_ReturnsDefault(t *testing.T) {
	for _, size := range []int{0, -1, -50} {
		_, got := Sanitize(1, size)
		if got != DefaultPageSize {
			t.Errorf("Sanitize(1, %d) pageSize = %d, want %d", size, got, DefaultPageSize)
		}
	}
}

// 上限を超えるpageSizeはMaxPageSizeに丸められることを検証
func TestSanitize_OversizedPageSize_Clamped(t *testing.T) {
	_, got := Sanitize(1, MaxPageSize+1)
	if got != MaxPageSize {
		t.Errorf("pageSize = %d, want %d", got, MaxPageSize)
	}
}

// 正常な値はそのまま返ることを検証
func TestSanitize_ValidValues_Unchanged(t *testing.T) {
	page, size := Sanitize(3, 50)
	if page != 3 || size != 50 {
		t.Errorf("Sanitize(3, 50) = (%d, %d), want (3, 50)", page, size)
	}
}

// TotalPagesがceil(TotalCount / PageSize)であることを検証
func TestPagedResult_TotalPages(t *testing.T) {
	tests := []struct {
		totalCount int
		pageSize   int
		want       int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 7, 15},
		{3, 2, 2},
	}

	for _, tt := range tests {
		p := PagedResult[int]{PageSize: tt.pageSize, TotalCount: tt.totalCount}
		if got := p.TotalPages(); got != tt.want {
			t.Errorf("TotalPages(count=%d, size=%d) = %d, want %d", tt.totalCount, tt.pageSize, got, tt.want)
		}
	}
}

// PageSizeが0の場合にTotalPagesがゼロ除算しないことを検証
func TestPagedResult_TotalPages_ZeroPageSize(t *testing.T) {
	p := PagedResult[int]{PageSize: 0, TotalCount: 10}
	if got := p.TotalPages(); got != 0 {
		t.Errorf("TotalPages = %d, want 0", got)
	}
}

// HasPreviousPage == (Page > 1) であることを検証
func TestPagedResult_HasPreviousPage(t *testing.T) {
	if (PagedResult[int]{Page: 1, PageSize: 10, TotalCount: 30}).HasPreviousPage() {
		t.Error("page 1 should not have a previous page")
	}
	if !(PagedResult[int]{Page: 2, PageSize: 10, TotalCount: 30}).HasPreviousPage() {
		t.Error("page 2 should have a previous page")
	}
}

// HasNextPage == (Page < TotalPages) であることを検証
func TestPagedResult_HasNextPage(t *testing.T) {
	if !(PagedResult[int]{Page: 1, PageSize: 10, TotalCount: 30}).HasNextPage() {
		t.Error("page 1 of 3 should have a next page")
	}
	if (PagedResult[int]{Page: 3, PageSize: 10, TotalCount: 30}).HasNextPage() {
		t.Error("page 3 of 3 should not have a next page")
	}
	if (PagedResult[int]{Page: 1, PageSize: 10, TotalCount: 0}).HasNextPage() {
		t.Error("empty result should not have a next page")
	}
}
