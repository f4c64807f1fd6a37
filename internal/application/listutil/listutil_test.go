package listutil

import (
	"net/url"
	"reflect"
	"testing"
)

func TestParseListParams(t *testing.T) {
	q := url.Values{}
	q.Set("page", "3")
	q.Set("per_page", "10")
	q.Set("q", "kovász")
	q.Set("category", "baking")
	q.Set("instructor", "ignored") // not an allowed filter key

	lp := ParseListParams(q, []string{"category"})
	if lp.Page != 3 || lp.PerPage != 10 {
		t.Errorf("unexpected paging: %+v", lp.PageParams)
	}
	if lp.Search != "kovász" {
		t.Errorf("expected search query, got %q", lp.Search)
	}
	if lp.Filters["category"] != "baking" {
		t.Errorf("expected category filter, got %v", lp.Filters)
	}
	if _, ok := lp.Filters["instructor"]; ok {
		t.Error("unrecognised filter key must be dropped")
	}
}

func TestParsePageParams_Defaults(t *testing.T) {
	tests := []struct {
		name        string
		page        string
		perPage     string
		wantPage    int
		wantPerPage int
	}{
		{"empty", "", "", 1, DefaultPerPage},
		{"negative page", "-2", "20", 1, 20},
		{"zero page", "0", "50", 1, 50},
		{"per_page not in options", "2", "37", 2, DefaultPerPage},
		{"garbage", "abc", "xyz", 1, DefaultPerPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			q.Set("page", tt.page)
			q.Set("per_page", tt.perPage)
			pp := ParsePageParams(q)
			if pp.Page != tt.wantPage || pp.PerPage != tt.wantPerPage {
				t.Errorf("got %+v, want page=%d per_page=%d", pp, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}

func TestNewPageInfo(t *testing.T) {
	tests := []struct {
		name           string
		page           int
		perPage        int
		total          int
		wantPage       int
		wantTotalPages int
	}{
		{"empty catalog", 1, 20, 0, 1, 1},
		{"single partial page", 1, 20, 7, 1, 1},
		{"exact fit", 2, 10, 20, 2, 2},
		{"page past the end clamps", 9, 10, 25, 3, 3},
		{"page below one clamps", 0, 10, 25, 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(tt.page, tt.perPage, tt.total)
			if pi.Page != tt.wantPage || pi.TotalPages != tt.wantTotalPages {
				t.Errorf("got page=%d totalPages=%d, want page=%d totalPages=%d",
					pi.Page, pi.TotalPages, tt.wantPage, tt.wantTotalPages)
			}
		})
	}
}

func TestPageInfo_Offset(t *testing.T) {
	pi := NewPageInfo(3, 10, 100)
	if got := pi.Offset(); got != 20 {
		t.Errorf("expected offset 20, got %d", got)
	}
}

func TestPageInfo_PageNumbers(t *testing.T) {
	tests := []struct {
		name    string
		page    int
		perPage int
		total   int
		want    []int
	}{
		{"few pages shows all", 1, 10, 30, []int{1, 2, 3}},
		{"window centers on current", 5, 10, 100, []int{3, 4, 5, 6, 7}},
		{"window pinned at start", 1, 10, 100, []int{1, 2, 3, 4, 5}},
		{"window pinned at end", 10, 10, 100, []int{6, 7, 8, 9, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pi := NewPageInfo(tt.page, tt.perPage, tt.total)
			if got := pi.PageNumbers(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPageInfo_ShowPagination(t *testing.T) {
	if NewPageInfo(1, 20, 20).ShowPagination() {
		t.Error("single page must not show pagination")
	}
	if !NewPageInfo(1, 20, 21).ShowPagination() {
		t.Error("overflowing page must show pagination")
	}
}
