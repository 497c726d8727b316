package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestPageMetaKeepsUpstreamFields(t *testing.T) {
	in := `{"data":[{"id":1}],"meta":{"pagination":{"page":2,"pageSize":15,"pageCount":3,"total":40},"locale":"en"}}`

	var p Page
	if err := json.Unmarshal([]byte(in), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Meta.Pagination.Page != 2 || p.TotalPages() != 3 || p.Meta.Pagination.Total != 40 {
		t.Errorf("pagination = %+v", p.Meta.Pagination)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"locale":"en"`) {
		t.Errorf("re-encoded page dropped meta fields: %s", out)
	}

	var again Page
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatalf("Unmarshal again: %v", err)
	}
	if again.Meta.Pagination != p.Meta.Pagination {
		t.Errorf("pagination after round trip = %+v", again.Meta.Pagination)
	}
}

func TestPageMetaWithoutRaw(t *testing.T) {
	p := Page{Meta: PageMeta{Pagination: Pagination{Page: 1, PageCount: 1}}}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), `"pagination":{"page":1`) {
		t.Errorf("meta = %s", out)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		pageCount int
		want      int
	}{
		{0, 1},
		{-4, 1},
		{1, 1},
		{7, 7},
	}
	for _, tc := range tests {
		p := Page{Meta: PageMeta{Pagination: Pagination{PageCount: tc.pageCount}}}
		if got := p.TotalPages(); got != tc.want {
			t.Errorf("TotalPages(%d) = %d, want %d", tc.pageCount, got, tc.want)
		}
	}
}
