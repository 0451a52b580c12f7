package domain

import (
	"testing"
)

func TestGroupByCategory(t *testing.T) {
	challenges := []Challenge{
		{ID: 1, Name: "w1", Category: "Web"},
		{ID: 2, Name: "p1", Category: "Pwn"},
		{ID: 3, Name: "w2", Category: "Web"},
		{ID: 4, Name: "c1", Category: "Crypto"},
	}

	groups := GroupByCategory(challenges)

	wantOrder := []string{"Crypto", "Web", "Pwn"}
	if len(groups) != len(wantOrder) {
		t.Fatalf("expected %d groups, got %d", len(wantOrder), len(groups))
	}
	for i, want := range wantOrder {
		if groups[i].Category != want {
			t.Errorf("group %d: expected %s, got %s", i, want, groups[i].Category)
		}
	}
	web := groups[1].Challenges
	if len(web) != 2 || web[0].ID != 1 || web[1].ID != 3 {
		t.Errorf("expected web challenges in listing order, got %+v", web)
	}
}

func TestCategoryAnchor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "cat0"},
		{"a", "cat97"},
		{"ab", "cat3105"},
		{"a b", CategoryAnchor("a-b")},
	}
	for _, tt := range tests {
		if got := CategoryAnchor(tt.in); got != tt.want {
			t.Errorf("CategoryAnchor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSolvedPercent(t *testing.T) {
	c := Challenge{PercentageSolved: 0.456}
	if got := c.SolvedPercent(); got != 46 {
		t.Errorf("expected 46, got %d", got)
	}
}

func TestFileName(t *testing.T) {
	f := File{File: "3f2a/handout.tar.gz"}
	if got := f.Name(); got != "handout.tar.gz" {
		t.Errorf("expected handout.tar.gz, got %s", got)
	}
}
