package document

import "testing"

func TestFromTexts_IndexesPages(t *testing.T) {
	doc := FromTexts("book", []string{"a", "", "c"})
	if doc.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", doc.PageCount())
	}
	for i, p := range doc.Pages {
		if p.Index != i {
			t.Errorf("page %d: expected index %d, got %d", i, i, p.Index)
		}
	}
	if doc.Text(2) != "c" {
		t.Errorf("expected page 2 text %q, got %q", "c", doc.Text(2))
	}
	if doc.Text(9) != "" {
		t.Errorf("expected empty text for out-of-range page, got %q", doc.Text(9))
	}
}

func TestDocument_TextBearing(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  bool
	}{
		{"all pages have text", []string{"one", "two"}, true},
		{"one blank page", []string{"one", "  \n"}, false},
		{"empty document", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromTexts("x", tt.texts).TextBearing(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDocument_NilSafe(t *testing.T) {
	var doc *Document
	if doc.PageCount() != 0 {
		t.Error("expected 0 pages for nil document")
	}
	if doc.Texts() != nil {
		t.Error("expected nil texts for nil document")
	}
}

func TestGroup_Selection(t *testing.T) {
	tests := []struct {
		g    Group
		want string
	}{
		{Group{Start: 0, End: 4}, "1-4"},
		{Group{Start: 4, End: 5}, "5"},
		{Group{Start: 9, End: 12}, "10-12"},
	}
	for _, tt := range tests {
		if got := tt.g.Selection(); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.g, tt.want, got)
		}
	}
}

func TestGroup_Pages(t *testing.T) {
	g := Group{Start: 2, End: 5}
	pages := g.Pages()
	want := []int{2, 3, 4}
	if len(pages) != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), len(pages))
	}
	for i, w := range want {
		if pages[i] != w {
			t.Errorf("page[%d]: expected %d, got %d", i, w, pages[i])
		}
	}
	if (Group{Start: 3, End: 3}).Pages() != nil {
		t.Error("expected nil pages for empty group")
	}
}
