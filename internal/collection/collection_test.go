package collection

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dewey/internal/catalog"
	"dewey/internal/errkind"
	"dewey/internal/index"
	"dewey/internal/ridset"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"a.txt":    "x",
		"b.txt":    "y",
		"c.go":     "z",
		"sub/d.go": "w",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cat := catalog.New(root, catalog.NewFileResource)
	cat.AddIndex("name", index.NewString("name", true))
	cat.AddIndex("ext", index.NewString("ext", true))
	cat.AddIndex("isdir", index.NewEnumeration("isdir", "true", "false"))
	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("CrawlOnce() error = %v", err)
	}
	return cat
}

func TestCollectionEmptyMatchesEverything(t *testing.T) {
	cat := newTestCatalog(t)
	c, err := New(cat, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	n, err := c.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	total := ridset.Len(cat.Rids())
	if n != total {
		t.Errorf("expected empty constraint to match all %d resources, got %d", total, n)
	}
}

func TestCollectionAND(t *testing.T) {
	cat := newTestCatalog(t)
	c, err := New(cat, "ext is_ .go")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.AND("isdir is_ false"); err != nil {
		t.Fatalf("AND() error = %v", err)
	}

	resources, err := c.Resources()
	if err != nil {
		t.Fatalf("Resources() error = %v", err)
	}
	if len(resources) != 2 {
		t.Errorf("expected 2 .go files, got %d", len(resources))
	}
	for _, r := range resources {
		if filepath.Ext(r.Path()) != ".go" {
			t.Errorf("unexpected resource in result: %s", r.Path())
		}
	}
}

func TestCollectionNOT(t *testing.T) {
	cat := newTestCatalog(t)
	c, err := New(cat, "isdir is_ false")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.NOT("ext is_ .go"); err != nil {
		t.Fatalf("NOT() error = %v", err)
	}

	resources, err := c.Resources()
	if err != nil {
		t.Fatalf("Resources() error = %v", err)
	}
	for _, r := range resources {
		if filepath.Ext(r.Path()) == ".go" {
			t.Errorf("NOT .go should have excluded %s", r.Path())
		}
	}
}

func TestCollectionOR(t *testing.T) {
	cat := newTestCatalog(t)
	c, err := New(cat, "name is_ a.txt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.OR("name is_ c.go"); err != nil {
		t.Fatalf("OR() error = %v", err)
	}

	n, err := c.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 matches across the OR groupings, got %d", n)
	}
}

func TestCollectionUnknownIndexIsBadQuery(t *testing.T) {
	cat := newTestCatalog(t)
	if _, err := New(cat, "nope is_ foo"); !errors.Is(err, errkind.ErrBadQuery) {
		t.Errorf("expected ErrBadQuery for unknown index, got %v", err)
	}
}

func TestCollectionMissingSearchIsBadQuery(t *testing.T) {
	cat := newTestCatalog(t)
	if _, err := New(cat, "ext"); !errors.Is(err, errkind.ErrBadQuery) {
		t.Errorf("expected ErrBadQuery when no search is given, got %v", err)
	}
}

func TestCollectionLimit(t *testing.T) {
	cat := newTestCatalog(t)
	c, err := New(cat, "")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.SetLimit(1); err != nil {
		t.Fatalf("SetLimit() error = %v", err)
	}

	n, err := c.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expected limit to cap Len() at 1, got %d", n)
	}

	raw, err := c.RawLen()
	if err != nil {
		t.Fatalf("RawLen() error = %v", err)
	}
	if raw <= 1 {
		t.Errorf("expected RawLen() to ignore the limit, got %d", raw)
	}
}

func TestCollectionSetLimitRejectsNonPositive(t *testing.T) {
	cat := newTestCatalog(t)
	c, _ := New(cat, "")
	for _, n := range []int{0, -1} {
		if err := c.SetLimit(n); !errors.Is(err, errkind.ErrBadLimit) {
			t.Errorf("SetLimit(%d) error = %v, want ErrBadLimit", n, err)
		}
	}
}

func TestCollectionUnlimit(t *testing.T) {
	cat := newTestCatalog(t)
	c, _ := New(cat, "")
	if err := c.SetLimit(1); err != nil {
		t.Fatalf("SetLimit() error = %v", err)
	}
	c.Unlimit()

	n, err := c.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if total := ridset.Len(cat.Rids()); n != total {
		t.Errorf("expected Len() %d after Unlimit, got %d", total, n)
	}
}

func TestCollectionORofNOTUsesUniverse(t *testing.T) {
	cat := newTestCatalog(t)
	c, err := New(cat, "name startswith a")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// (name startswith a) OR (everything NOT ext is .txt)
	if err := c.OR(""); err != nil {
		t.Fatalf("OR() error = %v", err)
	}
	if err := c.NOT("ext is_ .txt"); err != nil {
		t.Fatalf("NOT() error = %v", err)
	}

	resources, err := c.Resources()
	if err != nil {
		t.Fatalf("Resources() error = %v", err)
	}
	for _, r := range resources {
		name := filepath.Base(r.Path())
		if filepath.Ext(name) == ".txt" && name[0] != 'a' {
			t.Errorf("unexpected resource in result: %s", r.Path())
		}
	}

	if err := c.SetLimit(1); err != nil {
		t.Fatalf("SetLimit() error = %v", err)
	}
	limited, err := c.Resources()
	if err != nil {
		t.Fatalf("Resources() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected exactly 1 resource with limit=1, got %d", len(limited))
	}
}

func TestCollectionConstraintsRendering(t *testing.T) {
	cat := newTestCatalog(t)
	c, err := New(cat, "ext is .go")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := c.AND("isdir is false"); err != nil {
		t.Fatalf("AND() error = %v", err)
	}
	if err := c.OR("name startswith a"); err != nil {
		t.Fatalf("OR() error = %v", err)
	}

	got := c.Constraints()
	want := [][]string{
		{"ext is .go", "AND isdir is false"},
		{"OR name startswith a"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d groupings, want %d", len(got), len(want))
	}
	for i := range want {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("grouping %d: got %v, want %v", i, got[i], want[i])
		}
		for j := range want[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("grouping %d term %d: got %q, want %q", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestCollectionSortRequiresSortableIndex(t *testing.T) {
	cat := newTestCatalog(t)
	c, _ := New(cat, "")
	if err := c.SetSort("name"); err != nil {
		t.Errorf("SetSort(\"name\") unexpected error: %v", err)
	}
	if err := c.SetSort("nonexistent"); !errors.Is(err, errkind.ErrBadSort) {
		t.Errorf("expected ErrBadSort for unknown index, got %v", err)
	}
}

func TestCollectionAll(t *testing.T) {
	cat := newTestCatalog(t)
	c, err := New(cat, "ext is_ .txt")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	count := 0
	for range c.All() {
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 .txt resources ranged over All(), got %d", count)
	}
}

func TestParseLimit(t *testing.T) {
	n, err := ParseLimit(" 5 ")
	if err != nil {
		t.Fatalf("ParseLimit() error = %v", err)
	}
	if n != 5 {
		t.Errorf("got %d, want 5", n)
	}

	if _, err := ParseLimit("nope"); !errors.Is(err, errkind.ErrBadLimit) {
		t.Errorf("expected ErrBadLimit for non-numeric input, got %v", err)
	}
}
