package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dewey/internal/index"
	"dewey/internal/ridset"
)

func newTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "foo.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "bar.go"), []byte("package sub"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".hidden"), []byte("secret"), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func newTestCatalog(root string) *Catalog {
	cat := New(root, NewFileResource)
	cat.AddIndex("name", index.NewString("name", true))
	cat.AddIndex("ext", index.NewString("ext", true))
	cat.AddIndex("isdir", index.NewEnumeration("isdir", "true", "false"))
	return cat
}

func TestCrawlOnceIndexesAndSkipsHidden(t *testing.T) {
	root := newTestTree(t)
	cat := newTestCatalog(root)

	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("CrawlOnce() error = %v", err)
	}

	// root, foo.txt, sub, sub/bar.go -- .hidden is skipped
	if n := ridset.Len(cat.Rids()); n != 4 {
		t.Errorf("expected 4 cataloged resources, got %d", n)
	}

	extIdx, ok := cat.GetIndex("ext")
	if !ok {
		t.Fatal("ext index not installed")
	}
	set, err := extIdx.Search("is_", ".txt")
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if ridset.Len(set) != 1 {
		t.Errorf("expected exactly one .txt resource, got %d", ridset.Len(set))
	}

	nameIdx, _ := cat.GetIndex("name")
	set, err = nameIdx.Search("is_", ".hidden")
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if ridset.Len(set) != 0 {
		t.Error("expected .hidden to never be cataloged")
	}
}

func TestCrawlOnceUnindexesRemovedFiles(t *testing.T) {
	root := newTestTree(t)
	cat := newTestCatalog(root)

	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("first CrawlOnce() error = %v", err)
	}
	before := ridset.Len(cat.Rids())

	if err := os.Remove(filepath.Join(root, "foo.txt")); err != nil {
		t.Fatal(err)
	}
	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("second CrawlOnce() error = %v", err)
	}

	after := ridset.Len(cat.Rids())
	if after != before-1 {
		t.Errorf("expected rid count to drop by 1, got %d -> %d", before, after)
	}

	extIdx, _ := cat.GetIndex("ext")
	set, err := extIdx.Search("is_", ".txt")
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if ridset.Len(set) != 0 {
		t.Error("expected .txt entry to be forgotten after removal")
	}
}

func TestCrawlOnceRepeatIsIdempotent(t *testing.T) {
	root := newTestTree(t)
	cat := newTestCatalog(root)

	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("first CrawlOnce() error = %v", err)
	}
	first := ridset.Len(cat.Rids())

	// force a modtime change on an unchanged file; re-crawling should
	// re-learn the same rid, not allocate a new one.
	bar := filepath.Join(root, "sub", "bar.go")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(bar, future, future); err != nil {
		t.Fatal(err)
	}

	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("second CrawlOnce() error = %v", err)
	}
	if n := ridset.Len(cat.Rids()); n != first {
		t.Errorf("expected rid count unchanged across idempotent crawl, got %d -> %d", first, n)
	}
}

func TestCrawlOnceKeepsRidAcrossModtimeChange(t *testing.T) {
	root := newTestTree(t)
	cat := newTestCatalog(root)

	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("first CrawlOnce() error = %v", err)
	}

	foo := filepath.Join(root, "foo.txt")
	rid, mtime, ok := cat.Lookup(foo)
	if !ok {
		t.Fatalf("expected %s cataloged", foo)
	}

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(foo, future, future); err != nil {
		t.Fatal(err)
	}
	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("second CrawlOnce() error = %v", err)
	}

	rid2, mtime2, ok := cat.Lookup(foo)
	if !ok {
		t.Fatalf("expected %s still cataloged", foo)
	}
	if rid2 != rid {
		t.Errorf("expected the same rid across a modtime change, got %d -> %d", rid, rid2)
	}
	if !mtime2.After(mtime) {
		t.Errorf("expected recorded modtime to advance, got %s -> %s", mtime, mtime2)
	}

	nameIdx, _ := cat.GetIndex("name")
	set, err := nameIdx.Search("is_", "foo.txt")
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if got := ridset.Slice(set); len(got) != 1 || got[0] != rid {
		t.Errorf("expected re-learned index entry under rid %d, got %v", rid, got)
	}
}

func TestCatalogReset(t *testing.T) {
	root := newTestTree(t)
	cat := newTestCatalog(root)

	if err := cat.CrawlOnce(context.Background()); err != nil {
		t.Fatalf("CrawlOnce() error = %v", err)
	}
	if ridset.Len(cat.Rids()) == 0 {
		t.Fatal("expected a non-empty catalog before reset")
	}

	cat.Reset()
	if n := ridset.Len(cat.Rids()); n != 0 {
		t.Errorf("expected empty catalog after Reset, got %d rids", n)
	}

	nameIdx, _ := cat.GetIndex("name")
	set, err := nameIdx.Search("is_", "foo.txt")
	if err != nil {
		t.Fatalf("Search error = %v", err)
	}
	if ridset.Len(set) != 0 {
		t.Error("expected index state cleared after Reset")
	}
}

func TestDefaultIgnoreIsComponentScoped(t *testing.T) {
	tests := []struct {
		path   string
		ignore bool
	}{
		{"/a/b/c.txt", false},
		{"/a/.git/config", true},
		{"/a/_build/out", true},
		{"/a.dotted.txt", false},
		{"/a/b..c/d", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := defaultIgnore(tt.path); got != tt.ignore {
				t.Errorf("defaultIgnore(%q) = %v, want %v", tt.path, got, tt.ignore)
			}
		})
	}
}
