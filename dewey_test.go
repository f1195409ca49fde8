package dewey

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"dewey/internal/catalog"
	"dewey/internal/collection"
	"dewey/internal/errkind"
	"dewey/internal/index"
	"dewey/internal/logging"
	"dewey/internal/ridset"
)

func testOptions(root string) Options {
	return Options{
		Root: root,
		Indices: map[string]index.Index{
			"name": index.NewString("name", true),
			"ext":  index.NewString("ext", true),
		},
		Logger:          logging.Nop(),
		CreateIfMissing: true,
	}
}

func seedTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt", "c.go"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestOpenMissingCatalogWithoutFactory(t *testing.T) {
	ctx := context.Background()
	address := "file://" + filepath.Join(t.TempDir(), "dewey.db")

	opts := testOptions(t.TempDir())
	opts.CreateIfMissing = false

	if _, err := Open(ctx, address, opts); !errors.Is(err, errkind.ErrMissingCatalog) {
		t.Errorf("expected ErrMissingCatalog, got %v", err)
	}
}

func TestOpenCrawlQueryClose(t *testing.T) {
	ctx := context.Background()
	root := seedTree(t)
	address := "file://" + filepath.Join(t.TempDir(), "dewey.db")

	d, err := Open(ctx, address, testOptions(root))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if err := d.Catalog().CrawlOnce(ctx); err != nil {
		t.Fatalf("CrawlOnce() error = %v", err)
	}

	// root dir + 3 files
	if n := ridset.Len(d.Catalog().Rids()); n != 4 {
		t.Errorf("expected 4 cataloged resources, got %d", n)
	}

	c, err := collection.New(d.Catalog(), "ext is .txt")
	if err != nil {
		t.Fatalf("collection.New() error = %v", err)
	}
	n, err := c.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 .txt resources, got %d", n)
	}
}

func TestOpenRestoresPersistedCatalog(t *testing.T) {
	ctx := context.Background()
	root := seedTree(t)
	address := "file://" + filepath.Join(t.TempDir(), "dewey.db")

	d, err := Open(ctx, address, testOptions(root))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := d.Catalog().CrawlOnce(ctx); err != nil {
		t.Fatalf("CrawlOnce() error = %v", err)
	}
	aRid, _, ok := d.Catalog().Lookup(filepath.Join(root, "a.txt"))
	if !ok {
		t.Fatal("expected a.txt cataloged")
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// a second process opening the same store sees the same catalog,
	// same rids included.
	d2, err := Open(ctx, address, testOptions(root))
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer d2.Close()

	rid, _, ok := d2.Catalog().Lookup(filepath.Join(root, "a.txt"))
	if !ok {
		t.Fatal("expected a.txt restored from the store")
	}
	if rid != aRid {
		t.Errorf("expected rid %d preserved across restart, got %d", aRid, rid)
	}

	var res catalog.Resource
	res, ok = d2.Catalog().Resource(rid)
	if !ok {
		t.Fatal("expected resource record rebuilt on restore")
	}
	if res.Path() != filepath.Join(root, "a.txt") {
		t.Errorf("unexpected restored resource path: %s", res.Path())
	}
}
