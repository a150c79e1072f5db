package cache

import (
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "xpvm.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLookupMiss(t *testing.T) {
	c := openTestCache(t)
	e, err := c.Lookup("nonexistent")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e != nil {
		t.Fatalf("expected a cache miss, got %+v", e)
	}
}

func TestStoreThenLookup(t *testing.T) {
	c := openTestCache(t)
	if err := c.Store("abc123", "//item", "doc.xml", 1000); err != nil {
		t.Fatalf("Store: %v", err)
	}

	e, err := c.Lookup("abc123")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e == nil {
		t.Fatal("expected a cache hit")
	}
	if e.Source != "//item" || e.BaseURI != "doc.xml" || e.CompiledAt != 1000 {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.HitCount != 1 {
		t.Fatalf("HitCount = %d, want 1 on first lookup", e.HitCount)
	}

	e2, err := c.Lookup("abc123")
	if err != nil {
		t.Fatalf("second Lookup: %v", err)
	}
	if e2.HitCount != 2 {
		t.Fatalf("HitCount = %d, want 2 on second lookup", e2.HitCount)
	}
}

func TestStoreOverwritesExistingDigest(t *testing.T) {
	c := openTestCache(t)
	if err := c.Store("abc123", "//item", "a.xml", 1000); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Store("abc123", "//other", "b.xml", 2000); err != nil {
		t.Fatalf("Store (overwrite): %v", err)
	}

	e, err := c.Lookup("abc123")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e.Source != "//other" || e.BaseURI != "b.xml" || e.CompiledAt != 2000 {
		t.Fatalf("unexpected entry after overwrite: %+v", e)
	}
}

func TestCleanRemovesEntries(t *testing.T) {
	c := openTestCache(t)
	if err := c.Store("abc123", "//item", "a.xml", 1000); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Clean(); err != nil {
		t.Fatalf("Clean: %v", err)
	}
	e, err := c.Lookup("abc123")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if e != nil {
		t.Fatalf("expected Clean to remove entries, got %+v", e)
	}
}

func TestOpenWipesIncompatibleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xpvm.db")
	c := openTestCacheAt(t, path)
	if err := c.Store("abc123", "//item", "a.xml", 1000); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, err := c.db.Exec(`UPDATE meta SET value = ? WHERE key = 'format'`, []byte{0, 0, 0, 0, 0, 0}); err != nil {
		t.Fatalf("corrupting format stamp: %v", err)
	}
	c.Close()

	reopened := openTestCacheAt(t, path)
	e, err := reopened.Lookup("abc123")
	if err != nil {
		t.Fatalf("Lookup after reopen: %v", err)
	}
	if e != nil {
		t.Fatalf("expected a format mismatch to wipe old entries, got %+v", e)
	}
}

func openTestCacheAt(t *testing.T, path string) *Cache {
	t.Helper()
	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
