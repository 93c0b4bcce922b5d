package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edumarques81/stellar-remote/internal/infra/cache"
)

func openTestDB(t *testing.T) *cache.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db := cache.NewDB(dbPath)
	if err := db.Open(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB(t *testing.T) {
	db := cache.NewDB("")
	if db == nil {
		t.Error("NewDB should return a non-nil instance")
	}
}

func TestDBOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db := cache.NewDB(dbPath)

	if err := db.Open(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist after Open()")
	}

	if err := db.Close(); err != nil {
		t.Errorf("Failed to close database: %v", err)
	}

	if _, _, err := db.Get("x"); err != cache.ErrClosed {
		t.Errorf("Expected ErrClosed after Close(), got %v", err)
	}
}

func TestDBReopenKeepsEntries(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db := cache.NewDB(dbPath)
	if err := db.Open(); err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Put(cache.Entry{URI: "local:album:1", ImageURI: "/local/a.jpg", FilePath: "/tmp/a.jpg"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	db.Close()

	db = cache.NewDB(dbPath)
	if err := db.Open(); err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	e, ok, err := db.Get("local:album:1")
	if err != nil || !ok {
		t.Fatalf("Expected entry after reopen, ok=%v err=%v", ok, err)
	}
	if e.FilePath != "/tmp/a.jpg" {
		t.Errorf("Expected file path '/tmp/a.jpg', got '%s'", e.FilePath)
	}
}

func TestDBPutGet(t *testing.T) {
	db := openTestDB(t)

	tests := []struct {
		name  string
		entry cache.Entry
	}{
		{"album", cache.Entry{URI: "local:album:1", ImageURI: "/local/a.jpg", FilePath: "/img/a.jpg", Width: 300, Height: 300, FileSize: 1024}},
		{"track", cache.Entry{URI: "spotify:track:9", ImageURI: "https://i.example/9.jpg", FilePath: "/img/9.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.Put(tt.entry); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			got, ok, err := db.Get(tt.entry.URI)
			if err != nil || !ok {
				t.Fatalf("Get failed: ok=%v err=%v", ok, err)
			}
			if got.FilePath != tt.entry.FilePath || got.ImageURI != tt.entry.ImageURI {
				t.Errorf("Unexpected entry %+v", got)
			}
			if got.FetchedAt.IsZero() {
				t.Error("FetchedAt should default to now")
			}
		})
	}

	if _, ok, err := db.Get("missing"); ok || err != nil {
		t.Errorf("Expected missing entry, ok=%v err=%v", ok, err)
	}
}

func TestDBPutReplaces(t *testing.T) {
	db := openTestDB(t)

	db.Put(cache.Entry{URI: "u", ImageURI: "old", FilePath: "/old.jpg"})
	db.Put(cache.Entry{URI: "u", ImageURI: "new", FilePath: "/new.jpg"})

	got, _, _ := db.Get("u")
	if got.FilePath != "/new.jpg" {
		t.Errorf("Expected replaced path, got '%s'", got.FilePath)
	}
}

func TestDBFindByImageURI(t *testing.T) {
	db := openTestDB(t)

	db.Put(cache.Entry{URI: "local:album:1", ImageURI: "/local/shared.jpg", FilePath: "/img/shared.jpg"})

	got, ok, err := db.FindByImageURI("/local/shared.jpg")
	if err != nil || !ok {
		t.Fatalf("Expected shared entry, ok=%v err=%v", ok, err)
	}
	if got.URI != "local:album:1" {
		t.Errorf("Unexpected uri '%s'", got.URI)
	}

	if _, ok, _ := db.FindByImageURI("/local/other.jpg"); ok {
		t.Error("Unexpected match for unknown image uri")
	}
}

func TestDBGetStatsAndClear(t *testing.T) {
	db := openTestDB(t)

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.ImageCount != 0 {
		t.Errorf("Expected 0 images, got %d", stats.ImageCount)
	}
	if stats.SchemaVersion != cache.CurrentSchemaVersion {
		t.Errorf("Expected schema version '%s', got '%s'", cache.CurrentSchemaVersion, stats.SchemaVersion)
	}

	db.Put(cache.Entry{URI: "a", ImageURI: "ia", FilePath: "/a", FileSize: 10})
	db.Put(cache.Entry{URI: "b", ImageURI: "ib", FilePath: "/b", FileSize: 32})

	stats, _ = db.GetStats()
	if stats.ImageCount != 2 || stats.TotalBytes != 42 {
		t.Errorf("Expected 2 images / 42 bytes, got %d / %d", stats.ImageCount, stats.TotalBytes)
	}
	if stats.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set after Put")
	}

	if err := db.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	stats, _ = db.GetStats()
	if stats.ImageCount != 0 {
		t.Errorf("Expected 0 images after Clear, got %d", stats.ImageCount)
	}

	if err := db.Delete("a"); err != nil {
		t.Errorf("Delete of missing entry should not fail: %v", err)
	}
}
