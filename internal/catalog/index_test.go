package catalog

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/fsdriver/internal/apperr"
	"github.com/starford/fsdriver/internal/checksum"
	"github.com/starford/fsdriver/internal/models"
	"github.com/starford/fsdriver/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "fsdriver-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM objects`).Scan(&count); err != nil {
		t.Fatalf("objects table missing: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	if err := db.Upsert(models.ObjectMetadata{Path: "a/b.txt", Size: 3, Checksum: "abc", UpdatedAt: now}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	m, err := db.Get("a/b.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Size != 3 || m.Checksum != "abc" {
		t.Errorf("row = %+v", m)
	}

	_ = db.Upsert(models.ObjectMetadata{Path: "a/b.txt", Size: 5, Checksum: "def", UpdatedAt: now})
	m, _ = db.Get("a/b.txt")
	if m.Size != 5 || m.Checksum != "def" {
		t.Errorf("after update row = %+v", m)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.Get("nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeletePrefix(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"dir/a", "dir/sub/b", "dir_x/c", "other"} {
		_ = db.Upsert(models.ObjectMetadata{Path: p, Checksum: "x"})
	}
	if err := db.DeletePrefix("dir"); err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	all, _ := db.AllChecksums()
	if len(all) != 2 {
		t.Fatalf("remaining = %v, want dir_x/c and other", all)
	}
	if _, ok := all["dir_x/c"]; !ok {
		t.Error("dir_x/c should survive: underscore must not act as a wildcard")
	}

	_ = db.DeletePrefix("")
	all, _ = db.AllChecksums()
	if len(all) != 0 {
		t.Errorf("empty prefix should clear catalog, got %v", all)
	}
}

func TestListPagination(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"img/1.png", "img/2.png", "img/3.png", "doc/readme"} {
		_ = db.Upsert(models.ObjectMetadata{Path: p, Checksum: "x"})
	}
	items, total, err := db.List("img/", 2, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(items) != 2 || items[0].Path != "img/2.png" || items[1].Path != "img/3.png" {
		t.Errorf("items = %+v", items)
	}

	items, total, _ = db.List("", 0, 0)
	if total != 4 || len(items) != 4 {
		t.Errorf("unfiltered: total=%d len=%d", total, len(items))
	}
}

func TestSync(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewFS(t.TempDir(), storage.FSOptions{Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	_ = store.PutObject("a.txt", []byte("a"))
	_ = store.PutObject("sub/b.bin", []byte{0, 1, 2})
	_ = db.Upsert(models.ObjectMetadata{Path: "stale.txt", Checksum: "old"})

	if err := Sync(db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	m, err := db.Get("sub/b.bin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if m.Size != 3 || m.Checksum != checksum.Sum([]byte{0, 1, 2}) {
		t.Errorf("row = %+v", m)
	}
	if _, err := db.Get("stale.txt"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("stale row should be removed")
	}
}

func TestRefreshKinds(t *testing.T) {
	db := testDB(t)
	store, _ := storage.NewFS(t.TempDir(), storage.FSOptions{Logger: quietLogger()})

	_ = store.PutObject("f.txt", []byte("v1"))
	kind, err := Refresh(db, store, "f.txt")
	if err != nil || kind != KindCreated {
		t.Fatalf("first refresh = %q, %v", kind, err)
	}
	kind, _ = Refresh(db, store, "f.txt")
	if kind != "" {
		t.Errorf("unchanged refresh = %q, want empty", kind)
	}
	_ = store.PutObject("f.txt", []byte("v2"))
	kind, _ = Refresh(db, store, "f.txt")
	if kind != KindUpdated {
		t.Errorf("changed refresh = %q, want %q", kind, KindUpdated)
	}
	kind, _ = Refresh(db, store, "missing.txt")
	if kind != "" {
		t.Errorf("missing refresh = %q, want empty", kind)
	}
}
