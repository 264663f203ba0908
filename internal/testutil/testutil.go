// Package testutil provides shared test helpers for stores and catalogs.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/fsdriver/internal/catalog"
	"github.com/starford/fsdriver/internal/storage"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite catalog that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "fsdriver-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := catalog.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a temporary base directory with a file driver.
func TestStore(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir, storage.FSOptions{Logger: Logger()})
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}
