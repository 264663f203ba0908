package catalog

import (
	"errors"
	"log/slog"
	"time"

	"github.com/starford/fsdriver/internal/apperr"
	"github.com/starford/fsdriver/internal/checksum"
	"github.com/starford/fsdriver/internal/models"
	"github.com/starford/fsdriver/internal/storage"
)

// Change kinds reported by Refresh and Watch.
const (
	KindCreated = models.ChangeCreated
	KindUpdated = models.ChangeUpdated
	KindDeleted = models.ChangeDeleted
)

// Record upserts the row for a file whose current content is data.
func Record(db Index, path string, data []byte) error {
	return db.Upsert(models.ObjectMetadata{
		Path:      path,
		Size:      int64(len(data)),
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now().UTC(),
	})
}

// Refresh reads path through driver and records it when its checksum
// differs from the catalog. It returns KindCreated or KindUpdated when the
// row changed, and "" otherwise (unchanged, missing or a directory).
func Refresh(db Index, driver storage.Driver, path string) (string, error) {
	obj, err := driver.GetObject(path)
	if err != nil {
		return "", err
	}
	if obj == nil || obj.IsDir {
		return "", nil
	}

	kind := KindUpdated
	prev, err := db.Get(path)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		kind = KindCreated
	case err != nil:
		return "", err
	case prev.Checksum == checksum.Sum(obj.Data):
		return "", nil
	}

	if err := Record(db, path, obj.Data); err != nil {
		return "", err
	}
	return kind, nil
}

// Sync walks the driver and brings the catalog up to date:
//   - new/changed files are recorded
//   - rows whose files are gone are removed
func Sync(db Index, driver storage.Driver, logger *slog.Logger) error {
	root, err := driver.GetObject("")
	if err != nil {
		return err
	}
	var paths []string
	if root != nil && root.IsDir {
		paths = storage.FilePaths("", root.Listing)
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		disk[p] = struct{}{}
		kind, err := Refresh(db, driver, p)
		if err != nil {
			logger.Warn("sync: refresh failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if kind != "" {
			logger.Debug("sync: recorded", slog.String("path", p), slog.String("op", kind))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeletePrefix(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}

	return nil
}
