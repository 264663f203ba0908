// Package objectservice coordinates the storage driver, the catalog and
// change notifications.
package objectservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/fsdriver/internal/apperr"
	"github.com/starford/fsdriver/internal/catalog"
	"github.com/starford/fsdriver/internal/checksum"
	"github.com/starford/fsdriver/internal/models"
	"github.com/starford/fsdriver/internal/storage"
)

// ErrCatalogDisabled is returned by catalog queries when no catalog is configured.
var ErrCatalogDisabled = errors.New("catalog disabled")

// Notifier receives object change events (created, updated, deleted).
type Notifier func(models.ObjectChange)

// Service wraps a storage.Driver. The catalog and notifier are optional.
type Service struct {
	driver  storage.Driver
	catalog catalog.Index
	notify  Notifier
}

// NewService creates a new object service. idx and notify may be nil.
func NewService(driver storage.Driver, idx catalog.Index, notify Notifier) *Service {
	return &Service{driver: driver, catalog: idx, notify: notify}
}

// Provider returns the routing tag of the underlying driver.
func (s *Service) Provider() string {
	return s.driver.Provider()
}

// Exists reports whether a file or directory exists at name.
func (s *Service) Exists(_ context.Context, name string) (bool, error) {
	return s.driver.ObjectExists(name)
}

// Get returns the object at name, or apperr.ErrNotFound.
func (s *Service) Get(_ context.Context, name string) (*storage.Object, error) {
	obj, err := s.driver.GetObject(name)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, apperr.ErrNotFound
	}
	return obj, nil
}

// Put writes content to name and reports whether it was newly created.
// A name that resolves to the store root is rejected with apperr.ErrRootTarget.
func (s *Service) Put(_ context.Context, name string, content []byte) (bool, error) {
	key, err := objectKey(name)
	if err != nil {
		return false, err
	}
	existed, err := s.driver.ObjectExists(name)
	if err != nil {
		return false, err
	}
	if err := s.driver.PutObject(name, content); err != nil {
		return false, err
	}

	if s.catalog != nil {
		if err := catalog.Record(s.catalog, key, content); err != nil {
			// The write itself succeeded; the watcher or next sync repairs the row.
			slog.Warn("catalog record failed", slog.String("path", key), slog.String("error", err.Error()))
		}
	}

	kind := catalog.KindUpdated
	if !existed {
		kind = catalog.KindCreated
	}
	s.emit(models.ObjectChange{
		Kind:     kind,
		Path:     key,
		Size:     int64(len(content)),
		Checksum: checksum.Sum(content),
	})
	return !existed, nil
}

// Delete removes name (recursively for directories). Missing targets are
// not an error; the store root itself cannot be deleted.
func (s *Service) Delete(_ context.Context, name string) error {
	key, err := objectKey(name)
	if err != nil {
		return err
	}
	existed, err := s.driver.ObjectExists(name)
	if err != nil {
		return err
	}
	if err := s.driver.DeleteObject(name); err != nil {
		return err
	}

	if s.catalog != nil {
		if err := s.catalog.DeletePrefix(key); err != nil {
			slog.Warn("catalog delete failed", slog.String("path", key), slog.String("error", err.Error()))
		}
	}
	if existed {
		s.emit(models.ObjectChange{Kind: catalog.KindDeleted, Path: key})
	}
	return nil
}

// Catalog lists recorded objects under prefix.
func (s *Service) Catalog(_ context.Context, prefix string, limit, offset int) ([]models.ObjectMetadata, int, error) {
	if s.catalog == nil {
		return nil, 0, ErrCatalogDisabled
	}
	return s.catalog.List(prefix, limit, offset)
}

// Metadata returns the catalog row for name, or apperr.ErrNotFound.
func (s *Service) Metadata(_ context.Context, name string) (*models.ObjectMetadata, error) {
	if s.catalog == nil {
		return nil, ErrCatalogDisabled
	}
	return s.catalog.Get(storage.CleanName(name))
}

// objectKey returns the catalog key for name. Names that clean down to the
// root ("", "/", "..") address the whole store and are refused.
func objectKey(name string) (string, error) {
	key := storage.CleanName(name)
	if key == "" {
		return "", fmt.Errorf("%w: %q", apperr.ErrRootTarget, name)
	}
	return key, nil
}

func (s *Service) emit(c models.ObjectChange) {
	if s.notify == nil {
		return
	}
	if c.Provider == "" {
		c.Provider = s.driver.Provider()
	}
	c.At = time.Now().UTC()
	s.notify(c)
}
