// Package storage implements the path-confined file store driver.
package storage

import (
	"fmt"
	"log/slog"

	"github.com/starford/fsdriver/internal/apperr"
)

// ProviderFile is the tag the file driver reports from Provider.
const ProviderFile = "file"

// Driver is the uniform object contract shared by storage backends.
//
// GetObject distinguishes three outcomes: a non-nil Object with a nil error
// on success, (nil, nil) when nothing exists at name, and (nil, err) on any
// other failure.
type Driver interface {
	// Provider returns the routing tag of the implementation.
	Provider() string
	// ObjectExists reports whether a file or directory exists at name.
	ObjectExists(name string) (bool, error)
	// GetObject returns file contents or a recursive directory listing.
	GetObject(name string) (*Object, error)
	// PutObject writes content to name, creating parent directories.
	PutObject(name string, content []byte) error
	// DeleteObject removes a file or directory tree. Missing targets are not an error.
	DeleteObject(name string) error
}

// Config carries driver construction parameters.
type Config struct {
	Provider        string
	BasePath        string
	CreateBase      bool
	ConfineSymlinks bool
	Logger          *slog.Logger
}

// New constructs the driver selected by cfg.Provider.
func New(cfg Config) (Driver, error) {
	switch cfg.Provider {
	case ProviderFile, "":
		return NewFS(cfg.BasePath, FSOptions{
			CreateBase:      cfg.CreateBase,
			ConfineSymlinks: cfg.ConfineSymlinks,
			Logger:          cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("storage: %w: %q", apperr.ErrBadProvider, cfg.Provider)
	}
}
