package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/starford/fsdriver/internal/apperr"
)

// Object is the result of a successful GetObject. Exactly one of Data or
// Listing is meaningful, selected by IsDir.
type Object struct {
	IsDir   bool
	Data    []byte
	Listing []Node
}

// FSOptions tunes an FS driver.
type FSOptions struct {
	// CreateBase creates the base directory when it does not exist.
	CreateBase bool
	// ConfineSymlinks resolves symlinks inside the tree and keeps them under the base.
	ConfineSymlinks bool
	Logger          *slog.Logger
}

// FS implements Driver backed by the local file system.
type FS struct {
	root            string // absolute, cleaned
	confineSymlinks bool
	logger          *slog.Logger
}

var _ Driver = (*FS)(nil)

// NewFS creates a file driver rooted at basePath.
func NewFS(basePath string, opts FSOptions) (*FS, error) {
	if basePath == "" {
		return nil, fmt.Errorf("storage: base path is required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve base: %w", err)
	}
	if opts.CreateBase {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create base: %w", err)
		}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat base: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: base is not a directory: %s", abs)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "file-driver"))
	logger.Info("using file store", slog.String("base_path", abs))

	return &FS{root: abs, confineSymlinks: opts.ConfineSymlinks, logger: logger}, nil
}

// Root returns the absolute base directory.
func (f *FS) Root() string {
	return f.root
}

// Provider implements Driver.
func (f *FS) Provider() string {
	return ProviderFile
}

// resolve confines name under the base and verifies the cleaned native
// path still lies inside it.
func (f *FS) resolve(name string) (string, error) {
	var p string
	if f.confineSymlinks {
		rel := filepath.FromSlash(CleanName(name))
		joined, err := securejoin.SecureJoin(f.root, rel)
		if err != nil {
			return "", fmt.Errorf("storage: resolve %s: %w", name, err)
		}
		p = joined
	} else {
		p = filepath.Clean(ResolvePath(f.root, name))
	}
	if !within(f.root, p) {
		return "", fmt.Errorf("storage: %w: %s", apperr.ErrOutsideBase, name)
	}
	return p, nil
}

func within(root, p string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(p, prefix)
}

// ObjectExists implements Driver.
func (f *FS) ObjectExists(name string) (bool, error) {
	p, err := f.resolve(name)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return false, nil
		}
		return false, fmt.Errorf("storage: stat %s: %w", name, err)
	}
	return true, nil
}

// GetObject implements Driver. It returns (nil, nil) when name does not exist.
func (f *FS) GetObject(name string) (*Object, error) {
	p, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: stat %s: %w", name, err)
	}

	if info.IsDir() {
		nodes, err := buildListing(p, f.logger)
		if err != nil {
			return nil, fmt.Errorf("storage: list %s: %w", name, err)
		}
		return &Object{IsDir: true, Listing: nodes}, nil
	}

	data, err := os.ReadFile(p)
	if err != nil {
		// Removed between stat and read.
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return &Object{Data: data}, nil
}

// PutObject implements Driver: tmp file, chmod, rename. Parent
// directories created along the way are left in place if the write fails.
// Names resolving to the base itself fail before anything is written.
func (f *FS) PutObject(name string, content []byte) error {
	p, err := f.resolve(name)
	if err != nil {
		return err
	}
	if p == f.root {
		return fmt.Errorf("storage: put %q: %w: %w", name, apperr.ErrRootTarget, syscall.EISDIR)
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// DeleteObject implements Driver. Directories are removed recursively.
func (f *FS) DeleteObject(name string) error {
	p, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

// tempPrefix marks in-flight writes; catalog sync and the watcher skip it.
const tempPrefix = ".fsdriver-tmp-"

// IsTemp reports whether a base name belongs to an in-flight write.
func IsTemp(base string) bool {
	return strings.HasPrefix(base, tempPrefix)
}
