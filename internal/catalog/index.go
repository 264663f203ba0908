package catalog

import "github.com/starford/fsdriver/internal/models"

// Index is the set of catalog operations used outside this package.
type Index interface {
	Upsert(m models.ObjectMetadata) error
	DeletePrefix(path string) error
	Get(path string) (*models.ObjectMetadata, error)
	List(prefix string, limit, offset int) ([]models.ObjectMetadata, int, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ Index = (*DB)(nil)
