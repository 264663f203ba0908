package api

import "github.com/starford/fsdriver/internal/models"

// PutObjectResponse is returned after a successful write.
type PutObjectResponse struct {
	Provider string `json:"provider" example:"file"`
	Path     string `json:"path" example:"docs/readme.txt"`
	Size     int    `json:"size" example:"42"`
	Checksum string `json:"checksum" example:"9f86d08..."`
	Created  bool   `json:"created"`
}

// CatalogResponse wraps paginated catalog listings.
type CatalogResponse struct {
	Objects []models.ObjectMetadata `json:"objects"`
	Total   int                     `json:"total" example:"42"`
}
