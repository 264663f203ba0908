// Package models defines the domain types shared by the catalog and API.
package models

import "time"

// ObjectMetadata describes one stored file as recorded in the catalog.
type ObjectMetadata struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Change kinds carried by ObjectChange.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// ObjectChange is one create, update or delete observed on the store.
// Size and Checksum are zero for deletions.
type ObjectChange struct {
	Kind     string    `json:"kind"`
	Path     string    `json:"path"`
	Provider string    `json:"provider,omitempty"`
	Size     int64     `json:"size,omitempty"`
	Checksum string    `json:"checksum,omitempty"`
	At       time.Time `json:"at"`
}
