// Package apperr holds sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrOutsideBase = errors.New("path escapes base directory")
	ErrBadProvider = errors.New("unknown storage provider")
	ErrRootTarget  = errors.New("path resolves to the store root")
)
