package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/fsdriver/internal/apperr"
	"github.com/starford/fsdriver/internal/checksum"
	"github.com/starford/fsdriver/internal/objectservice"
	"github.com/starford/fsdriver/internal/storage"
)

const maxObjectBytes = 32 << 20 // 32 MB

// Handler holds API route handlers.
type Handler struct {
	svc *objectservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *objectservice.Service) *Handler {
	return &Handler{svc: svc}
}

// objectPath extracts the logical name from the URL (everything after the
// route prefix). Encoded slashes are accepted (e.g. docs%2Fa.txt).
func objectPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps service errors to HTTP status codes.
func writeError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, pathError("not found", path))
	case errors.Is(err, apperr.ErrOutsideBase):
		writeJSON(w, http.StatusBadRequest, pathError("invalid path", path))
	case errors.Is(err, apperr.ErrRootTarget):
		writeJSON(w, http.StatusBadRequest, pathError("path is required", path))
	case errors.Is(err, objectservice.ErrCatalogDisabled):
		writeJSON(w, http.StatusNotImplemented, errorBody("catalog disabled"))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// HeadObject handles HEAD /api/objects/*.
//
//	@Summary		Check whether an object exists
//	@Tags			objects
//	@Param			path	path	string	true	"Object path"
//	@Success		200		"Exists"
//	@Failure		404		"Not found"
//	@Security		BearerAuth
//	@Router			/objects/{path} [head]
func (h *Handler) HeadObject(w http.ResponseWriter, r *http.Request) {
	path := objectPath(r)
	ok, err := h.svc.Exists(r.Context(), path)
	if err != nil {
		slog.Error("exists failed", slog.String("path", path), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("X-Storage-Provider", h.svc.Provider())
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetObject handles GET /api/objects/*. Files are returned as raw bytes,
// directories as a recursive JSON listing.
//
//	@Summary		Read a file or list a directory
//	@Tags			objects
//	@Produce		octet-stream,json
//	@Param			path	path		string	true	"Object path"
//	@Success		200		{array}		storage.Node
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/objects/{path} [get]
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	path := objectPath(r)
	obj, err := h.svc.Get(r.Context(), path)
	if err != nil {
		writeError(w, "get object", path, err)
		return
	}
	w.Header().Set("X-Storage-Provider", h.svc.Provider())
	if obj.IsDir {
		writeJSON(w, http.StatusOK, obj.Listing)
		return
	}

	etag := checksum.ETag(obj.Data)
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}

// PutObject handles PUT /api/objects/*. The request body is stored verbatim.
//
//	@Summary		Create or overwrite a file
//	@Tags			objects
//	@Accept			octet-stream
//	@Produce		json
//	@Param			path	path		string	true	"Object path"
//	@Success		200		{object}	PutObjectResponse
//	@Success		201		{object}	PutObjectResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/objects/{path} [put]
func (h *Handler) PutObject(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxObjectBytes)
	path := objectPath(r)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	created, err := h.svc.Put(r.Context(), path, body)
	if err != nil {
		writeError(w, "put object", path, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, PutObjectResponse{
		Provider: h.svc.Provider(),
		Path:     storage.CleanName(path),
		Size:     len(body),
		Checksum: checksum.Sum(body),
		Created:  created,
	})
}

// DeleteObject handles DELETE /api/objects/*. Deleting a missing object succeeds.
//
//	@Summary		Delete a file or directory tree
//	@Tags			objects
//	@Param			path	path	string	true	"Object path"
//	@Success		204		"Deleted"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/objects/{path} [delete]
func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	path := objectPath(r)
	if err := h.svc.Delete(r.Context(), path); err != nil {
		writeError(w, "delete object", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCatalog handles GET /api/catalog.
//
//	@Summary		List catalogued objects
//	@Tags			catalog
//	@Produce		json
//	@Param			prefix	query		string	false	"Path prefix"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	CatalogResponse
//	@Security		BearerAuth
//	@Router			/catalog [get]
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	prefix := q.Get("prefix")

	items, total, err := h.svc.Catalog(r.Context(), prefix, limit, offset)
	if err != nil {
		writeError(w, "list catalog", prefix, err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Objects: items, Total: total})
}

// GetMetadata handles GET /api/catalog/*.
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	path := objectPath(r)
	m, err := h.svc.Metadata(r.Context(), path)
	if err != nil {
		writeError(w, "get metadata", path, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
