// This file serves stored objects when the local storage backend is in use.
// With R2, clients follow presigned URLs instead and this handler is not
// registered.
//
// Route:
//   - GET /files/{key...} -> Serve
package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pilotos/fleetcore/internal/storage"
)

// FileHandler streams objects out of storage.
type FileHandler struct {
	files  storage.Storage
	logger *slog.Logger
}

// NewFileHandler creates a new FileHandler.
func NewFileHandler(files storage.Storage, logger *slog.Logger) *FileHandler {
	return &FileHandler{files: files, logger: logger}
}

// RegisterRoutes registers the file route on the provided mux.
func (h *FileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /files/{key...}", h.Serve)
}

// Serve handles GET /files/{key...}.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	obj, info, err := h.files.Get(r.Context(), key)
	if err != nil {
		if storage.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to open stored object", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer obj.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := io.Copy(w, obj); err != nil {
		h.logger.Warn("file stream interrupted", "key", key, "error", err)
	}
}
