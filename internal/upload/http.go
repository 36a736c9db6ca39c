package upload

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"memorial-service/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	uploader *Uploader
	logger   *slog.Logger
}

func NewHandler(uploader *Uploader, logger *slog.Logger) *Handler {
	return &Handler{uploader: uploader, logger: logger}
}

// RegisterRoutes serves stored images at /images/{name}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/images/{name}", h.ServeImage)
}

func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rc, err := h.uploader.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to open image", "name", name, "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "image stream interrupted", "name", name, "error", err)
	}
}
