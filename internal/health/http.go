package health

import (
	"net/http"

	"memorial-service/internal/httputil"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	checker *Checker
}

func NewHandler(checker *Checker) *Handler {
	return &Handler{checker: checker}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
}

type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, Response{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	failures := h.checker.Run(r.Context())
	if len(failures) == 0 {
		httputil.RespondWithJSON(w, http.StatusOK, Response{Status: "ready"})
		return
	}

	checks := make(map[string]string, len(failures))
	for name, err := range failures {
		checks[name] = err.Error()
	}
	httputil.RespondWithJSON(w, http.StatusServiceUnavailable, Response{Status: "unavailable", Checks: checks})
}
