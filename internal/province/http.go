package province

import (
	"errors"
	"log/slog"
	"net/http"

	"memorial-service/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts /provinces; writes go through requireAdmin.
func (h *Handler) RegisterRoutes(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/provinces", func(r chi.Router) {
		r.Get("/", h.ListProvinces)
		r.Get("/{id}", h.GetProvince)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.CreateProvince)
			r.Patch("/{id}", h.UpdateProvince)
			r.Delete("/{id}", h.DeleteProvince)
		})
	})
}

func (h *Handler) ListProvinces(w http.ResponseWriter, r *http.Request) {
	provinces, err := h.service.ListProvinces(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, provinces)
}

func (h *Handler) GetProvince(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid province ID")
		return
	}

	province, err := h.service.GetProvince(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, province)
}

func (h *Handler) CreateProvince(w http.ResponseWriter, r *http.Request) {
	var req CreateProvinceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, httputil.ValidationMessage(err))
		return
	}

	h.logger.InfoContext(r.Context(), "creating province", "name", req.Name)
	province, err := h.service.CreateProvince(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, province)
}

func (h *Handler) UpdateProvince(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid province ID")
		return
	}

	var req UpdateProvinceRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	h.logger.InfoContext(r.Context(), "updating province", "id", id)
	province, err := h.service.UpdateProvince(r.Context(), id, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, province)
}

func (h *Handler) DeleteProvince(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid province ID")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting province", "id", id)
	if err := h.service.DeleteProvince(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithMessage(w, http.StatusOK, "province deleted")
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrProvinceNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "province not found")
	case errors.Is(err, ErrProvinceExists):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "province request failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
