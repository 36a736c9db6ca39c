package classmate

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"memorial-service/internal/httputil"
	"memorial-service/internal/province"
	"memorial-service/internal/upload"

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

func (h *Handler) RegisterRoutes(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/classmates", func(r chi.Router) {
		r.Get("/", h.ListClassmates)
		r.Get("/province/{id}", h.ListByProvince)
		r.Get("/{id}", h.GetClassmate)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.CreateClassmate)
			r.Patch("/{id}", h.UpdateClassmate)
			r.Delete("/{id}", h.DeleteClassmate)
		})
	})
}

func (h *Handler) ListClassmates(w http.ResponseWriter, r *http.Request) {
	classmates, err := h.service.ListClassmates(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, classmates)
}

func (h *Handler) ListByProvince(w http.ResponseWriter, r *http.Request) {
	provinceID, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid province ID")
		return
	}

	classmates, err := h.service.ListByProvince(r.Context(), provinceID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, classmates)
}

func (h *Handler) GetClassmate(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid classmate ID")
		return
	}

	classmate, err := h.service.GetClassmate(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, classmate)
}

func (h *Handler) CreateClassmate(w http.ResponseWriter, r *http.Request) {
	form, image, err := h.decode(w, r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	req := CreateClassmateRequest(form)
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, httputil.ValidationMessage(err))
		return
	}

	h.logger.InfoContext(r.Context(), "creating classmate", "name", req.Name, "province_id", req.ProvinceID, "with_image", image != nil)
	classmate, err := h.service.CreateClassmate(r.Context(), req, image)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, classmate)
}

func (h *Handler) UpdateClassmate(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid classmate ID")
		return
	}

	form, image, err := h.decode(w, r)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	req := UpdateClassmateRequest(form)

	h.logger.InfoContext(r.Context(), "updating classmate", "id", id)
	classmate, err := h.service.UpdateClassmate(r.Context(), id, req, image)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, classmate)
}

func (h *Handler) DeleteClassmate(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid classmate ID")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting classmate", "id", id)
	if err := h.service.DeleteClassmate(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithMessage(w, http.StatusOK, "classmate deleted")
}

type classmateForm struct {
	Name       string `json:"name"`
	School     string `json:"school"`
	Major      string `json:"major"`
	ProvinceID int64  `json:"provinceId"`
}

// decode reads either a multipart form (with an optional image part) or a JSON body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (classmateForm, *multipart.FileHeader, error) {
	var form classmateForm
	if !upload.IsMultipart(r) {
		if err := httputil.DecodeJSON(r, &form); err != nil {
			return form, nil, fmt.Errorf("%w: malformed JSON body", ErrInvalidInput)
		}
		return form, nil, nil
	}

	if err := upload.ParseForm(w, r); err != nil {
		return form, nil, err
	}
	form.Name = r.FormValue("name")
	form.School = r.FormValue("school")
	form.Major = r.FormValue("major")
	if raw := strings.TrimSpace(r.FormValue("provinceId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return form, nil, fmt.Errorf("%w: provinceId must be an integer", ErrInvalidInput)
		}
		form.ProvinceID = id
	}
	return form, upload.FormImage(r), nil
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrClassmateNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "classmate not found")
	case errors.Is(err, province.ErrProvinceNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "province not found")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, upload.ErrInvalidImage):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "classmate request failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
