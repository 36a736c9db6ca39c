package message

import (
	"errors"
	"log/slog"
	"net/http"

	"memorial-service/internal/httputil"
	"memorial-service/internal/moderation"

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
		validate: moderation.NewValidator(),
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Route("/messages", func(r chi.Router) {
		r.Get("/public", h.ListPublic)
		r.Get("/pinned", h.GetPinned)
		r.Post("/", h.CreateMessage)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/all", h.ListAll)
			r.Get("/status/{status}", h.ListByStatus)
			r.Patch("/{id}/status", h.SetStatus)
			r.Patch("/{id}/pin", h.SetPinned)
			r.Delete("/{id}", h.DeleteMessage)
		})

		r.Get("/{id}", h.GetMessage)
		r.Post("/{id}/like", h.LikeMessage)
	})
}

func (h *Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListPublic(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, messages)
}

func (h *Handler) GetPinned(w http.ResponseWriter, r *http.Request) {
	message, err := h.service.GetPinned(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	if message == nil {
		httputil.RespondWithError(w, http.StatusNotFound, "no pinned message")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, message)
}

func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	detail, err := h.service.GetMessage(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, detail)
}

func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, httputil.ValidationMessage(err))
		return
	}

	message, err := h.service.CreateMessage(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "message submitted", "id", message.ID, "author", message.Author)
	httputil.RespondWithJSON(w, http.StatusCreated, CreateMessageResponse{Message: message, Info: submittedInfo})
}

func (h *Handler) LikeMessage(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	likes, err := h.service.LikeMessage(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, LikeResponse{Likes: likes})
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListAll(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, messages)
}

func (h *Handler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	messages, err := h.service.ListByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, messages)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	var req moderation.StatusRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, httputil.ValidationMessage(err))
		return
	}

	message, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "message status changed", "id", id, "status", message.Status)
	httputil.RespondWithJSON(w, http.StatusOK, message)
}

func (h *Handler) SetPinned(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	var req PinRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, httputil.ValidationMessage(err))
		return
	}

	message, err := h.service.SetPinned(r.Context(), id, *req.IsPinned)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "message pin changed", "id", id, "pinned", message.IsPinned)
	httputil.RespondWithJSON(w, http.StatusOK, message)
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	if err := h.service.DeleteMessage(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "message deleted", "id", id)
	httputil.RespondWithMessage(w, http.StatusOK, "message and its comments deleted")
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrMessageNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, moderation.ErrInvalidStatus):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "message request failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
