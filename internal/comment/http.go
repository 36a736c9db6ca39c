package comment

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
	r.Route("/comments", func(r chi.Router) {
		r.Get("/message/{id}", h.ListByMessage)
		r.Post("/", h.CreateComment)
		r.Post("/{id}/like", h.LikeComment)

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/all", h.ListAll)
			r.Get("/status/{status}", h.ListByStatus)
			r.Patch("/{id}/status", h.SetStatus)
			r.Delete("/{id}", h.DeleteComment)
		})
	})
}

func (h *Handler) ListByMessage(w http.ResponseWriter, r *http.Request) {
	messageID, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid message ID")
		return
	}

	comments, err := h.service.ListByMessage(r.Context(), messageID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, comments)
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, httputil.ValidationMessage(err))
		return
	}

	comment, err := h.service.CreateComment(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "comment submitted", "id", comment.ID, "message_id", comment.MessageID)
	httputil.RespondWithJSON(w, http.StatusCreated, CreateCommentResponse{Comment: comment, Info: submittedInfo})
}

func (h *Handler) LikeComment(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	likes, err := h.service.LikeComment(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, LikeResponse{Likes: likes})
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListAll(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, comments)
}

func (h *Handler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListByStatus(r.Context(), chi.URLParam(r, "status"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, comments)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid comment ID")
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

	comment, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "comment status changed", "id", id, "status", comment.Status)
	httputil.RespondWithJSON(w, http.StatusOK, comment)
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.IDParam(r, "id")
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	if err := h.service.DeleteComment(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "comment deleted", "id", id)
	httputil.RespondWithMessage(w, http.StatusOK, "comment deleted")
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCommentNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "comment not found")
	case errors.Is(err, ErrMessageNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, ErrInvalidInput), errors.Is(err, moderation.ErrInvalidStatus):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "comment request failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
