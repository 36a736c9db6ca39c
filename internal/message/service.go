package message

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memorial-service/internal/comment"
	"memorial-service/internal/events"
	"memorial-service/internal/metrics"
	"memorial-service/internal/moderation"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidInput    = errors.New("invalid input")
)

const submittedInfo = "message submitted, awaiting moderation"

// CommentLister loads the visible comments of a message.
type CommentLister interface {
	ListByMessage(ctx context.Context, messageID int64) ([]comment.Comment, error)
}

type Service interface {
	ListPublic(ctx context.Context) ([]Message, error)
	// GetPinned returns nil when no visible message is pinned.
	GetPinned(ctx context.Context) (*Message, error)
	GetMessage(ctx context.Context, id int64) (*DetailResponse, error)
	CreateMessage(ctx context.Context, req CreateMessageRequest) (*Message, error)
	LikeMessage(ctx context.Context, id int64) (int64, error)
	ListAll(ctx context.Context) ([]Message, error)
	ListByStatus(ctx context.Context, status string) ([]Message, error)
	SetStatus(ctx context.Context, id int64, status string) (*Message, error)
	SetPinned(ctx context.Context, id int64, pinned bool) (*Message, error)
	DeleteMessage(ctx context.Context, id int64) error
}

type service struct {
	repo     Repository
	comments CommentLister
	notifier *events.Notifier
	metrics  *metrics.Metrics
}

func NewService(repo Repository, comments CommentLister, notifier *events.Notifier, m *metrics.Metrics) Service {
	return &service{
		repo:     repo,
		comments: comments,
		notifier: notifier,
		metrics:  m,
	}
}

func (s *service) ListPublic(ctx context.Context) ([]Message, error) {
	return s.repo.GetVisible(ctx)
}

func (s *service) GetPinned(ctx context.Context) (*Message, error) {
	return s.repo.GetPinned(ctx)
}

func (s *service) GetMessage(ctx context.Context, id int64) (*DetailResponse, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DetailResponse{Message: m, Comments: comments}, nil
}

func (s *service) CreateMessage(ctx context.Context, req CreateMessageRequest) (*Message, error) {
	m := &Message{
		Author:  strings.TrimSpace(req.Author),
		Content: strings.TrimSpace(req.Content),
		Status:  moderation.StatusPending,
	}
	if m.Author == "" || m.Content == "" {
		return nil, fmt.Errorf("%w: author and content are required", ErrInvalidInput)
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	s.metrics.Content.RecordSubmitted(ctx, "message")
	s.notifier.Notify(ctx, events.Event{Type: events.MessageSubmitted, ID: m.ID, Status: m.Status.String()})
	return m, nil
}

func (s *service) LikeMessage(ctx context.Context, id int64) (int64, error) {
	likes, err := s.repo.IncrementLikes(ctx, id)
	if err != nil {
		return 0, err
	}
	s.metrics.Content.RecordLike(ctx, "message")
	return likes, nil
}

func (s *service) ListAll(ctx context.Context) ([]Message, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) ListByStatus(ctx context.Context, raw string) ([]Message, error) {
	status, err := moderation.Parse(raw)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByStatus(ctx, status)
}

func (s *service) SetStatus(ctx context.Context, id int64, raw string) (*Message, error) {
	status, err := moderation.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.Content.RecordModeration(ctx, "message", "status")
	s.notifier.Notify(ctx, events.Event{Type: events.MessageStatusChanged, ID: m.ID, Status: m.Status.String()})
	return m, nil
}

func (s *service) SetPinned(ctx context.Context, id int64, pinned bool) (*Message, error) {
	if err := s.repo.SetPinned(ctx, id, pinned); err != nil {
		return nil, err
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.Content.RecordModeration(ctx, "message", "pin")
	s.notifier.Notify(ctx, events.Event{Type: events.MessagePinChanged, ID: m.ID, Pinned: &pinned})
	return m, nil
}

// DeleteMessage removes the message together with its comments.
func (s *service) DeleteMessage(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.metrics.Content.RecordModeration(ctx, "message", "delete")
	s.notifier.Notify(ctx, events.Event{Type: events.MessageDeleted, ID: id})
	return nil
}
