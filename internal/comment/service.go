package comment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"memorial-service/internal/events"
	"memorial-service/internal/metrics"
	"memorial-service/internal/moderation"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrInvalidInput    = errors.New("invalid input")
)

const submittedInfo = "comment submitted, awaiting moderation"

type Service interface {
	ListByMessage(ctx context.Context, messageID int64) ([]Comment, error)
	CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error)
	LikeComment(ctx context.Context, id int64) (int64, error)
	ListAll(ctx context.Context) ([]Comment, error)
	ListByStatus(ctx context.Context, status string) ([]Comment, error)
	SetStatus(ctx context.Context, id int64, status string) (*Comment, error)
	DeleteComment(ctx context.Context, id int64) error
}

type service struct {
	repo     Repository
	notifier *events.Notifier
	metrics  *metrics.Metrics
}

func NewService(repo Repository, notifier *events.Notifier, m *metrics.Metrics) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
	}
}

// ListByMessage returns the visible comments of a message, most liked first.
func (s *service) ListByMessage(ctx context.Context, messageID int64) ([]Comment, error) {
	return s.repo.GetVisibleByMessage(ctx, messageID)
}

func (s *service) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	c := &Comment{
		MessageID: req.MessageID,
		Author:    strings.TrimSpace(req.Author),
		Content:   strings.TrimSpace(req.Content),
		Status:    moderation.StatusPending,
	}
	if c.MessageID <= 0 || c.Author == "" || c.Content == "" {
		return nil, fmt.Errorf("%w: author, content and messageId are required", ErrInvalidInput)
	}

	exists, err := s.repo.MessageExists(ctx, c.MessageID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrMessageNotFound
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.metrics.Content.RecordSubmitted(ctx, "comment")
	s.notifier.Notify(ctx, events.Event{Type: events.CommentSubmitted, ID: c.ID, MessageID: c.MessageID, Status: c.Status.String()})
	return c, nil
}

func (s *service) LikeComment(ctx context.Context, id int64) (int64, error) {
	likes, err := s.repo.IncrementLikes(ctx, id)
	if err != nil {
		return 0, err
	}
	s.metrics.Content.RecordLike(ctx, "comment")
	return likes, nil
}

func (s *service) ListAll(ctx context.Context) ([]Comment, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) ListByStatus(ctx context.Context, raw string) ([]Comment, error) {
	status, err := moderation.Parse(raw)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByStatus(ctx, status)
}

func (s *service) SetStatus(ctx context.Context, id int64, raw string) (*Comment, error) {
	status, err := moderation.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.metrics.Content.RecordModeration(ctx, "comment", "status")
	s.notifier.Notify(ctx, events.Event{Type: events.CommentStatusChanged, ID: c.ID, MessageID: c.MessageID, Status: c.Status.String()})
	return c, nil
}

func (s *service) DeleteComment(ctx context.Context, id int64) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.metrics.Content.RecordModeration(ctx, "comment", "delete")
	s.notifier.Notify(ctx, events.Event{Type: events.CommentDeleted, ID: c.ID, MessageID: c.MessageID})
	return nil
}
