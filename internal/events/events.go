// Package events publishes guestbook content changes to a message broker.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"
)

type Type string

const (
	MessageSubmitted     Type = "message.submitted"
	MessageStatusChanged Type = "message.status_changed"
	MessagePinChanged    Type = "message.pin_changed"
	MessageDeleted       Type = "message.deleted"
	CommentSubmitted     Type = "comment.submitted"
	CommentStatusChanged Type = "comment.status_changed"
	CommentDeleted       Type = "comment.deleted"
)

type Event struct {
	Type      Type      `json:"type"`
	ID        int64     `json:"id"`
	MessageID int64     `json:"messageId,omitempty"`
	Status    string    `json:"status,omitempty"`
	Pinned    *bool     `json:"pinned,omitempty"`
	At        time.Time `json:"at"`
}

// Key partitions events by the message they belong to.
func (e Event) Key() string {
	id := e.MessageID
	if id == 0 {
		id = e.ID
	}
	return "message-" + strconv.FormatInt(id, 10)
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Notifier publishes without ever failing the caller.
type Notifier struct {
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewNotifier(publisher Publisher, logger *slog.Logger) *Notifier {
	return &Notifier{publisher: publisher, logger: logger, now: time.Now}
}

// Notify stamps and publishes ev; publish errors are logged and dropped.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	if n == nil || n.publisher == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = n.now().UTC()
	}
	if err := n.publisher.Publish(ctx, ev); err != nil {
		n.logger.WarnContext(ctx, "failed to publish content event", "type", ev.Type, "id", ev.ID, "error", err)
	}
}

func (n *Notifier) Close() error {
	if n == nil || n.publisher == nil {
		return nil
	}
	return n.publisher.Close()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
