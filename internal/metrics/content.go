package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ContentMetrics counts guestbook activity.
type ContentMetrics struct {
	submitted   metric.Int64Counter
	likes       metric.Int64Counter
	moderations metric.Int64Counter
	logins      metric.Int64Counter
}

func NewContentMetrics(meter metric.Meter) (*ContentMetrics, error) {
	cm := &ContentMetrics{}

	var err error

	cm.submitted, err = meter.Int64Counter(
		"guestbook.content.submitted",
		metric.WithDescription("Messages and comments submitted by visitors"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	cm.likes, err = meter.Int64Counter(
		"guestbook.content.likes",
		metric.WithDescription("Likes recorded on messages and comments"),
		metric.WithUnit("{like}"),
	)
	if err != nil {
		return nil, err
	}

	cm.moderations, err = meter.Int64Counter(
		"guestbook.moderation.actions",
		metric.WithDescription("Admin moderation actions"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, err
	}

	cm.logins, err = meter.Int64Counter(
		"guestbook.admin.logins",
		metric.WithDescription("Admin login attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordSubmitted counts a new message or comment; kind is "message" or "comment".
func (cm *ContentMetrics) RecordSubmitted(ctx context.Context, kind string) {
	if cm == nil || cm.submitted == nil {
		return
	}
	cm.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (cm *ContentMetrics) RecordLike(ctx context.Context, kind string) {
	if cm == nil || cm.likes == nil {
		return
	}
	cm.likes.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordModeration counts an admin action such as "status", "pin" or "delete".
func (cm *ContentMetrics) RecordModeration(ctx context.Context, kind, action string) {
	if cm == nil || cm.moderations == nil {
		return
	}
	cm.moderations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("action", action),
	))
}

func (cm *ContentMetrics) RecordLogin(ctx context.Context, success bool) {
	if cm == nil || cm.logins == nil {
		return
	}
	cm.logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
