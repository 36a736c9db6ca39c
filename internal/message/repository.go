package message

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"memorial-service/internal/comment"
	"memorial-service/internal/metrics"
	"memorial-service/internal/moderation"

	"github.com/uptrace/bun"
)

// pinLockKey serializes pin changes across connections.
const pinLockKey int64 = 0x6d656d6f70696e // "memopin"

type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetVisible(ctx context.Context) ([]Message, error)
	GetPinned(ctx context.Context) (*Message, error)
	GetByID(ctx context.Context, id int64) (*Message, error)
	GetAll(ctx context.Context) ([]Message, error)
	GetByStatus(ctx context.Context, status moderation.Status) ([]Message, error)
	IncrementLikes(ctx context.Context, id int64) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status moderation.Status) error
	SetPinned(ctx context.Context, id int64, pinned bool) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{
		db:      db,
		metrics: m,
	}
}

func (r *repository) Create(ctx context.Context, message *Message) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(message).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "messages", time.Since(start), err)

	return err
}

func (r *repository) GetVisible(ctx context.Context) ([]Message, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.status = ?", moderation.StatusVisible)
	})
}

func (r *repository) GetAll(ctx context.Context) ([]Message, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return q })
}

func (r *repository) GetByStatus(ctx context.Context, status moderation.Status) ([]Message, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("m.status = ?", status)
	})
}

// list returns messages newest first.
func (r *repository) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]Message, error) {
	start := time.Now()
	messages := []Message{}
	err := filter(r.db.NewSelect().Model(&messages)).
		Order("m.created_at DESC", "m.id DESC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "messages", time.Since(start), err)

	return messages, err
}

// GetPinned returns the pinned message if it is visible, or nil.
func (r *repository) GetPinned(ctx context.Context) (*Message, error) {
	start := time.Now()
	message := new(Message)
	err := r.db.NewSelect().
		Model(message).
		Where("m.is_pinned").
		Where("m.status = ?", moderation.StatusVisible).
		Limit(1).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "messages", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Message, error) {
	start := time.Now()
	message := new(Message)
	err := r.db.NewSelect().Model(message).Where("m.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "messages", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return message, nil
}

func (r *repository) IncrementLikes(ctx context.Context, id int64) (int64, error) {
	start := time.Now()
	var likes int64
	err := r.db.QueryRowContext(ctx,
		"UPDATE messages SET likes = likes + 1 WHERE id = ? RETURNING likes", id,
	).Scan(&likes)

	r.metrics.Database.RecordQuery(ctx, "update", "messages", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrMessageNotFound
	}
	return likes, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status moderation.Status) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Message)(nil)).
		Set("status = ?", status).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "messages", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// SetPinned pins or unpins id. Pinning clears every other pin in the same
// transaction under an advisory lock.
func (r *repository) SetPinned(ctx context.Context, id int64, pinned bool) error {
	start := time.Now()
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", pinLockKey); err != nil {
			return err
		}

		target := new(Message)
		if err := tx.NewSelect().Model(target).Where("m.id = ?", id).For("UPDATE").Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMessageNotFound
			}
			return err
		}

		if pinned {
			_, err := tx.NewUpdate().
				Model((*Message)(nil)).
				Set("is_pinned = FALSE").
				Set("updated_at = current_timestamp").
				Where("is_pinned").
				Where("id <> ?", id).
				Exec(ctx)
			if err != nil {
				return err
			}
		}

		_, err := tx.NewUpdate().
			Model((*Message)(nil)).
			Set("is_pinned = ?", pinned).
			Set("updated_at = current_timestamp").
			Where("id = ?", id).
			Exec(ctx)
		return err
	})

	r.metrics.Database.RecordQuery(ctx, "update", "messages", time.Since(start), err)

	return err
}

// Delete removes the message and all of its comments in one transaction.
func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*comment.Comment)(nil)).
			Where("message_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}

		result, err := tx.NewDelete().Model((*Message)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return ErrMessageNotFound
		}
		return nil
	})

	r.metrics.Database.RecordQuery(ctx, "delete", "messages", time.Since(start), err)

	return err
}
