package comment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"memorial-service/internal/metrics"
	"memorial-service/internal/moderation"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, comment *Comment) error
	MessageExists(ctx context.Context, messageID int64) (bool, error)
	GetVisibleByMessage(ctx context.Context, messageID int64) ([]Comment, error)
	GetAll(ctx context.Context) ([]Comment, error)
	GetByStatus(ctx context.Context, status moderation.Status) ([]Comment, error)
	GetByID(ctx context.Context, id int64) (*Comment, error)
	IncrementLikes(ctx context.Context, id int64) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status moderation.Status) error
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

func (r *repository) Create(ctx context.Context, comment *Comment) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(comment).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "comments", time.Since(start), err)

	return err
}

func (r *repository) MessageExists(ctx context.Context, messageID int64) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().Model((*MessageSummary)(nil)).Where("ms.id = ?", messageID).Exists(ctx)

	r.metrics.Database.RecordQuery(ctx, "exists", "messages", time.Since(start), err)

	return exists, err
}

func (r *repository) GetVisibleByMessage(ctx context.Context, messageID int64) ([]Comment, error) {
	start := time.Now()
	comments := []Comment{}
	err := r.db.NewSelect().
		Model(&comments).
		Where("cm.message_id = ?", messageID).
		Where("cm.status = ?", moderation.StatusVisible).
		Order("cm.likes DESC", "cm.id ASC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "comments", time.Since(start), err)

	return comments, err
}

func (r *repository) GetAll(ctx context.Context) ([]Comment, error) {
	start := time.Now()
	comments := []Comment{}
	err := r.db.NewSelect().
		Model(&comments).
		Relation("Message").
		Order("cm.created_at DESC", "cm.id DESC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "comments", time.Since(start), err)

	return comments, err
}

func (r *repository) GetByStatus(ctx context.Context, status moderation.Status) ([]Comment, error) {
	start := time.Now()
	comments := []Comment{}
	err := r.db.NewSelect().
		Model(&comments).
		Relation("Message").
		Where("cm.status = ?", status).
		Order("cm.created_at DESC", "cm.id DESC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "comments", time.Since(start), err)

	return comments, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Comment, error) {
	start := time.Now()
	comment := new(Comment)
	err := r.db.NewSelect().Model(comment).Where("cm.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "comments", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return comment, nil
}

// IncrementLikes is one UPDATE ... RETURNING statement.
func (r *repository) IncrementLikes(ctx context.Context, id int64) (int64, error) {
	start := time.Now()
	var likes int64
	err := r.db.QueryRowContext(ctx,
		"UPDATE comments SET likes = likes + 1 WHERE id = ? RETURNING likes", id,
	).Scan(&likes)

	r.metrics.Database.RecordQuery(ctx, "update", "comments", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrCommentNotFound
	}
	return likes, err
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status moderation.Status) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Comment)(nil)).
		Set("status = ?", status).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "comments", time.Since(start), err)

	return notFoundIfUntouched(result, err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Comment)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "comments", time.Since(start), err)

	return notFoundIfUntouched(result, err)
}

func notFoundIfUntouched(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}
