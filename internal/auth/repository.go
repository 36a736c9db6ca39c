package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"memorial-service/internal/metrics"

	"github.com/uptrace/bun"
)

// setupLockKey serializes concurrent first-admin setups.
const setupLockKey = 0x6d656d6f61646d

type Repository interface {
	CreateFirst(ctx context.Context, admin *Admin) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	GetByID(ctx context.Context, id int64) (*Admin, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
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

// CreateFirst inserts admin only when the admins table is empty.
func (r *repository) CreateFirst(ctx context.Context, admin *Admin) error {
	start := time.Now()
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", setupLockKey); err != nil {
			return err
		}

		count, err := tx.NewSelect().Model((*Admin)(nil)).Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAdminExists
		}

		_, err = tx.NewInsert().Model(admin).Exec(ctx)
		return err
	})

	r.metrics.Database.RecordQuery(ctx, "insert", "admins", time.Since(start), err)

	return err
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	return r.get(ctx, "a.username = ?", username)
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Admin, error) {
	return r.get(ctx, "a.id = ?", id)
}

func (r *repository) get(ctx context.Context, where string, arg interface{}) (*Admin, error) {
	start := time.Now()
	admin := new(Admin)
	err := r.db.NewSelect().Model(admin).Where(where, arg).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "admins", time.Since(start), err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return admin, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	start := time.Now()
	result, err := r.db.NewUpdate().
		Model((*Admin)(nil)).
		Set("password_hash = ?", hash).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "admins", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAdminNotFound
	}
	return nil
}
