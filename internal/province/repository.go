package province

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"memorial-service/internal/db"
	"memorial-service/internal/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, province *Province) error
	GetAll(ctx context.Context) ([]Province, error)
	GetByID(ctx context.Context, id int64) (*Province, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, province *Province) error
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

func (r *repository) Create(ctx context.Context, province *Province) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(province).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "provinces", time.Since(start), err)

	if db.IsUniqueViolation(err) {
		return ErrProvinceExists
	}
	return err
}

func (r *repository) GetAll(ctx context.Context) ([]Province, error) {
	start := time.Now()
	provinces := []Province{}
	err := r.db.NewSelect().Model(&provinces).Order("name ASC").Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "provinces", time.Since(start), err)

	return provinces, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Province, error) {
	start := time.Now()
	province := new(Province)
	err := r.db.NewSelect().Model(province).Where("p.id = ?", id).Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "provinces", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProvinceNotFound
		}
		return nil, err
	}
	return province, nil
}

func (r *repository) Exists(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	exists, err := r.db.NewSelect().Model((*Province)(nil)).Where("p.id = ?", id).Exists(ctx)

	r.metrics.Database.RecordQuery(ctx, "exists", "provinces", time.Since(start), err)

	return exists, err
}

func (r *repository) Update(ctx context.Context, province *Province) error {
	start := time.Now()
	province.UpdatedAt = start
	result, err := r.db.NewUpdate().
		Model(province).
		Column("name", "english_name", "description", "position_x", "position_y", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "provinces", time.Since(start), err)

	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrProvinceExists
		}
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrProvinceNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Province)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "provinces", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrProvinceNotFound
	}
	return nil
}
