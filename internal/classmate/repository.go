package classmate

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"memorial-service/internal/metrics"

	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, classmate *Classmate) error
	GetAll(ctx context.Context) ([]Classmate, error)
	GetByProvince(ctx context.Context, provinceID int64) ([]Classmate, error)
	GetByID(ctx context.Context, id int64) (*Classmate, error)
	Update(ctx context.Context, classmate *Classmate) error
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

func (r *repository) Create(ctx context.Context, classmate *Classmate) error {
	start := time.Now()
	_, err := r.db.NewInsert().Model(classmate).Returning("*").Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "insert", "classmates", time.Since(start), err)

	return err
}

func (r *repository) GetAll(ctx context.Context) ([]Classmate, error) {
	start := time.Now()
	classmates := []Classmate{}
	err := r.db.NewSelect().
		Model(&classmates).
		Relation("Province").
		Order("c.id ASC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "classmates", time.Since(start), err)

	dropOrphanedProvinces(classmates)
	return classmates, err
}

func (r *repository) GetByProvince(ctx context.Context, provinceID int64) ([]Classmate, error) {
	start := time.Now()
	classmates := []Classmate{}
	err := r.db.NewSelect().
		Model(&classmates).
		Relation("Province").
		Where("c.province_id = ?", provinceID).
		Order("c.id ASC").
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "classmates", time.Since(start), err)

	dropOrphanedProvinces(classmates)
	return classmates, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Classmate, error) {
	start := time.Now()
	classmate := new(Classmate)
	err := r.db.NewSelect().
		Model(classmate).
		Relation("Province").
		Where("c.id = ?", id).
		Scan(ctx)

	r.metrics.Database.RecordQuery(ctx, "select", "classmates", time.Since(start), err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClassmateNotFound
		}
		return nil, err
	}
	if classmate.Province != nil && classmate.Province.ID == 0 {
		classmate.Province = nil
	}
	return classmate, nil
}

func (r *repository) Update(ctx context.Context, classmate *Classmate) error {
	start := time.Now()
	classmate.UpdatedAt = start
	result, err := r.db.NewUpdate().
		Model(classmate).
		Column("name", "school", "major", "province_id", "image_path", "updated_at").
		WherePK().
		Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "update", "classmates", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrClassmateNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	result, err := r.db.NewDelete().Model((*Classmate)(nil)).Where("id = ?", id).Exec(ctx)

	r.metrics.Database.RecordQuery(ctx, "delete", "classmates", time.Since(start), err)

	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrClassmateNotFound
	}
	return nil
}

// A LEFT JOIN against a deleted province scans into an empty struct.
func dropOrphanedProvinces(classmates []Classmate) {
	for i := range classmates {
		if p := classmates[i].Province; p != nil && p.ID == 0 {
			classmates[i].Province = nil
		}
	}
}
