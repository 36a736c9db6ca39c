package province

import (
	"time"

	"memorial-service/internal/db"

	"github.com/uptrace/bun"
)

type Position struct {
	X float64 `bun:"x,notnull" json:"x"`
	Y float64 `bun:"y,notnull" json:"y"`
}

type Province struct {
	bun.BaseModel `bun:"table:provinces,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	Name        string    `bun:"name,notnull,unique" json:"name"`
	EnglishName string    `bun:"english_name,notnull,unique" json:"englishName"`
	Description string    `bun:"description,notnull,default:''" json:"description"`
	Position    Position  `bun:"embed:position_" json:"position"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// PositionInput uses pointers so a coordinate of 0 still counts as supplied.
type PositionInput struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type CreateProvinceRequest struct {
	Name        string         `json:"name" validate:"required"`
	EnglishName string         `json:"englishName" validate:"required"`
	Description string         `json:"description"`
	Position    *PositionInput `json:"position" validate:"required"`
}

// UpdateProvinceRequest applies only non-empty fields.
type UpdateProvinceRequest struct {
	Name        string         `json:"name"`
	EnglishName string         `json:"englishName"`
	Description string         `json:"description"`
	Position    *PositionInput `json:"position" validate:"omitempty"`
}

func Migration() db.Migration {
	return db.Migration{Model: (*Province)(nil)}
}
