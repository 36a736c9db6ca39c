package classmate

import (
	"time"

	"memorial-service/internal/db"
	"memorial-service/internal/province"

	"github.com/uptrace/bun"
)

type Classmate struct {
	bun.BaseModel `bun:"table:classmates,alias:c"`

	ID         int64              `bun:"id,pk,autoincrement" json:"id"`
	Name       string             `bun:"name,notnull" json:"name"`
	School     string             `bun:"school,notnull" json:"school"`
	Major      string             `bun:"major,notnull" json:"major"`
	ProvinceID int64              `bun:"province_id,notnull" json:"provinceId"`
	Province   *province.Province `bun:"rel:belongs-to,join:province_id=id" json:"province"`
	ImagePath  string             `bun:"image_path,notnull" json:"imagePath"`
	CreatedAt  time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt  time.Time          `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

type CreateClassmateRequest struct {
	Name       string `json:"name" validate:"required"`
	School     string `json:"school" validate:"required"`
	Major      string `json:"major" validate:"required"`
	ProvinceID int64  `json:"provinceId" validate:"required"`
}

// UpdateClassmateRequest applies only non-empty fields.
type UpdateClassmateRequest struct {
	Name       string `json:"name"`
	School     string `json:"school"`
	Major      string `json:"major"`
	ProvinceID int64  `json:"provinceId"`
}

// Migration creates the classmates table. province_id has no foreign key:
// deleting a province leaves its classmates in place with a null province.
func Migration() db.Migration {
	return db.Migration{
		Model: (*Classmate)(nil),
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS classmates_province_id_idx ON classmates (province_id)`,
		},
	}
}
