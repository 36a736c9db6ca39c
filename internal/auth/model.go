package auth

import (
	"time"

	"memorial-service/internal/db"

	"github.com/uptrace/bun"
)

type Admin struct {
	bun.BaseModel `bun:"table:admins,alias:a"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Username     string    `bun:"username,notnull,unique" json:"username"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// View is the public projection of an admin.
func (a *Admin) View() AdminView {
	return AdminView{ID: a.ID, Username: a.Username}
}

type AdminView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SetupRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type TokenResponse struct {
	Token string    `json:"token"`
	Admin AdminView `json:"admin"`
}

type SetupResponse struct {
	Message string    `json:"message"`
	Admin   AdminView `json:"admin"`
}

func Migration() db.Migration {
	return db.Migration{Model: (*Admin)(nil)}
}
