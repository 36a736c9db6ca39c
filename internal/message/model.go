package message

import (
	"time"

	"memorial-service/internal/comment"
	"memorial-service/internal/db"
	"memorial-service/internal/moderation"

	"github.com/uptrace/bun"
)

type Message struct {
	bun.BaseModel `bun:"table:messages,alias:m"`

	ID        int64             `bun:"id,pk,autoincrement" json:"id"`
	Author    string            `bun:"author,notnull" json:"author"`
	Content   string            `bun:"content,notnull" json:"content"`
	Status    moderation.Status `bun:"status,notnull,nullzero,default:'pending'" json:"status"`
	Likes     int64             `bun:"likes,notnull,default:0" json:"likes"`
	IsPinned  bool              `bun:"is_pinned,notnull,default:false" json:"isPinned"`
	CreatedAt time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

type CreateMessageRequest struct {
	Author  string `json:"author" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type PinRequest struct {
	IsPinned *bool `json:"isPinned" validate:"required"`
}

type CreateMessageResponse struct {
	Message *Message `json:"message"`
	Info    string   `json:"info"`
}

type DetailResponse struct {
	Message  *Message          `json:"message"`
	Comments []comment.Comment `json:"comments"`
}

type LikeResponse struct {
	Likes int64 `json:"likes"`
}

// Migration creates the messages table. The partial unique index allows at
// most one pinned row.
func Migration() db.Migration {
	return db.Migration{
		Model: (*Message)(nil),
		Statements: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS messages_single_pin_idx ON messages (is_pinned) WHERE is_pinned`,
			`CREATE INDEX IF NOT EXISTS messages_status_created_idx ON messages (status, created_at DESC)`,
		},
	}
}
