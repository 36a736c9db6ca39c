package comment

import (
	"time"

	"memorial-service/internal/db"
	"memorial-service/internal/moderation"

	"github.com/uptrace/bun"
)

type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:cm"`

	ID        int64             `bun:"id,pk,autoincrement" json:"id"`
	MessageID int64             `bun:"message_id,notnull" json:"messageId"`
	Message   *MessageSummary   `bun:"rel:belongs-to,join:message_id=id" json:"message,omitempty"`
	Author    string            `bun:"author,notnull" json:"author"`
	Content   string            `bun:"content,notnull" json:"content"`
	Status    moderation.Status `bun:"status,notnull,nullzero,default:'pending'" json:"status"`
	Likes     int64             `bun:"likes,notnull,default:0" json:"likes"`
	CreatedAt time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// MessageSummary is the read-only view of a parent message used for
// existence checks and the admin listing.
type MessageSummary struct {
	bun.BaseModel `bun:"table:messages,alias:ms"`

	ID        int64             `bun:"id,pk" json:"id"`
	Author    string            `bun:"author" json:"author"`
	Content   string            `bun:"content" json:"content"`
	Status    moderation.Status `bun:"status" json:"status"`
	CreatedAt time.Time         `bun:"created_at" json:"createdAt"`
}

type CreateCommentRequest struct {
	MessageID int64  `json:"messageId" validate:"required"`
	Author    string `json:"author" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

type CreateCommentResponse struct {
	Comment *Comment `json:"comment"`
	Info    string   `json:"info"`
}

type LikeResponse struct {
	Likes int64 `json:"likes"`
}

// Migration must run after the messages table exists.
func Migration() db.Migration {
	return db.Migration{
		Model:       (*Comment)(nil),
		ForeignKeys: []string{`("message_id") REFERENCES "messages" ("id") ON DELETE CASCADE`},
		Statements: []string{
			`CREATE INDEX IF NOT EXISTS comments_message_id_idx ON comments (message_id)`,
		},
	}
}
