package convlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationTurn is the durable row for one conversation-log message,
// adapted from the teacher's models.Message/models.Conversation pair
// into a single flat table — this proxy has no Agent/User/Industry
// tenancy model to join against, only a sessionId.
type ConversationTurn struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SessionID string    `gorm:"index;not null" json:"session_id"`
	Role      string    `gorm:"not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate mints a UUID before insert, matching the teacher's
// BaseModel.BeforeCreate hook pattern.
func (t *ConversationTurn) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// PostgresStore persists every appended conversation-log message as a
// ConversationTurn row, giving operators a queryable history beyond the
// in-memory ring's MaxConversations cap. It never gates or replaces the
// in-memory ring, which remains authoritative for GET/DELETE /conversations.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore wraps db for conversation-log overflow persistence.
// Callers must run database.Migrate(db, &ConversationTurn{}) first.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append durably records msg for sessionID.
func (s *PostgresStore) Append(ctx context.Context, sessionID string, msg Message) error {
	turn := ConversationTurn{
		SessionID: sessionID,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.TimestampUnix,
	}
	return s.db.WithContext(ctx).Create(&turn).Error
}
