package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of an owner's append-only chat log. Entries are never updated or deleted.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"not null;index:idx_chat_msg_owner_role_time,priority:1" json:"-"`
	Role      string    `gorm:"type:varchar(16);not null;index:idx_chat_msg_owner_role_time,priority:2" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index:idx_chat_msg_owner_role_time,priority:3" json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// TurnPair is a user message and the assistant reply that answered it. It is derived from the log
// on every read and never stored. ID is the assistant entry's id.
type TurnPair struct {
	ID          uint64    `json:"id"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
	Timestamp   time.Time `json:"timestamp"`
}
