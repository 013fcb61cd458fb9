package chat

import "time"

// User is a transport-identified participant. Identity is the opaque
// external id the chat transport supplies; users are created lazily on
// first message and never deleted.
type User struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	ExternalID string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

// ChatInstance is the conversational state for one (user, persona) pair.
// The unique composite index enforces exactly one active instance per pair;
// counters accumulate monotonically between resets and are cleared together
// with the message history.
type ChatInstance struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	InstanceID string `gorm:"type:varchar(26);uniqueIndex;not null" json:"instance_id"`
	UserID     uint64 `gorm:"not null;index:uniq_user_persona,unique,priority:1" json:"-"`
	PersonaID  string `gorm:"type:varchar(64);not null;index:uniq_user_persona,unique,priority:2" json:"persona_id"`

	MessageCount int `gorm:"not null;default:0" json:"message_count"`
	TokenCount   int `gorm:"not null;default:0" json:"token_count"`
	CharCount    int `gorm:"not null;default:0" json:"char_count"`

	WindowStartedAt time.Time `gorm:"not null" json:"window_started_at"`
	LastActivityAt  time.Time `gorm:"not null" json:"last_activity_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ChatInstance) TableName() string { return "chat_instances" }

// Message roles, provider wire values.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored turn. Messages are append-only and owned
// exclusively by their instance.
type Message struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	InstanceID string    `gorm:"type:varchar(26);not null;index" json:"instance_id"`
	Role       string    `gorm:"type:varchar(16);not null" json:"role"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	TokenCount int       `gorm:"not null;default:0" json:"token_count"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }
