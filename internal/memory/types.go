package memory

import (
	"context"
	"errors"
	"time"
)

// Role identifies the author of a conversational turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SummaryType records where a summary's source material came from.
type SummaryType string

const (
	SummaryText SummaryType = "text"
	SummaryURL  SummaryType = "url"
	SummaryFile SummaryType = "file"
)

// MaxConversationLength bounds the per-user conversation log. Older
// messages are evicted oldest-first once the cap is reached.
const MaxConversationLength = 50

var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrInvalidRole   = errors.New("invalid message role")
)

// Message is a single user or assistant conversational turn.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SummaryRecord is one generated summary together with its provenance.
type SummaryRecord struct {
	ID        string            `json:"id"`
	Type      SummaryType       `json:"type"`
	Summary   string            `json:"summary"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// UserMemory is the full persisted state for one user identity.
type UserMemory struct {
	UserID        string          `json:"userId"`
	Conversations []Message       `json:"conversations"`
	Summaries     []SummaryRecord `json:"summaries"`
}

// Store persists per-user conversation history and generated summaries.
// Implementations must serialize mutations for the same user and must
// not let one user's state affect another's.
type Store interface {
	// LoadUserMemory returns the current state for userID, or a freshly
	// initialized empty state if the user has never been seen.
	LoadUserMemory(ctx context.Context, userID string) (UserMemory, error)

	// AddMessage appends a conversational turn and persists it before
	// returning. The conversation log is capped at MaxConversationLength.
	AddMessage(ctx context.Context, userID string, role Role, content string) error

	// AddSummary appends a summary record, persists it, and returns the
	// generated record ID.
	AddSummary(ctx context.Context, userID string, kind SummaryType, summary string, metadata map[string]string) (string, error)

	// GetRecentConversation returns the last min(limit, total) messages
	// in chronological order.
	GetRecentConversation(ctx context.Context, userID string, limit int) ([]Message, error)

	Close() error
}
