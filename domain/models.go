// Package domain defines the core domain models for the journaling service.
package domain

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// JournalEntry is a persisted user-authored text block with derived mood and
// tags. Entries are immutable once stored.
type JournalEntry struct {
	Content string    `json:"content"`
	Date    time.Time `json:"date"`
	Mood    string    `json:"mood,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
}

// Turn is a single message in a conversation session. Tags are present only on
// assistant turns produced from journal-entry mood analysis.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Tags      []string  `json:"tags,omitempty"`
}

// HistoryMessage is a role/content pair mirrored from a turn. The ordered
// history is the context sent to the completion service.
type HistoryMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
