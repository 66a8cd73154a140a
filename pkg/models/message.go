package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one a caller may submit.
// System messages are synthesized internally and never accepted over HTTP.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one immutable turn in a chat. Messages for a chat are totally
// ordered by creation time; that order is replayed verbatim as conversation
// history to the model.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is the provider-facing {role, content} pair. It carries no
// identity or timestamps — only what the completion API needs.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History converts persisted messages to the provider wire shape.
func History(msgs []Message) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = ChatMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
