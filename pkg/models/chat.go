// Package models contains request/response models and business domain types.
package models

import "time"

// Chat is a titled container of ordered messages belonging to a user or
// anonymous session.
type Chat struct {
	ID             string    `json:"id"`
	OwnerKey       string    `json:"owner_key"`
	Title          string    `json:"title"`
	TitleGenerated bool      `json:"title_generated"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivity   time.Time `json:"last_activity"`
}

// PlaceholderTitle is the title a chat carries until the first user message
// triggers title generation.
const PlaceholderTitle = "New Chat"

// CreateChatRequest contains fields for creating a chat.
type CreateChatRequest struct {
	OwnerKey string `json:"session_id"`
	Title    string `json:"title"`
}
