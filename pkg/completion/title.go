package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelfork/modelfork/pkg/models"
	"github.com/modelfork/modelfork/pkg/provider"
)

const (
	titlePrompt = "Generate a concise title (max 5 words) summarizing what this conversation is about. Reply with the title only, no quotes or punctuation around it."

	titleTokenLimit = 16
	titleTimeout    = 10 * time.Second
	titleMaxLen     = 80
)

// generateTitle asks the configured title model to summarize the first user
// message. It runs with its own deadline so a slow title call never holds up
// the main completion path.
func (c *Completer) generateTitle(ctx context.Context, firstMessage string) (string, error) {
	gateway, err := c.registry.ForModel(c.titleModel)
	if err != nil {
		return "", fmt.Errorf("title model unavailable: %w", err)
	}

	titleCtx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	raw, err := gateway.Complete(titleCtx, c.titleModel, promptMessages(firstMessage),
		provider.Options{MaxTokens: titleTokenLimit})
	if err != nil {
		return "", err
	}

	title := sanitizeTitle(raw)
	if title == "" {
		return "", fmt.Errorf("title model returned empty content")
	}
	return title, nil
}

func promptMessages(firstMessage string) []models.ChatMessage {
	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: titlePrompt},
		{Role: models.RoleUser, Content: firstMessage},
	}
}

// sanitizeTitle strips the wrapping and whitespace models like to add.
func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	if len(title) > titleMaxLen {
		title = strings.TrimSpace(title[:titleMaxLen])
	}
	return title
}
