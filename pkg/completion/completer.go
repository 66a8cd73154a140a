// Package completion orchestrates chat completions: it assembles history,
// relays provider output, persists the exchange, and drives title generation.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelfork/modelfork/pkg/events"
	"github.com/modelfork/modelfork/pkg/models"
	"github.com/modelfork/modelfork/pkg/provider"
	"github.com/modelfork/modelfork/pkg/services"
)

// Sink receives stream event payloads. events.SSEWriter satisfies it; tests
// substitute a recorder.
type Sink interface {
	Send(payload any) error
}

// Request is one completion call: the new user turn plus its target model.
// An empty ChatID makes the call stateless: nothing is read from or written
// to history. Role defaults to "user" and may only be "user" over HTTP.
type Request struct {
	ChatID  string           `json:"chat_id,omitempty"`
	Model   string           `json:"model"`
	Role    models.Role      `json:"role,omitempty"`
	Content string           `json:"content"`
	System  string           `json:"system,omitempty"`
	Options provider.Options `json:"options"`
}

// Result is the outcome of a synchronous completion. Title is non-empty only
// when this call generated the chat's title.
type Result struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content"`
	Title   string      `json:"title,omitempty"`
}

// Completer coordinates the chat service and provider gateways.
type Completer struct {
	chats         *services.ChatService
	registry      *provider.Registry
	logger        *slog.Logger
	titleModel    string
	historyWindow int
}

// NewCompleter creates a Completer. historyWindow caps how many trailing
// messages are replayed to the model; 0 replays everything.
func NewCompleter(chats *services.ChatService, registry *provider.Registry, logger *slog.Logger, titleModel string, historyWindow int) *Completer {
	return &Completer{
		chats:         chats,
		registry:      registry,
		logger:        logger.With("component", "completer"),
		titleModel:    titleModel,
		historyWindow: historyWindow,
	}
}

// Complete runs a synchronous completion. For chat-bound requests the user
// message and the assistant reply are both persisted, and the first exchange
// triggers title generation.
func (c *Completer) Complete(ctx context.Context, req Request) (*Result, error) {
	gateway, history, err := c.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	content, err := gateway.Complete(ctx, req.Model, history, req.Options)
	if err != nil {
		return nil, err
	}

	result := &Result{Role: models.RoleAssistant, Content: content}
	if req.ChatID != "" {
		if _, err := c.chats.AppendMessage(ctx, req.ChatID, models.RoleAssistant, content); err != nil {
			return nil, fmt.Errorf("failed to persist assistant message: %w", err)
		}
		result.Title = c.maybeGenerateTitle(ctx, req.ChatID, req.Content)
	}
	return result, nil
}

// CompleteStream runs a streaming completion, relaying each delta to the
// sink. The accumulated reply is persisted only on clean completion; a
// provider error or client disconnect discards the partial content, so
// history never holds half a reply.
func (c *Completer) CompleteStream(ctx context.Context, req Request, sink Sink) error {
	gateway, history, err := c.prepare(ctx, req)
	if err != nil {
		return err
	}

	chunks, err := gateway.StreamComplete(ctx, req.Model, history, req.Options)
	if err != nil {
		return err
	}

	outcome := drain(ctx, chunks, func(delta string) error {
		return sink.Send(events.DeltaEvent{Delta: delta})
	})
	if outcome.err != nil {
		// partial content is dropped on purpose
		return sink.Send(events.ErrorEvent{Error: outcome.err.Error()})
	}
	if outcome.interrupted {
		return ctx.Err()
	}

	done := events.DoneEvent{Done: true}
	if req.ChatID != "" {
		if _, err := c.chats.AppendMessage(ctx, req.ChatID, models.RoleAssistant, outcome.content); err != nil {
			return fmt.Errorf("failed to persist assistant message: %w", err)
		}
		done.Title = c.maybeGenerateTitle(ctx, req.ChatID, req.Content)
	}
	return sink.Send(done)
}

// prepare validates the request, persists the user message for chat-bound
// calls, and returns the gateway plus the full provider-facing history.
func (c *Completer) prepare(ctx context.Context, req Request) (provider.Gateway, []models.ChatMessage, error) {
	if req.Model == "" {
		return nil, nil, services.NewValidationError("model", "required")
	}
	if req.Content == "" {
		return nil, nil, services.NewValidationError("content", "required")
	}
	if req.Role != "" && req.Role != models.RoleUser {
		return nil, nil, services.NewValidationError("role", "must be 'user'")
	}

	gateway, err := c.registry.ForModel(req.Model)
	if err != nil {
		return nil, nil, err
	}

	var history []models.ChatMessage
	if req.System != "" {
		history = append(history, models.ChatMessage{Role: models.RoleSystem, Content: req.System})
	}

	if req.ChatID != "" {
		prior, err := c.chats.ListMessages(ctx, req.ChatID)
		if err != nil {
			return nil, nil, err
		}
		if _, err := c.chats.AppendMessage(ctx, req.ChatID, models.RoleUser, req.Content); err != nil {
			return nil, nil, err
		}
		history = append(history, models.History(c.trimHistory(prior))...)
	}

	history = append(history, models.ChatMessage{Role: models.RoleUser, Content: req.Content})
	return gateway, history, nil
}

// trimHistory keeps the trailing window of messages when a window is set.
func (c *Completer) trimHistory(msgs []models.Message) []models.Message {
	if c.historyWindow <= 0 || len(msgs) <= c.historyWindow {
		return msgs
	}
	return msgs[len(msgs)-c.historyWindow:]
}

// streamOutcome is the result of draining one chunk channel.
type streamOutcome struct {
	content     string
	err         error
	interrupted bool
}

// drain consumes a chunk channel, invoking onDelta per text chunk and
// accumulating the full content. It stops on the first error chunk, on a
// delta-delivery failure (client gone), or on context cancellation.
func drain(ctx context.Context, chunks <-chan provider.Chunk, onDelta func(string) error) streamOutcome {
	var builder strings.Builder
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				return streamOutcome{content: builder.String()}
			}
			switch ch := chunk.(type) {
			case *provider.TextChunk:
				builder.WriteString(ch.Content)
				if err := onDelta(ch.Content); err != nil {
					return streamOutcome{interrupted: true}
				}
			case *provider.ErrorChunk:
				return streamOutcome{err: &provider.APIError{StatusCode: ch.StatusCode, Message: ch.Message}}
			}
		case <-ctx.Done():
			return streamOutcome{interrupted: true}
		}
	}
}

// maybeGenerateTitle generates and installs the chat title after the first
// exchange. A failed generation is logged and leaves the flag unset, so the
// next exchange retries. Returns the installed title, or "" when this call
// did not set one.
func (c *Completer) maybeGenerateTitle(ctx context.Context, chatID, firstMessage string) string {
	chat, err := c.chats.GetChat(ctx, chatID)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			c.logger.Error("failed to load chat for title generation", "chat_id", chatID, "error", err)
		}
		return ""
	}
	if chat.TitleGenerated {
		return ""
	}

	title, err := c.generateTitle(ctx, firstMessage)
	if err != nil {
		c.logger.Warn("title generation failed, keeping placeholder", "chat_id", chatID, "error", err)
		return ""
	}

	won, err := c.chats.SetGeneratedTitle(ctx, chatID, title)
	if err != nil {
		c.logger.Error("failed to store generated title", "chat_id", chatID, "error", err)
		return ""
	}
	if !won {
		// a concurrent request generated the title first
		return ""
	}
	c.logger.Info("chat title generated", "chat_id", chatID, "title", title)
	return title
}
