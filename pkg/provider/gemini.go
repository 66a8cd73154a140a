package provider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/modelfork/modelfork/pkg/models"
)

// GeminiGateway serves Google Gemini models through the GenAI API.
type GeminiGateway struct {
	client          *genai.Client
	streamMaxTokens int
}

// NewGeminiGateway creates a gateway for the Gemini API.
func NewGeminiGateway(ctx context.Context, apiKey string, streamMaxTokens int) (*GeminiGateway, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGateway{client: client, streamMaxTokens: streamMaxTokens}, nil
}

// Complete performs a synchronous generation and returns the full text.
func (g *GeminiGateway) Complete(ctx context.Context, model string, messages []models.ChatMessage, opts Options) (string, error) {
	contents, cfg := g.convert(messages, ResolveTokenLimit(opts), opts.Temperature)

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", mapGeminiError(err)
	}
	return resp.Text(), nil
}

// StreamComplete opens a streaming generation. Same channel contract as the
// OpenAI gateway: TextChunk deltas, closed on exhaustion, ErrorChunk on
// mid-stream failure.
func (g *GeminiGateway) StreamComplete(ctx context.Context, model string, messages []models.ChatMessage, opts Options) (<-chan Chunk, error) {
	contents, cfg := g.convert(messages, streamTokenLimit(opts, g.streamMaxTokens), opts.Temperature)

	out := make(chan Chunk, 64)
	go func() {
		defer close(out)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, model, contents, cfg) {
			if err != nil {
				apiErr := mapGeminiError(err).(*APIError)
				select {
				case out <- &ErrorChunk{Message: apiErr.Message, StatusCode: apiErr.StatusCode}:
				case <-ctx.Done():
				}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case out <- &TextChunk{Content: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// convert maps the normalized history to the GenAI content shape. Gemini has
// no system role in contents; system messages become the SystemInstruction,
// assistant turns become role "model". The token limit goes out as
// maxOutputTokens, Gemini's current name for it.
func (g *GeminiGateway) convert(messages []models.ChatMessage, tokenLimit int, temperature float32) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{}
	if tokenLimit > 0 {
		cfg.MaxOutputTokens = int32(tokenLimit)
	}
	if temperature > 0 {
		cfg.Temperature = genai.Ptr(temperature)
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			cfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
			}
			continue
		}
		role := genai.RoleUser
		if m.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents, cfg
}

func mapGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   "gemini",
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
		}
	}
	return &APIError{Provider: "gemini", Message: err.Error()}
}
