package provider

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/modelfork/modelfork/pkg/models"
)

// OpenAIGateway serves OpenAI chat models through the official
// chat/completions API.
type OpenAIGateway struct {
	client          *openai.Client
	streamMaxTokens int
}

// NewOpenAIGateway creates a gateway for the OpenAI API. baseURL overrides
// the endpoint when non-empty (proxies, test servers). streamMaxTokens is
// the token limit applied to streaming calls that don't set one.
func NewOpenAIGateway(apiKey, baseURL string, streamMaxTokens int) *OpenAIGateway {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGateway{
		client:          openai.NewClientWithConfig(cfg),
		streamMaxTokens: streamMaxTokens,
	}
}

// Complete performs a synchronous chat completion and returns the full
// assistant message content.
func (g *OpenAIGateway) Complete(ctx context.Context, model string, messages []models.ChatMessage, opts Options) (string, error) {
	req := g.buildRequest(model, messages, ResolveTokenLimit(opts), opts.Temperature)

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Provider: "openai", Message: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// StreamComplete opens a streaming chat completion. The returned channel
// delivers TextChunk deltas and is closed on end-of-stream; a mid-stream
// failure is delivered as a final ErrorChunk.
func (g *OpenAIGateway) StreamComplete(ctx context.Context, model string, messages []models.ChatMessage, opts Options) (<-chan Chunk, error) {
	req := g.buildRequest(model, messages, streamTokenLimit(opts, g.streamMaxTokens), opts.Temperature)
	req.Stream = true

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, mapOpenAIError(err)
	}

	out := make(chan Chunk, 64)
	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				apiErr := mapOpenAIError(err).(*APIError)
				select {
				case out <- &ErrorChunk{Message: apiErr.Message, StatusCode: apiErr.StatusCode}:
				case <-ctx.Done():
				}
				return
			}
			if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
				continue
			}
			select {
			case out <- &TextChunk{Content: resp.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// buildRequest translates the normalized call into the OpenAI request shape.
// The token limit goes out as max_completion_tokens — the name current model
// generations require (max_tokens is rejected by reasoning models).
func (g *OpenAIGateway) buildRequest(model string, messages []models.ChatMessage, tokenLimit int, temperature float32) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}
	if tokenLimit > 0 {
		req.MaxCompletionTokens = tokenLimit
	}
	if temperature > 0 {
		req.Temperature = temperature
	}
	return req
}

// mapOpenAIError converts SDK errors to the gateway error taxonomy,
// preserving the provider's status and message.
func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   "openai",
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{
			Provider:   "openai",
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
		}
	}
	return &APIError{Provider: "openai", Message: err.Error()}
}
