// Package provider wraps LLM vendor chat-completion APIs behind one
// normalized gateway interface with synchronous and streaming calls.
package provider

import (
	"context"

	"github.com/modelfork/modelfork/pkg/models"
)

// Gateway is the normalized interface over one vendor's chat-completion API.
//
// StreamComplete returns a channel of chunks that is closed when the stream
// completes. Errors are delivered as ErrorChunk values in the channel; the
// producer goroutine exits when the context is cancelled, so abandoning a
// stream mid-way never leaks the underlying transport.
type Gateway interface {
	Complete(ctx context.Context, model string, messages []models.ChatMessage, opts Options) (string, error)
	StreamComplete(ctx context.Context, model string, messages []models.ChatMessage, opts Options) (<-chan Chunk, error)
}

// Options is the normalized configuration bag for a completion call.
//
// The token limit may arrive under any of three legacy names; providers have
// renamed the accepted parameter across model generations and callers should
// not need to know which name a given model expects. See ResolveTokenLimit.
type Options struct {
	MaxTokens           int     `json:"max_tokens,omitempty"`
	MaxOutputTokens     int     `json:"max_output_tokens,omitempty"`
	MaxCompletionTokens int     `json:"max_completion_tokens,omitempty"`
	Temperature         float32 `json:"temperature,omitempty"`
}

// Chunk is the interface for all streaming chunk types.
type Chunk interface {
	chunkType() ChunkType
}

// ChunkType identifies the kind of streaming chunk.
type ChunkType string

const (
	ChunkTypeText  ChunkType = "text"
	ChunkTypeError ChunkType = "error"
)

// TextChunk is an incremental fragment of the model's text response.
type TextChunk struct{ Content string }

// ErrorChunk signals a mid-stream error from the provider. It is always the
// last chunk delivered before the channel closes.
type ErrorChunk struct {
	Message    string
	StatusCode int
}

func (c *TextChunk) chunkType() ChunkType  { return ChunkTypeText }
func (c *ErrorChunk) chunkType() ChunkType { return ChunkTypeError }
