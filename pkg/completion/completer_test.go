package completion

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelfork/modelfork/pkg/catalog"
	"github.com/modelfork/modelfork/pkg/events"
	"github.com/modelfork/modelfork/pkg/models"
	"github.com/modelfork/modelfork/pkg/provider"
	"github.com/modelfork/modelfork/pkg/services"
	"github.com/modelfork/modelfork/test/util"
)

// mockGateway replays scripted responses and records the calls it receives.
type mockGateway struct {
	mu        sync.Mutex
	responses map[string]string              // model -> full content
	chunks    map[string][]provider.Chunk    // model -> streamed chunks
	streams   map[string]chan provider.Chunk // model -> caller-paced stream
	errs      map[string]error               // model -> synchronous error
	calls     []mockCall
}

type mockCall struct {
	model    string
	messages []models.ChatMessage
	opts     provider.Options
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		responses: map[string]string{},
		chunks:    map[string][]provider.Chunk{},
		streams:   map[string]chan provider.Chunk{},
		errs:      map[string]error{},
	}
}

func (m *mockGateway) record(model string, messages []models.ChatMessage, opts provider.Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mockCall{model: model, messages: messages, opts: opts})
}

func (m *mockGateway) callsFor(model string) []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []mockCall
	for _, c := range m.calls {
		if c.model == model {
			out = append(out, c)
		}
	}
	return out
}

func (m *mockGateway) Complete(_ context.Context, model string, messages []models.ChatMessage, opts provider.Options) (string, error) {
	m.record(model, messages, opts)
	if err := m.errs[model]; err != nil {
		return "", err
	}
	return m.responses[model], nil
}

func (m *mockGateway) StreamComplete(_ context.Context, model string, messages []models.ChatMessage, opts provider.Options) (<-chan provider.Chunk, error) {
	m.record(model, messages, opts)
	if err := m.errs[model]; err != nil {
		return nil, err
	}
	if stream, ok := m.streams[model]; ok {
		return stream, nil
	}
	out := make(chan provider.Chunk, len(m.chunks[model]))
	for _, ch := range m.chunks[model] {
		out <- ch
	}
	close(out)
	return out, nil
}

// recordingSink collects every payload sent to it.
type recordingSink struct {
	mu     sync.Mutex
	events []any
}

func (r *recordingSink) Send(payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, payload)
	return nil
}

func (r *recordingSink) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

func setupCompleter(t *testing.T) (*Completer, *services.ChatService, *mockGateway) {
	db := util.SetupTestDatabase(t)
	chats := services.NewChatService(db)

	gw := newMockGateway()
	registry := provider.NewRegistry()
	registry.Register(catalog.ProviderOpenAI, gw)

	completer := NewCompleter(chats, registry, slog.Default(), "gpt-5-nano", 0)
	return completer, chats, gw
}

func TestCompleterComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("stateless request", func(t *testing.T) {
		completer, _, gw := setupCompleter(t)
		gw.responses["gpt-5-mini"] = "the answer"

		result, err := completer.Complete(ctx, Request{Model: "gpt-5-mini", Content: "question"})
		require.NoError(t, err)
		assert.Equal(t, "the answer", result.Content)
		assert.Empty(t, result.Title)

		calls := gw.callsFor("gpt-5-mini")
		require.Len(t, calls, 1)
		assert.Equal(t, []models.ChatMessage{{Role: models.RoleUser, Content: "question"}}, calls[0].messages)
	})

	t.Run("chat-bound request persists both turns and titles the chat", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		gw.responses["gpt-5-mini"] = "assistant reply"
		gw.responses["gpt-5-nano"] = "Paris Trip"

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		result, err := completer.Complete(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: "plan a trip to Paris"})
		require.NoError(t, err)
		assert.Equal(t, "assistant reply", result.Content)
		assert.Equal(t, "Paris Trip", result.Title)

		msgs, err := chats.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, models.RoleUser, msgs[0].Role)
		assert.Equal(t, models.RoleAssistant, msgs[1].Role)

		got, err := chats.GetChat(ctx, chat.ID)
		require.NoError(t, err)
		assert.Equal(t, "Paris Trip", got.Title)
		assert.True(t, got.TitleGenerated)

		titleCalls := gw.callsFor("gpt-5-nano")
		require.Len(t, titleCalls, 1)
		require.NotEmpty(t, titleCalls[0].messages)
		assert.Equal(t, models.RoleSystem, titleCalls[0].messages[0].Role)
		assert.Contains(t, titleCalls[0].messages[0].Content, "max 5 words")
	})

	t.Run("second exchange does not regenerate title", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		gw.responses["gpt-5-mini"] = "reply"
		gw.responses["gpt-5-nano"] = "First Title"

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		_, err = completer.Complete(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: "first"})
		require.NoError(t, err)

		result, err := completer.Complete(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: "second"})
		require.NoError(t, err)
		assert.Empty(t, result.Title)

		assert.Len(t, gw.callsFor("gpt-5-nano"), 1)
	})

	t.Run("history is replayed in order", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		gw.responses["gpt-5-mini"] = "reply"
		gw.responses["gpt-5-nano"] = "Title"

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		_, err = completer.Complete(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: "first"})
		require.NoError(t, err)
		_, err = completer.Complete(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: "second"})
		require.NoError(t, err)

		calls := gw.callsFor("gpt-5-mini")
		require.Len(t, calls, 2)
		assert.Equal(t, []models.ChatMessage{
			{Role: models.RoleUser, Content: "first"},
			{Role: models.RoleAssistant, Content: "reply"},
			{Role: models.RoleUser, Content: "second"},
		}, calls[1].messages)
	})

	t.Run("unknown model rejected before any persistence", func(t *testing.T) {
		completer, chats, _ := setupCompleter(t)

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		_, err = completer.Complete(ctx, Request{ChatID: chat.ID, Model: "not-a-model", Content: "hi"})
		assert.ErrorIs(t, err, provider.ErrUnsupportedModel)

		count, err := chats.CountMessages(ctx, chat.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("provider failure leaves the user message persisted", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		gw.errs["gpt-5-mini"] = &provider.APIError{Provider: "openai", StatusCode: 500, Message: "boom"}

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		_, err = completer.Complete(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: "hi"})
		require.Error(t, err)
		assert.True(t, provider.IsAPIError(err))

		msgs, err := chats.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, models.RoleUser, msgs[0].Role)
	})
}

func TestCompleterHistoryWindow(t *testing.T) {
	ctx := context.Background()
	db := util.SetupTestDatabase(t)
	chats := services.NewChatService(db)

	gw := newMockGateway()
	gw.responses["gpt-5-mini"] = "reply"
	gw.responses["gpt-5-nano"] = "Title"
	registry := provider.NewRegistry()
	registry.Register(catalog.ProviderOpenAI, gw)

	completer := NewCompleter(chats, registry, slog.Default(), "gpt-5-nano", 2)

	chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
	require.NoError(t, err)

	for _, msg := range []string{"one", "two", "three"} {
		_, err = completer.Complete(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: msg})
		require.NoError(t, err)
	}

	calls := gw.callsFor("gpt-5-mini")
	require.Len(t, calls, 3)
	// five prior messages exist; only the trailing two survive the window
	assert.Equal(t, []models.ChatMessage{
		{Role: models.RoleUser, Content: "two"},
		{Role: models.RoleAssistant, Content: "reply"},
		{Role: models.RoleUser, Content: "three"},
	}, calls[2].messages)
}

func TestCompleterCompleteStream(t *testing.T) {
	ctx := context.Background()

	t.Run("relays deltas and persists on clean end", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		gw.chunks["gpt-5-mini"] = []provider.Chunk{
			&provider.TextChunk{Content: "Hel"},
			&provider.TextChunk{Content: "lo"},
		}
		gw.responses["gpt-5-nano"] = "Greeting"

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		sink := &recordingSink{}
		err = completer.CompleteStream(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: "hi"}, sink)
		require.NoError(t, err)

		got := sink.all()
		require.Len(t, got, 3)
		assert.Equal(t, events.DeltaEvent{Delta: "Hel"}, got[0])
		assert.Equal(t, events.DeltaEvent{Delta: "lo"}, got[1])
		assert.Equal(t, events.DoneEvent{Done: true, Title: "Greeting"}, got[2])

		msgs, err := chats.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "Hello", msgs[1].Content)
	})

	t.Run("mid-stream error discards partial content", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		gw.chunks["gpt-5-mini"] = []provider.Chunk{
			&provider.TextChunk{Content: "partial"},
			&provider.ErrorChunk{Message: "rate limited", StatusCode: 429},
		}

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		sink := &recordingSink{}
		err = completer.CompleteStream(ctx, Request{ChatID: chat.ID, Model: "gpt-5-mini", Content: "hi"}, sink)
		require.NoError(t, err)

		got := sink.all()
		require.Len(t, got, 2)
		errEvent, ok := got[1].(events.ErrorEvent)
		require.True(t, ok)
		assert.Contains(t, errEvent.Error, "rate limited")

		// only the user message survives; the partial reply is gone
		msgs, err := chats.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, models.RoleUser, msgs[0].Role)
	})
}

func TestCompleterCompare(t *testing.T) {
	ctx := context.Background()

	t.Run("both succeed, only slot one persisted", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		gw.responses["gpt-5-mini"] = "mini says"
		gw.responses["gpt-4o"] = "4o says"
		gw.responses["gpt-5-nano"] = "Title"

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		result, err := completer.Compare(ctx, CompareRequest{
			ChatID: chat.ID, Model1: "gpt-5-mini", Model2: "gpt-4o", Content: "hi",
		})
		require.NoError(t, err)
		assert.Equal(t, "mini says", result.Model1.Content)
		assert.Equal(t, "4o says", result.Model2.Content)

		msgs, err := chats.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "mini says", msgs[1].Content)
	})

	t.Run("slots fail independently", func(t *testing.T) {
		completer, _, gw := setupCompleter(t)
		gw.responses["gpt-5-mini"] = "fine"
		gw.errs["gpt-4o"] = &provider.APIError{Provider: "openai", StatusCode: 500, Message: "boom"}

		result, err := completer.Compare(ctx, CompareRequest{
			Model1: "gpt-5-mini", Model2: "gpt-4o", Content: "hi",
		})
		require.NoError(t, err)
		assert.Equal(t, "fine", result.Model1.Content)
		assert.Empty(t, result.Model2.Content)
		assert.Contains(t, result.Model2.Error, "boom")
	})

	t.Run("same model in both slots", func(t *testing.T) {
		completer, _, gw := setupCompleter(t)
		gw.responses["gpt-5-mini"] = "twice"

		result, err := completer.Compare(ctx, CompareRequest{
			Model1: "gpt-5-mini", Model2: "gpt-5-mini", Content: "hi",
		})
		require.NoError(t, err)
		assert.Equal(t, "twice", result.Model1.Content)
		assert.Equal(t, "twice", result.Model2.Content)
		assert.Len(t, gw.callsFor("gpt-5-mini"), 2)
	})
}

func TestCompleterCompareStream(t *testing.T) {
	ctx := context.Background()

	t.Run("slot-tagged events with final allDone", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		gw.chunks["gpt-5-mini"] = []provider.Chunk{&provider.TextChunk{Content: "one"}}
		gw.chunks["gpt-4o"] = []provider.Chunk{&provider.TextChunk{Content: "two"}}
		gw.responses["gpt-5-nano"] = "Title"

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		sink := &recordingSink{}
		err = completer.CompareStream(ctx, CompareRequest{
			ChatID: chat.ID, Model1: "gpt-5-mini", Model2: "gpt-4o", Content: "hi",
		}, sink)
		require.NoError(t, err)

		got := sink.all()
		require.NotEmpty(t, got)
		assert.Equal(t, events.AllDoneEvent{AllDone: true}, got[len(got)-1])

		var slots []events.Slot
		var doneSlots []events.Slot
		for _, e := range got {
			switch ev := e.(type) {
			case events.DeltaEvent:
				slots = append(slots, ev.Model)
			case events.DoneEvent:
				doneSlots = append(doneSlots, ev.Model)
			}
		}
		assert.ElementsMatch(t, []events.Slot{events.SlotModel1, events.SlotModel2}, slots)
		assert.ElementsMatch(t, []events.Slot{events.SlotModel1, events.SlotModel2}, doneSlots)

		msgs, err := chats.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "one", msgs[1].Content)
	})

	t.Run("fast slot's done is not held for the slow slot", func(t *testing.T) {
		completer, chats, gw := setupCompleter(t)
		fast := make(chan provider.Chunk, 1)
		fast <- &provider.TextChunk{Content: "quick"}
		close(fast)
		slow := make(chan provider.Chunk, 1)
		gw.streams["gpt-5-mini"] = fast
		gw.streams["gpt-4o"] = slow
		gw.responses["gpt-5-nano"] = "Title"

		chat, err := chats.CreateChat(ctx, models.CreateChatRequest{OwnerKey: "owner-1"})
		require.NoError(t, err)

		sink := &recordingSink{}
		result := make(chan error, 1)
		go func() {
			result <- completer.CompareStream(ctx, CompareRequest{
				ChatID: chat.ID, Model1: "gpt-5-mini", Model2: "gpt-4o", Content: "hi",
			}, sink)
		}()

		// slot one's done event, with title, must land while slot two is
		// still open
		require.Eventually(t, func() bool {
			for _, e := range sink.all() {
				if ev, ok := e.(events.DoneEvent); ok && ev.Model == events.SlotModel1 {
					return ev.Title == "Title"
				}
			}
			return false
		}, time.Second, 10*time.Millisecond)

		msgs, err := chats.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "quick", msgs[1].Content)

		slow <- &provider.TextChunk{Content: "late"}
		close(slow)
		require.NoError(t, <-result)

		got := sink.all()
		assert.Equal(t, events.AllDoneEvent{AllDone: true}, got[len(got)-1])
	})

	t.Run("one slot fails, the other completes", func(t *testing.T) {
		completer, _, gw := setupCompleter(t)
		gw.chunks["gpt-5-mini"] = []provider.Chunk{&provider.TextChunk{Content: "ok"}}
		gw.chunks["gpt-4o"] = []provider.Chunk{&provider.ErrorChunk{Message: "overloaded", StatusCode: 503}}

		sink := &recordingSink{}
		err := completer.CompareStream(ctx, CompareRequest{
			Model1: "gpt-5-mini", Model2: "gpt-4o", Content: "hi",
		}, sink)
		require.NoError(t, err)

		got := sink.all()
		assert.Equal(t, events.AllDoneEvent{AllDone: true}, got[len(got)-1])

		var errSlots, doneSlots []events.Slot
		for _, e := range got {
			switch ev := e.(type) {
			case events.ErrorEvent:
				errSlots = append(errSlots, ev.Model)
			case events.DoneEvent:
				doneSlots = append(doneSlots, ev.Model)
			}
		}
		assert.Equal(t, []events.Slot{events.SlotModel2}, errSlots)
		assert.Equal(t, []events.Slot{events.SlotModel1}, doneSlots)
	})
}
