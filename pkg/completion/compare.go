package completion

import (
	"context"
	"fmt"
	"sync"

	"github.com/modelfork/modelfork/pkg/events"
	"github.com/modelfork/modelfork/pkg/models"
	"github.com/modelfork/modelfork/pkg/provider"
	"github.com/modelfork/modelfork/pkg/services"
)

// CompareRequest runs the same prompt against two models side by side.
// The models may be identical; slots are positional, not labels.
type CompareRequest struct {
	ChatID  string           `json:"chat_id,omitempty"`
	Model1  string           `json:"model1"`
	Model2  string           `json:"model2"`
	Role    models.Role      `json:"role,omitempty"`
	Content string           `json:"content"`
	System  string           `json:"system,omitempty"`
	Options provider.Options `json:"options"`
}

// SlotResult is one side of a compare outcome. Exactly one of Content and
// Error is meaningful; a failed slot never contributes partial content.
type SlotResult struct {
	Role    models.Role `json:"role"`
	Content string      `json:"content,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CompareResult holds both slots, keyed by slot tag.
type CompareResult struct {
	Model1 SlotResult `json:"model1"`
	Model2 SlotResult `json:"model2"`
	Title  string     `json:"title,omitempty"`
}

// canonicalSlot names the slot whose output enters chat history. Compare
// mode persists a single assistant turn; the other slot's reply is returned
// to the caller but stays out of the replayed conversation.
func canonicalSlot() events.Slot {
	return events.SlotModel1
}

// Compare runs both completions concurrently and waits for both. The slots
// fail independently: one provider erroring does not abort the other.
func (c *Completer) Compare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	gw1, gw2, history, err := c.prepareCompare(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &CompareResult{
		Model1: SlotResult{Role: models.RoleAssistant},
		Model2: SlotResult{Role: models.RoleAssistant},
	}

	var wg sync.WaitGroup
	run := func(gw provider.Gateway, model string, slot *SlotResult) {
		defer wg.Done()
		content, err := gw.Complete(ctx, model, history, req.Options)
		if err != nil {
			slot.Error = err.Error()
			return
		}
		slot.Content = content
	}
	wg.Add(2)
	go run(gw1, req.Model1, &result.Model1)
	go run(gw2, req.Model2, &result.Model2)
	wg.Wait()

	canonical := &result.Model1
	if canonicalSlot() == events.SlotModel2 {
		canonical = &result.Model2
	}
	if req.ChatID != "" && canonical.Error == "" {
		if _, err := c.chats.AppendMessage(ctx, req.ChatID, models.RoleAssistant, canonical.Content); err != nil {
			return nil, fmt.Errorf("failed to persist assistant message: %w", err)
		}
		result.Title = c.maybeGenerateTitle(ctx, req.ChatID, req.Content)
	}
	return result, nil
}

// CompareStream streams both completions concurrently over one sink, tagging
// every event with its slot. Each slot ends with its own done or error event;
// allDone follows once both have finished. Slot one's clean output is
// persisted to history, slot two's never is.
func (c *Completer) CompareStream(ctx context.Context, req CompareRequest, sink Sink) error {
	gw1, gw2, history, err := c.prepareCompare(ctx, req)
	if err != nil {
		return err
	}

	// open both streams before draining either, so neither model waits on
	// the other's first token
	chunks1, err := gw1.StreamComplete(ctx, req.Model1, history, req.Options)
	if err != nil {
		return err
	}
	chunks2, err := gw2.StreamComplete(ctx, req.Model2, history, req.Options)
	if err != nil {
		return err
	}

	shared := &lockedSink{sink: sink}
	var wg sync.WaitGroup
	failures := make([]error, 2)

	// Each slot finishes on its own schedule: its done event (and, for the
	// canonical slot, persistence and the title) is emitted the moment its
	// stream is exhausted, never held back for the slower peer.
	run := func(slot events.Slot, chunks <-chan provider.Chunk, failure *error) {
		defer wg.Done()
		outcome := drain(ctx, chunks, func(delta string) error {
			return shared.Send(events.DeltaEvent{Model: slot, Delta: delta})
		})
		if outcome.err != nil {
			_ = shared.Send(events.ErrorEvent{Model: slot, Error: outcome.err.Error()})
			return
		}
		if outcome.interrupted {
			return
		}
		done := events.DoneEvent{Model: slot, Done: true}
		if slot == canonicalSlot() && req.ChatID != "" {
			if _, err := c.chats.AppendMessage(ctx, req.ChatID, models.RoleAssistant, outcome.content); err != nil {
				*failure = fmt.Errorf("failed to persist assistant message: %w", err)
				return
			}
			done.Title = c.maybeGenerateTitle(ctx, req.ChatID, req.Content)
		}
		*failure = shared.Send(done)
	}
	wg.Add(2)
	go run(events.SlotModel1, chunks1, &failures[0])
	go run(events.SlotModel2, chunks2, &failures[1])
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	for _, err := range failures {
		if err != nil {
			return err
		}
	}

	return shared.Send(events.AllDoneEvent{AllDone: true})
}

// prepareCompare resolves both gateways, persists the user message once, and
// builds the shared history both slots replay.
func (c *Completer) prepareCompare(ctx context.Context, req CompareRequest) (provider.Gateway, provider.Gateway, []models.ChatMessage, error) {
	if req.Model1 == "" {
		return nil, nil, nil, services.NewValidationError("model1", "required")
	}
	if req.Model2 == "" {
		return nil, nil, nil, services.NewValidationError("model2", "required")
	}

	gw1, err := c.registry.ForModel(req.Model1)
	if err != nil {
		return nil, nil, nil, err
	}
	gw2, err := c.registry.ForModel(req.Model2)
	if err != nil {
		return nil, nil, nil, err
	}

	_, history, err := c.prepare(ctx, Request{
		ChatID:  req.ChatID,
		Model:   req.Model1,
		Role:    req.Role,
		Content: req.Content,
		System:  req.System,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return gw1, gw2, history, nil
}

// lockedSink serializes concurrent event writes from the two slot drains.
type lockedSink struct {
	mu   sync.Mutex
	sink Sink
}

func (s *lockedSink) Send(payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Send(payload)
}
