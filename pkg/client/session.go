package client

import "strings"

// SlotState accumulates one stream's output on the client side.
type SlotState struct {
	builder strings.Builder
	done    bool
	err     string
}

// Content returns the text accumulated so far.
func (s *SlotState) Content() string { return s.builder.String() }

// Done reports whether this stream ended cleanly.
func (s *SlotState) Done() bool { return s.done }

// Err returns the stream's error message, or "" if it has not failed.
func (s *SlotState) Err() string { return s.err }

// StreamSession tracks the state of one streaming response across events.
// Single-model streams use one unnamed slot; compare streams use the
// "model1" and "model2" slots independently, so one slot failing never
// disturbs the other's accumulation.
type StreamSession struct {
	slots   map[string]*SlotState
	title   string
	allDone bool

	// OnFinish, if set, runs once when the session reaches a terminal
	// state. Callers use it to refresh chat lists after a title lands.
	OnFinish func()
	finished bool
}

// NewStreamSession creates an empty session.
func NewStreamSession() *StreamSession {
	return &StreamSession{slots: make(map[string]*SlotState)}
}

// Apply folds one event into the session state.
func (s *StreamSession) Apply(event StreamEvent) {
	switch {
	case event.AllDone:
		s.allDone = true
	case event.Error != "":
		s.slot(event.Model).err = event.Error
	case event.Done:
		s.slot(event.Model).done = true
		if event.Title != "" {
			s.title = event.Title
		}
	case event.Delta != "":
		s.slot(event.Model).builder.WriteString(event.Delta)
	}

	// Single-model streams terminate on their unnamed slot's done or
	// error event; compare streams only on the final allDone marker.
	terminal := s.allDone
	if event.Model == "" && (event.Done || event.Error != "") {
		terminal = true
	}
	if terminal && !s.finished {
		s.finished = true
		if s.OnFinish != nil {
			s.OnFinish()
		}
	}
}

// Slot returns the state for a slot name ("" for single-model streams).
func (s *StreamSession) Slot(name string) *SlotState {
	return s.slot(name)
}

// Title returns the chat title delivered with a done event, if any.
func (s *StreamSession) Title() string { return s.title }

// AllDone reports whether the compare stream's final event arrived.
func (s *StreamSession) AllDone() bool { return s.allDone }

// Finished reports whether every slot seen so far has terminated.
func (s *StreamSession) Finished() bool {
	if len(s.slots) == 0 {
		return false
	}
	for _, slot := range s.slots {
		if !slot.done && slot.err == "" {
			return false
		}
	}
	return true
}

func (s *StreamSession) slot(name string) *SlotState {
	if slot, ok := s.slots[name]; ok {
		return slot
	}
	slot := &SlotState{}
	s.slots[name] = slot
	return slot
}
