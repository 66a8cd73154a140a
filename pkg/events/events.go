// Package events defines the server-sent event payloads emitted by the
// streaming completion endpoints, and a writer that frames them.
package events

// Slot tags a compare-mode event with the stream it belongs to.
// Slot values are positional ("model1", "model2"), not model labels: the
// same model may occupy both slots.
type Slot string

const (
	SlotModel1 Slot = "model1"
	SlotModel2 Slot = "model2"
)

// DeltaEvent carries one incremental text fragment. Model is empty for
// single-model streams and a slot tag in compare mode.
type DeltaEvent struct {
	Model Slot   `json:"model,omitempty"`
	Delta string `json:"delta"`
}

// DoneEvent marks the clean end of one stream. Title is set when the request
// triggered title generation, so the client can update its sidebar without a
// refetch.
type DoneEvent struct {
	Model Slot   `json:"model,omitempty"`
	Done  bool   `json:"done"`
	Title string `json:"title,omitempty"`
}

// ErrorEvent reports a failed stream. In compare mode it terminates only the
// slot it names; the other stream continues.
type ErrorEvent struct {
	Model Slot   `json:"model,omitempty"`
	Error string `json:"error"`
}

// AllDoneEvent is the final event of a compare stream, emitted after both
// slots have finished or failed.
type AllDoneEvent struct {
	AllDone bool `json:"allDone"`
}
