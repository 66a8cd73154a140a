package client

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// StreamEvent is the decoded union of every event the streaming endpoints
// emit. Field presence distinguishes the kinds: Delta for text fragments,
// Done/Error for per-stream termination, AllDone for the end of a compare.
type StreamEvent struct {
	Model   string `json:"model,omitempty"`
	Delta   string `json:"delta,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Title   string `json:"title,omitempty"`
	Error   string `json:"error,omitempty"`
	AllDone bool   `json:"allDone,omitempty"`
}

// eventScanner reads server-sent events from a response body. Events are
// buffered across reads: a network read may end mid-event, and a single read
// may carry several events, so the scanner splits only on the blank-line
// event terminator.
type eventScanner struct {
	scanner *bufio.Scanner
}

func newEventScanner(r io.Reader) *eventScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	s.Split(splitEvents)
	return &eventScanner{scanner: s}
}

// Next returns the next decoded event, or io.EOF when the stream ends.
func (e *eventScanner) Next() (StreamEvent, error) {
	for e.scanner.Scan() {
		data := extractData(e.scanner.Text())
		if data == "" {
			continue
		}
		var event StreamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			return StreamEvent{}, fmt.Errorf("failed to decode stream event: %w", err)
		}
		return event, nil
	}
	if err := e.scanner.Err(); err != nil {
		return StreamEvent{}, err
	}
	return StreamEvent{}, io.EOF
}

// splitEvents is a bufio.SplitFunc that tokenizes on the SSE event
// terminator (a blank line). Incomplete trailing data stays buffered until
// the next read completes it.
func splitEvents(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		return i + 2, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// extractData joins the data lines of one raw event, ignoring comments and
// other SSE fields.
func extractData(raw string) string {
	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if after, ok := strings.CutPrefix(line, "data:"); ok {
			parts = append(parts, strings.TrimPrefix(after, " "))
		}
	}
	return strings.Join(parts, "\n")
}
