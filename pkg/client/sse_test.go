package client

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader returns its chunks one per Read call, simulating network
// reads that split events at arbitrary byte boundaries.
type chunkedReader struct {
	chunks []string
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestEventScanner(t *testing.T) {
	t.Run("event split across reads", func(t *testing.T) {
		scanner := newEventScanner(&chunkedReader{chunks: []string{
			"data: {\"del",
			"ta\":\"hello\"}\n",
			"\ndata: {\"done\":true}\n\n",
		}})

		event, err := scanner.Next()
		require.NoError(t, err)
		assert.Equal(t, "hello", event.Delta)

		event, err = scanner.Next()
		require.NoError(t, err)
		assert.True(t, event.Done)

		_, err = scanner.Next()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("multiple events in one read", func(t *testing.T) {
		scanner := newEventScanner(&chunkedReader{chunks: []string{
			"data: {\"delta\":\"a\"}\n\ndata: {\"delta\":\"b\"}\n\ndata: {\"allDone\":true}\n\n",
		}})

		var deltas []string
		for {
			event, err := scanner.Next()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			if event.Delta != "" {
				deltas = append(deltas, event.Delta)
			}
		}
		assert.Equal(t, []string{"a", "b"}, deltas)
	})

	t.Run("CRLF line endings", func(t *testing.T) {
		scanner := newEventScanner(&chunkedReader{chunks: []string{
			"data: {\"delta\":\"x\"}\r\n\ndata: {\"done\":true}\n\n",
		}})

		event, err := scanner.Next()
		require.NoError(t, err)
		assert.Equal(t, "x", event.Delta)
	})

	t.Run("comments and foreign fields skipped", func(t *testing.T) {
		scanner := newEventScanner(&chunkedReader{chunks: []string{
			": keepalive\n\nevent: noise\ndata: {\"delta\":\"y\"}\n\n",
		}})

		event, err := scanner.Next()
		require.NoError(t, err)
		assert.Equal(t, "y", event.Delta)
	})

	t.Run("malformed json surfaces an error", func(t *testing.T) {
		scanner := newEventScanner(&chunkedReader{chunks: []string{
			"data: {not json}\n\n",
		}})

		_, err := scanner.Next()
		assert.Error(t, err)
	})
}

func TestStreamSession(t *testing.T) {
	t.Run("single-model accumulation", func(t *testing.T) {
		s := NewStreamSession()
		s.Apply(StreamEvent{Delta: "Hel"})
		s.Apply(StreamEvent{Delta: "lo"})
		assert.False(t, s.Finished())
		s.Apply(StreamEvent{Done: true, Title: "Greeting"})

		assert.Equal(t, "Hello", s.Slot("").Content())
		assert.True(t, s.Slot("").Done())
		assert.Equal(t, "Greeting", s.Title())
		assert.True(t, s.Finished())
	})

	t.Run("compare slots are independent", func(t *testing.T) {
		s := NewStreamSession()
		s.Apply(StreamEvent{Model: "model1", Delta: "one"})
		s.Apply(StreamEvent{Model: "model2", Delta: "tw"})
		s.Apply(StreamEvent{Model: "model2", Error: "overloaded"})
		s.Apply(StreamEvent{Model: "model1", Done: true})
		s.Apply(StreamEvent{AllDone: true})

		assert.Equal(t, "one", s.Slot("model1").Content())
		assert.True(t, s.Slot("model1").Done())
		assert.Equal(t, "overloaded", s.Slot("model2").Err())
		assert.False(t, s.Slot("model2").Done())
		assert.True(t, s.AllDone())
		assert.True(t, s.Finished())
	})

	t.Run("finish callback fires once", func(t *testing.T) {
		calls := 0
		s := NewStreamSession()
		s.OnFinish = func() { calls++ }

		s.Apply(StreamEvent{Delta: "hi"})
		assert.Zero(t, calls)
		s.Apply(StreamEvent{Done: true})
		assert.Equal(t, 1, calls)
		s.Apply(StreamEvent{Done: true})
		assert.Equal(t, 1, calls)
	})

	t.Run("compare finish waits for allDone", func(t *testing.T) {
		calls := 0
		s := NewStreamSession()
		s.OnFinish = func() { calls++ }

		s.Apply(StreamEvent{Model: "model1", Done: true})
		s.Apply(StreamEvent{Model: "model2", Error: "overloaded"})
		assert.Zero(t, calls)
		s.Apply(StreamEvent{AllDone: true})
		assert.Equal(t, 1, calls)
	})
}
