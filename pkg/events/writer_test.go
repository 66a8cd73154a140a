package events

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)

	require.NoError(t, w.Send(DeltaEvent{Delta: "hel"}))
	require.NoError(t, w.Send(DeltaEvent{Model: SlotModel2, Delta: "lo"}))
	require.NoError(t, w.Send(DoneEvent{Done: true, Title: "Greeting"}))
	require.NoError(t, w.Send(AllDoneEvent{AllDone: true}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.Equal(t,
		"data: {\"delta\":\"hel\"}\n\n"+
			"data: {\"model\":\"model2\",\"delta\":\"lo\"}\n\n"+
			"data: {\"done\":true,\"title\":\"Greeting\"}\n\n"+
			"data: {\"allDone\":true}\n\n",
		body)
	assert.True(t, rec.Flushed)
}
