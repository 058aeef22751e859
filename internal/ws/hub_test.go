package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	payload := RunStartedPayload{
		RunID:   "r1",
		Started: "2024-11-21T12:00:00Z",
	}

	msg, err := NewEnvelope(TypeRunStarted, payload)
	require.NoError(t, err)

	var env Envelope
	err = json.Unmarshal(msg, &env)
	require.NoError(t, err)

	assert.Equal(t, TypeRunStarted, env.Type)

	var parsed RunStartedPayload
	err = json.Unmarshal(env.Payload, &parsed)
	require.NoError(t, err)

	assert.Equal(t, "r1", parsed.RunID)
	assert.Equal(t, "2024-11-21T12:00:00Z", parsed.Started)
}

func TestNewEnvelope_NoPayload(t *testing.T) {
	msg, err := NewEnvelope(TypeRunStart, nil)
	require.NoError(t, err)

	var env Envelope
	err = json.Unmarshal(msg, &env)
	require.NoError(t, err)

	assert.Equal(t, TypeRunStart, env.Type)
	assert.Nil(t, env.Payload)
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(nil)

	c := &Client{
		hub:  hub,
		send: make(chan []byte, 16),
	}

	hub.Register(c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())

	// second unregister is a no-op
	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(nil)

	c1 := &Client{hub: hub, send: make(chan []byte, 16)}
	c2 := &Client{hub: hub, send: make(chan []byte, 16)}

	hub.Register(c1)
	hub.Register(c2)

	msg := []byte(`{"type":"test"}`)
	hub.Broadcast(msg)

	assert.Equal(t, msg, <-c1.send)
	assert.Equal(t, msg, <-c2.send)
}

func TestHub_BroadcastFullBuffer(t *testing.T) {
	hub := NewHub(nil)
	c := &Client{hub: hub, send: make(chan []byte, 1)}
	hub.Register(c)

	hub.Broadcast([]byte("a"))
	hub.Broadcast([]byte("b"))

	assert.Equal(t, []byte("a"), <-c.send)
	assert.Empty(t, c.send)
}

func TestMessageTypes(t *testing.T) {
	assert.Equal(t, "run:start", TypeRunStart)
	assert.Equal(t, "runs:list", TypeRunsList)
	assert.Equal(t, "rows:query", TypeRowsQuery)
	assert.Equal(t, "run:started", TypeRunStarted)
	assert.Equal(t, "stage:completed", TypeStageCompleted)
	assert.Equal(t, "run:completed", TypeRunCompleted)
	assert.Equal(t, "run:failed", TypeRunFailed)
	assert.Equal(t, "runs:loaded", TypeRunsLoaded)
}
