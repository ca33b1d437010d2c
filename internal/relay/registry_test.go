// ABOUTME: Tests for the connection registry
// ABOUTME: Covers id assignment, removal and the missing-connection no-op

package relay

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPair upgrades one websocket and returns both ends.
func dialPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		ws, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		accepted <- ws
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	select {
	case s := <-accepted:
		t.Cleanup(func() { s.Close() })
		return s, c
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func TestRegistryAddAssignsUniqueIDs(t *testing.T) {
	reg := NewRegistry(slog.Default())
	s1, _ := dialPair(t)
	s2, _ := dialPair(t)

	c1 := reg.Add(s1)
	c2 := reg.Add(s2)

	assert.NotEmpty(t, c1.ID)
	assert.NotEmpty(t, c2.ID)
	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Equal(t, 2, reg.Count())
}

func TestRegistryRemoveIsIdempotent(t *testing.T) {
	reg := NewRegistry(slog.Default())
	s, _ := dialPair(t)
	conn := reg.Add(s)

	reg.Remove(conn.ID)
	reg.Remove(conn.ID)
	assert.Equal(t, 0, reg.Count())
}

func TestRegistrySendRoundTrip(t *testing.T) {
	reg := NewRegistry(slog.Default())
	s, c := dialPair(t)
	conn := reg.Add(s)

	reg.Send(conn.ID, FrameChunk, ChunkPayload{
		ConversationID: "conv-1",
		Content:        "hi",
		MessageID:      "msg-1",
	})

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, c.ReadJSON(&frame))
	assert.Equal(t, FrameChunk, frame.Type)
}

func TestRegistrySendToUnknownConnection(t *testing.T) {
	reg := NewRegistry(slog.Default())
	// Must not panic or error out.
	reg.Send("no-such-id", FrameChunk, ChunkPayload{ConversationID: "c"})
}

func TestRegistrySendToStalledClientDoesNotBlock(t *testing.T) {
	reg := NewRegistry(slog.Default())
	reg.writeTimeout = 50 * time.Millisecond
	s, _ := dialPair(t)
	conn := reg.Add(s)

	// The client end never reads, so the kernel and websocket buffers
	// fill up. Once the deadline trips, every further write fails fast
	// and is dropped.
	big := ChunkPayload{
		ConversationID: "conv-1",
		MessageID:      "msg-1",
		Content:        strings.Repeat("x", 1<<20),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			reg.Send(conn.ID, FrameChunk, big)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Send blocked on a stalled client")
	}
}

func TestRegistrySendToClosedSocket(t *testing.T) {
	reg := NewRegistry(slog.Default())
	s, c := dialPair(t)
	conn := reg.Add(s)

	require.NoError(t, c.Close())
	require.NoError(t, s.Close())

	// Logged and swallowed.
	reg.Send(conn.ID, FrameChunk, ChunkPayload{ConversationID: "c"})
	assert.Equal(t, 1, reg.Count())
}
