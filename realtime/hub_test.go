package realtime

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	srv := httptest.NewServer(NewHandler(hub, []string{"*"}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readWithin(conn *websocket.Conn, d time.Duration) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(d))
	_, b, err := conn.ReadMessage()
	return string(b), err
}

func TestRelayBroadcastsToOthers(t *testing.T) {
	hub, url := startRelay(t)
	a := dial(t, url)
	b := dial(t, url)
	c := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 3 }, 2*time.Second, 10*time.Millisecond)

	frame := `{"event":"new-post","data":{"_id":"p1","content":"hi"}}`
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(frame)))

	got, err := readWithin(b, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
	got, err = readWithin(c, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	_, err = readWithin(a, 200*time.Millisecond)
	assert.Error(t, err, "sender does not receive its own event")
}

func TestRelayIgnoresUnknownEvents(t *testing.T) {
	hub, url := startRelay(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"event":"typing"}`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`not json`)))

	_, err := readWithin(b, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestRelayUnregistersOnDisconnect(t *testing.T) {
	hub, url := startRelay(t)
	a := dial(t, url)
	dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub, url := startRelay(t)
	a := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	_, err := readWithin(a, 2*time.Second)
	assert.Error(t, err)
	assert.Zero(t, hub.Clients())
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Close()

	slow := &Client{hub: hub, send: make(chan []byte, 1)}
	sender := &Client{hub: hub, send: make(chan []byte, 1)}
	require.True(t, hub.join(slow))
	require.True(t, hub.join(sender))

	hub.publish(sender, []byte("1"))
	hub.publish(sender, []byte("2"))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	assert.Equal(t, []byte("1"), <-slow.send)
	_, open := <-slow.send
	assert.False(t, open)
}
