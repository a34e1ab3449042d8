package wsbridge

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/kandev/androidctl/internal/common/logger"
	v1 "github.com/kandev/androidctl/pkg/api/v1"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func newTestServer(t *testing.T, hub *Hub) (*httptest.Server, *Client) {
	t.Helper()
	clientCh := make(chan *Client, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		c := newClient("c1", "session-1", conn, hub, logger.Default())
		hub.register(c)
		go c.writePump()
		go c.readPump()
		clientCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	u, err := url.Parse(wsURL)
	require.NoError(t, err)

	dialer := websocket.DefaultDialer
	conn, _, err := dialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	select {
	case c := <-clientCh:
		return server, c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server-side client")
		return nil, nil
	}
}

func TestHubRegisterUnregisterTracksClientCount(t *testing.T) {
	hub := NewHub(logger.Default())
	server, client := newTestServer(t, hub)
	defer server.Close()

	require.Equal(t, 1, hub.GetClientCount())

	hub.unregister(client)
	require.Equal(t, 0, hub.GetClientCount())
}

func TestClientEnqueueDeliversJSONOverWebSocket(t *testing.T) {
	hub := NewHub(logger.Default())
	server, client := newTestServer(t, hub)
	defer server.Close()
	defer hub.unregister(client)

	event := v1.NewStepEvent(v1.StepEvent{TaskID: "t1", StepNumber: 1, Success: true})
	data, err := json.Marshal(event)
	require.NoError(t, err)
	require.True(t, client.enqueue(data), "expected enqueue to accept message")
}

func TestEnqueueDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.Default())
	client := &Client{ID: "c2", SessionID: "s2", send: make(chan []byte, 1), hub: hub, logger: logger.Default()}

	require.True(t, client.enqueue([]byte("one")), "expected first enqueue to succeed")
	require.False(t, client.enqueue([]byte("two")), "expected second enqueue to be dropped once buffer is full")
}
