package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEndpoint(t *testing.T, opts EndpointOptions, max int) (*Registry, *Broadcaster, func(header http.Header) (*ws.Conn, *http.Response, error)) {
	t.Helper()

	log := mustTestLogger(t)
	registry := NewRegistry(max)
	broadcaster := NewBroadcaster(log, registry, BroadcasterOptions{})
	server := httptest.NewServer(NewEndpoint(log, registry, opts))
	t.Cleanup(func() {
		registry.CloseAll()
		server.Close()
	})

	dial := func(header http.Header) (*ws.Conn, *http.Response, error) {
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
		conn, resp, err := ws.DefaultDialer.Dial(url, header)
		if err == nil {
			t.Cleanup(func() { conn.Close() })
		}
		return conn, resp, err
	}
	return registry, broadcaster, dial
}

func waitForLen(t *testing.T, r *Registry, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Len() == want }, 2*time.Second, 5*time.Millisecond,
		"registry size never reached %d", want)
}

func readJSON(t *testing.T, conn *ws.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestEndpointDeliversBroadcastToAllClients(t *testing.T) {
	registry, broadcaster, dial := testEndpoint(t, EndpointOptions{}, 0)

	a, _, err := dial(nil)
	require.NoError(t, err)
	b, _, err := dial(nil)
	require.NoError(t, err)
	waitForLen(t, registry, 2)

	rep := broadcaster.Broadcast(context.Background(), NewDeleteEvent(42))
	assert.Equal(t, 2, rep.Delivered)

	want := `{"action":"delete","file_id":42,"type":"csv_list_updated"}`
	assert.Equal(t, want, readJSON(t, a))
	assert.Equal(t, want, readJSON(t, b))
}

func TestEndpointDeregistersOnClientClose(t *testing.T) {
	registry, broadcaster, dial := testEndpoint(t, EndpointOptions{}, 0)

	a, _, err := dial(nil)
	require.NoError(t, err)
	b, _, err := dial(nil)
	require.NoError(t, err)
	waitForLen(t, registry, 2)

	require.NoError(t, a.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "")))
	_ = a.Close()
	waitForLen(t, registry, 1)

	rep := broadcaster.Broadcast(context.Background(), NewDeleteEvent(1))
	assert.Equal(t, 1, rep.Attempted)
	assert.Equal(t, 1, rep.Delivered)
	assert.Contains(t, readJSON(t, b), `"file_id":1`)
}

func TestEndpointIgnoresInboundFrames(t *testing.T) {
	registry, broadcaster, dial := testEndpoint(t, EndpointOptions{}, 0)

	a, _, err := dial(nil)
	require.NoError(t, err)
	waitForLen(t, registry, 1)

	require.NoError(t, a.WriteMessage(ws.TextMessage, []byte("hello")))
	require.NoError(t, a.WriteMessage(ws.TextMessage, []byte("{not json")))

	broadcaster.Broadcast(context.Background(), NewDeleteEvent(5))
	assert.Contains(t, readJSON(t, a), `"file_id":5`)
	assert.Equal(t, 1, registry.Len())
}

func TestEndpointRejectsOversizedFrame(t *testing.T) {
	registry, _, dial := testEndpoint(t, EndpointOptions{}, 0)

	a, _, err := dial(nil)
	require.NoError(t, err)
	waitForLen(t, registry, 1)

	require.NoError(t, a.WriteMessage(ws.TextMessage, []byte(strings.Repeat("x", maxInboundBytes+1))))
	waitForLen(t, registry, 0)
}

func TestEndpointOriginCheck(t *testing.T) {
	_, _, dial := testEndpoint(t, EndpointOptions{AllowedOrigins: []string{"http://app.example.com"}}, 0)

	_, resp, err := dial(http.Header{"Origin": {"http://evil.example.com"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, _, err = dial(http.Header{"Origin": {"http://app.example.com"}})
	require.NoError(t, err)
}

func TestEndpointClosesWhenFull(t *testing.T) {
	registry, _, dial := testEndpoint(t, EndpointOptions{}, 1)

	_, _, err := dial(nil)
	require.NoError(t, err)
	waitForLen(t, registry, 1)

	extra, _, err := dial(nil)
	require.NoError(t, err)
	require.NoError(t, extra.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = extra.ReadMessage()
	require.Error(t, err)
	assert.True(t, ws.IsCloseError(err, ws.CloseTryAgainLater), "unexpected error: %v", err)
	assert.Equal(t, 1, registry.Len())
}

func TestEndpointEvictsClientThatStopsAnsweringPings(t *testing.T) {
	registry, _, dial := testEndpoint(t, EndpointOptions{PongWait: 300 * time.Millisecond}, 0)

	// A client that never reads never processes pings, so no pongs are sent.
	_, _, err := dial(nil)
	require.NoError(t, err)
	waitForLen(t, registry, 1)
	waitForLen(t, registry, 0)
}
