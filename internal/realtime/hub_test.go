package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestBroadcastReachesClients(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, 7)
	}))
	defer srv.Close()

	a, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer a.Close()
	b, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer b.Close()

	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{Action: ActionLeadMoved, LeadID: 3, From: "enquiry", To: "prospect", Position: 1})

	for _, c := range []*websocket.Conn{a, b} {
		require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
		var ev Event
		require.NoError(t, c.ReadJSON(&ev))
		assert.Equal(t, ActionLeadMoved, ev.Action)
		assert.Equal(t, uint(3), ev.LeadID)
		assert.Equal(t, "prospect", ev.To)
	}

	a.Close()
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.Count())
}

func TestOriginAllowList(t *testing.T) {
	hub := NewHub([]string{"http://localhost:3000"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, 1)
	}))
	defer srv.Close()

	_, resp, err := dial(t, srv, "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	ok, _, err := dial(t, srv, "http://localhost:3000")
	require.NoError(t, err)
	ok.Close()
}

func TestBroadcastDoesNotWaitOnStalledClient(t *testing.T) {
	hub := NewHub(nil)
	stalled := &client{send: make(chan []byte, 1), userID: 9}
	hub.clients[stalled] = true

	done := make(chan struct{})
	go func() {
		hub.Broadcast(Event{Action: ActionLeadCreated, LeadID: 1})
		hub.Broadcast(Event{Action: ActionLeadCreated, LeadID: 2})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a client that is not reading")
	}
	assert.Equal(t, 0, hub.Count())

	queued, ok := <-stalled.send
	require.True(t, ok)
	assert.Contains(t, string(queued), `"lead_id":1`)
	_, ok = <-stalled.send
	assert.False(t, ok, "send queue of a dropped client is closed")
}
