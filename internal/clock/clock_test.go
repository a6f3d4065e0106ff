package clock

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

func TestNewTick(t *testing.T) {
	at := time.Date(2024, time.March, 5, 9, 7, 3, 0, time.UTC)

	assert.Equal(t, Tick{Time: "09:07:03", Date: "Tuesday, March 05, 2024"}, NewTick(at))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamPushesTicks(t *testing.T) {
	c := New(10 * time.Millisecond)
	at := time.Date(2024, time.March, 5, 9, 7, 3, 0, time.UTC)
	c.Now = func() time.Time { return at }

	srv := httptest.NewServer(http.HandlerFunc(c.Stream))
	defer srv.Close()
	defer c.Stop()

	conn := dial(t, srv)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for i := 0; i < 3; i++ {
		var tick Tick
		require.NoError(t, conn.ReadJSON(&tick))
		assert.Equal(t, NewTick(at), tick)
	}
}

func TestStreamEndsWhenClientLeaves(t *testing.T) {
	c := New(10 * time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(c.Stream))
	defer srv.Close()

	conn := dial(t, srv)
	var tick Tick
	require.NoError(t, conn.ReadJSON(&tick))
	require.NoError(t, conn.Close())

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stream loop did not return")
	}
}

func TestStopClosesStreams(t *testing.T) {
	c := New(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(c.Stream))
	defer srv.Close()

	conn := dial(t, srv)
	var tick Tick
	require.NoError(t, conn.ReadJSON(&tick))

	c.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestStreamRejectsPlainHTTP(t *testing.T) {
	c := New(time.Second)
	defer c.Stop()

	rec := httptest.NewRecorder()
	c.Stream(rec, httptest.NewRequest(http.MethodGet, "/clock/stream", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
