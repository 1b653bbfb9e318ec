package pushclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ackServer accepts sockets, sends a positive ack and then either stays silent
// or pings every pingEvery until the test ends.
func ackServer(t *testing.T, pingEvery time.Duration) (string, *atomic.Int32) {
	t.Helper()
	var accepted atomic.Int32
	stop := make(chan struct{})
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		accepted.Add(1)
		if err := conn.WriteMessage(websocket.TextMessage, ackFrame(true)); err != nil {
			return
		}

		var tick <-chan time.Time
		if pingEvery > 0 {
			ticker := time.NewTicker(pingEvery)
			defer ticker.Stop()
			tick = ticker.C
		}
		for {
			select {
			case <-stop:
				return
			case <-r.Context().Done():
				return
			case <-tick:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(stop) })

	return "ws" + strings.TrimPrefix(srv.URL, "http"), &accepted
}

func TestWebsocketDialer_SilentServerTriggersReconnect(t *testing.T) {
	url, accepted := ackServer(t, 0)
	d := NewWebsocketDialer(url)
	d.ReadTimeout = 100 * time.Millisecond

	s := newTestSession(d, staticCredentials)
	require.True(t, s.Connect(context.Background()))
	defer s.Close()
	waitConnected(t, s)

	require.Eventually(t, func() bool { return accepted.Load() >= 2 }, 2*time.Second, 5*time.Millisecond,
		"a half-open socket must be abandoned and redialed")
}

func TestWebsocketDialer_PingsKeepConnectionAlive(t *testing.T) {
	url, accepted := ackServer(t, 20*time.Millisecond)
	d := NewWebsocketDialer(url)
	d.ReadTimeout = 100 * time.Millisecond

	s := newTestSession(d, staticCredentials)
	require.True(t, s.Connect(context.Background()))
	defer s.Close()
	waitConnected(t, s)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, Connected, s.State())
}

func TestWebsocketDialer_ReadTimesOutWithoutTraffic(t *testing.T) {
	url, _ := ackServer(t, 0)
	d := NewWebsocketDialer(url)
	d.ReadTimeout = 50 * time.Millisecond

	conn, err := d.Dial(context.Background(), "token")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.ReadMessage()
	require.NoError(t, err, "ack arrives first")

	start := time.Now()
	_, err = conn.ReadMessage()
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
