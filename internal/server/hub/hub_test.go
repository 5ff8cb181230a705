package hub

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mokjang/internal/api"
	"mokjang/internal/attendance"
	"mokjang/internal/platform/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// hubServer upgrades incoming connections straight into the hub.
func hubServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Register(conn, r.URL.Query().Get("name"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?name=" + name
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func mustEnvelope(t *testing.T) api.Envelope {
	t.Helper()
	env, err := api.NewAttendanceUpdated(attendance.Fact{PersonID: 1, Day: "2025-03-09", Worship: true})
	require.NoError(t, err)
	return env
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	h := New(testLogger(), m)
	defer h.Close()
	srv := hubServer(t, h)

	a := dial(t, srv, "a")
	b := dial(t, srv, "b")

	require.Eventually(t, func() bool { return h.Subscribers() == 2 }, time.Second, 10*time.Millisecond)

	h.Broadcast(mustEnvelope(t))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var env api.Envelope
		require.NoError(t, conn.ReadJSON(&env))
		assert.Equal(t, api.TypeAttendanceUpdated, env.Type)
	}
	assert.Equal(t, 1.0, promtest.ToFloat64(m.UpdatesBroadcast))
}

func TestDisconnectedSubscriberUnregisters(t *testing.T) {
	h := New(testLogger(), metrics.New(prometheus.NewRegistry()))
	defer h.Close()
	srv := hubServer(t, h)

	conn := dial(t, srv, "leaver")
	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, time.Second, 10*time.Millisecond)

	// Broadcasting into an empty hub is harmless.
	h.Broadcast(mustEnvelope(t))
}

func TestCloseDisconnectsSubscribers(t *testing.T) {
	h := New(testLogger(), metrics.New(prometheus.NewRegistry()))
	srv := hubServer(t, h)

	conn := dial(t, srv, "x")
	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	h.Close()
	assert.Zero(t, h.Subscribers())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "server side closed the connection")

	// Registrations after Close are refused.
	h.Broadcast(mustEnvelope(t))
}

func TestStalledSubscriberIsDropped(t *testing.T) {
	h := New(testLogger(), metrics.New(prometheus.NewRegistry()))
	defer h.Close()
	srv := hubServer(t, h)

	dial(t, srv, "slow")
	require.Eventually(t, func() bool { return h.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	// Far more messages than the send buffer plus the kernel socket buffers
	// can absorb while the client never reads.
	env := mustEnvelope(t)
	for i := 0; i < 10_000; i++ {
		h.Broadcast(env)
	}

	require.Eventually(t, func() bool { return h.Subscribers() == 0 }, 5*time.Second, 20*time.Millisecond,
		"stalled subscriber should be dropped, not block the hub")
}
