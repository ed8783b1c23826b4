package handler

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamRouter(hub *realtime.Hub, enabled bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewProductStreamHandler(hub, enabled, nil)
	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	return r
}

// readSSEEvent reads one "data: ..." frame from the stream
func readSSEEvent(t *testing.T, reader *bufio.Reader) realtime.Event {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event realtime.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		return event
	}
}

func TestProductStreamHandler_Disabled(t *testing.T) {
	r := newStreamRouter(nil, false)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/events", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_STREAM_DISABLED")
}

func TestProductStreamHandler_StreamsEvents(t *testing.T) {
	hub := realtime.NewHub(realtime.WithHeartbeat(time.Hour))
	defer hub.Shutdown()

	server := httptest.NewServer(newStreamRouter(hub, true))
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/products/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	connected := readSSEEvent(t, reader)
	assert.Equal(t, realtime.EventConnected, connected.Type)

	// Wait for the hub to see the subscriber before broadcasting
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast(realtime.NewEvent(realtime.EventCreate, "abc-123"))

	created := readSSEEvent(t, reader)
	assert.Equal(t, realtime.EventCreate, created.Type)
	assert.Equal(t, "abc-123", created.ProductID)
	assert.NotEmpty(t, created.Timestamp)
}

func TestProductStreamHandler_ClientCapReached(t *testing.T) {
	hub := realtime.NewHub(realtime.WithMaxClients(1), realtime.WithHeartbeat(time.Hour))
	defer hub.Shutdown()

	// Occupy the only slot
	first := hub.Register()
	require.NotNil(t, first)
	defer hub.Unregister(first)

	r := newStreamRouter(hub, true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/events", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
