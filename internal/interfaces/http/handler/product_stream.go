package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/realtime"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// ProductStreamHandler serves the SSE stream of product change events
type ProductStreamHandler struct {
	BaseHandler
	hub     *realtime.Hub
	enabled bool
	logger  *zap.Logger
}

// NewProductStreamHandler creates a new stream handler. When enabled is
// false the endpoint reports the stream as unavailable so clients fall
// back to polling
func NewProductStreamHandler(hub *realtime.Hub, enabled bool, logger *zap.Logger) *ProductStreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductStreamHandler{
		hub:     hub,
		enabled: enabled,
		logger:  logger,
	}
}

// Stream is the SSE endpoint. It registers the connection with the hub,
// sends an immediate connected event, then relays hub events until the
// client disconnects or the hub shuts down
func (h *ProductStreamHandler) Stream(c *gin.Context) {
	if !h.enabled || h.hub == nil {
		h.Error(c, http.StatusNotFound, dto.ErrCodeStreamDisabled, "Product event stream is disabled")
		return
	}

	client := h.hub.Register()
	if client == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeRateLimited, "Too many stream subscribers")
		return
	}
	defer h.hub.Unregister(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.InternalError(c, "Streaming is not supported")
		return
	}

	// Greet the subscriber immediately so it knows the stream is live
	connected, err := json.Marshal(realtime.NewEvent(realtime.EventConnected, ""))
	if err == nil {
		if writeErr := writeSSE(c.Writer, connected); writeErr != nil {
			return
		}
		flusher.Flush()
	}

	clientGone := c.Request.Context().Done()

	for {
		select {
		case <-clientGone:
			return
		case <-client.Done:
			return
		case <-h.hub.Done():
			return
		case data := <-client.Chan:
			if err := writeSSE(c.Writer, data); err != nil {
				// Write failure means the client is gone
				h.logger.Debug("Stream write failed, dropping client",
					zap.String("client_id", client.ID),
					zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSE frames one event for the text/event-stream protocol
func writeSSE(w http.ResponseWriter, data []byte) error {
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// RegisterRoutes registers the stream endpoint. It is public: the
// stream only ever carries product IDs, which the public catalog
// exposes anyway
func (h *ProductStreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/products/events", h.Stream)
}
