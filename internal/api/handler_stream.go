package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"lab-reservation-backend/internal/broadcast"
)

var errStreamBufferFull = errors.New("stream buffer full")

// StreamReservations handles GET /api/admin/stream. The connection stays open
// until the client disconnects, the server shuts down or the registry evicts it.
func (h *Handler) StreamReservations(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	clientID := fmt.Sprintf("%d:%s", p.UserID, uuid.NewString())
	events := make(chan broadcast.Envelope, h.stream.BufferSize)

	removed := h.registry.AddClient(clientID, func(env broadcast.Envelope) error {
		select {
		case events <- env:
			return nil
		default:
			return errStreamBufferFull
		}
	})
	defer h.registry.RemoveClient(clientID)
	log.Printf("Stream %s opened", clientID)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(env broadcast.Envelope) {
		c.SSEvent(env.Type, env)
		c.Writer.Flush()
	}

	send(broadcast.Connected(clientID))
	active, err := h.reservations.Active(ctx)
	if err != nil {
		log.Printf("Stream %s: failed to load active reservations: %v", clientID, err)
	}
	send(broadcast.Initial(active))

	ticker := time.NewTicker(h.stream.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Stream %s closed by client", clientID)
			return
		case <-removed:
			log.Printf("Stream %s evicted after repeated delivery failures", clientID)
			return
		case env := <-events:
			send(env)
		case <-ticker.C:
			send(broadcast.Heartbeat())
		}
	}
}
