package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"lab-reservation-backend/internal/apperr"
	"lab-reservation-backend/internal/auth"
	"lab-reservation-backend/internal/broadcast"
	"lab-reservation-backend/internal/mw"
	"lab-reservation-backend/internal/reservation"
	"lab-reservation-backend/internal/store"
)

// StreamOptions tunes the admin event stream.
type StreamOptions struct {
	Heartbeat  time.Duration
	BufferSize int
}

// Deps are the collaborators shared by every handler.
type Deps struct {
	Store        store.Store
	Reservations *reservation.Service
	Registry     *broadcast.Registry
	WebPush      *webpush.Options
	Stream       StreamOptions
	// Location interprets timestamps that carry no zone. Defaults to UTC.
	Location *time.Location
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store        store.Store
	reservations *reservation.Service
	registry     *broadcast.Registry
	webpush      *webpush.Options
	stream       StreamOptions
	location     *time.Location
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	if d.Stream.Heartbeat <= 0 {
		d.Stream.Heartbeat = 25 * time.Second
	}
	if d.Stream.BufferSize <= 0 {
		d.Stream.BufferSize = 16
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	return &Handler{
		store:        d.Store,
		reservations: d.Reservations,
		registry:     d.Registry,
		webpush:      d.WebPush,
		stream:       d.Stream,
		location:     d.Location,
	}
}

// respondError maps an error to its HTTP status and aborts the request.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrInvalidStatus):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.AbortWithStatusJSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// principal returns the authenticated caller. Routes using it are mounted behind mw.Auth.
func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := mw.PrincipalFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
	}
	return p, ok
}
