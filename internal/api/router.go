package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"lab-reservation-backend/internal/auth"
	"lab-reservation-backend/internal/mw"
)

// RouterOptions holds the middleware settings.
type RouterOptions struct {
	RateLimit rate.Limit
	Burst     int
	CacheTTL  time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, verifier *auth.Verifier, opts RouterOptions) *gin.Engine {
	r := gin.Default()

	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(10)
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	rateLimiter := mw.RateLimiter(opts.RateLimit, opts.Burst)
	caching := mw.Cache(cache.New(opts.CacheTTL, 2*opts.CacheTTL), opts.CacheTTL)
	requireUser := mw.Auth(verifier, false)

	api := r.Group("/api")
	{
		public := api.Group("")
		public.Use(rateLimiter)
		public.GET("/equipment", caching, h.ListEquipment)
		public.GET("/equipment/:id", h.GetEquipment)
		public.GET("/equipment/:id/availability", h.GetAvailability)
		public.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		user := api.Group("")
		user.Use(requireUser, rateLimiter)
		user.POST("/reservations", h.CreateReservation)
		user.GET("/reservations", h.ListReservations)
		user.GET("/reservations/:id", h.GetReservation)
		user.GET("/notifications", h.ListNotifications)
		user.PATCH("/notifications/:id/read", h.MarkNotificationRead)
		user.PUT("/subscriptions", h.PutSubscription)
		user.DELETE("/subscriptions", h.DeleteSubscription)

		admin := api.Group("/admin")
		admin.PATCH("/reservations/:id/status", requireUser, mw.AdminOnly(), rateLimiter, h.UpdateReservationStatus)
		// EventSource cannot send headers, so the stream also takes ?token=.
		admin.GET("/stream", mw.Auth(verifier, true), mw.AdminOnly(), h.StreamReservations)
	}

	return r
}
