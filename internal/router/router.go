package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/harborline/ferry-reservation/internal/config"
	"github.com/harborline/ferry-reservation/internal/handler"
	"github.com/harborline/ferry-reservation/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Schedules    *handler.ScheduleHandler
	Reservations *handler.ReservationHandler
	Bookings     *handler.BookingHandler
	Payments     *handler.PaymentHandler
	CheckIns     *handler.CheckInHandler
}

// Register mounts all routes. The public surface is unauthenticated:
// holds are anonymous and the session token or order id is the
// credential. Only boarding check-in requires a staff token. The
// response cache sits on availability reads and the token bucket on
// hold opening; both degrade to pass-through when rdb is nil.
func Register(e *echo.Echo, h *Handlers, rdb *redis.Client, staffSecret string) {
	e.GET("/healthz", handler.Health)

	cacheMW := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limitMW := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	v1 := e.Group("/v1")

	// Sailing reads.
	v1.GET("/schedules/:id/availability", h.Schedules.Availability, cacheMW)

	// Hold lifecycle.
	v1.POST("/schedules/:id/reservations", h.Reservations.Open, limitMW)
	v1.GET("/reservations/:token", h.Reservations.Get)
	v1.DELETE("/reservations/:token", h.Reservations.Cancel)

	// Claim conversion and booking reads.
	v1.POST("/reservations/:token/claim", h.Bookings.Claim)
	v1.GET("/bookings/:order_id", h.Bookings.Get)

	// Payments. The callback endpoint authenticates with the provider
	// signature, not a user token.
	v1.POST("/bookings/:order_id/payments", h.Payments.Initiate)
	v1.POST("/payments/:channel/callback", h.Payments.Callback)

	// Boarding check-in, staff only.
	staff := v1.Group("/tickets", middleware.StaffAuth(staffSecret), middleware.RequireRole("STAFF"))
	staff.POST("/:id/check-in", h.CheckIns.CheckIn)
}
