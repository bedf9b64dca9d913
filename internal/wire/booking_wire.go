package wire

import (
	"scrim-booking/internal/adaptor"
	"scrim-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, log *zap.Logger) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.PlayerIdentity(log))

		r.Post("/api/scrims/{id}/bookings", bookingHandler.BookScrim)
		r.Delete("/api/scrims/{id}/participants/{playerId}", bookingHandler.RemoveParticipant)
		r.Get("/api/players/me/bookings", bookingHandler.GetPlayerBookings)
	})
}
