package wire

import (
	"scrim-booking/internal/adaptor"
	"scrim-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, log *zap.Logger) {
	// provider and browser callbacks carry no player identity
	r.Post("/api/payments/webhook", paymentHandler.Webhook)
	r.Get("/api/payments/return", paymentHandler.Return)

	r.Group(func(r chi.Router) {
		r.Use(middleware.PlayerIdentity(log))

		r.Get("/api/payments/{orderId}", paymentHandler.GetPayment)
		r.Post("/api/payments/{orderId}/checkout", paymentHandler.Checkout)
	})
}
