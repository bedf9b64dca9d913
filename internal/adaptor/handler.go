package adaptor

import (
	"errors"
	"net/http"

	"scrim-booking/internal/usecase"
	"scrim-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking *BookingHandler
	Payment *PaymentHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Booking: NewBookingHandler(service.Booking, service.Reservation, log),
		Payment: NewPaymentHandler(service.Payment, service.Reconcile, config.App.FrontendURL, log),
	}
}

// handleServiceError maps usecase errors to HTTP responses
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validationErr *usecase.ValidationError
	switch {
	case errors.As(err, &validationErr):
		log.Info(operation+" validation failed", zap.Any("errors", validationErr.Fields), zap.String("operation", operation))
		utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)

	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrInvalidPayload):
		log.Warn(operation+" validation failed", zap.Error(err), zap.String("operation", operation))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrScrimNotFound),
		errors.Is(err, usecase.ErrBookingNotFound),
		errors.Is(err, usecase.ErrPaymentNotFound),
		errors.Is(err, usecase.ErrUnknownOrder):
		log.Warn(operation+" failed - not found", zap.Error(err), zap.String("operation", operation))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrSlotFull),
		errors.Is(err, usecase.ErrAlreadyBooked),
		errors.Is(err, usecase.ErrNotBookable),
		errors.Is(err, usecase.ErrInvalidPaymentState):
		log.Info(operation+" rejected", zap.Error(err), zap.String("operation", operation))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" forbidden", zap.Error(err), zap.String("operation", operation))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrSignatureMismatch):
		utils.ResponseUnauthorized(w, err.Error())

	case errors.Is(err, usecase.ErrOrderCreateFailed),
		errors.Is(err, usecase.ErrTransientProvider):
		log.Warn(operation+" failed - provider unavailable", zap.Error(err), zap.String("operation", operation))
		utils.ResponseBadGateway(w, err.Error())

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
