package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"scrim-booking/internal/dto/request"
	"scrim-booking/internal/usecase"
	"scrim-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service     usecase.BookingService
	reservation usecase.ReservationService
	log         *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, reservation usecase.ReservationService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service:     service,
		reservation: reservation,
		log:         log.With(zap.String("handler", "booking")),
	}
}

// BookScrim handles POST /api/scrims/{id}/bookings
func (h *BookingHandler) BookScrim(w http.ResponseWriter, r *http.Request) {
	playerID, ok := utils.GetPlayerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	scrimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid scrim ID", nil)
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.BookScrim(r.Context(), playerID, scrimID, &req)
	if err != nil {
		// the slot is held; hand back the order id so the client can retry checkout
		if errors.Is(err, usecase.ErrOrderCreateFailed) && booking != nil {
			h.log.Warn("Booking created but payment order failed",
				zap.Error(err),
				zap.String("scrim_id", scrimID.String()),
			)
			utils.ResponseJSON(w, http.StatusBadGateway, false, "Payment provider unavailable, retry checkout", booking, nil)
			return
		}
		handleServiceError(w, h.log, err, "book scrim")
		return
	}

	utils.ResponseCreated(w, "success", booking)
}

// GetPlayerBookings handles GET /api/players/me/bookings
func (h *BookingHandler) GetPlayerBookings(w http.ResponseWriter, r *http.Request) {
	playerID, ok := utils.GetPlayerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), utils.DefaultPerPage),
	}

	bookings, err := h.service.GetPlayerBookings(r.Context(), playerID, req)
	if err != nil {
		handleServiceError(w, h.log, err, "get player bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// RemoveParticipant handles DELETE /api/scrims/{id}/participants/{playerId}.
// Players may remove themselves; organizers may remove players from their organization's scrims.
func (h *BookingHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	callerID, ok := utils.GetPlayerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	scrimID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid scrim ID", nil)
		return
	}
	playerID, err := uuid.Parse(chi.URLParam(r, "playerId"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid player ID", nil)
		return
	}

	role, _ := utils.GetRoleFromContext(r.Context())
	orgID, _ := utils.GetOrganizationIDFromContext(r.Context())
	actor := usecase.Actor{PlayerID: callerID, OrganizationID: orgID, Role: role}

	if err := h.reservation.RemoveParticipant(r.Context(), scrimID, playerID, actor); err != nil {
		handleServiceError(w, h.log, err, "remove participant")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
