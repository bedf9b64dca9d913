package response

import (
	"time"

	"scrim-booking/internal/data/entity"
)

type BookingResponse struct {
	ID              string               `json:"id"`
	ScrimID         string               `json:"scrim_id"`
	PlayerID        string               `json:"player_id"`
	DisplayName     string               `json:"display_name"`
	TeamName        string               `json:"team_name,omitempty"`
	PaymentRequired bool                 `json:"payment_required"`
	Paid            bool                 `json:"paid"`
	Status          entity.BookingStatus `json:"status"`
	Payment         *PaymentResponse     `json:"payment,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

type PaymentResponse struct {
	OrderID             string                 `json:"order_id"`
	ScrimID             string                 `json:"scrim_id"`
	Amount              int64                  `json:"amount"`
	Currency            string                 `json:"currency"`
	Status              entity.PaymentStatus   `json:"status"`
	PaymentSessionToken *string                `json:"payment_session_token,omitempty"`
	TransactionID       *string                `json:"transaction_id,omitempty"`
	PaidAt              *time.Time             `json:"paid_at,omitempty"`
	Events              []PaymentEventResponse `json:"events,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}

type PaymentEventResponse struct {
	Source     string    `json:"source"`
	EventType  string    `json:"event_type"`
	ReceivedAt time.Time `json:"received_at"`
}

// Helper converters
func BookingToResponse(booking *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:              booking.ID.String(),
		ScrimID:         booking.ScrimID.String(),
		PlayerID:        booking.PlayerID.String(),
		DisplayName:     booking.PlayerInfo.DisplayName,
		TeamName:        booking.PlayerInfo.TeamName,
		PaymentRequired: booking.PaymentRequired,
		Paid:            booking.Paid,
		Status:          booking.Status,
		CreatedAt:       booking.CreatedAt,
	}
}

func PaymentToResponse(payment *entity.Payment, events []*entity.PaymentEvent) *PaymentResponse {
	resp := &PaymentResponse{
		OrderID:             payment.OrderID,
		ScrimID:             payment.ScrimID.String(),
		Amount:              payment.Amount,
		Currency:            payment.Currency,
		Status:              payment.Status,
		PaymentSessionToken: payment.SessionToken,
		TransactionID:       payment.TransactionID,
		PaidAt:              payment.PaidAt,
		CreatedAt:           payment.CreatedAt,
	}
	for _, e := range events {
		resp.Events = append(resp.Events, PaymentEventResponse{
			Source:     e.Source,
			EventType:  e.EventType,
			ReceivedAt: e.CreatedAt,
		})
	}
	return resp
}
