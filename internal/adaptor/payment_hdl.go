package adaptor

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"scrim-booking/internal/usecase"
	"scrim-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxWebhookBody = 1 << 20

	HeaderSignature = "x-webhook-signature"
	HeaderTimestamp = "x-webhook-timestamp"
)

type PaymentHandler struct {
	service     usecase.PaymentService
	reconcile   usecase.ReconcileService
	frontendURL string
	log         *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, reconcile usecase.ReconcileService, frontendURL string, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:     service,
		reconcile:   reconcile,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log.With(zap.String("handler", "payment")),
	}
}

// Webhook handles POST /api/payments/webhook. The body is read raw; the signature covers exact bytes.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Unreadable body", nil)
		return
	}

	sig := r.Header.Get(HeaderSignature)
	if sig == "" {
		sig = r.Header.Get("x-signature")
	}

	outcome, err := h.reconcile.HandleWebhook(r.Context(), raw, sig, r.Header.Get(HeaderTimestamp))
	switch {
	case err == nil:
		h.log.Info("Webhook processed",
			zap.String("order_id", outcome.OrderID),
			zap.String("status", string(outcome.Status)),
			zap.Bool("transitioned", outcome.Transitioned),
		)
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, usecase.ErrSignatureMismatch):
		utils.ResponseUnauthorized(w, "Invalid signature")
	case errors.Is(err, usecase.ErrUnknownOrder):
		// acknowledged so the provider stops retrying an order that is not ours
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, usecase.ErrInvalidPayload):
		utils.ResponseBadRequest(w, "Invalid payload", nil)
	default:
		// non-2xx makes the provider retry, which completes any unfinished grant
		h.log.Error("Webhook reconciliation failed", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}

// Return handles GET /api/payments/return?order_id=... and always redirects to the frontend.
func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		utils.ResponseRedirect(w, r, h.frontendURL+"/scrims?payment=invalid")
		return
	}

	outcome, err := h.reconcile.HandleReturn(r.Context(), orderID)
	if err != nil {
		h.log.Warn("Return reconciliation incomplete",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
	}
	if outcome == nil {
		marker := "error"
		if errors.Is(err, usecase.ErrUnknownOrder) {
			marker = "unknown"
		}
		utils.ResponseRedirect(w, r, h.frontendURL+"/scrims?payment="+marker)
		return
	}

	target := h.frontendURL + "/scrims/" + url.PathEscape(outcome.ScrimID.String())
	if !outcome.Completed() {
		target += "?payment=" + url.QueryEscape(string(outcome.Status))
	}
	utils.ResponseRedirect(w, r, target)
}

// Checkout handles POST /api/payments/{orderId}/checkout
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	playerID, ok := utils.GetPlayerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.Checkout(r.Context(), playerID, chi.URLParam(r, "orderId"))
	if err != nil {
		if errors.Is(err, usecase.ErrOrderCreateFailed) && payment != nil {
			utils.ResponseJSON(w, http.StatusBadGateway, false, "Payment provider unavailable, retry checkout", payment, nil)
			return
		}
		handleServiceError(w, h.log, err, "checkout")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// GetPayment handles GET /api/payments/{orderId}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	playerID, ok := utils.GetPlayerIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.GetPayment(r.Context(), playerID, chi.URLParam(r, "orderId"))
	if err != nil {
		handleServiceError(w, h.log, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}
