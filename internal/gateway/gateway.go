// Package gateway talks to the external payment provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scrim-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrOrderNotFound means the provider does not know the order yet. Callers treat it as transient.
	ErrOrderNotFound = errors.New("order not found at provider")
	ErrOrderInFlight = errors.New("order creation already in progress")
	ErrBadPayload    = errors.New("unrecognised webhook payload")
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ProviderStatus is the provider's authoritative view of one order.
type ProviderStatus struct {
	Status        Status
	RawStatus     string
	ProviderRef   string
	TransactionID string
}

type Customer struct {
	ID    string
	Name  string
	Email string
	Phone string
}

type OrderRequest struct {
	OrderID   string
	ScrimID   uuid.UUID
	PlayerID  uuid.UUID
	Amount    int64 // minor units
	Currency  string
	Customer  Customer
	ReturnURL string
	NotifyURL string
}

type Order struct {
	OrderID      string
	ProviderRef  string
	SessionToken string
}

// WebhookEvent is the provider-neutral reading of a verified webhook body.
type WebhookEvent struct {
	OrderID   string
	EventType string
	Status    ProviderStatus
}

type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	PollStatus(ctx context.Context, orderID string) (*ProviderStatus, error)
	ParseWebhook(raw []byte) (*WebhookEvent, error)
}

// MapStatus folds provider status strings into success, failure or pending.
func MapStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS", "PAID", "SUCCESSFUL":
		return StatusSuccess
	case "FAILED", "USER_DROPPED", "CANCELLED", "EXPIRED", "REVERSED":
		return StatusFailure
	default:
		return StatusPending
	}
}

// New builds the driver selected by PAYMENT_DRIVER.
func New(cfg utils.PaymentConfig, rdb *redis.Client, log *zap.Logger) (Gateway, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	switch cfg.Driver {
	case "", "rest":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("PAYMENT_BASE_URL is required for the rest driver")
		}
		return NewRESTGateway(cfg.BaseURL, cfg.ClientID, cfg.ClientSecret, timeout, log), nil
	case "omise":
		if rdb == nil {
			return nil, fmt.Errorf("omise driver needs REDIS_ADDR for order references")
		}
		return NewOmiseGateway(cfg.OmisePublicKey, cfg.OmiseSecretKey, cfg.OmiseSourceType, timeout,
			NewRedisRefStore(rdb, 0), log)
	default:
		return nil, fmt.Errorf("unknown payment driver %q", cfg.Driver)
	}
}
