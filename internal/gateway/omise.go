package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"go.uber.org/zap"
)

// omiseAPI is the slice of the Omise SDK the driver uses.
type omiseAPI interface {
	CreateSource(op *operations.CreateSource) (*omise.Source, error)
	CreateCharge(op *operations.CreateCharge) (*omise.Charge, error)
	RetrieveCharge(chargeID string) (*omise.Charge, error)
}

type sdkClient struct {
	c *omise.Client
}

func (s sdkClient) CreateSource(op *operations.CreateSource) (*omise.Source, error) {
	src := &omise.Source{}
	if err := s.c.Do(src, op); err != nil {
		return nil, err
	}
	return src, nil
}

func (s sdkClient) CreateCharge(op *operations.CreateCharge) (*omise.Charge, error) {
	ch := &omise.Charge{}
	if err := s.c.Do(ch, op); err != nil {
		return nil, err
	}
	return ch, nil
}

func (s sdkClient) RetrieveCharge(chargeID string) (*omise.Charge, error) {
	ch := &omise.Charge{}
	if err := s.c.Do(ch, &operations.RetrieveCharge{ChargeID: chargeID}); err != nil {
		return nil, err
	}
	return ch, nil
}

// OmiseGateway charges through an Omise source. Omise charges are not addressable by our order id,
// so the charge id is kept in a RefStore keyed by order id.
type OmiseGateway struct {
	client     omiseAPI
	sourceType string
	timeout    time.Duration
	refs       RefStore
	log        *zap.Logger
}

func NewOmiseGateway(publicKey, secretKey, sourceType string, timeout time.Duration, refs RefStore, log *zap.Logger) (*OmiseGateway, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("create omise client: %w", err)
	}
	client.SetDebug(false)

	return newOmiseGateway(sdkClient{c: client}, sourceType, timeout, refs, log), nil
}

func newOmiseGateway(client omiseAPI, sourceType string, timeout time.Duration, refs RefStore, log *zap.Logger) *OmiseGateway {
	if sourceType == "" {
		sourceType = "promptpay"
	}
	return &OmiseGateway{
		client:     client,
		sourceType: sourceType,
		timeout:    timeout,
		refs:       refs,
		log:        log.With(zap.String("gateway", "omise")),
	}
}

// withTimeout runs an SDK call under the driver timeout. The SDK takes no context, so the call is
// abandoned (not cancelled) when the deadline passes.
func withTimeout[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (g *OmiseGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if ref, err := g.refs.Get(ctx, req.OrderID); err != nil {
		return nil, err
	} else if ref != "" {
		return g.existingOrder(ctx, req.OrderID, ref)
	}

	claimed, err := g.refs.Claim(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("create order %s: %w", req.OrderID, ErrOrderInFlight)
	}
	defer func() {
		if err := g.refs.Release(context.WithoutCancel(ctx), req.OrderID); err != nil {
			g.log.Warn("Failed to release order claim", zap.Error(err), zap.String("order_id", req.OrderID))
		}
	}()

	currency := strings.ToLower(req.Currency)

	src, err := withTimeout(ctx, g.timeout, func() (*omise.Source, error) {
		return g.client.CreateSource(&operations.CreateSource{
			Type:     g.sourceType,
			Amount:   req.Amount,
			Currency: currency,
		})
	})
	if err != nil {
		g.log.Error("Failed to create omise source", zap.Error(err), zap.String("order_id", req.OrderID))
		return nil, fmt.Errorf("create source for %s: %w", req.OrderID, err)
	}

	// the ref is saved inside the call so a charge that completes after the deadline is still found
	ch, err := withTimeout(ctx, g.timeout, func() (*omise.Charge, error) {
		ch, err := g.client.CreateCharge(&operations.CreateCharge{
			Amount:    req.Amount,
			Currency:  currency,
			Source:    src.ID,
			ReturnURI: req.ReturnURL,
			Metadata: map[string]interface{}{
				"order_id":  req.OrderID,
				"scrim_id":  req.ScrimID.String(),
				"player_id": req.PlayerID.String(),
			},
		})
		if err == nil {
			g.saveRef(context.WithoutCancel(ctx), req.OrderID, ch.ID)
		}
		return ch, err
	})
	if err != nil {
		g.log.Error("Failed to create omise charge", zap.Error(err), zap.String("order_id", req.OrderID))
		return nil, fmt.Errorf("create charge for %s: %w", req.OrderID, err)
	}

	return &Order{
		OrderID:      req.OrderID,
		ProviderRef:  ch.ID,
		SessionToken: ch.AuthorizeURI,
	}, nil
}

func (g *OmiseGateway) saveRef(ctx context.Context, orderID, chargeID string) {
	if err := g.refs.Save(ctx, orderID, chargeID); err != nil {
		g.log.Error("Failed to save omise charge ref",
			zap.Error(err),
			zap.String("order_id", orderID),
			zap.String("charge_id", chargeID),
		)
	}
}

func (g *OmiseGateway) existingOrder(ctx context.Context, orderID, chargeID string) (*Order, error) {
	ch, err := g.retrieve(ctx, chargeID)
	if err != nil {
		return nil, fmt.Errorf("reuse charge for %s: %w", orderID, err)
	}
	return &Order{OrderID: orderID, ProviderRef: ch.ID, SessionToken: ch.AuthorizeURI}, nil
}

func (g *OmiseGateway) retrieve(ctx context.Context, chargeID string) (*omise.Charge, error) {
	return withTimeout(ctx, g.timeout, func() (*omise.Charge, error) {
		return g.client.RetrieveCharge(chargeID)
	})
}

func (g *OmiseGateway) PollStatus(ctx context.Context, orderID string) (*ProviderStatus, error) {
	chargeID, err := g.refs.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if chargeID == "" {
		return nil, fmt.Errorf("poll order %s: %w", orderID, ErrOrderNotFound)
	}

	ch, err := g.retrieve(ctx, chargeID)
	if err != nil {
		g.log.Warn("Failed to retrieve omise charge",
			zap.Error(err),
			zap.String("order_id", orderID),
			zap.String("charge_id", chargeID),
		)
		return nil, fmt.Errorf("poll order %s: %w", orderID, err)
	}

	return chargeStatus(ch), nil
}

func chargeStatus(ch *omise.Charge) *ProviderStatus {
	raw := string(ch.Status)
	return &ProviderStatus{
		Status:        MapStatus(raw),
		RawStatus:     raw,
		ProviderRef:   ch.ID,
		TransactionID: ch.ID,
	}
}

type omiseEvent struct {
	ID   string          `json:"id"`
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

func (g *OmiseGateway) ParseWebhook(raw []byte) (*WebhookEvent, error) {
	var ev omiseEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	var ch omise.Charge
	if err := json.Unmarshal(ev.Data, &ch); err != nil {
		return nil, fmt.Errorf("%w: charge: %v", ErrBadPayload, err)
	}

	orderID, _ := ch.Metadata["order_id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrBadPayload)
	}

	return &WebhookEvent{
		OrderID:   orderID,
		EventType: ev.Key,
		Status:    *chargeStatus(&ch),
	}, nil
}
