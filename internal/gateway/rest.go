package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const apiVersion = "2023-08-01"

// RESTGateway drives the provider's order API over plain HTTPS.
type RESTGateway struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          *zap.Logger
}

func NewRESTGateway(baseURL, clientID, clientSecret string, timeout time.Duration, log *zap.Logger) *RESTGateway {
	return &RESTGateway{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		log:          log.With(zap.String("gateway", "rest")),
	}
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type createOrderBody struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails customerDetails   `json:"customer_details"`
	OrderMeta       orderMeta         `json:"order_meta"`
	OrderTags       map[string]string `json:"order_tags,omitempty"`
}

type orderResponse struct {
	CFOrderID        json.Number `json:"cf_order_id"`
	OrderID          string      `json:"order_id"`
	OrderStatus      string      `json:"order_status"`
	PaymentSessionID string      `json:"payment_session_id"`
}

func (g *RESTGateway) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body := createOrderBody{
		OrderID:       req.OrderID,
		OrderAmount:   float64(req.Amount) / 100,
		OrderCurrency: req.Currency,
		CustomerDetails: customerDetails{
			CustomerID:    req.Customer.ID,
			CustomerName:  req.Customer.Name,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
		},
		OrderMeta: orderMeta{
			ReturnURL: req.ReturnURL,
			NotifyURL: req.NotifyURL,
		},
		OrderTags: map[string]string{
			"scrim_id":  req.ScrimID.String(),
			"player_id": req.PlayerID.String(),
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode order %s: %w", req.OrderID, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-idempotency-key", req.OrderID)
	g.authorize(httpReq)

	var resp orderResponse
	status, err := g.do(httpReq, &resp)
	if status == http.StatusConflict {
		// the order exists from an earlier attempt; hand back its session instead of failing
		g.log.Info("Order already exists at provider, reusing", zap.String("order_id", req.OrderID))
		return g.fetchOrder(ctx, req.OrderID)
	}
	if err != nil {
		g.log.Error("Failed to create provider order",
			zap.Error(err),
			zap.String("order_id", req.OrderID),
		)
		return nil, fmt.Errorf("create order %s: %w", req.OrderID, err)
	}

	return &Order{
		OrderID:      req.OrderID,
		ProviderRef:  resp.CFOrderID.String(),
		SessionToken: resp.PaymentSessionID,
	}, nil
}

func (g *RESTGateway) PollStatus(ctx context.Context, orderID string) (*ProviderStatus, error) {
	resp, err := g.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ref := resp.CFOrderID.String()
	return &ProviderStatus{
		Status:        MapStatus(resp.OrderStatus),
		RawStatus:     resp.OrderStatus,
		ProviderRef:   ref,
		TransactionID: ref,
	}, nil
}

func (g *RESTGateway) fetchOrder(ctx context.Context, orderID string) (*Order, error) {
	resp, err := g.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Order{
		OrderID:      orderID,
		ProviderRef:  resp.CFOrderID.String(),
		SessionToken: resp.PaymentSessionID,
	}, nil
}

func (g *RESTGateway) getOrder(ctx context.Context, orderID string) (*orderResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, err
	}
	g.authorize(httpReq)

	var resp orderResponse
	status, err := g.do(httpReq, &resp)
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("poll order %s: %w", orderID, ErrOrderNotFound)
	}
	if err != nil {
		g.log.Warn("Failed to poll provider order",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return nil, fmt.Errorf("poll order %s: %w", orderID, err)
	}

	return &resp, nil
}

func (g *RESTGateway) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-version", apiVersion)
	req.Header.Set("x-client-id", g.clientID)
	req.Header.Set("x-client-secret", g.clientSecret)
}

// do sends req and decodes a 2xx JSON body into out. The status code is returned even on error.
func (g *RESTGateway) do(req *http.Request, out any) (int, error) {
	res, err := g.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res.StatusCode, fmt.Errorf("provider responded %d: %s", res.StatusCode, truncate(body, 256))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return res.StatusCode, fmt.Errorf("parse provider response: %w", err)
	}
	return res.StatusCode, nil
}

type restWebhook struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID     string `json:"order_id"`
			OrderStatus string `json:"order_status"`
		} `json:"order"`
		Payment struct {
			CFPaymentID   json.Number `json:"cf_payment_id"`
			PaymentStatus string      `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}

func (g *RESTGateway) ParseWebhook(raw []byte) (*WebhookEvent, error) {
	var hook restWebhook
	if err := json.Unmarshal(raw, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if hook.Data.Order.OrderID == "" {
		return nil, fmt.Errorf("%w: missing order id", ErrBadPayload)
	}

	rawStatus := hook.Data.Payment.PaymentStatus
	if rawStatus == "" {
		rawStatus = hook.Data.Order.OrderStatus
	}

	return &WebhookEvent{
		OrderID:   hook.Data.Order.OrderID,
		EventType: hook.Type,
		Status: ProviderStatus{
			Status:        MapStatus(rawStatus),
			RawStatus:     rawStatus,
			TransactionID: hook.Data.Payment.CFPaymentID.String(),
		},
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
