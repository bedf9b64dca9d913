package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/memstore"
	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/gateway"
	"scrim-booking/internal/notify"
	"scrim-booking/pkg/signature"
	"scrim-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test"

type fakeGateway struct {
	mu      sync.Mutex
	creates []gateway.OrderRequest
	polls   int

	createFn func(req gateway.OrderRequest) (*gateway.Order, error)
	pollFn   func(orderID string) (*gateway.ProviderStatus, error)
	parser   gateway.Gateway
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		parser: gateway.NewRESTGateway("http://provider.invalid", "id", "secret", time.Second, zap.NewNop()),
	}
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	g.creates = append(g.creates, req)
	fn := g.createFn
	g.mu.Unlock()
	if fn != nil {
		return fn(req)
	}
	return &gateway.Order{OrderID: req.OrderID, ProviderRef: "cf_" + req.OrderID, SessionToken: "session_" + req.OrderID}, nil
}

func (g *fakeGateway) PollStatus(_ context.Context, orderID string) (*gateway.ProviderStatus, error) {
	g.mu.Lock()
	g.polls++
	fn := g.pollFn
	g.mu.Unlock()
	if fn != nil {
		return fn(orderID)
	}
	return &gateway.ProviderStatus{Status: gateway.StatusPending, RawStatus: "ACTIVE"}, nil
}

func (g *fakeGateway) ParseWebhook(raw []byte) (*gateway.WebhookEvent, error) {
	return g.parser.ParseWebhook(raw)
}

func (g *fakeGateway) createdOrders() []gateway.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.OrderRequest(nil), g.creates...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) count(t notify.EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.Type == t {
			c++
		}
	}
	return c
}

type fixture struct {
	repo     *repository.Repository
	gw       *fakeGateway
	notifier *recordingNotifier
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &utils.Config{
		App: utils.AppConfig{PublicBaseURL: "https://api.scrims.test"},
		Payment: utils.PaymentConfig{
			Currency:      "INR",
			WebhookSecret: testWebhookSecret,
		},
	}
	repo := memstore.New().Repository()
	gw := newFakeGateway()
	notifier := &recordingNotifier{}
	return &fixture{
		repo:     repo,
		gw:       gw,
		notifier: notifier,
		svc:      NewService(repo, gw, notifier, cfg, zap.NewNop()),
	}
}

func (f *fixture) scrim(t *testing.T, capacity int, fee int64) *entity.Scrim {
	t.Helper()
	now := time.Now()
	s := &entity.Scrim{
		OrganizationID: uuid.New(),
		Title:          "Erangel customs",
		Capacity:       capacity,
		EntryFee:       fee,
		Currency:       "INR",
		StartsAt:       now.Add(24 * time.Hour),
		EndsAt:         now.Add(26 * time.Hour),
		Status:         entity.ScrimStatusUpcoming,
	}
	s.ID = uuid.New()
	s.CreatedAt = now
	s.UpdatedAt = now
	require.NoError(t, f.repo.Scrim.Create(context.Background(), s))
	return s
}

func player(name string) entity.PlayerInfo {
	return entity.PlayerInfo{DisplayName: name, Email: name + "@example.com"}
}

// bookPaid reserves a slot in a paid scrim and returns the pending order id.
func (f *fixture) bookPaid(t *testing.T, scrim *entity.Scrim, playerID uuid.UUID) string {
	t.Helper()
	booking, err := f.svc.Reservation.Reserve(context.Background(), scrim.ID, playerID, player("paid"))
	require.NoError(t, err)
	payment, err := f.svc.Payment.StartPayment(context.Background(), scrim, booking)
	require.NoError(t, err)
	return payment.OrderID
}

func webhookBody(orderID, status string) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":%q},"payment":{"payment_status":%q,"cf_payment_id":88001}}}`,
		orderID, status))
}

func signedBase64(msg []byte) string {
	return signature.SignBase64(testWebhookSecret, msg)
}

func signed(body []byte) string {
	return signature.SignHex(testWebhookSecret, body)
}

type ledgerState struct {
	PaymentStatus entity.PaymentStatus
	Paid          bool
	Members       int
	MemberStatus  entity.MemberStatus
}

func (f *fixture) state(t *testing.T, orderID string) ledgerState {
	t.Helper()
	ctx := context.Background()
	p, err := f.repo.Payment.FindByOrderID(ctx, orderID)
	require.NoError(t, err)
	require.NotNil(t, p)

	var st ledgerState
	st.PaymentStatus = p.Status
	b, err := f.repo.Booking.FindActive(ctx, p.ScrimID, p.PlayerID)
	require.NoError(t, err)
	if b != nil {
		st.Paid = b.Paid
	}
	room, err := f.repo.Room.FindByScrimID(ctx, p.ScrimID)
	require.NoError(t, err)
	if room != nil {
		st.Members = len(room.Members)
		if m := room.Member(p.PlayerID); m != nil {
			st.MemberStatus = m.Status
		}
	}
	return st
}
