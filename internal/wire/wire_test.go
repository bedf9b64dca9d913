package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"scrim-booking/internal/adaptor"
	"scrim-booking/internal/data/entity"
	"scrim-booking/internal/data/memstore"
	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/dto/response"
	"scrim-booking/internal/gateway"
	"scrim-booking/internal/notify"
	"scrim-booking/internal/usecase"
	"scrim-booking/pkg/middleware"
	"scrim-booking/pkg/signature"
	"scrim-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	webhookSecret = "whsec_router"
	frontendURL   = "https://play.scrims.test"
)

// provider imitates the payment API: orders are created ACTIVE and settled by the test.
type provider struct {
	mu     sync.Mutex
	orders map[string]string
}

func newProvider(t *testing.T) (*provider, *httptest.Server) {
	p := &provider{orders: make(map[string]string)}
	r := chi.NewRouter()
	r.Post("/orders", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OrderID string `json:"order_id"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, body.OrderID, r.Header.Get("x-idempotency-key"))
		p.mu.Lock()
		p.orders[body.OrderID] = "ACTIVE"
		p.mu.Unlock()
		fmt.Fprintf(w, `{"cf_order_id":5550001,"order_id":%q,"order_status":"ACTIVE","payment_session_id":"session_%s"}`, body.OrderID, body.OrderID)
	})
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p.mu.Lock()
		status, ok := p.orders[id]
		p.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"cf_order_id":5550001,"order_id":%q,"order_status":%q}`, id, status)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return p, srv
}

func (p *provider) settle(orderID, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders[orderID] = status
}

type env struct {
	repo     *repository.Repository
	provider *provider
	router   http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	prov, srv := newProvider(t)
	cfg := &utils.Config{
		App: utils.AppConfig{FrontendURL: frontendURL, PublicBaseURL: "https://api.scrims.test"},
		Payment: utils.PaymentConfig{
			Driver:        "rest",
			BaseURL:       srv.URL,
			WebhookSecret: webhookSecret,
			Currency:      "INR",
			Timeout:       2 * time.Second,
		},
	}
	gw, err := gateway.New(cfg.Payment, nil, zap.NewNop())
	require.NoError(t, err)

	repo := memstore.New().Repository()
	svc := usecase.NewService(repo, gw, notify.Nop{}, cfg, zap.NewNop())
	app := Wiring(svc, cfg, func(context.Context) error { return nil }, zap.NewNop())
	return &env{repo: repo, provider: prov, router: app.Router}
}

func (e *env) scrim(t *testing.T, capacity int, fee int64) *entity.Scrim {
	t.Helper()
	s := &entity.Scrim{
		OrganizationID: uuid.New(),
		Title:          "Sanhok T2",
		Capacity:       capacity,
		EntryFee:       fee,
		Currency:       "INR",
		StartsAt:       time.Now().Add(time.Hour),
		EndsAt:         time.Now().Add(3 * time.Hour),
		Status:         entity.ScrimStatusUpcoming,
	}
	s.ID = uuid.New()
	require.NoError(t, e.repo.Scrim.Create(context.Background(), s))
	return s
}

func (e *env) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func as(playerID uuid.UUID) map[string]string {
	return map[string]string{middleware.HeaderPlayerID: playerID.String()}
}

func (e *env) book(t *testing.T, scrimID, playerID uuid.UUID) (*httptest.ResponseRecorder, response.BookingResponse) {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/scrims/"+scrimID.String()+"/bookings",
		[]byte(`{"display_name":"Clutch God","team_name":"Orange Rock"}`), as(playerID))
	var out struct {
		Data response.BookingResponse `json:"data"`
	}
	if rec.Code == http.StatusCreated {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out.Data
}

func webhook(orderID, status string) []byte {
	return []byte(fmt.Sprintf(`{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":%q},"payment":{"payment_status":%q,"cf_payment_id":991}}}`, orderID, status))
}

func TestRouter_RequiresIdentity(t *testing.T) {
	e := newEnv(t)
	s := e.scrim(t, 2, 0)

	rec := e.do(http.MethodPost, "/api/scrims/"+s.ID.String()+"/bookings", []byte(`{"display_name":"Anon"}`), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodGet, "/api/players/me/bookings", nil, map[string]string{middleware.HeaderPlayerID: "not-a-uuid"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_FreeBookingAndCapacity(t *testing.T) {
	e := newEnv(t)
	s := e.scrim(t, 1, 0)

	rec, booking := e.book(t, s.ID, uuid.New())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.False(t, booking.PaymentRequired)
	assert.Nil(t, booking.Payment)

	rec, _ = e.book(t, s.ID, uuid.New())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(http.MethodPost, "/api/scrims/"+s.ID.String()+"/bookings", []byte(`{"display_name":""}`), as(uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var invalid utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invalid))
	assert.Equal(t, "Validation failed", invalid.Message)
	fields, ok := invalid.Errors.(map[string]any)
	require.True(t, ok, rec.Body.String())
	assert.Contains(t, fields, "display_name")

	rec = e.do(http.MethodPost, "/api/scrims/nope/bookings", []byte(`{"display_name":"Someone"}`), as(uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_PaidFlowThroughReturn(t *testing.T) {
	e := newEnv(t)
	s := e.scrim(t, 4, 7500)
	playerID := uuid.New()

	rec, booking := e.book(t, s.ID, playerID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, booking.Payment)
	orderID := booking.Payment.OrderID
	require.NotNil(t, booking.Payment.PaymentSessionToken)
	assert.Equal(t, "session_"+orderID, *booking.Payment.PaymentSessionToken)

	// the provider has not settled yet
	rec = e.do(http.MethodGet, "/api/payments/return?order_id="+orderID, nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, frontendURL+"/scrims/"+s.ID.String()+"?payment=pending", rec.Header().Get("Location"))

	e.provider.settle(orderID, "PAID")
	rec = e.do(http.MethodGet, "/api/payments/return?order_id="+orderID, nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, frontendURL+"/scrims/"+s.ID.String(), rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "/api/payments/"+orderID, nil, as(playerID))
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Data response.PaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, entity.PaymentStatusCompleted, status.Data.Status)
	require.Len(t, status.Data.Events, 1)
	assert.Equal(t, "return", status.Data.Events[0].Source)

	room, err := e.repo.Room.FindByScrimID(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, entity.MemberStatusActive, room.Member(playerID).Status)

	rec = e.do(http.MethodGet, "/api/payments/"+orderID, nil, as(uuid.New()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ReturnEdgeCases(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/payments/return", nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, frontendURL+"/scrims?payment=invalid", rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "/api/payments/return?order_id=SCRIM-20260101-FFFFFFFFFFFF", nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, frontendURL+"/scrims?payment=unknown", rec.Header().Get("Location"))
}

func TestRouter_Webhook(t *testing.T) {
	e := newEnv(t)
	s := e.scrim(t, 4, 7500)
	playerID := uuid.New()
	_, booking := e.book(t, s.ID, playerID)
	require.NotNil(t, booking.Payment)
	orderID := booking.Payment.OrderID

	body := webhook(orderID, "SUCCESS")

	rec := e.do(http.MethodPost, "/api/payments/webhook", body, map[string]string{
		adaptor.HeaderSignature: "bm9wZQ==",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	p, _ := e.repo.Payment.FindByOrderID(context.Background(), orderID)
	assert.Equal(t, entity.PaymentStatusPending, p.Status)

	ts := "1760700000"
	sig := signature.SignBase64(webhookSecret, []byte(ts+string(body)))
	for i := 0; i < 3; i++ {
		rec = e.do(http.MethodPost, "/api/payments/webhook", body, map[string]string{
			adaptor.HeaderSignature: sig,
			adaptor.HeaderTimestamp: ts,
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	}

	p, _ = e.repo.Payment.FindByOrderID(context.Background(), orderID)
	assert.Equal(t, entity.PaymentStatusCompleted, p.Status)
	room, _ := e.repo.Room.FindByScrimID(context.Background(), s.ID)
	require.NotNil(t, room)
	assert.Len(t, room.Members, 1)

	foreign := webhook("SOMEONE-ELSES-ORDER", "SUCCESS")
	rec = e.do(http.MethodPost, "/api/payments/webhook", foreign, map[string]string{
		adaptor.HeaderSignature: signature.SignHex(webhookSecret, foreign),
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	junk := []byte(`{"type":"TEST"}`)
	rec = e.do(http.MethodPost, "/api/payments/webhook", junk, map[string]string{
		adaptor.HeaderSignature: strings.ToUpper(signature.SignHex(webhookSecret, junk)),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_RemoveParticipant(t *testing.T) {
	e := newEnv(t)
	s := e.scrim(t, 4, 0)
	playerID := uuid.New()
	rec, _ := e.book(t, s.ID, playerID)
	require.Equal(t, http.StatusCreated, rec.Code)

	path := "/api/scrims/" + s.ID.String() + "/participants/" + playerID.String()
	rec = e.do(http.MethodDelete, path, nil, as(uuid.New()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	organizer := func(orgID string) map[string]string {
		return map[string]string{
			middleware.HeaderPlayerID:       uuid.NewString(),
			middleware.HeaderPlayerRole:     utils.RoleOrganizer,
			middleware.HeaderOrganizationID: orgID,
		}
	}

	rec = e.do(http.MethodDelete, path, nil, organizer(uuid.NewString()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodDelete, path, nil, organizer("not-a-uuid"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(http.MethodDelete, path, nil, organizer(s.OrganizationID.String()))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodDelete, path, nil, as(playerID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PlayerBookings(t *testing.T) {
	e := newEnv(t)
	playerID := uuid.New()
	for i := 0; i < 3; i++ {
		rec, _ := e.book(t, e.scrim(t, 4, 0).ID, playerID)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := e.do(http.MethodGet, "/api/players/me/bookings?page=1&per_page=2", nil, as(playerID))
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Data response.PaginatedResponse[response.BookingResponse] `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data.Data, 2)
	assert.EqualValues(t, 3, page.Data.Pagination.Total)
	assert.Equal(t, 2, page.Data.Pagination.TotalPages)
}

func TestRouter_Health(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
