package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tavolo/go-table-backend/internal/closeflow"
	"github.com/tavolo/go-table-backend/internal/domain"
	"github.com/tavolo/go-table-backend/internal/services"
)

// fakeStore implements TableStore with overridable function fields so each
// test stubs only the calls it cares about.
type fakeStore struct {
	createOrJoin   func(ctx context.Context, table, name, device string, auth *services.AuthIdentity) (*domain.TableSession, error)
	session        func(ctx context.Context, table, device string) (*domain.TableSession, error)
	leave          func(ctx context.Context, table, device string) error
	addToCart      func(ctx context.Context, in services.AddToCartInput) error
	removeFromCart func(ctx context.Context, table, item string) error
	updateQty      func(ctx context.Context, table, item string, qty int) error
	submitOrder    func(ctx context.Context, table, device string) (*domain.OrderRecord, error)
	orderHistory   func(ctx context.Context, table string) ([]domain.OrderRecord, error)
	totalConsumed  func(ctx context.Context, table string) (float64, error)
	currentRound   func(ctx context.Context, table string) (int, error)
	advanceOrder   func(ctx context.Context, table, order string, next domain.OrderStatus) error
	shares         func(ctx context.Context, table string, method domain.SplitMethod) ([]domain.PaymentShare, error)
	closeTable     func(ctx context.Context, table string) (services.FlowStatus, error)
	confirmPayment func(ctx context.Context, table string) error
	flowStatus     func(table string) services.FlowStatus
}

func (f *fakeStore) CreateOrJoin(ctx context.Context, table, name, device string, auth *services.AuthIdentity) (*domain.TableSession, error) {
	if f.createOrJoin != nil {
		return f.createOrJoin(ctx, table, name, device, auth)
	}
	return &domain.TableSession{TableNumber: table, Status: domain.SessionActive}, nil
}

func (f *fakeStore) Session(ctx context.Context, table, device string) (*domain.TableSession, error) {
	if f.session != nil {
		return f.session(ctx, table, device)
	}
	return &domain.TableSession{TableNumber: table, Status: domain.SessionActive}, nil
}

func (f *fakeStore) LeaveTable(ctx context.Context, table, device string) error {
	if f.leave != nil {
		return f.leave(ctx, table, device)
	}
	return nil
}

func (f *fakeStore) AddToCart(ctx context.Context, in services.AddToCartInput) error {
	if f.addToCart != nil {
		return f.addToCart(ctx, in)
	}
	return nil
}

func (f *fakeStore) RemoveFromCart(ctx context.Context, table, item string) error {
	if f.removeFromCart != nil {
		return f.removeFromCart(ctx, table, item)
	}
	return nil
}

func (f *fakeStore) UpdateItemQuantity(ctx context.Context, table, item string, qty int) error {
	if f.updateQty != nil {
		return f.updateQty(ctx, table, item, qty)
	}
	return nil
}

func (f *fakeStore) SubmitOrder(ctx context.Context, table, device string) (*domain.OrderRecord, error) {
	if f.submitOrder != nil {
		return f.submitOrder(ctx, table, device)
	}
	return &domain.OrderRecord{Round: 1}, nil
}

func (f *fakeStore) OrderHistory(ctx context.Context, table string) ([]domain.OrderRecord, error) {
	if f.orderHistory != nil {
		return f.orderHistory(ctx, table)
	}
	return nil, nil
}

func (f *fakeStore) TotalConsumed(ctx context.Context, table string) (float64, error) {
	if f.totalConsumed != nil {
		return f.totalConsumed(ctx, table)
	}
	return 0, nil
}

func (f *fakeStore) CurrentRound(ctx context.Context, table string) (int, error) {
	if f.currentRound != nil {
		return f.currentRound(ctx, table)
	}
	return 0, nil
}

func (f *fakeStore) AdvanceOrder(ctx context.Context, table, order string, next domain.OrderStatus) error {
	if f.advanceOrder != nil {
		return f.advanceOrder(ctx, table, order, next)
	}
	return nil
}

func (f *fakeStore) Shares(ctx context.Context, table string, method domain.SplitMethod) ([]domain.PaymentShare, error) {
	if f.shares != nil {
		return f.shares(ctx, table, method)
	}
	return nil, nil
}

func (f *fakeStore) CloseTable(ctx context.Context, table string) (services.FlowStatus, error) {
	if f.closeTable != nil {
		return f.closeTable(ctx, table)
	}
	return services.FlowStatus{State: closeflow.StateWaiting}, nil
}

func (f *fakeStore) ConfirmPayment(ctx context.Context, table string) error {
	if f.confirmPayment != nil {
		return f.confirmPayment(ctx, table)
	}
	return nil
}

func (f *fakeStore) FlowStatusFor(table string) services.FlowStatus {
	if f.flowStatus != nil {
		return f.flowStatus(table)
	}
	return services.FlowStatus{State: closeflow.StateIdle}
}

// newTestRouter mounts the handlers under /api/v1 the way the real router
// does, without the middleware stack.
func newTestRouter(store TableStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(store)
	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/tables/:table/join", h.JoinTable)
	api.GET("/tables/:table", h.GetSession)
	api.POST("/tables/:table/leave", h.LeaveTable)
	api.GET("/tables/:table/summary", h.GetSummary)
	api.POST("/tables/:table/cart/items", h.AddCartItem)
	api.PATCH("/tables/:table/cart/items/:id", h.UpdateCartItem)
	api.DELETE("/tables/:table/cart/items/:id", h.RemoveCartItem)
	api.POST("/tables/:table/orders", h.SubmitOrder)
	api.GET("/tables/:table/orders", h.ListOrders)
	api.PATCH("/tables/:table/orders/:id/status", h.AdvanceOrderStatus)
	api.GET("/tables/:table/bill/split", h.GetSplit)
	api.POST("/tables/:table/close", h.CloseTable)
	api.GET("/tables/:table/close", h.GetCloseStatus)
	api.POST("/tables/:table/close/confirm", h.ConfirmPayment)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJoinTable_Success(t *testing.T) {
	var gotTable, gotName, gotDevice string
	var gotAuth *services.AuthIdentity
	store := &fakeStore{
		createOrJoin: func(_ context.Context, table, name, device string, auth *services.AuthIdentity) (*domain.TableSession, error) {
			gotTable, gotName, gotDevice, gotAuth = table, name, device, auth
			return &domain.TableSession{
				TableNumber: table,
				Status:      domain.SessionActive,
				Diners:      []domain.Diner{{Name: name, IsCurrentUser: true}},
			}, nil
		},
	}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tables/T7/join", `{"name":"Alice"}`, map[string]string{
		"X-Device-ID": "dev-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if gotTable != "T7" || gotName != "Alice" || gotDevice != "dev-1" || gotAuth != nil {
		t.Fatalf("store call args: table=%q name=%q device=%q auth=%v", gotTable, gotName, gotDevice, gotAuth)
	}

	var sess domain.TableSession
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(sess.Diners) != 1 || !sess.Diners[0].IsCurrentUser {
		t.Fatalf("unexpected session body: %+v", sess)
	}
}

func TestJoinTable_AuthHeadersForwarded(t *testing.T) {
	var gotAuth *services.AuthIdentity
	store := &fakeStore{
		createOrJoin: func(_ context.Context, table, name, device string, auth *services.AuthIdentity) (*domain.TableSession, error) {
			gotAuth = auth
			return &domain.TableSession{TableNumber: table}, nil
		},
	}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tables/T7/join", `{"name":"Alice"}`, map[string]string{
		"X-Device-ID":    "dev-1",
		"X-Auth-User-ID": "u-9",
		"X-Auth-Email":   "alice@example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if gotAuth == nil || gotAuth.UserID != "u-9" || gotAuth.Email != "alice@example.com" {
		t.Fatalf("auth identity not forwarded: %+v", gotAuth)
	}
}

func TestJoinTable_BadBodyAndStoreErrors(t *testing.T) {
	store := &fakeStore{
		createOrJoin: func(context.Context, string, string, string, *services.AuthIdentity) (*domain.TableSession, error) {
			return nil, services.ErrInvalidTableNumber
		},
	}
	r := newTestRouter(store)

	// Malformed JSON -> 400 before the store is reached.
	w := doJSON(t, r, http.MethodPost, "/api/v1/tables/T7/join", `{"name":`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status=%d", w.Code)
	}

	// Store validation error -> 400 with stable code.
	w = doJSON(t, r, http.MethodPost, "/api/v1/tables/@@/join", `{"name":"Alice"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("store error status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodeBadRequest {
		t.Fatalf("code=%q, want %q", er.Code, ErrCodeBadRequest)
	}
}

func TestGetSession_NotFoundLocalized(t *testing.T) {
	store := &fakeStore{
		session: func(context.Context, string, string) (*domain.TableSession, error) {
			return nil, services.ErrNoSession
		},
	}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodGet, "/api/v1/tables/T1", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestErrorLocalization_SpanishMessageStableCode(t *testing.T) {
	store := &fakeStore{
		closeTable: func(context.Context, string) (services.FlowStatus, error) {
			return services.FlowStatus{}, services.ErrPendingCart
		},
	}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tables/T1/close", "", map[string]string{
		"Accept-Language": "es-ES,es;q=0.9",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status=%d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Code != ErrCodePendingCart {
		t.Fatalf("code=%q, want %q (codes are never localized)", er.Code, ErrCodePendingCart)
	}
	if !strings.Contains(er.Message, "carrito") {
		t.Fatalf("message not localized to Spanish: %q", er.Message)
	}
}

func TestLeaveTable(t *testing.T) {
	var gotDevice string
	store := &fakeStore{
		leave: func(_ context.Context, _, device string) error {
			gotDevice = device
			return nil
		},
	}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tables/T1/leave", "", map[string]string{
		"X-Device-ID": "dev-9",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status=%d", w.Code)
	}
	if gotDevice != "dev-9" {
		t.Fatalf("device=%q, want dev-9", gotDevice)
	}
}

func TestGetSummary(t *testing.T) {
	store := &fakeStore{
		currentRound:  func(context.Context, string) (int, error) { return 3, nil },
		totalConsumed: func(context.Context, string) (float64, error) { return 54.5, nil },
	}
	r := newTestRouter(store)

	w := doJSON(t, r, http.MethodGet, "/api/v1/tables/T4/summary", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp SummaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.TableNumber != "T4" || resp.CurrentRound != 3 || resp.TotalConsumed != 54.5 {
		t.Fatalf("unexpected summary: %+v", resp)
	}
}
