package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tavolo/go-table-backend/internal/closeflow"
	"github.com/tavolo/go-table-backend/internal/config"
	"github.com/tavolo/go-table-backend/internal/domain"
	"github.com/tavolo/go-table-backend/internal/http/middleware"
	"github.com/tavolo/go-table-backend/internal/repo"
	"github.com/tavolo/go-table-backend/internal/services"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "router.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   1000,
		SessionTTL:  8 * time.Hour,
		CloseFlow: config.CloseFlowConfig{
			RequestDelay:   time.Millisecond,
			WaiterMinDelay: time.Millisecond,
			WaiterMaxDelay: 2 * time.Millisecond,
			DeliveryDelay:  time.Millisecond,
		},
		CORS:     config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security: config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:     config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*gin.Engine, *services.SessionStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := NewStore(newTestDB(t), cfg)
	t.Cleanup(store.Shutdown)
	RegisterRoutes(r, store, cfg)
	return r, store
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newTestServer(t, testConfig())

	// /health works
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (DELETE /health)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"https://app.example.com"}
	r, _ := newTestServer(t, cfg)

	// Allowed origin echoed back
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("expected origin echo, got %q", got)
	}

	// Unknown origin gets nothing
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "https://evil.example.com" {
		t.Fatalf("unexpected ACAO for unknown origin: %q", got)
	}
}

func TestRegisterRoutes_SecurityHeadersAndRequestID(t *testing.T) {
	r, _ := newTestServer(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := w.Header().Get("X-Request-ID"); got == "" {
		t.Fatalf("missing X-Request-ID on response")
	}
}

// End-to-end: join, fill the cart, submit, split, close, confirm. Exercises
// the full middleware stack, the real store, and the sqlite-backed repo.
func TestRouter_FullTableLifecycle(t *testing.T) {
	r, _ := newTestServer(t, testConfig())

	do := func(method, path, body, device string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if device != "" {
			req.Header.Set(middleware.HeaderDeviceID, device)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// Alice joins table T12.
	w := do(http.MethodPost, "/api/v1/tables/T12/join", `{"name":"Alice"}`, "dev-a")
	if w.Code != http.StatusOK {
		t.Fatalf("join = %d body=%s", w.Code, w.Body.String())
	}

	// Bob joins too.
	if w := do(http.MethodPost, "/api/v1/tables/T12/join", `{"name":"Bob"}`, "dev-b"); w.Code != http.StatusOK {
		t.Fatalf("bob join = %d", w.Code)
	}

	// Alice adds an item, Bob adds nothing.
	w = do(http.MethodPost, "/api/v1/tables/T12/cart/items", `{"name":"Carbonara","price":12.75,"quantity":2}`, "dev-a")
	if w.Code != http.StatusNoContent {
		t.Fatalf("add item = %d body=%s", w.Code, w.Body.String())
	}

	// Closing with a pending cart is rejected.
	if w := do(http.MethodPost, "/api/v1/tables/T12/close", "", "dev-a"); w.Code != http.StatusConflict {
		t.Fatalf("close with pending cart = %d", w.Code)
	}

	// Submit the round.
	w = do(http.MethodPost, "/api/v1/tables/T12/orders", "", "dev-a")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit = %d body=%s", w.Code, w.Body.String())
	}
	var rec domain.OrderRecord
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("submit json: %v", err)
	}
	if rec.Round != 1 || rec.Subtotal != 25.5 {
		t.Fatalf("unexpected round: %+v", rec)
	}

	// Consumption split attributes everything to Alice.
	w = do(http.MethodGet, "/api/v1/tables/T12/bill/split?method=by_consumption", "", "dev-a")
	if w.Code != http.StatusOK {
		t.Fatalf("split = %d", w.Code)
	}
	var split struct {
		Shares []domain.PaymentShare `json:"shares"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &split); err != nil {
		t.Fatalf("split json: %v", err)
	}
	byName := map[string]float64{}
	for _, s := range split.Shares {
		byName[s.DinerName] = s.Amount
	}
	if byName["Alice"] != 25.5 || byName["Bob"] != 0 {
		t.Fatalf("consumption shares = %v", byName)
	}

	// Close the table and wait for the bill.
	w = do(http.MethodPost, "/api/v1/tables/T12/close", "", "dev-a")
	if w.Code != http.StatusAccepted {
		t.Fatalf("close = %d body=%s", w.Code, w.Body.String())
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		w = do(http.MethodGet, "/api/v1/tables/T12/close", "", "dev-a")
		var st struct {
			State closeflow.State `json:"state"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
			t.Fatalf("status json: %v", err)
		}
		if st.State == closeflow.StateBillReady {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("bill never ready, state=%s", st.State)
		}
		time.Sleep(2 * time.Millisecond)
	}

	// Confirm payment; the session closes.
	if w := do(http.MethodPost, "/api/v1/tables/T12/close/confirm", "", "dev-a"); w.Code != http.StatusNoContent {
		t.Fatalf("confirm = %d body=%s", w.Code, w.Body.String())
	}

	w = do(http.MethodGet, "/api/v1/tables/T12", "", "dev-a")
	if w.Code != http.StatusOK {
		t.Fatalf("get session = %d", w.Code)
	}
	var sess domain.TableSession
	if err := json.Unmarshal(w.Body.Bytes(), &sess); err != nil {
		t.Fatalf("session json: %v", err)
	}
	if sess.Status != domain.SessionClosed {
		t.Fatalf("session status = %s, want closed", sess.Status)
	}

	// Further mutations are rejected.
	if w := do(http.MethodPost, "/api/v1/tables/T12/cart/items", `{"name":"Espresso","price":1.5}`, "dev-a"); w.Code != http.StatusConflict {
		t.Fatalf("add to closed session = %d", w.Code)
	}
}
