// Package httpapi wires the HTTP transport (Gin) to the session store,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, device identity, logging/redaction, panic
// recovery, metrics, compression, CORS, security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tavolo/go-table-backend/internal/closeflow"
	"github.com/tavolo/go-table-backend/internal/config"
	"github.com/tavolo/go-table-backend/internal/domain"
	"github.com/tavolo/go-table-backend/internal/http/handlers"
	"github.com/tavolo/go-table-backend/internal/http/middleware"
	"github.com/tavolo/go-table-backend/internal/repo"
	"github.com/tavolo/go-table-backend/internal/services"
)

// sessionRepoShim adapts the repository free functions to the
// services.SessionRepo interface expected by the SessionStore. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type sessionRepoShim struct{}

// GetSession proxies repo.GetSessionRecord.
func (sessionRepoShim) GetSession(ctx context.Context, db *gorm.DB, tableID string, now time.Time) (*domain.TableSession, *domain.TableSessionRecord, error) {
	return repo.GetSessionRecord(ctx, db, tableID, now)
}

// PutSession proxies repo.PutSessionRecord.
func (sessionRepoShim) PutSession(ctx context.Context, db *gorm.DB, session *domain.TableSession, ttl time.Duration, now time.Time) error {
	return repo.PutSessionRecord(ctx, db, session, ttl, now)
}

// DeleteSession proxies repo.DeleteSessionRecord.
func (sessionRepoShim) DeleteSession(ctx context.Context, db *gorm.DB, tableID string) error {
	return repo.DeleteSessionRecord(ctx, db, tableID)
}

// GetBinding proxies repo.GetBinding.
func (sessionRepoShim) GetBinding(ctx context.Context, db *gorm.DB, tableID, deviceID string) (*domain.DeviceBinding, error) {
	return repo.GetBinding(ctx, db, tableID, deviceID)
}

// PutBinding proxies repo.PutBinding.
func (sessionRepoShim) PutBinding(ctx context.Context, db *gorm.DB, tableID, deviceID, dinerID string, now time.Time) error {
	return repo.PutBinding(ctx, db, tableID, deviceID, dinerID, now)
}

// DeleteBinding proxies repo.DeleteBinding.
func (sessionRepoShim) DeleteBinding(ctx context.Context, db *gorm.DB, tableID, deviceID string) error {
	return repo.DeleteBinding(ctx, db, tableID, deviceID)
}

// NewStore builds the production SessionStore from configuration, wiring the
// repository shim and the close-flow timings.
func NewStore(db *gorm.DB, cfg config.Config) *services.SessionStore {
	store := services.NewSessionStore(db, sessionRepoShim{})
	store.TTL = cfg.SessionTTL
	store.FlowConfig = closeflow.Config{
		RequestDelay:   cfg.CloseFlow.RequestDelay,
		WaiterMinDelay: cfg.CloseFlow.WaiterMinDelay,
		WaiterMaxDelay: cfg.CloseFlow.WaiterMaxDelay,
		DeliveryDelay:  cfg.CloseFlow.DeliveryDelay,
	}
	return store
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), device identity,
// rate limiting, CORS and security headers, health and metrics endpoints, and
// then mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. DeviceID: resolve the caller's device identity
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Gzip compression
//  8. Metrics
//  9. Rate limiter (per device/IP)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, store handlers.TableStore, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Resolve device identity for attribution, logging, rate limiting
	r.Use(middleware.DeviceID())

	// 4) Structured logging with redaction (diner emails may transit headers)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-Auth-Email",
		},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 7) Compress JSON payloads (session views grow with the order history)
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 8) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 9) Token-bucket rate limiter per device/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByDeviceOrIP())
	r.Use(rl.Handler())

	// 10) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", middleware.HeaderDeviceID},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", middleware.HeaderDeviceID},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(store)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Table sessions
		api.POST("/tables/:table/join", h.JoinTable)
		api.GET("/tables/:table", h.GetSession)
		api.POST("/tables/:table/leave", h.LeaveTable)
		api.GET("/tables/:table/summary", h.GetSummary)

		// Shared cart
		api.POST("/tables/:table/cart/items", h.AddCartItem)
		api.PATCH("/tables/:table/cart/items/:id", h.UpdateCartItem)
		api.DELETE("/tables/:table/cart/items/:id", h.RemoveCartItem)

		// Order rounds
		api.POST("/tables/:table/orders", h.SubmitOrder)
		api.GET("/tables/:table/orders", h.ListOrders)
		api.PATCH("/tables/:table/orders/:id/status", h.AdvanceOrderStatus)

		// Bill and close flow
		api.GET("/tables/:table/bill/split", h.GetSplit)
		api.POST("/tables/:table/close", h.CloseTable)
		api.GET("/tables/:table/close", h.GetCloseStatus)
		api.POST("/tables/:table/close/confirm", h.ConfirmPayment)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
