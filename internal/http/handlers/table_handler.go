// Table session HTTP handlers.
//
// This file exposes REST endpoints for the table session resource:
//   - POST   /tables/{table}/join   (create-or-join)
//   - GET    /tables/{table}        (session view for the calling device)
//   - POST   /tables/{table}/leave  (drop the device binding)
//
// Handlers are transport-thin: they validate input, call the session store,
// and translate results into HTTP responses. Error messages are localized
// from the Accept-Language header; error codes are stable and untranslated.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tavolo/go-table-backend/internal/closeflow"
	"github.com/tavolo/go-table-backend/internal/domain"
	"github.com/tavolo/go-table-backend/internal/http/middleware"
	"github.com/tavolo/go-table-backend/internal/i18n"
	"github.com/tavolo/go-table-backend/internal/repo"
	"github.com/tavolo/go-table-backend/internal/services"
)

//
// Service contract (context-aware)
//

// TableStore defines the session operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TableStore interface {
	// CreateOrJoin rehydrates or creates the table's session and adds the
	// caller as a diner (idempotent per identity).
	CreateOrJoin(ctx context.Context, tableNumber, dinerName, deviceID string, auth *services.AuthIdentity) (*domain.TableSession, error)
	// Session returns the session view for the calling device.
	Session(ctx context.Context, tableID, deviceID string) (*domain.TableSession, error)
	// LeaveTable drops the calling device's diner binding.
	LeaveTable(ctx context.Context, tableID, deviceID string) error

	// AddToCart appends a validated item to the shared cart.
	AddToCart(ctx context.Context, in services.AddToCartInput) error
	// RemoveFromCart deletes a cart line (absent id is a no-op).
	RemoveFromCart(ctx context.Context, tableID, itemID string) error
	// UpdateItemQuantity sets a cart line's quantity, clamped to bounds.
	UpdateItemQuantity(ctx context.Context, tableID, itemID string, qty int) error

	// SubmitOrder snapshots the cart into the next round.
	SubmitOrder(ctx context.Context, tableID, deviceID string) (*domain.OrderRecord, error)
	// OrderHistory returns all submitted rounds.
	OrderHistory(ctx context.Context, tableID string) ([]domain.OrderRecord, error)
	// TotalConsumed returns the running total across non-cancelled rounds.
	TotalConsumed(ctx context.Context, tableID string) (float64, error)
	// CurrentRound returns the latest round number (0 when none).
	CurrentRound(ctx context.Context, tableID string) (int, error)
	// AdvanceOrder progresses a round along the service lifecycle.
	AdvanceOrder(ctx context.Context, tableID, orderID string, next domain.OrderStatus) error

	// Shares computes bill shares under a split method.
	Shares(ctx context.Context, tableID string, method domain.SplitMethod) ([]domain.PaymentShare, error)
	// CloseTable starts the close negotiation (blocks through the request
	// submission hold).
	CloseTable(ctx context.Context, tableID string) (services.FlowStatus, error)
	// ConfirmPayment completes the negotiation after bill delivery.
	ConfirmPayment(ctx context.Context, tableID string) error
	// FlowStatusFor reports the close negotiation state without mutating it.
	FlowStatusFor(tableID string) services.FlowStatus
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for table sessions, carts, orders, and
// the close flow. It depends on the abstract TableStore to keep transport
// concerns separate from business logic.
type Handlers struct {
	store TableStore
}

// New constructs and returns a Handlers instance bound to the given store.
func New(store TableStore) *Handlers {
	return &Handlers{store: store}
}

// deviceID returns the calling device identity resolved by the DeviceID
// middleware, falling back to the raw header for tests that bypass the
// middleware stack.
func deviceID(c *gin.Context) string {
	if id := middleware.DeviceFrom(c); id != "" {
		return id
	}
	if c != nil && c.Request != nil {
		return strings.TrimSpace(c.GetHeader(middleware.HeaderDeviceID))
	}
	return ""
}

// authIdentity extracts the optional authenticated identity from trusted
// gateway headers. Absent headers mean a guest diner.
func authIdentity(c *gin.Context) *services.AuthIdentity {
	uid := strings.TrimSpace(c.GetHeader("X-Auth-User-ID"))
	if uid == "" {
		return nil
	}
	return &services.AuthIdentity{
		UserID: uid,
		Email:  strings.TrimSpace(c.GetHeader("X-Auth-Email")),
		Name:   strings.TrimSpace(c.GetHeader("X-Auth-Name")),
	}
}

// failStore translates a store error into a localized HTTP error response.
// The code stays stable and machine-readable; only the message is localized
// from the Accept-Language header.
func failStore(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, ErrCodeInternal
	switch {
	case errors.Is(err, services.ErrInvalidTableNumber),
		errors.Is(err, services.ErrInvalidDinerName),
		errors.Is(err, services.ErrInvalidItem),
		errors.Is(err, services.ErrInvalidSplitMethod):
		status, code = http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, services.ErrInvalidTransition):
		status, code = http.StatusBadRequest, ErrCodeInvalidTransition
	case errors.Is(err, services.ErrNoSession), errors.Is(err, repo.ErrNotFound):
		status, code = http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, services.ErrNotJoined):
		status, code = http.StatusForbidden, ErrCodeNotJoined
	case errors.Is(err, services.ErrSessionClosed):
		status, code = http.StatusConflict, ErrCodeSessionClosed
	case errors.Is(err, services.ErrEmptyCart):
		status, code = http.StatusConflict, ErrCodeEmptyCart
	case errors.Is(err, services.ErrPendingCart):
		status, code = http.StatusConflict, ErrCodePendingCart
	case errors.Is(err, services.ErrNothingToClose):
		status, code = http.StatusConflict, ErrCodeNothingToClose
	case errors.Is(err, closeflow.ErrAlreadyClosing):
		status, code = http.StatusConflict, ErrCodeAlreadyClosing
	case errors.Is(err, closeflow.ErrNotBillReady):
		status, code = http.StatusConflict, ErrCodeBillNotReady
	}

	msg := err.Error()
	tag := i18n.Match(c.GetHeader("Accept-Language"))
	if key := services.TranslationKey(err); key != "" {
		msg = i18n.T(tag, key)
	} else if errors.Is(err, closeflow.ErrAlreadyClosing) {
		msg = i18n.T(tag, i18n.KeyAlreadyClosing)
	}
	fail(c, status, code, msg)
}

//
// DTOs
//

// JoinTableRequest is the JSON payload for joining a table.
type JoinTableRequest struct {
	// Name is the display name of the joining diner (1–40 chars).
	Name string `json:"name" binding:"required,min=1,max=40" example:"Alice"`
}

// SummaryResponse reports the running totals for a table.
type SummaryResponse struct {
	TableNumber   string  `json:"table_number"`
	CurrentRound  int     `json:"current_round"`
	TotalConsumed float64 `json:"total_consumed"`
}

//
// Handlers
//

// JoinTable godoc
// @ID          joinTable
// @Summary     Join a table
// @Description Creates or rehydrates the table's shared session and adds the caller as a diner. Repeating the call with the same identity is idempotent.
// @Tags        Tables
// @Accept      json
// @Produce     json
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"  example(dev-8a2f)
// @Param       table        path    string  true  "Table number"              example(T12)
// @Param       body         body    handlers.JoinTableRequest  true  "Join payload"
//
// @Success     200  {object}  domain.TableSession
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tables/{table}/join [post]
func (h *Handlers) JoinTable(c *gin.Context) {
	var req JoinTableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	session, err := h.store.CreateOrJoin(c.Request.Context(), c.Param("table"), req.Name, deviceID(c), authIdentity(c))
	if err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusOK, session)
}

// GetSession godoc
// @ID          getSession
// @Summary     Get the table session
// @Description Returns the shared session with the caller's diner flagged as the current user.
// @Tags        Tables
// @Produce     json
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"
// @Param       table        path    string  true  "Table number"
//
// @Success     200  {object}  domain.TableSession
// @Failure     404  {object}  handlers.ErrorResponse  "No live session"
// @Router      /tables/{table} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	session, err := h.store.Session(c.Request.Context(), c.Param("table"), deviceID(c))
	if err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusOK, session)
}

// LeaveTable godoc
// @ID          leaveTable
// @Summary     Leave a table
// @Description Clears the calling device's diner binding. The session and the diner's contributions remain.
// @Tags        Tables
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"
// @Param       table        path    string  true  "Table number"
//
// @Success     204  {string} string "No Content"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tables/{table}/leave [post]
func (h *Handlers) LeaveTable(c *gin.Context) {
	if err := h.store.LeaveTable(c.Request.Context(), c.Param("table"), deviceID(c)); err != nil {
		failStore(c, err)
		return
	}
	noContent(c)
}

// GetSummary godoc
// @ID          getSummary
// @Summary     Table summary
// @Description Returns the current round number and the running total across non-cancelled rounds.
// @Tags        Tables
// @Produce     json
//
// @Param       table  path  string  true  "Table number"
//
// @Success     200  {object}  handlers.SummaryResponse
// @Failure     404  {object}  handlers.ErrorResponse  "No live session"
// @Router      /tables/{table}/summary [get]
func (h *Handlers) GetSummary(c *gin.Context) {
	ctx := c.Request.Context()
	table := c.Param("table")

	round, err := h.store.CurrentRound(ctx, table)
	if err != nil {
		failStore(c, err)
		return
	}
	total, err := h.store.TotalConsumed(ctx, table)
	if err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusOK, SummaryResponse{
		TableNumber:   table,
		CurrentRound:  round,
		TotalConsumed: total,
	})
}
