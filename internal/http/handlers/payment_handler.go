// Bill split and close-table HTTP handlers.
//
// This file exposes REST endpoints for settling the table:
//   - GET  /tables/{table}/bill/split     (compute shares under a method)
//   - POST /tables/{table}/close          (start the close negotiation)
//   - GET  /tables/{table}/close          (poll the negotiation status)
//   - POST /tables/{table}/close/confirm  (confirm payment after bill delivery)
//
// The close endpoint blocks through the request submission hold, mirroring a
// diner waiting for the "calling a waiter" spinner; clients then poll the
// status endpoint for waiter acceptance and bill delivery.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tavolo/go-table-backend/internal/domain"
)

// SplitResponse reports the per-diner shares for a split method.
type SplitResponse struct {
	Method domain.SplitMethod    `json:"method"`
	Shares []domain.PaymentShare `json:"shares"`
}

// GetSplit godoc
// @ID          getSplit
// @Summary     Compute bill shares
// @Description Computes per-diner shares of the running total under the requested split method (equal, by_consumption, or custom).
// @Tags        Payments
// @Produce     json
//
// @Param       table   path   string  true   "Table number"
// @Param       method  query  string  false  "Split method"  Enums(equal, by_consumption, custom)  default(equal)
//
// @Success     200  {object} handlers.SplitResponse
// @Failure     400  {object} handlers.ErrorResponse "Unknown split method"
// @Failure     404  {object} handlers.ErrorResponse "No live session"
// @Router      /tables/{table}/bill/split [get]
func (h *Handlers) GetSplit(c *gin.Context) {
	method := domain.SplitMethod(c.DefaultQuery("method", string(domain.SplitEqual)))

	shares, err := h.store.Shares(c.Request.Context(), c.Param("table"), method)
	if err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusOK, SplitResponse{Method: method, Shares: shares})
}

// CloseTable godoc
// @ID          closeTable
// @Summary     Ask for the bill
// @Description Starts the close-table negotiation. Fails while unsubmitted cart items remain or nothing has been ordered. Blocks until the close request is accepted, then returns the flow status with the assigned waiter.
// @Tags        Payments
// @Produce     json
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"
// @Param       table        path    string  true  "Table number"
//
// @Success     202  {object} services.FlowStatus
// @Failure     404  {object} handlers.ErrorResponse "No live session"
// @Failure     409  {object} handlers.ErrorResponse "Pending cart, nothing ordered, or already closing"
// @Router      /tables/{table}/close [post]
func (h *Handlers) CloseTable(c *gin.Context) {
	status, err := h.store.CloseTable(c.Request.Context(), c.Param("table"))
	if err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusAccepted, status)
}

// GetCloseStatus godoc
// @ID          getCloseStatus
// @Summary     Poll the close negotiation
// @Description Returns the current close-flow state and, once assigned, the accepting waiter.
// @Tags        Payments
// @Produce     json
//
// @Param       table  path  string  true  "Table number"
//
// @Success     200  {object} services.FlowStatus
// @Router      /tables/{table}/close [get]
func (h *Handlers) GetCloseStatus(c *gin.Context) {
	ok(c, http.StatusOK, h.store.FlowStatusFor(c.Param("table")))
}

// ConfirmPayment godoc
// @ID          confirmPayment
// @Summary     Confirm payment
// @Description Completes the close negotiation once the bill is on the table: every round is marked paid and the session closes.
// @Tags        Payments
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"
// @Param       table        path    string  true  "Table number"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "No live session"
// @Failure     409  {object} handlers.ErrorResponse "Bill not ready"
// @Router      /tables/{table}/close/confirm [post]
func (h *Handlers) ConfirmPayment(c *gin.Context) {
	if err := h.store.ConfirmPayment(c.Request.Context(), c.Param("table")); err != nil {
		failStore(c, err)
		return
	}
	noContent(c)
}
