// Order round HTTP handlers.
//
// This file exposes REST endpoints for submitted rounds:
//   - POST  /tables/{table}/orders              (submit the cart as a round)
//   - GET   /tables/{table}/orders              (round history)
//   - PATCH /tables/{table}/orders/{id}/status  (advance service status)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tavolo/go-table-backend/internal/domain"
	"github.com/tavolo/go-table-backend/internal/utils"
)

// AdvanceOrderRequest is the JSON payload for progressing a round's status.
type AdvanceOrderRequest struct {
	// Status is the next lifecycle stage: confirmed, preparing, ready, or
	// delivered. Terminal stages are owned by the close flow.
	Status domain.OrderStatus `json:"status" binding:"required" example:"confirmed"`
}

// OrderHistoryResponse wraps the table's submitted rounds.
type OrderHistoryResponse struct {
	Orders []domain.OrderRecord `json:"orders"`
}

// SubmitOrder godoc
// @ID          submitOrder
// @Summary     Submit the shared cart as a round
// @Description Atomically snapshots the cart into the next numbered round, clears the cart, and returns the new record.
// @Tags        Orders
// @Produce     json
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"
// @Param       table        path    string  true  "Table number"
//
// @Success     201  {object} domain.OrderRecord
// @Failure     404  {object} handlers.ErrorResponse "No live session"
// @Failure     409  {object} handlers.ErrorResponse "Empty cart or closed session"
// @Router      /tables/{table}/orders [post]
func (h *Handlers) SubmitOrder(c *gin.Context) {
	record, err := h.store.SubmitOrder(c.Request.Context(), c.Param("table"), deviceID(c))
	if err != nil {
		failStore(c, err)
		return
	}
	ok(c, http.StatusCreated, record)
}

// ListOrders godoc
// @ID          listOrders
// @Summary     List submitted rounds
// @Description Returns the round history for the table, oldest first. Use last=N to keep only the most recent N rounds.
// @Tags        Orders
// @Produce     json
//
// @Param       table  path   string  true   "Table number"
// @Param       last   query  int     false  "Return only the most recent N rounds"
//
// @Success     200  {object} handlers.OrderHistoryResponse
// @Failure     404  {object} handlers.ErrorResponse "No live session"
// @Router      /tables/{table}/orders [get]
func (h *Handlers) ListOrders(c *gin.Context) {
	orders, err := h.store.OrderHistory(c.Request.Context(), c.Param("table"))
	if err != nil {
		failStore(c, err)
		return
	}
	if last := utils.AtoiDefault(c.Query("last"), 0); last > 0 && last < len(orders) {
		orders = orders[len(orders)-last:]
	}
	ok(c, http.StatusOK, OrderHistoryResponse{Orders: orders})
}

// AdvanceOrderStatus godoc
// @ID          advanceOrderStatus
// @Summary     Advance a round's service status
// @Description Moves a round one stage along submitted → confirmed → preparing → ready → delivered. Illegal jumps are rejected.
// @Tags        Orders
// @Accept      json
//
// @Param       table  path  string  true  "Table number"
// @Param       id     path  string  true  "Order id"
// @Param       body   body  handlers.AdvanceOrderRequest  true  "Next status"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Illegal transition"
// @Failure     404  {object} handlers.ErrorResponse "Unknown order"
// @Router      /tables/{table}/orders/{id}/status [patch]
func (h *Handlers) AdvanceOrderStatus(c *gin.Context) {
	var req AdvanceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.store.AdvanceOrder(c.Request.Context(), c.Param("table"), c.Param("id"), req.Status); err != nil {
		failStore(c, err)
		return
	}
	noContent(c)
}
