// Shared cart HTTP handlers.
//
// This file exposes REST endpoints for the table's shared cart:
//   - POST   /tables/{table}/cart/items        (add item)
//   - PATCH  /tables/{table}/cart/items/{id}   (change quantity)
//   - DELETE /tables/{table}/cart/items/{id}   (remove item)
//
// Every mutation is attributed to the calling device's diner and persists the
// whole session synchronously.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tavolo/go-table-backend/internal/services"
)

// AddCartItemRequest is the JSON payload for adding an item to the cart.
// Name, price, and image are snapshots of the product at add time.
type AddCartItemRequest struct {
	ProductID string  `json:"product_id" example:"prod-77"`
	Name      string  `json:"name" binding:"required" example:"Margherita"`
	Price     float64 `json:"price" binding:"required" example:"8.50"`
	ImageURL  string  `json:"image_url" example:"https://cdn.example.com/margherita.jpg"`
	// Quantity defaults to 1 when omitted; otherwise must be 1–99.
	Quantity int    `json:"quantity" example:"2"`
	Note     string `json:"note" example:"extra basil"`
}

// UpdateCartItemRequest is the JSON payload for changing a cart line's
// quantity. Out-of-range values are clamped to 1–99.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required" example:"3"`
}

// AddCartItem godoc
// @ID          addCartItem
// @Summary     Add an item to the shared cart
// @Description Appends a product snapshot to the table's shared cart, attributed to the calling device's diner.
// @Tags        Cart
// @Accept      json
// @Produce     json
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"
// @Param       table        path    string  true  "Table number"
// @Param       body         body    handlers.AddCartItemRequest  true  "Item payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Invalid item"
// @Failure     403  {object} handlers.ErrorResponse "Device has not joined"
// @Failure     409  {object} handlers.ErrorResponse "Session closed"
// @Router      /tables/{table}/cart/items [post]
func (h *Handlers) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	err := h.store.AddToCart(c.Request.Context(), services.AddToCartInput{
		TableID:   c.Param("table"),
		DeviceID:  deviceID(c),
		ProductID: strings.TrimSpace(req.ProductID),
		Name:      strings.TrimSpace(req.Name),
		Price:     req.Price,
		ImageURL:  strings.TrimSpace(req.ImageURL),
		Quantity:  req.Quantity,
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		failStore(c, err)
		return
	}
	noContent(c)
}

// UpdateCartItem godoc
// @ID          updateCartItem
// @Summary     Change a cart line's quantity
// @Description Sets the quantity of a cart line (clamped to 1–99). An unknown item id is a no-op.
// @Tags        Cart
// @Accept      json
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"
// @Param       table        path    string  true  "Table number"
// @Param       id           path    string  true  "Cart item id"
// @Param       body         body    handlers.UpdateCartItemRequest  true  "New quantity"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "No live session"
// @Router      /tables/{table}/cart/items/{id} [patch]
func (h *Handlers) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	if err := h.store.UpdateItemQuantity(c.Request.Context(), c.Param("table"), c.Param("id"), req.Quantity); err != nil {
		failStore(c, err)
		return
	}
	noContent(c)
}

// RemoveCartItem godoc
// @ID          removeCartItem
// @Summary     Remove an item from the cart
// @Description Deletes a cart line. An unknown item id is a no-op so duplicate taps are harmless.
// @Tags        Cart
//
// @Param       X-Device-ID  header  string  true  "Stable device identifier"
// @Param       table        path    string  true  "Table number"
// @Param       id           path    string  true  "Cart item id"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "No live session"
// @Router      /tables/{table}/cart/items/{id} [delete]
func (h *Handlers) RemoveCartItem(c *gin.Context) {
	if err := h.store.RemoveFromCart(c.Request.Context(), c.Param("table"), c.Param("id")); err != nil {
		failStore(c, err)
		return
	}
	noContent(c)
}
