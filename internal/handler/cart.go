package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travelhub/internal/model"
)

// CartService is the subset of service.CartService used here.
type CartService interface {
	GetOrCreateCart(ctx context.Context, id model.Identity) (*model.Cart, error)
	AddItem(ctx context.Context, id model.Identity, in model.AddItemInput) (*model.CartItem, error)
	UpdateItemQuantity(ctx context.Context, id model.Identity, itemID string, quantity int) (*model.CartItem, error)
	RemoveItem(ctx context.Context, id model.Identity, itemID string) error
	ClearCart(ctx context.Context, id model.Identity) error
}

// CartHandler serves the caller's own cart. The customer is always the
// authenticated subject; no route accepts a user id.
type CartHandler struct {
	carts CartService
}

func NewCartHandler(cs CartService) *CartHandler {
	return &CartHandler{carts: cs}
}

type quantityReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) Get(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	cart, err := h.carts.GetOrCreateCart(ctx, identity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	var in model.AddItemInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	item, err := h.carts.AddItem(ctx, identity(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	var req quantityReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	item, err := h.carts.UpdateItemQuantity(ctx, identity(c), c.Param("id"), req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	id := c.Param("id")
	if err := h.carts.RemoveItem(ctx, identity(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "id": id})
}

// Clear empties the cart but keeps the cart itself.
func (h *CartHandler) Clear(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.carts.ClearCart(ctx, identity(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
