package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travelhub/internal/model"
	"github.com/iliyamo/travelhub/internal/service"
)

// CatalogService is the subset of service.CatalogService used by the
// product, per-kind and dashboard endpoints.
type CatalogService interface {
	ListProducts(ctx context.Context, kind *model.Kind) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProductOfKind(ctx context.Context, id string, kind model.Kind) (*model.Product, error)
	CreateProduct(ctx context.Context, id model.Identity, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, id model.Identity, productID string, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, id model.Identity, productID string) error
	DashboardStats(ctx context.Context, id model.Identity) (service.DashboardStats, error)
}

type ProductHandler struct {
	catalog CatalogService
}

func NewProductHandler(cs CatalogService) *ProductHandler {
	return &ProductHandler{catalog: cs}
}

// List handles GET /products with an optional ?product_type= filter.
func (h *ProductHandler) List(c echo.Context) error {
	var kind *model.Kind
	if raw := strings.TrimSpace(c.QueryParam("product_type")); raw != "" {
		k, ok := model.ParseKind(raw)
		if !ok {
			return model.Invalid("product_type", "must be one of FLIGHT, HOTEL, TRANSPORT, EXCURSION")
		}
		kind = &k
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	products, err := h.catalog.ListProducts(ctx, kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.catalog.GetProduct(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var in model.Product
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.catalog.CreateProduct(ctx, identity(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Update(c echo.Context) error {
	var patch model.ProductPatch
	if err := bindJSON(c, &patch); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.catalog.UpdateProduct(ctx, identity(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.catalog.DeleteProduct(ctx, identity(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats handles GET /dashboard/stats.
func (h *ProductHandler) Stats(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	stats, err := h.catalog.DashboardStats(ctx, identity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// KindHandler serves one domain page (/flights, /hotels, /transport,
// /excursions). Reads only return products of its kind and creation fixes
// the kind.
type KindHandler struct {
	catalog CatalogService
	kind    model.Kind
}

func NewKindHandler(cs CatalogService, kind model.Kind) *KindHandler {
	return &KindHandler{catalog: cs, kind: kind}
}

func (h *KindHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	kind := h.kind
	products, err := h.catalog.ListProducts(ctx, &kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, products)
}

func (h *KindHandler) Get(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.catalog.GetProductOfKind(ctx, c.Param("id"), h.kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *KindHandler) Create(c echo.Context) error {
	var in model.Product
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.Kind != "" {
		if k, ok := model.ParseKind(string(in.Kind)); !ok || k != h.kind {
			return model.Invalid("type", "must be "+string(h.kind)+" on this route")
		}
	}
	in.Kind = h.kind

	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.catalog.CreateProduct(ctx, identity(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}
