package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travelhub/internal/model"
)

// PackageService is the subset of service.PackageService used here.
type PackageService interface {
	ListPackages(ctx context.Context) ([]model.Package, error)
	GetPackage(ctx context.Context, id string) (*model.Package, error)
	CreatePackage(ctx context.Context, id model.Identity, in model.PackageInput) (*model.Package, error)
	UpdatePackage(ctx context.Context, id model.Identity, packageID string, patch model.PackagePatch) (*model.Package, error)
	DeletePackage(ctx context.Context, id model.Identity, packageID string) error
}

type PackageHandler struct {
	packages PackageService
}

func NewPackageHandler(ps PackageService) *PackageHandler {
	return &PackageHandler{packages: ps}
}

func (h *PackageHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	pkgs, err := h.packages.ListPackages(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pkgs)
}

func (h *PackageHandler) Get(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.packages.GetPackage(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PackageHandler) Create(c echo.Context) error {
	var in model.PackageInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.packages.CreatePackage(ctx, identity(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

// Update applies a partial change; a "productIds" array replaces the
// membership set.
func (h *PackageHandler) Update(c echo.Context) error {
	var patch model.PackagePatch
	if err := bindJSON(c, &patch); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	p, err := h.packages.UpdatePackage(ctx, identity(c), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PackageHandler) Delete(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.packages.DeletePackage(ctx, identity(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
