package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travelhub/internal/model"
	"github.com/iliyamo/travelhub/internal/service"
)

// AuthService is the subset of service.AuthService the auth endpoints use.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	Me(ctx context.Context, id model.Identity) (model.User, error)
}

type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(a AuthService) *AuthHandler {
	return &AuthHandler{auth: a}
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a CLIENT account and returns a token for it.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.auth.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// Login exchanges credentials for a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	res, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.auth.Me(ctx, identity(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
