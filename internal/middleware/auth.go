package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travelhub/internal/model"
)

const identityKey = "identity"

// Verifier resolves a raw bearer token to the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, raw string) (model.Identity, error)
}

// Authenticate requires an "Authorization: Bearer <token>" header, verifies
// it and stores the resulting model.Identity in the context. Failures are
// returned as taxonomy errors and rendered by the HTTP error handler.
func Authenticate(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return fmt.Errorf("%w: missing bearer token", model.ErrInvalidToken)
			}
			id, err := v.Verify(c.Request().Context(), strings.TrimSpace(raw))
			if err != nil {
				return err
			}
			c.Set(identityKey, id)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok && id.SubjectID != ""
}

// RequireRole lets the request through only when the authenticated
// identity holds one of roles. It must run after Authenticate.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return model.ErrInvalidToken
			}
			if !allowed[id.Role] {
				return model.ErrForbidden
			}
			return next(c)
		}
	}
}

// subjectOr returns the authenticated subject id, or fallback for
// anonymous requests.
func subjectOr(c echo.Context, fallback string) string {
	if id, ok := IdentityFrom(c); ok {
		return id.SubjectID
	}
	return fallback
}
