// Package handler holds the echo handlers for the travel catalog API. Each
// handler decodes the request, calls one service operation with the
// caller's identity and writes JSON. Errors are returned to echo and
// rendered by ErrorHandler.
package handler

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travelhub/internal/middleware"
	"github.com/iliyamo/travelhub/internal/model"
)

const requestTimeout = 5 * time.Second

// requestCtx bounds the store calls made on behalf of one request.
func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// identity returns the authenticated caller, or the zero Identity on
// routes without Authenticate. Services reject the zero value.
func identity(c echo.Context) model.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}
