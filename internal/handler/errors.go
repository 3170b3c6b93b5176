package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travelhub/internal/logger"
	"github.com/iliyamo/travelhub/internal/model"
)

// statuses maps each taxonomy sentinel to the status clients see.
var statuses = []struct {
	err    error
	status int
}{
	{model.ErrInvalidCredentials, http.StatusUnauthorized},
	{model.ErrDuplicateIdentity, http.StatusBadRequest},
	{model.ErrInvalidToken, http.StatusUnauthorized},
	{model.ErrIdentityGone, http.StatusUnauthorized},
	{model.ErrForbidden, http.StatusForbidden},
	{model.ErrNotFound, http.StatusNotFound},
	{model.ErrInvalidTarget, http.StatusBadRequest},
	{model.ErrInvalidReference, http.StatusBadRequest},
	{model.ErrValidationFailed, http.StatusBadRequest},
	{model.ErrConflict, http.StatusConflict},
}

// respondError renders err as {"error": ...}. Only taxonomy errors and
// echo's own HTTP errors are described to the client; anything else is
// logged and reported as a bare internal error.
func respondError(c echo.Context, log *logger.Logger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return c.JSON(he.Code, echo.Map{"error": msg})
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Error(), "field": ve.Field})
	}
	var re *model.ReferenceError
	if errors.As(err, &re) {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":    model.ErrInvalidReference.Error(),
			"expected": re.Expected,
			"found":    re.Found,
		})
	}

	for _, s := range statuses {
		if errors.Is(err, s.err) {
			// The sentinel text is returned, not err.Error(), so wrapped
			// detail never reaches the client.
			return c.JSON(s.status, echo.Map{"error": s.err.Error()})
		}
	}

	log.Error("unhandled error",
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// ErrorHandler is installed as echo's HTTPErrorHandler.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if rerr := respondError(c, log, err); rerr != nil {
			log.Warn("write error response", "error", rerr)
		}
	}
}

// bindJSON decodes the request body into dst. Malformed bodies surface as a
// validation failure on "body".
func bindJSON(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return model.Invalid("body", "malformed JSON")
	}
	return nil
}
