package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/travelhub/internal/logger"
)

// RequestLogger logs one line per request. Errors returned by the handler
// chain are passed to echo's error handler first so the logged status is
// the one the client receives.
func RequestLogger(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()
			kv := []interface{}{
				"method", c.Request().Method,
				"route", c.Path(),
				"status", res.Status,
				"latency_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
			}
			if id, ok := IdentityFrom(c); ok {
				kv = append(kv, "subject_id", id.SubjectID)
			}
			switch {
			case res.Status >= 500:
				log.Error("request", kv...)
			case res.Status >= 400:
				log.Info("request", kv...)
			default:
				log.Debug("request", kv...)
			}
			return nil
		}
	}
}
