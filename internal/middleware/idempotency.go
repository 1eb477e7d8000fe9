package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"launchpad/internal/lease"
	"launchpad/internal/models"
)

// IdempotencyHeader carries the client's key for a POST request.
const IdempotencyHeader = "Idempotency-Key"

// Idempotency rejects a POST whose Idempotency-Key was already used on the
// same path within ttl. Requests without the header pass through, and so do
// requests arriving while the key store is unavailable.
func Idempotency(locker lease.Locker, ttl time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			key := req.Header.Get(IdempotencyHeader)
			if locker == nil || req.Method != http.MethodPost || key == "" {
				return next(c)
			}
			if len(key) > 200 {
				return c.JSON(http.StatusBadRequest, models.APIResponse{Status: false, Msg: "Idempotency-Key is too long"})
			}

			// The key is held until it expires; release is never called.
			_, ok, err := locker.Acquire(req.Context(), "idem:"+req.URL.Path+":"+key, ttl)
			if err != nil {
				logger.Warn("Idempotency store unavailable", zap.Error(err))
				return next(c)
			}
			if !ok {
				return c.JSON(http.StatusConflict, models.APIResponse{
					Status: false,
					Msg:    "Duplicate request",
				})
			}
			return next(c)
		}
	}
}
