package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"launchpad/internal/lease"
)

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.POST("/api/posts", ok)
	e.GET("/api/posts", ok)
	return e
}

func do(e *echo.Echo, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyRejectsRepeatedKey(t *testing.T) {
	e := newEcho(Idempotency(lease.NewMemory(), time.Hour, zap.NewNop()))

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/posts", "k-1").Code)
	assert.Equal(t, http.StatusConflict, do(e, http.MethodPost, "/api/posts", "k-1").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/posts", "k-2").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/posts", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/api/posts", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/posts", "k-1").Code)
}

func TestCORSPreflight(t *testing.T) {
	e := newEcho(CORS())
	rec := do(e, http.MethodOptions, "/api/posts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), IdempotencyHeader)
}
