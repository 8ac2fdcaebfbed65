package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/live/alice", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestMiddleware_StructuredErrorBecomesJSON(t *testing.T) {
	HTTPErrorsTotal.Reset()
	c, rec := newTestContext(t)

	handler := Middleware()(func(c echo.Context) error {
		return NotFoundError("tenant not found").WithContext("tenant_id", "alice")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "tenant not found", resp.Error)
	assert.Equal(t, TypeNotFound, resp.Type)
	assert.Equal(t, "alice", resp.Context["tenant_id"])

	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("not_found")))
}

func TestMiddleware_PlainErrorBecomesInternal(t *testing.T) {
	HTTPErrorsTotal.Reset()
	c, rec := newTestContext(t)

	handler := Middleware()(func(c echo.Context) error {
		return errors.New("database exploded")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, TypeInternal, resp.Type)
	assert.NotContains(t, rec.Body.String(), "database exploded")

	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("internal")))
}

func TestMiddleware_NoErrorPassesThrough(t *testing.T) {
	HTTPErrorsTotal.Reset()
	c, rec := newTestContext(t)

	handler := Middleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	assert.Equal(t, float64(0), testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("internal")))
}

func TestMiddleware_EchoHTTPErrorPassesThrough(t *testing.T) {
	HTTPErrorsTotal.Reset()
	c, _ := newTestContext(t)

	httpErr := echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
	handler := Middleware()(func(c echo.Context) error {
		return httpErr
	})

	err := handler(c)
	assert.Equal(t, httpErr, err)

	assert.Equal(t, float64(0), testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("internal")))
}

func TestMiddleware_ValidationErrorStatus(t *testing.T) {
	HTTPErrorsTotal.Reset()
	c, rec := newTestContext(t)

	handler := Middleware()(func(c echo.Context) error {
		return ValidationError("tenant id must not be empty")
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPErrorsTotal.WithLabelValues("validation")))
}
