package http_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	pkghttp "github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, http.StatusBadRequest, "test_error", "Test message")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	resp := decodeError(t, w)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Zero(t, resp.RetryAfter)
}

func TestWriteTwoFactorError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrInvalidCode, http.StatusUnprocessableEntity, "invalid_code"},
		{models.ErrMethodDisabled, http.StatusBadRequest, "method_disabled"},
		{models.ErrAlreadyEnabled, http.StatusConflict, "already_enabled"},
		{models.ErrNotEnabled, http.StatusBadRequest, "not_enabled"},
		{models.ErrNoPendingSetup, http.StatusBadRequest, "no_pending_setup"},
		{fmt.Errorf("%w: smtp 421", models.ErrDeliveryFailed), http.StatusBadGateway, "delivery_failed"},
		{fmt.Errorf("%w: bad phone", models.ErrInvalidInput), http.StatusBadRequest, "bad_request"},
		{models.ConfigError("no provider for sms"), http.StatusInternalServerError, "internal_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			w := httptest.NewRecorder()
			pkghttp.WriteTwoFactorError(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.NotContains(t, resp.Message, "smtp")
			assert.NotContains(t, resp.Message, "provider")
		})
	}
}

func TestWriteTwoFactorError_UnknownUserLooksLikeInvalidCode(t *testing.T) {
	unknown := httptest.NewRecorder()
	pkghttp.WriteTwoFactorError(unknown, fmt.Errorf("lookup: %w", models.ErrUserNotFound))

	wrong := httptest.NewRecorder()
	pkghttp.WriteTwoFactorError(wrong, models.ErrInvalidCode)

	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestWriteTwoFactorError_RateLimit(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteTwoFactorError(w, fmt.Errorf("verify: %w", &models.RateLimitError{RetryAfter: 90*time.Second + time.Millisecond}))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "91", w.Header().Get("Retry-After"))
	resp := decodeError(t, w)
	assert.Equal(t, "rate_limit_exceeded", resp.Error)
	assert.Equal(t, 91, resp.RetryAfter)
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}
