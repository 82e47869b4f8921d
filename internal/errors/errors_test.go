package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/server/middleware"
)

func TestHTTPStatusFromCode(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, HTTPStatusFromCode(CodeUnauthorized))
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatusFromCode(CodePayloadTooLarge))
	assert.Equal(t, http.StatusTooManyRequests, HTTPStatusFromCode(CodeRateLimited))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromCode("SOMETHING_ELSE"))
}

func TestEnsureEnvelope(t *testing.T) {
	env := EnsureEnvelope(stderrors.New("boom"))
	assert.Equal(t, CodeInternal, env.Code)
	assert.Equal(t, "boom", env.Context["wrapped_error"])

	original := NewNotFoundError("post not found")
	assert.Same(t, original, EnsureEnvelope(original))
}

func TestRespondWithEnvelopeWritesMessage(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RespondWithEnvelope(w, r, WrapUnauthorized(r.Context(), nil, "Invalid or expired token"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/user/profile", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Invalid or expired token", body.Message)
	assert.Equal(t, CodeUnauthorized, body.Error.Code)
	assert.Equal(t, "req-123", body.Error.RequestID)
}

func TestWrapWithoutRequestContext(t *testing.T) {
	env := Wrap(context.Background(), CodeConflict, stderrors.New("duplicate"), "Email already registered")
	assert.Equal(t, CodeConflict, env.Code)
	assert.NotEmpty(t, env.CorrelationID)
	assert.Equal(t, "duplicate", env.Context["wrapped_error"])
}
