package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapErrorNilPassthrough(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrCodeFeedUnavailable, "feed", "boom"))
}

func TestDashboardErrorUnwrapAndMatch(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := NewFeedUnavailableError("http://x/metrics", cause)

	wrapped := fmt.Errorf("tick: %w", err)

	assert.True(t, IsDashboardError(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.ErrorIs(t, wrapped, NewError(ErrCodeFeedUnavailable, "", ""))
	assert.Equal(t, ErrCodeFeedUnavailable, GetErrorCode(wrapped))
	assert.Equal(t, "http://x/metrics", err.Metadata["url"])
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		status    int
	}{
		{"unavailable", NewError(ErrCodeFeedUnavailable, "feed", "x"), true, http.StatusServiceUnavailable},
		{"bad status", NewFeedBadStatusError("u", 500), true, http.StatusBadGateway},
		{"decode", NewError(ErrCodeFeedDecodeFailed, "feed", "x"), false, http.StatusInternalServerError},
		{"auth", NewAuthenticationError("missing token"), false, http.StatusUnauthorized},
		{"invalid request", NewError(ErrCodeInvalidRequest, "api", "x"), false, http.StatusBadRequest},
		{"no backends", NewNoAliveBackendsError(), false, http.StatusServiceUnavailable},
		{"plain", stderrors.New("plain"), false, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.status, GetHTTPStatusCode(tt.err))
		})
	}

	assert.Equal(t, ErrCodeInternalError, GetErrorCode(stderrors.New("plain")))
}
