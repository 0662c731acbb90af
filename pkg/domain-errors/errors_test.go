package derrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"haven/pkg/platform/sentinel"
)

func TestHasCode(t *testing.T) {
	err := New(CodeTransitionRejected, "stealth unavailable")
	assert.True(t, HasCode(err, CodeTransitionRejected))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(nil, CodeTransitionRejected))
	assert.False(t, HasCode(errors.New("plain"), CodeTransitionRejected))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("store: %w", sentinel.ErrUnavailable)
	err := Wrap(cause, CodePersistence, "mode save failed")

	assert.True(t, HasCode(err, CodePersistence))
	assert.True(t, errors.Is(err, sentinel.ErrUnavailable), "wrapping must keep the sentinel reachable")
	assert.Contains(t, err.Error(), "mode save failed")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")), "uncoded errors classify as internal")
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeTransitionRejected, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeAdapterTimeout, http.StatusGatewayTimeout},
		{CodeAdapterError, http.StatusBadGateway},
		{CodeValidation, http.StatusBadRequest},
		{CodeBadRequest, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvariantViolation, http.StatusInternalServerError},
		{Code("unknown"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToHTTPStatus(tt.code), "code %s", tt.code)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CodeValidation, "unknown source %q", "voice")
	assert.Contains(t, err.Error(), `unknown source "voice"`)
}
