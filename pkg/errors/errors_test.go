package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := WithCode(ErrorTypeDownload, 500, "payload request failed")
	assert.Equal(t, "download error: payload request failed (status 500)", err.Error())

	wrapped := Wrap(ErrorTypeFilesystem, stderrors.New("disk full"), "cannot write file")
	assert.Equal(t, "filesystem error: cannot write file: disk full", wrapped.Error())
}

func TestIsFollowsChain(t *testing.T) {
	inner := WithCode(ErrorTypeServerError, 503, "unavailable")
	outer := Wrap(ErrorTypeTransport, inner, "retries exhausted")
	err := fmt.Errorf("collection abc: %w", outer)

	assert.True(t, Is(err, ErrorTypeTransport))
	assert.True(t, Is(err, ErrorTypeServerError))
	assert.False(t, Is(err, ErrorTypeAuth))
	assert.False(t, Is(stderrors.New("plain"), ErrorTypeTransport))
	assert.Equal(t, ErrorTypeTransport, TypeOf(err))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
}

func TestTypeOfReportsOutermostType(t *testing.T) {
	err := Wrap(ErrorTypeDownload, WithCode(ErrorTypeNotFound, 404, "resource not found"), "download failed")

	assert.Equal(t, ErrorTypeDownload, TypeOf(err))
	assert.Equal(t, ErrorTypeDownload, TypeOf(fmt.Errorf("asset a-1: %w", err)))
	assert.True(t, Is(err, ErrorTypeNotFound))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeServerError, true},
		{ErrorTypeAuth, false},
		{ErrorTypeNotFound, false},
		{ErrorTypePurchase, false},
		{ErrorTypeTransport, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errorType))
		})
	}
}

func TestStatusCodes(t *testing.T) {
	assert.True(t, IsRetryable(FromStatusCode(429)))
	assert.True(t, IsRetryable(FromStatusCode(502)))
	assert.False(t, IsRetryable(FromStatusCode(401)))
	assert.False(t, IsRetryable(FromStatusCode(404)))
	assert.False(t, IsRetryable(FromStatusCode(400)))

	assert.Equal(t, ErrorTypeAuth, FromStatusCode(401))
	assert.Equal(t, ErrorTypeAuth, FromStatusCode(403))
	assert.Equal(t, ErrorTypeNotFound, FromStatusCode(404))
	assert.Equal(t, ErrorTypeRateLimit, FromStatusCode(429))
	assert.Equal(t, ErrorTypeServerError, FromStatusCode(500))
	assert.Equal(t, ErrorTypeUnknown, FromStatusCode(418))
}
