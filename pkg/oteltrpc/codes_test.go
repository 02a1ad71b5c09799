// Tests for the internal/client error code classification
package oteltrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalCode(t *testing.T) {
	t.Parallel()

	internal := []string{
		"INTERNAL_SERVER_ERROR",
		"NOT_IMPLEMENTED",
		"BAD_GATEWAY",
		"SERVICE_UNAVAILABLE",
		"GATEWAY_TIMEOUT",
	}
	for _, code := range internal {
		assert.True(t, InternalCode(code), code)
	}

	client := []string{
		"BAD_REQUEST",
		"NOT_FOUND",
		"UNAUTHORIZED",
		"FORBIDDEN",
		"CONFLICT",
		"TOO_MANY_REQUESTS",
		"",
		"internal_server_error", // classification is case-sensitive
	}
	for _, code := range client {
		assert.False(t, InternalCode(code), code)
	}
}
