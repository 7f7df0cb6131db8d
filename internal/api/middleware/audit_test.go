package middleware

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractResource_SimplePath(t *testing.T) {
	resType, resID := extractResource("/api/v1/invoices")
	assert.NotNil(t, resType)
	assert.Equal(t, "invoices", *resType)
	assert.Nil(t, resID)
}

func TestExtractResource_WithID(t *testing.T) {
	resType, resID := extractResource("/api/v1/invoices/abc-123")
	assert.NotNil(t, resType)
	assert.Equal(t, "invoices", *resType)
	assert.NotNil(t, resID)
	assert.Equal(t, "abc-123", *resID)
}

func TestExtractResource_Nested(t *testing.T) {
	resType, resID := extractResource("/api/v1/accounts/abc/customers/def")
	assert.NotNil(t, resType)
	assert.Equal(t, "customers", *resType)
	assert.NotNil(t, resID)
	assert.Equal(t, "def", *resID)
}

func TestExtractResource_NestedNoID(t *testing.T) {
	resType, resID := extractResource("/api/v1/accounts/abc/customers")
	assert.NotNil(t, resType)
	assert.Equal(t, "customers", *resType)
	assert.Nil(t, resID)
}

func TestSanitizeBody(t *testing.T) {
	body := []byte(`{"name":"test","refresh_token":"1//abc","code":"4/xyz"}`)
	sanitized := sanitizeBody(body)

	var result map[string]any
	json.Unmarshal(sanitized, &result)
	assert.Equal(t, "test", result["name"])
	assert.Equal(t, "[REDACTED]", result["refresh_token"])
	assert.Equal(t, "[REDACTED]", result["code"])
}
