package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****7890", MaskSecret("sk1234567890"))
	assert.Equal(t, "key_****cdef", MaskSecret("key_0123abcdef"))
}

func TestMaskSensitiveOnlyTouchesCredentialKeys(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"name":    "Metals Live",
		"api_key": "secret-value-1234",
		"nested":  map[string]any{"credential": "abcdefgh"},
		"count":   3,
	})

	assert.Equal(t, "Metals Live", out["name"])
	assert.Equal(t, "****1234", out["api_key"])
	assert.Equal(t, "****efgh", out["nested"].(map[string]any)["credential"])
	assert.Equal(t, 3, out["count"])
}
