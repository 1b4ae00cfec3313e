package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a****@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "****", MaskEmail("bad"))
}

func TestMaskMetadata(t *testing.T) {
	out := MaskMetadata(map[string]any{
		"payer_email":   "bob@example.com",
		"signature_key": "abcdef0123456789",
		"state":         "complete",
		"nested":        map[string]any{"email": "carol@example.com"},
		" ":             "dropped",
	})

	assert.Equal(t, "b****@example.com", out["payer_email"])
	assert.Equal(t, "****6789", out["signature_key"])
	assert.Equal(t, "complete", out["state"])
	assert.Equal(t, map[string]any{"email": "c****@example.com"}, out["nested"])
	assert.NotContains(t, out, "")
	assert.Nil(t, MaskMetadata(nil))
}
