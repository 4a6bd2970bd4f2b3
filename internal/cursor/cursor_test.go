package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lherron/syncp/internal/domain"
)

func TestCursorEncodeDecode(t *testing.T) {
	encoded, err := New(42, "syn3|entity.copied").Encode()
	require.NoError(t, err)
	assert.NotEmpty(t, encoded)
	assert.NotContains(t, encoded, "=", "cursor should be unpadded")

	c, err := Decode(encoded, "syn3|entity.copied")
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.LastID)
}

func TestCursorEncodeRequiresID(t *testing.T) {
	_, err := New(0, "").Encode()
	assert.Error(t, err)
}

func TestDecodeErrors(t *testing.T) {
	valid, err := New(7, "a").Encode()
	require.NoError(t, err)

	tests := []struct {
		name    string
		encoded string
		scope   string
	}{
		{"empty", "", ""},
		{"not base64", "!!!", ""},
		{"not json", "bm90IGpzb24", ""},
		{"missing id", "e30", ""},
		{"other scope", valid, "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.encoded, tt.scope)
			require.Error(t, err)
			assert.True(t, domain.IsValueError(err), "expected ValueError, got %T", err)
		})
	}
}
