package httputil

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	t.Parallel()

	t.Run("encodes value", func(t *testing.T) {
		t.Parallel()
		body := JSON(map[string]string{"foo": "bar"})

		var result map[string]string
		require.NoError(t, json.Unmarshal([]byte(body), &result))
		assert.Equal(t, "bar", result["foo"])
	})

	t.Run("nil yields empty body", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, JSON(nil))
	})

	t.Run("unencodable value yields error body", func(t *testing.T) {
		t.Parallel()
		body := JSON(math.Inf(1))

		var result map[string]string
		require.NoError(t, json.Unmarshal([]byte(body), &result))
		assert.Equal(t, "encoding_failed", result["error"])
	})
}

func TestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		code string
	}{
		{"Error", Error("oops", "went wrong"), "oops"},
		{"missing id", Error("missing_id", "id is required"), "missing_id"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var result map[string]string
			require.NoError(t, json.Unmarshal([]byte(tt.body), &result))
			assert.Equal(t, tt.code, result["error"])
			assert.NotEmpty(t, result["message"])
		})
	}
}

func TestErrorWithDetails(t *testing.T) {
	t.Parallel()
	body := ErrorWithDetails("invalid", "bad input", map[string]int{"field": 1})

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &result))
	assert.Equal(t, "invalid", result["error"])
	assert.Equal(t, map[string]any{"field": float64(1)}, result["details"])
}
