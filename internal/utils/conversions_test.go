package utils_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/smartcane-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"abc", "abc"},
		{float64(42), "42"},
		{float64(1.5), "1.5"},
		{json.Number("77"), "77"},
		{true, "true"},
		{nil, ""},
		{map[string]any{"a": 1}, ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, utils.AsString(tt.in))
	}
}

func TestFirstString(t *testing.T) {
	m := map[string]any{"id": "", "deviceId": float64(7), "uuid": "u-1"}
	require.Equal(t, "7", utils.FirstString(m, "id", "deviceId", "uuid"))
	require.Empty(t, utils.FirstString(m, "serialNumber"))
}

func TestPtrValue(t *testing.T) {
	require.Nil(t, utils.Ptr(""))
	require.Equal(t, "x", utils.Value(utils.Ptr("x")))
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, []string{"a", "b"}, utils.ToStringSlice([]any{"a", 1, "b"}))
}
