package jsonvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"0", true},
		{0.0, false},
		{7.0, true},
		{0, false},
		{json.Number("3"), true},
		{[]any{}, true},
		{map[string]any{}, true},
	}
	for _, tc := range tests {
		if got := Truthy(tc.in); got != tc.want {
			t.Fatalf("Truthy(%#v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	require.Equal(t, "", Format(nil))
	require.Equal(t, "s1", Format("s1"))
	require.Equal(t, "7", Format(7.0))
	require.Equal(t, "1.5", Format(1.5))
	require.Equal(t, "42", Format(42))
	require.Equal(t, "true", Format(true))
}

func TestIntOr(t *testing.T) {
	require.Equal(t, 2017, IntOr(2017.0, 1))
	require.Equal(t, 2017, IntOr("2017", 1))
	require.Equal(t, 1, IntOr(1.9, 0))
	require.Equal(t, 5, IntOr(0.0, 5))
	require.Equal(t, 5, IntOr("soon", 5))
	require.Equal(t, 5, IntOr(nil, 5))

	require.Nil(t, OptionalInt(nil))
	require.Nil(t, OptionalInt(0.0))
	require.Equal(t, 2020, *OptionalInt("2020"))
}

func TestNumber(t *testing.T) {
	n, ok := Number(json.Number("2.5"))
	require.True(t, ok)
	require.Equal(t, 2.5, n)

	_, ok = Number("2.5")
	require.False(t, ok)
	require.True(t, NonEmptyString("x"))
	require.False(t, NonEmptyString(""))
	require.False(t, NonEmptyString(3.0))
}
