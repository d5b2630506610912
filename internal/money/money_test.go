package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "0"},
		{"int", 4, "4"},
		{"float", 2.5, "2.5"},
		{"string", "10.25", "10.25"},
		{"currency string", " $1,250.10 ", "1250.1"},
		{"garbage", "abc", "0"},
		{"empty", "", "0"},
		{"json number", json.Number("7.75"), "7.75"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Parse(tc.in).String())
		})
	}
}

func TestFormat(t *testing.T) {
	require.Equal(t, "$35.00", Format(decimal.NewFromInt(35)))
	require.Equal(t, "$4.55", Format(decimal.RequireFromString("4.55")))
	require.Equal(t, "$0.00", Format(decimal.Zero))
	require.Equal(t, "-$5.00", Format(decimal.NewFromInt(-5)))
	require.Equal(t, "$0.13", Format(decimal.RequireFromString("0.125")))
}

func TestAmountUnmarshal(t *testing.T) {
	var payload struct {
		Qty   Amount `json:"qty"`
		Price Amount `json:"price"`
		Empty Amount `json:"empty"`
		Null  Amount `json:"null"`
	}
	err := json.Unmarshal([]byte(`{"qty":"2","price":10.5,"empty":"","null":null}`), &payload)
	require.NoError(t, err)
	require.True(t, payload.Qty.Equal(decimal.NewFromInt(2)))
	require.True(t, payload.Price.Equal(decimal.RequireFromString("10.5")))
	require.True(t, payload.Empty.IsZero())
	require.True(t, payload.Null.IsZero())
}

func TestRound2HalfUp(t *testing.T) {
	require.Equal(t, "4.55", Round2(decimal.RequireFromString("4.545")).String())
	require.Equal(t, "0.01", Round2(decimal.RequireFromString("0.005")).String())
}
