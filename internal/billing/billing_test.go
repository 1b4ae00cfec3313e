package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/certihub/pkg/errkind"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	cases := []struct {
		name  string
		base  string
		tax   string
		total string
	}{
		{name: "whole price", base: "200", tax: "32.00", total: "232.00"},
		{name: "zero", base: "0", tax: "0", total: "0"},
		{name: "rounds half up", base: "0.03125", tax: "0.01", total: "0.04125"},
		{name: "fractional cents", base: "99.99", tax: "16.00", total: "115.99"},
		{name: "rounds down", base: "10.03", tax: "1.60", total: "11.63"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compute(decimal.RequireFromString(tc.base))
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tc.tax).Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, decimal.RequireFromString(tc.total).Equal(got.Total), "total %s", got.Total)
			assert.True(t, got.Base.Add(got.Tax).Equal(got.Total))
		})
	}
}

func TestComputeRejectsNegative(t *testing.T) {
	_, err := Compute(decimal.NewFromInt(-1))

	assert.ErrorIs(t, err, ErrNegativeAmount)
	assert.True(t, errkind.Is(err, errkind.InvalidInput))
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 232.00 ")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(232).Equal(amount))

	_, err = ParseAmount("abc")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestBreakdownMatchesTotal(t *testing.T) {
	b, err := Compute(decimal.NewFromInt(200))
	require.NoError(t, err)

	assert.True(t, b.MatchesTotal(decimal.RequireFromString("232")))
	assert.False(t, b.MatchesTotal(decimal.RequireFromString("231.99")))

	other, err := Compute(decimal.RequireFromString("200.00"))
	require.NoError(t, err)
	assert.True(t, b.Equal(other))
}
