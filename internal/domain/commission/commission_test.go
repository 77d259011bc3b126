package commission

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasePercent_Tiers(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{1, 15},
		{6, 15},
		{7, 10},
		{23, 10},
		{24, 7},
		{30, 7},
		{365, 7},
	}
	for _, tt := range tests {
		got, err := BasePercent(tt.days)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "days=%d", tt.days)
	}
}

func TestPercent_ExtensionProRata(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{30, 7},          // no extension at exactly one block
		{31, 7 + 7.0/30}, // one day into the second block
		{45, 10.5},       // half a block: 7 + 3.5
		{60, 14},         // one full extra block
		{90, 21},         // two full extra blocks
	}
	for _, tt := range tests {
		got, err := Percent(tt.days)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9, "days=%d", tt.days)
	}
}

func TestPercent_ShortDurationsHaveNoExtension(t *testing.T) {
	for days := 1; days <= 30; days++ {
		base, err := BasePercent(days)
		require.NoError(t, err)
		total, err := Percent(days)
		require.NoError(t, err)
		assert.Equal(t, base, total, "days=%d", days)
	}
}

func TestCalculate(t *testing.T) {
	// 5 days at a 100000 cent total: 15% = 15000.
	res, err := Calculate(5, 100_000)
	require.NoError(t, err)
	assert.Equal(t, 15.0, res.Percent)
	assert.Equal(t, int64(15_000), res.AmountCents)

	// 45 days: 10.5% of 200000 = 21000.
	res, err = Calculate(45, 200_000)
	require.NoError(t, err)
	assert.InDelta(t, 10.5, res.Percent, 1e-9)
	assert.Equal(t, int64(21_000), res.AmountCents)

	// Rounding to nearest cent.
	res, err = Calculate(1, 333)
	require.NoError(t, err)
	assert.Equal(t, int64(math.Round(333*0.15)), res.AmountCents)
}

func TestCalculate_ZeroPrice(t *testing.T) {
	res, err := Calculate(10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.AmountCents)
	assert.Equal(t, 10.0, res.Percent)
}

func TestCalculate_InvalidInputs(t *testing.T) {
	_, err := Calculate(0, 1000)
	assert.ErrorIs(t, err, ErrInvalidDays)

	_, err = Calculate(-3, 1000)
	assert.ErrorIs(t, err, ErrInvalidDays)

	_, err = Calculate(5, -1)
	assert.ErrorIs(t, err, ErrNegativePrice)
}
