package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"MarketBridge/internal/config"
)

func defaultRates() config.PricingConfig {
	return config.PricingConfig{
		MarkupRate:      0.35,
		MinMarginRate:   0.15,
		FxRate:          9.2,
		ShippingCostKRW: 9000,
		MarketFeeRate:   0.13,
	}
}

func TestCalculateReferenceRates(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultRates())
	result := calc.Calculate(1000)

	// cost = round(1000*9.2 + 9000) = 18200
	// target = round(18200 * 1.35) = 24570
	// fee = 24570 * 0.13 = 3194.1
	// margin = (24570 - 18200 - 3194.1) / 24570 = 0.1293
	assert.Equal(t, 24570, result.TargetPriceKRW)
	assert.InDelta(t, 0.1293, result.EstimatedMarginRate, 0.00005)
	assert.Equal(t, 9.2, result.FxRate)
	assert.Equal(t, 9000, result.ShippingCostKRW)
	assert.Equal(t, 0.13, result.MarketFeeRate)
}

func TestCalculateDeterministic(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultRates())
	first := calc.Calculate(5480)
	second := calc.Calculate(5480)

	assert.Equal(t, first, second)
}

func TestCalculateNonNegativeTargets(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultRates())
	for _, price := range []int{0, 1, 100, 6800, 250000} {
		result := calc.Calculate(price)
		assert.GreaterOrEqual(t, result.TargetPriceKRW, 0, "price %d", price)
	}
}

func TestCalculateZeroTargetZeroMargin(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(config.PricingConfig{})
	result := calc.Calculate(0)

	assert.Equal(t, 0, result.TargetPriceKRW)
	assert.Equal(t, 0.0, result.EstimatedMarginRate)
}

func TestCalculateMarginRoundedToFourDecimals(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(defaultRates())
	result := calc.Calculate(3210)

	scaled := result.EstimatedMarginRate * 10000
	assert.InDelta(t, scaled, float64(int(scaled+0.5)), 1e-9)
}
