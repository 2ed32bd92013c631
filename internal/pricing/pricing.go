package pricing

import (
	"github.com/shopspring/decimal"

	"MarketBridge/internal/config"
	"MarketBridge/internal/domain"
)

// Calculator derives the KRW resale price and margin from configured rates.
// It is a pure computation with no failure mode.
type Calculator struct {
	cfg config.PricingConfig
}

// NewCalculator binds the configured rates.
func NewCalculator(cfg config.PricingConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate maps a JPY source price to the target KRW price and estimated
// margin rate: cost = round(price*fx + shipping), target = round(cost*(1+markup)),
// margin = (target - cost - target*fee) / target, rounded to 4 decimals.
func (c *Calculator) Calculate(sourcePriceJPY int) domain.PricingResult {
	price := decimal.NewFromInt(int64(sourcePriceJPY))
	fx := decimal.NewFromFloat(c.cfg.FxRate)
	shipping := decimal.NewFromInt(int64(c.cfg.ShippingCostKRW))
	markup := decimal.NewFromFloat(c.cfg.MarkupRate)
	feeRate := decimal.NewFromFloat(c.cfg.MarketFeeRate)

	cost := price.Mul(fx).Add(shipping).Round(0)
	target := cost.Mul(decimal.NewFromInt(1).Add(markup)).Round(0)

	marginRate := decimal.Zero
	if target.IsPositive() {
		fee := target.Mul(feeRate)
		marginRate = target.Sub(cost).Sub(fee).Div(target).Round(4)
	}

	targetKRW := int(target.IntPart())
	rate, _ := marginRate.Float64()

	return domain.PricingResult{
		FxRate:              c.cfg.FxRate,
		ShippingCostKRW:     c.cfg.ShippingCostKRW,
		MarketFeeRate:       c.cfg.MarketFeeRate,
		TargetPriceKRW:      targetKRW,
		EstimatedMarginRate: rate,
	}
}
