package vehicle

import "github.com/shopspring/decimal"

// DefaultUSDToINRRate is used when no rate is configured.
var DefaultUSDToINRRate = decimal.NewFromInt(83)

var hundred = decimal.NewFromInt(100)

// CurrencyConverter turns owner-entered USD prices into INR.
type CurrencyConverter struct {
	rate decimal.Decimal
}

// NewCurrencyConverter creates a converter for the given USD→INR rate.
func NewCurrencyConverter(rate decimal.Decimal) *CurrencyConverter {
	if !rate.IsPositive() {
		rate = DefaultUSDToINRRate
	}
	return &CurrencyConverter{rate: rate}
}

// Rate returns the configured rate.
func (c *CurrencyConverter) Rate() decimal.Decimal { return c.rate }

// USDToINR converts and rounds to two decimal places.
func (c *CurrencyConverter) USDToINR(usd decimal.Decimal) decimal.Decimal {
	return usd.Mul(c.rate).Round(2)
}

// USDToMinorINR converts to paise.
func (c *CurrencyConverter) USDToMinorINR(usd decimal.Decimal) int64 {
	return c.USDToINR(usd).Mul(hundred).IntPart()
}

// MinorToMajor formats paise as a rupee amount with two decimals.
func MinorToMajor(paise int64) string {
	return decimal.New(paise, -2).StringFixed(2)
}
