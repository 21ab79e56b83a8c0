package cli

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// usd formats an amount as dollars, rounded half away from zero to cents
func usd(amount decimal.Decimal) string {
	cur := money.GetCurrency(money.USD)
	cents := amount.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

// usdText formats a decimal carried as text; text that is not a number is returned unchanged
func usdText(text string) string {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return text
	}
	return usd(d)
}
