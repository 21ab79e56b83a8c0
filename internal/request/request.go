// Package request parses untyped order input into validated values
package request

import (
	"github.com/chucky-1/stockledger/internal/model"

	"strconv"
	"strings"
)

// MaxShares bounds a single order so that share arithmetic cannot overflow
const MaxShares int64 = 1_000_000_000

// Order stores the parameters of a buy or sell
type Order struct {
	AccountID int64
	Symbol    string
	Shares    int64
}

// ParseShares converts a share count typed by a user into a positive integer.
// Only base-10 digits are accepted: "1.5", "1e3", "+2" and "0x10" are rejected.
func ParseShares(text string) (int64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, model.Errorf(model.KindValidation, "shares must be provided")
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '-' {
			return 0, model.Errorf(model.KindValidation, "shares must be a whole number, got %q", text)
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, model.Wrap(model.KindValidation, err, "shares must be a whole number")
	}
	if err := ValidateShares(n); err != nil {
		return 0, err
	}
	return n, nil
}

// ValidateShares checks that n is a positive share count
func ValidateShares(n int64) error {
	if n <= 0 {
		return model.Errorf(model.KindValidation, "shares must be positive, got %d", n)
	}
	if n > MaxShares {
		return model.Errorf(model.KindValidation, "shares must not exceed %d, got %d", MaxShares, n)
	}
	return nil
}

// ParseOrder builds an Order from form-like text fields
func ParseOrder(accountID int64, symbol, shares string) (*Order, error) {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, model.Errorf(model.KindValidation, "symbol must be provided")
	}
	n, err := ParseShares(shares)
	if err != nil {
		return nil, err
	}
	return &Order{AccountID: accountID, Symbol: sym, Shares: n}, nil
}
