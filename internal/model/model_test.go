package model

import (
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"errors"
	"fmt"
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	testTable := []struct {
		name   string
		symbol string
		expect string
	}{
		{name: "upper-case is kept", symbol: "AAPL", expect: "AAPL"},
		{name: "lower-case is raised", symbol: "msft", expect: "MSFT"},
		{name: "whitespace is trimmed", symbol: "  nflx\t", expect: "NFLX"},
		{name: "empty stays empty", symbol: "   ", expect: ""},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expect, NormalizeSymbol(testCase.symbol))
		})
	}
}

func TestTransaction_Amount(t *testing.T) {
	tr := Transaction{Shares: 3, Price: decimal.RequireFromString("10.25")}
	assert.True(t, decimal.RequireFromString("30.75").Equal(tr.Amount()))
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("buy: %w", Errorf(KindInsufficientFunds, "cost %s exceeds cash %s", "700", "300"))

	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.False(t, errors.Is(err, ErrInsufficientShares))
	assert.Equal(t, KindInsufficientFunds, KindOf(err))
	assert.Equal(t, "insufficient funds: cost 700 exceeds cash 300", errors.Unwrap(err).Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindStore, cause, "commit")

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrStore))
	assert.Equal(t, "store: commit: connection reset", err.Error())
}

func TestRetryable(t *testing.T) {
	testTable := []struct {
		name   string
		err    error
		expect bool
	}{
		{name: "quote unavailable", err: Errorf(KindQuoteUnavailable, "timeout"), expect: true},
		{name: "store", err: Wrap(KindStore, errors.New("boom"), ""), expect: true},
		{name: "validation", err: Errorf(KindValidation, "shares"), expect: false},
		{name: "insufficient funds", err: ErrInsufficientFunds, expect: false},
		{name: "plain error", err: errors.New("x"), expect: false},
		{name: "nil", err: nil, expect: false},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.expect, Retryable(testCase.err))
		})
	}
}

func TestAuditReport_Consistent(t *testing.T) {
	r := &AuditReport{StoredCash: decimal.NewFromInt(10), ReplayedCash: decimal.RequireFromString("10.00")}
	assert.True(t, r.Consistent())

	r.Holdings = append(r.Holdings, HoldingMismatch{Symbol: "AAPL", Stored: 1, Replayed: 2})
	assert.False(t, r.Consistent())
}
