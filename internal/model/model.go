// Package model has the ledger's domain types
package model

import (
	"github.com/shopspring/decimal"

	"strings"
	"time"
)

// Side is the direction of an executed order
type Side string

const (
	// SideBuy debits cash and credits shares
	SideBuy Side = "BUY"
	// SideSell debits shares and credits cash
	SideSell Side = "SELL"
)

// Valid reports whether s is a known side
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Account is a registered principal with a cash balance
type Account struct {
	ID          int64
	Cash        decimal.Decimal
	InitialCash decimal.Decimal
	CreatedAt   time.Time
}

// Holding is the number of shares of one symbol owned by one account.
// Stored holdings always have Shares > 0, a holding that reaches zero is removed.
type Holding struct {
	AccountID int64
	Symbol    string
	Shares    int64
}

// Transaction is an immutable record of one executed buy or sell
type Transaction struct {
	ID         string
	AccountID  int64
	Symbol     string
	Shares     int64
	Price      decimal.Decimal
	Side       Side
	ExecutedAt time.Time
}

// Amount returns shares × price
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}

// Quote contains a point-in-time price of a symbol
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
	Update time.Time
}

// Execution is the result of a successful buy or sell
type Execution struct {
	Transaction Transaction
	Cash        decimal.Decimal // cash after the order
	Shares      int64           // holding of Transaction.Symbol after the order
}

// Snapshot is the committed state of one account read at a single point in time
type Snapshot struct {
	Account  Account
	Holdings []Holding // sorted by symbol
}

// PortfolioLine is the valuation of one holding
type PortfolioLine struct {
	Symbol   string
	Name     string
	Shares   int64
	Price    decimal.Decimal
	Subtotal decimal.Decimal
	Priced   bool
	Stale    string // why the line could not be priced
}

// Portfolio is the valuation of an account at current quotes
type Portfolio struct {
	AccountID int64
	Lines     []PortfolioLine
	Cash      decimal.Decimal
	NetWorth  decimal.Decimal // Cash + Σ Subtotal of priced lines
	Complete  bool            // false when at least one line is unpriced
}

// HoldingMismatch describes a holding whose stored share count differs from the replayed log
type HoldingMismatch struct {
	Symbol   string
	Stored   int64
	Replayed int64
}

// AuditReport compares the materialized balances of an account with a replay of its log
type AuditReport struct {
	AccountID    int64
	Transactions int
	StoredCash   decimal.Decimal
	ReplayedCash decimal.Decimal
	Holdings     []HoldingMismatch
	Violations   []string // invariant breaches found while replaying
}

// Consistent reports whether the stored state matches the replay
func (r *AuditReport) Consistent() bool {
	return r.StoredCash.Equal(r.ReplayedCash) && len(r.Holdings) == 0 && len(r.Violations) == 0
}

// NormalizeSymbol trims and upper-cases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
