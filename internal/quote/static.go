// Package quote resolves ticker symbols to current prices
package quote

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/shopspring/decimal"

	"context"
	"sync"
	"time"
)

// Static serves quotes from memory. It backs offline runs and tests.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote // map[symbol]quote
}

// NewStatic is constructor. prices maps a symbol to a decimal price.
func NewStatic(prices map[string]string) (*Static, error) {
	s := &Static{quotes: make(map[string]model.Quote)}
	for symbol, text := range prices {
		price, err := decimal.NewFromString(text)
		if err != nil {
			return nil, model.Wrap(model.KindValidation, err, "price of "+symbol)
		}
		s.Set(symbol, "", price)
	}
	return s, nil
}

// Set adds or replaces the quote of symbol
func (s *Static) Set(symbol, name string, price decimal.Decimal) {
	sym := model.NormalizeSymbol(symbol)
	if name == "" {
		name = sym
	}
	s.mu.Lock()
	s.quotes[sym] = model.Quote{Symbol: sym, Name: name, Price: price, Update: time.Now().UTC()}
	s.mu.Unlock()
}

// Delete removes symbol
func (s *Static) Delete(symbol string) {
	s.mu.Lock()
	delete(s.quotes, model.NormalizeSymbol(symbol))
	s.mu.Unlock()
}

// Lookup returns the quote of symbol
func (s *Static) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sym := model.NormalizeSymbol(symbol)
	s.mu.RLock()
	q, ok := s.quotes[sym]
	s.mu.RUnlock()
	if !ok {
		return nil, model.Errorf(model.KindUnknownSymbol, "%q", sym)
	}
	return &q, nil
}
