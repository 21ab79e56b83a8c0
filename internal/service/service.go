// Package service have business logic
package service

import (
	"github.com/chucky-1/stockledger/internal/id"
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/chucky-1/stockledger/internal/repository"
	"github.com/chucky-1/stockledger/internal/request"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"context"
	"errors"
	"sync"
	"time"
)

// DefaultQuoteTimeout bounds a quote lookup when no timeout is configured
const DefaultQuoteTimeout = 3 * time.Second

// notifyTimeout bounds one notification; it runs detached from the order's context
const notifyTimeout = 10 * time.Second

// QuoteProvider resolves a symbol to its current price
type QuoteProvider interface {
	Lookup(ctx context.Context, symbol string) (*model.Quote, error)
}

// Notifier is told about every committed transaction
type Notifier interface {
	Notify(ctx context.Context, t model.Transaction) error
}

// Service implements business logic. It keeps no account state between calls.
type Service struct {
	store        repository.AccountStore
	quotes       QuoteProvider
	quoteTimeout time.Duration
	notifier     Notifier
	pending      sync.WaitGroup // notifications in flight
	now          func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithQuoteTimeout bounds every quote lookup
func WithQuoteTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.quoteTimeout = d
		}
	}
}

// WithNotifier publishes committed transactions. Notify is called off the
// request path and never delays or fails the order.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService is constructor
func NewService(store repository.AccountStore, quotes QuoteProvider, opts ...Option) *Service {
	s := &Service{
		store:        store,
		quotes:       quotes,
		quoteTimeout: DefaultQuoteTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenAccount registers an account funded with cash
func (s *Service) OpenAccount(ctx context.Context, cash decimal.Decimal) (model.Account, error) {
	if cash.IsNegative() {
		return model.Account{}, model.Errorf(model.KindValidation, "initial cash must not be negative, got %s", cash)
	}
	a, err := s.store.CreateAccount(ctx, cash)
	if err != nil {
		return model.Account{}, storeError(err)
	}
	log.WithFields(log.Fields{"account": a.ID, "cash": a.Cash.String()}).Info("account opened")
	return a, nil
}

// Quote returns the current quote of symbol
func (s *Service) Quote(ctx context.Context, symbol string) (*model.Quote, error) {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, model.Errorf(model.KindValidation, "symbol must be provided")
	}
	return s.lookup(ctx, sym)
}

// Buy buys shares of symbol for the account at the current price
func (s *Service) Buy(ctx context.Context, accountID int64, symbol string, shares int64) (*model.Execution, error) {
	sym, err := validateOrder(symbol, shares)
	if err != nil {
		return nil, err
	}
	q, err := s.lookup(ctx, sym)
	if err != nil {
		return nil, err
	}
	cost := q.Price.Mul(decimal.NewFromInt(shares))

	var exec model.Execution
	err = s.store.WithAccountLock(ctx, accountID, func(tx repository.AccountTx) error {
		cash, err := tx.Cash(ctx)
		if err != nil {
			return err
		}
		if cost.GreaterThan(cash) {
			return model.Errorf(model.KindInsufficientFunds, "%d %s cost %s, cash is %s", shares, sym, cost, cash)
		}
		held, err := tx.Shares(ctx, sym)
		if err != nil {
			return err
		}
		exec = model.Execution{
			Transaction: s.transaction(accountID, sym, shares, q.Price, model.SideBuy),
			Cash:        cash.Sub(cost),
			Shares:      held + shares,
		}
		return apply(ctx, tx, &exec)
	})
	if err != nil {
		return nil, s.orderFailed(accountID, sym, model.SideBuy, err)
	}
	s.executed(&exec)
	return &exec, nil
}

// Sell sells shares of symbol from the account at the current price
func (s *Service) Sell(ctx context.Context, accountID int64, symbol string, shares int64) (*model.Execution, error) {
	sym, err := validateOrder(symbol, shares)
	if err != nil {
		return nil, err
	}
	// fail fast without a quote call; the check is repeated under the lock
	held, err := s.store.Holding(ctx, accountID, sym)
	if err != nil {
		return nil, storeError(err)
	}
	if held < shares {
		return nil, model.Errorf(model.KindInsufficientShares, "selling %d %s, holding %d", shares, sym, held)
	}
	q, err := s.lookup(ctx, sym)
	if err != nil {
		return nil, err
	}
	proceeds := q.Price.Mul(decimal.NewFromInt(shares))

	var exec model.Execution
	err = s.store.WithAccountLock(ctx, accountID, func(tx repository.AccountTx) error {
		held, err := tx.Shares(ctx, sym)
		if err != nil {
			return err
		}
		if held < shares {
			return model.Errorf(model.KindInsufficientShares, "selling %d %s, holding %d", shares, sym, held)
		}
		cash, err := tx.Cash(ctx)
		if err != nil {
			return err
		}
		exec = model.Execution{
			Transaction: s.transaction(accountID, sym, shares, q.Price, model.SideSell),
			Cash:        cash.Add(proceeds),
			Shares:      held - shares,
		}
		return apply(ctx, tx, &exec)
	})
	if err != nil {
		return nil, s.orderFailed(accountID, sym, model.SideSell, err)
	}
	s.executed(&exec)
	return &exec, nil
}

func validateOrder(symbol string, shares int64) (string, error) {
	if err := request.ValidateShares(shares); err != nil {
		return "", err
	}
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return "", model.Errorf(model.KindValidation, "symbol must be provided")
	}
	return sym, nil
}

// apply writes cash, holding and log entry of exec inside the exclusive section
func apply(ctx context.Context, tx repository.AccountTx, exec *model.Execution) error {
	if err := tx.SetCash(ctx, exec.Cash); err != nil {
		return err
	}
	if err := tx.SetShares(ctx, exec.Transaction.Symbol, exec.Shares); err != nil {
		return err
	}
	return tx.Append(ctx, &exec.Transaction)
}

func (s *Service) transaction(accountID int64, symbol string, shares int64, price decimal.Decimal, side model.Side) model.Transaction {
	now := s.now().UTC()
	return model.Transaction{
		ID:         id.New(now),
		AccountID:  accountID,
		Symbol:     symbol,
		Shares:     shares,
		Price:      price,
		Side:       side,
		ExecutedAt: now,
	}
}

func (s *Service) executed(exec *model.Execution) {
	t := exec.Transaction
	log.WithFields(log.Fields{
		"account": t.AccountID,
		"id":      t.ID,
		"side":    t.Side,
		"symbol":  t.Symbol,
		"shares":  t.Shares,
		"price":   t.Price.String(),
		"cash":    exec.Cash.String(),
	}).Info("order executed")
	if s.notifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, t); err != nil {
			log.WithFields(log.Fields{"account": t.AccountID, "id": t.ID}).Errorf("notify: %v", err)
		}
	}()
}

// Wait blocks until every notification already started has returned
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) orderFailed(accountID int64, symbol string, side model.Side, err error) error {
	err = storeError(err)
	entry := log.WithFields(log.Fields{"account": accountID, "side": side, "symbol": symbol})
	if model.KindOf(err) == model.KindStore {
		entry.Error(err)
	} else {
		entry.Info(err)
	}
	return err
}

// lookup resolves a normalized symbol within the quote timeout, even if the
// provider ignores its context
func (s *Service) lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()

	type result struct {
		q   *model.Quote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		q, err := s.quotes.Lookup(ctx, symbol)
		ch <- result{q, err}
	}()

	var res result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		return nil, classifyQuoteError(symbol, res.err)
	}
	if res.q == nil || !res.q.Price.IsPositive() {
		return nil, model.Errorf(model.KindUnknownSymbol, "%s has no price", symbol)
	}
	q := *res.q
	q.Symbol = symbol
	return &q, nil
}

func classifyQuoteError(symbol string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.Wrap(model.KindQuoteUnavailable, err, symbol)
	case model.KindOf(err) == model.KindQuoteUnavailable:
		return err
	case model.KindOf(err) == model.KindUnknownSymbol:
		return err
	}
	log.WithField("symbol", symbol).Warnf("quote provider: %v", err)
	return model.Wrap(model.KindUnknownSymbol, err, symbol)
}

// storeError keeps ledger errors and marks anything else as a store failure
func storeError(err error) error {
	if err == nil || model.KindOf(err) != 0 {
		return err
	}
	return model.Wrap(model.KindStore, err, "")
}
