package repository

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/shopspring/decimal"

	"context"
	"sort"
	"sync"
	"time"
)

// Memory keeps accounts in process memory
type Memory struct {
	mu       sync.RWMutex
	lastID   int64
	accounts map[int64]*memAccount // map[account.ID]*memAccount
}

type memAccount struct {
	sem chan struct{} // exclusive section, capacity 1

	mu       sync.RWMutex // guards the committed state below
	account  model.Account
	holdings map[string]int64 // map[symbol]shares
	history  []model.Transaction
}

// NewMemory is constructor
func NewMemory() *Memory {
	return &Memory{accounts: make(map[int64]*memAccount)}
}

// CreateAccount opens an account with an initial cash grant
func (m *Memory) CreateAccount(ctx context.Context, cash decimal.Decimal) (model.Account, error) {
	if cash.IsNegative() {
		return model.Account{}, model.Errorf(model.KindValidation, "initial cash must not be negative, got %s", cash)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	a := model.Account{ID: m.lastID, Cash: cash, InitialCash: cash, CreatedAt: time.Now().UTC()}
	m.accounts[a.ID] = &memAccount{
		sem:      make(chan struct{}, 1),
		account:  a,
		holdings: make(map[string]int64),
	}
	return a, nil
}

func (m *Memory) get(accountID int64) (*memAccount, error) {
	m.mu.RLock()
	a, ok := m.accounts[accountID]
	m.mu.RUnlock()
	if !ok {
		return nil, accountNotFound(accountID)
	}
	return a, nil
}

// Cash returns the committed cash of an account
func (m *Memory) Cash(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	a, err := m.get(accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.account.Cash, nil
}

// Holding returns the committed share count of symbol, zero when absent
func (m *Memory) Holding(ctx context.Context, accountID int64, symbol string) (int64, error) {
	a, err := m.get(accountID)
	if err != nil {
		return 0, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.holdings[symbol], nil
}

// Snapshot returns cash and holdings committed together
func (m *Memory) Snapshot(ctx context.Context, accountID int64) (model.Snapshot, error) {
	a, err := m.get(accountID)
	if err != nil {
		return model.Snapshot{}, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot(), nil
}

// History returns the transaction log of an account, oldest first
func (m *Memory) History(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	a, err := m.get(accountID)
	if err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]model.Transaction(nil), a.history...), nil
}

// Ledger returns the snapshot and the log read together
func (m *Memory) Ledger(ctx context.Context, accountID int64) (model.Snapshot, []model.Transaction, error) {
	a, err := m.get(accountID)
	if err != nil {
		return model.Snapshot{}, nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot(), append([]model.Transaction(nil), a.history...), nil
}

// WithAccountLock runs fn holding the account's exclusive section
func (m *Memory) WithAccountLock(ctx context.Context, accountID int64, fn func(tx AccountTx) error) error {
	a, err := m.get(accountID)
	if err != nil {
		return err
	}
	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		return model.Wrap(model.KindStore, ctx.Err(), "waiting for account lock")
	}
	defer func() { <-a.sem }()

	tx := &memTx{acc: a, holdings: make(map[string]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return model.Wrap(model.KindStore, err, "commit")
	}
	a.commit(tx)
	return nil
}

// snapshot must be called with a.mu held
func (a *memAccount) snapshot() model.Snapshot {
	s := model.Snapshot{Account: a.account, Holdings: make([]model.Holding, 0, len(a.holdings))}
	for symbol, shares := range a.holdings {
		s.Holdings = append(s.Holdings, model.Holding{AccountID: a.account.ID, Symbol: symbol, Shares: shares})
	}
	sort.Slice(s.Holdings, func(i, j int) bool { return s.Holdings[i].Symbol < s.Holdings[j].Symbol })
	return s
}

func (a *memAccount) commit(tx *memTx) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if tx.cash != nil {
		a.account.Cash = *tx.cash
	}
	for symbol, shares := range tx.holdings {
		if shares == 0 {
			delete(a.holdings, symbol)
			continue
		}
		a.holdings[symbol] = shares
	}
	a.history = append(a.history, tx.appended...)
}

// memTx stages writes until commit
type memTx struct {
	acc      *memAccount
	cash     *decimal.Decimal
	holdings map[string]int64
	appended []model.Transaction
}

func (t *memTx) Cash(ctx context.Context) (decimal.Decimal, error) {
	if t.cash != nil {
		return *t.cash, nil
	}
	t.acc.mu.RLock()
	defer t.acc.mu.RUnlock()
	return t.acc.account.Cash, nil
}

func (t *memTx) SetCash(ctx context.Context, cash decimal.Decimal) error {
	if cash.IsNegative() {
		return model.Errorf(model.KindStore, "cash must not be negative, got %s", cash)
	}
	t.cash = &cash
	return nil
}

func (t *memTx) Shares(ctx context.Context, symbol string) (int64, error) {
	if shares, ok := t.holdings[symbol]; ok {
		return shares, nil
	}
	t.acc.mu.RLock()
	defer t.acc.mu.RUnlock()
	return t.acc.holdings[symbol], nil
}

func (t *memTx) SetShares(ctx context.Context, symbol string, shares int64) error {
	if shares < 0 {
		return model.Errorf(model.KindStore, "shares of %s must not be negative, got %d", symbol, shares)
	}
	t.holdings[symbol] = shares
	return nil
}

func (t *memTx) Append(ctx context.Context, tr *model.Transaction) error {
	if err := checkTransaction(tr, t.acc.account.ID); err != nil {
		return err
	}
	t.appended = append(t.appended, *tr)
	return nil
}
