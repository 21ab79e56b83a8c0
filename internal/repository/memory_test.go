package repository

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newAccount(t *testing.T, m *Memory, cash string) model.Account {
	t.Helper()
	a, err := m.CreateAccount(context.Background(), decimal.RequireFromString(cash))
	require.NoError(t, err)
	return a
}

func buyTransaction(accountID int64, symbol string, shares int64, price string) *model.Transaction {
	return &model.Transaction{
		ID:         symbol + "-" + price,
		AccountID:  accountID,
		Symbol:     symbol,
		Shares:     shares,
		Price:      decimal.RequireFromString(price),
		Side:       model.SideBuy,
		ExecutedAt: time.Now().UTC(),
	}
}

func TestMemory_CreateAccount(t *testing.T) {
	m := NewMemory()
	first := newAccount(t, m, "1000")
	second := newAccount(t, m, "0")
	assert.NotEqual(t, first.ID, second.ID)

	_, err := m.CreateAccount(context.Background(), decimal.NewFromInt(-1))
	assert.True(t, errors.Is(err, model.ErrValidation))

	_, err = m.Cash(context.Background(), 42)
	assert.True(t, errors.Is(err, model.ErrAccountNotFound))
}

func TestMemory_WithAccountLockCommits(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := newAccount(t, m, "1000")

	err := m.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
		require.NoError(t, tx.SetCash(ctx, decimal.NewFromInt(700)))
		require.NoError(t, tx.SetShares(ctx, "AAPL", 3))
		cash, err := tx.Cash(ctx)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(700).Equal(cash), "tx reads its own writes")
		return tx.Append(ctx, buyTransaction(a.ID, "AAPL", 3, "100"))
	})
	require.NoError(t, err)

	snap, err := m.Snapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(700).Equal(snap.Account.Cash))
	assert.Equal(t, []model.Holding{{AccountID: a.ID, Symbol: "AAPL", Shares: 3}}, snap.Holdings)

	h, err := m.History(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, h, 1)
}

func TestMemory_WithAccountLockRollsBack(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := newAccount(t, m, "1000")
	boom := errors.New("boom")

	err := m.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
		require.NoError(t, tx.SetCash(ctx, decimal.NewFromInt(1)))
		require.NoError(t, tx.SetShares(ctx, "AAPL", 3))
		require.NoError(t, tx.Append(ctx, buyTransaction(a.ID, "AAPL", 3, "333")))
		return boom
	})
	assert.Equal(t, boom, err)

	snap, h, err := m.Ledger(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(snap.Account.Cash))
	assert.Empty(t, snap.Holdings)
	assert.Empty(t, h)
}

func TestMemory_WithAccountLockReleasesOnPanic(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := newAccount(t, m, "10")

	assert.Panics(t, func() {
		_ = m.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
			panic("fn failed")
		})
	})
	assert.NoError(t, m.WithAccountLock(ctx, a.ID, func(tx AccountTx) error { return nil }))
}

func TestMemory_ZeroSharesRemovesHolding(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := newAccount(t, m, "0")

	require.NoError(t, m.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
		return tx.SetShares(ctx, "MSFT", 5)
	}))
	require.NoError(t, m.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
		return tx.SetShares(ctx, "MSFT", 0)
	}))

	snap, err := m.Snapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.Holdings)
	n, err := m.Holding(ctx, a.ID, "MSFT")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_TxRejectsInvalidWrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := newAccount(t, m, "10")

	testTable := []struct {
		name string
		fn   func(tx AccountTx) error
	}{
		{name: "negative cash", fn: func(tx AccountTx) error { return tx.SetCash(ctx, decimal.NewFromInt(-1)) }},
		{name: "negative shares", fn: func(tx AccountTx) error { return tx.SetShares(ctx, "AAPL", -1) }},
		{name: "foreign transaction", fn: func(tx AccountTx) error { return tx.Append(ctx, buyTransaction(a.ID+1, "AAPL", 1, "1")) }},
		{name: "zero price", fn: func(tx AccountTx) error { return tx.Append(ctx, buyTransaction(a.ID, "AAPL", 1, "0")) }},
		{name: "zero shares", fn: func(tx AccountTx) error { return tx.Append(ctx, buyTransaction(a.ID, "AAPL", 0, "1")) }},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			err := m.WithAccountLock(ctx, a.ID, testCase.fn)
			assert.True(t, errors.Is(err, model.ErrStore), "got %v", err)
		})
	}
}

func TestMemory_WithAccountLockHonoursContext(t *testing.T) {
	m := NewMemory()
	a := newAccount(t, m, "10")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.WithAccountLock(context.Background(), a.ID, func(tx AccountTx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := m.WithAccountLock(ctx, a.ID, func(tx AccountTx) error { return nil })
	assert.True(t, errors.Is(err, model.ErrStore))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(release)
	<-done
}

func TestMemory_AccountsDoNotContend(t *testing.T) {
	m := NewMemory()
	busy := newAccount(t, m, "10")
	other := newAccount(t, m, "10")

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.WithAccountLock(context.Background(), busy.ID, func(tx AccountTx) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, m.WithAccountLock(ctx, other.ID, func(tx AccountTx) error { return nil }))
	_, err := m.Snapshot(ctx, busy.ID)
	assert.NoError(t, err, "readers do not wait for the exclusive section")

	close(release)
	<-done
}

func TestMemory_SerializesReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := newAccount(t, m, "0")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
				cash, err := tx.Cash(ctx)
				if err != nil {
					return err
				}
				return tx.SetCash(ctx, cash.Add(decimal.NewFromInt(1)))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cash, err := m.Cash(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(cash), "got %s", cash)
}
