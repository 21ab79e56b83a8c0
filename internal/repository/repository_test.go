package repository

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"
)

// newTestRepository connects to LEDGER_TEST_POSTGRES_URL or skips
func newTestRepository(t *testing.T) (*Repository, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("LEDGER_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_POSTGRES_URL is not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return NewRepository(pool), pool
}

func TestRepository_Migrate(t *testing.T) {
	_, pool := newTestRepository(t)
	assert.NoError(t, Migrate(context.Background(), pool), "schema is idempotent")
}

func TestRepository_WithAccountLock(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	a, err := r.CreateAccount(ctx, decimal.RequireFromString("1000.50"))
	require.NoError(t, err)

	tr := &model.Transaction{
		ID:         "01HTESTCOMMIT" + time.Now().Format("150405.000000000"),
		AccountID:  a.ID,
		Symbol:     "AAPL",
		Shares:     2,
		Price:      decimal.RequireFromString("100.25"),
		Side:       model.SideBuy,
		ExecutedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	err = r.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
		if err := tx.SetCash(ctx, decimal.RequireFromString("800")); err != nil {
			return err
		}
		if err := tx.SetShares(ctx, "AAPL", 2); err != nil {
			return err
		}
		n, err := tx.Shares(ctx, "AAPL")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(2), n)
		return tx.Append(ctx, tr)
	})
	require.NoError(t, err)

	snap, h, err := r.Ledger(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("800").Equal(snap.Account.Cash))
	assert.True(t, decimal.RequireFromString("1000.50").Equal(snap.Account.InitialCash))
	assert.Equal(t, []model.Holding{{AccountID: a.ID, Symbol: "AAPL", Shares: 2}}, snap.Holdings)
	require.Len(t, h, 1)
	assert.Equal(t, tr.ID, h[0].ID)
	assert.True(t, tr.Price.Equal(h[0].Price))
	assert.Equal(t, model.SideBuy, h[0].Side)

	boom := errors.New("boom")
	err = r.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
		if err := tx.SetCash(ctx, decimal.Zero); err != nil {
			return err
		}
		if err := tx.SetShares(ctx, "AAPL", 0); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)
	snap, err = r.Snapshot(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("800").Equal(snap.Account.Cash))
	assert.Len(t, snap.Holdings, 1)
}

func TestRepository_AccountNotFound(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	_, err := r.Cash(ctx, -1)
	assert.True(t, errors.Is(err, model.ErrAccountNotFound))
	err = r.WithAccountLock(ctx, -1, func(tx AccountTx) error { return nil })
	assert.True(t, errors.Is(err, model.ErrAccountNotFound))
}

func TestRepository_TransactionsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	r, pool := newTestRepository(t)
	a, err := r.CreateAccount(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)

	id := "01HTESTAPPEND" + time.Now().Format("150405.000000000")
	require.NoError(t, r.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
		return tx.Append(ctx, &model.Transaction{
			ID: id, AccountID: a.ID, Symbol: "X", Shares: 1,
			Price: decimal.NewFromInt(1), Side: model.SideSell, ExecutedAt: time.Now(),
		})
	}))

	_, err = pool.Exec(ctx, "UPDATE transactions SET shares = 5 WHERE id = $1", id)
	assert.Error(t, err)
	_, err = pool.Exec(ctx, "DELETE FROM transactions WHERE id = $1", id)
	assert.Error(t, err)
}

func TestRepository_SerializesReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	a, err := r.CreateAccount(ctx, decimal.Zero)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.WithAccountLock(ctx, a.ID, func(tx AccountTx) error {
				cash, err := tx.Cash(ctx)
				if err != nil {
					return err
				}
				return tx.SetCash(ctx, cash.Add(decimal.NewFromInt(1)))
			}))
		}()
	}
	wg.Wait()

	cash, err := r.Cash(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(cash), "got %s", cash)
}
