package repository

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/go-redis/cache/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newLocalCache() *Cache {
	return NewCache(cache.New(&cache.Options{LocalCache: cache.NewTinyLFU(100, time.Minute)}), time.Minute)
}

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache()
	update := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	_, err := c.Get(ctx, "AAPL")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, c.Set(ctx, &model.Quote{
		Symbol: "aapl",
		Name:   "Apple Inc.",
		Price:  decimal.RequireFromString("187.44"),
		Update: update,
	}))

	q, err := c.Get(ctx, " AAPL ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple Inc.", q.Name)
	assert.True(t, decimal.RequireFromString("187.44").Equal(q.Price))
	assert.True(t, update.Equal(q.Update))

	require.NoError(t, c.Delete(ctx, "AAPL"))
	_, err = c.Get(ctx, "AAPL")
	assert.True(t, errors.Is(err, ErrCacheMiss))
}

func TestCache_OnceLoadsOnMiss(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache()
	var calls int32
	load := func() (*model.Quote, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return &model.Quote{Symbol: "MSFT", Name: "Microsoft", Price: decimal.NewFromInt(300)}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q, err := c.Once(ctx, "MSFT", load)
			assert.NoError(t, err)
			if q != nil {
				assert.True(t, decimal.NewFromInt(300).Equal(q.Price))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err := c.Once(ctx, "MSFT", load)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "served from cache")
}

func TestCache_OnceDoesNotCacheFailures(t *testing.T) {
	ctx := context.Background()
	c := newLocalCache()
	notFound := model.Errorf(model.KindUnknownSymbol, "ZZZZ")

	_, err := c.Once(ctx, "ZZZZ", func() (*model.Quote, error) { return nil, notFound })
	assert.True(t, errors.Is(err, model.ErrUnknownSymbol))

	q, err := c.Once(ctx, "ZZZZ", func() (*model.Quote, error) {
		return &model.Quote{Symbol: "ZZZZ", Price: decimal.NewFromInt(1)}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ZZZZ", q.Symbol)
}
