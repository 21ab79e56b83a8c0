package repository

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/go-redis/cache/v8"
	"github.com/shopspring/decimal"

	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Cache.Get when the symbol is not cached
var ErrCacheMiss = cache.ErrCacheMiss

const keyPrefix = "quote:"

// Cache keeps recent quotes in redis and in the local process
type Cache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// cachedQuote is the stored form of model.Quote
type cachedQuote struct {
	Symbol string `msgpack:"s"`
	Name   string `msgpack:"n"`
	Price  string `msgpack:"p"`
	Update int64  `msgpack:"u"` // unix milliseconds
}

// NewCache is constructor
func NewCache(cache *cache.Cache, ttl time.Duration) *Cache {
	return &Cache{cache: cache, ttl: ttl}
}

// Set stores a quote under its symbol
func (c *Cache) Set(ctx context.Context, q *model.Quote) error {
	return c.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   keyPrefix + model.NormalizeSymbol(q.Symbol),
		Value: toCached(q),
		TTL:   c.ttl,
	})
}

// Get returns the cached quote of symbol or ErrCacheMiss
func (c *Cache) Get(ctx context.Context, symbol string) (*model.Quote, error) {
	var cq cachedQuote
	if err := c.cache.Get(ctx, keyPrefix+model.NormalizeSymbol(symbol), &cq); err != nil {
		return nil, err
	}
	return fromCached(&cq)
}

// Once returns the cached quote of symbol, calling load on a miss. Concurrent
// misses of the same symbol share one load; failed loads are not cached.
func (c *Cache) Once(ctx context.Context, symbol string, load func() (*model.Quote, error)) (*model.Quote, error) {
	var cq cachedQuote
	err := c.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   keyPrefix + model.NormalizeSymbol(symbol),
		Value: &cq,
		TTL:   c.ttl,
		Do: func(*cache.Item) (interface{}, error) {
			q, err := load()
			if err != nil {
				return nil, err
			}
			return toCached(q), nil
		},
	})
	if err != nil {
		return nil, err
	}
	return fromCached(&cq)
}

// Delete evicts symbol
func (c *Cache) Delete(ctx context.Context, symbol string) error {
	err := c.cache.Delete(ctx, keyPrefix+model.NormalizeSymbol(symbol))
	if errors.Is(err, ErrCacheMiss) {
		return nil
	}
	return err
}

func toCached(q *model.Quote) *cachedQuote {
	return &cachedQuote{
		Symbol: model.NormalizeSymbol(q.Symbol),
		Name:   q.Name,
		Price:  q.Price.String(),
		Update: q.Update.UnixMilli(),
	}
}

func fromCached(cq *cachedQuote) (*model.Quote, error) {
	price, err := decimal.NewFromString(cq.Price)
	if err != nil {
		return nil, err
	}
	return &model.Quote{
		Symbol: cq.Symbol,
		Name:   cq.Name,
		Price:  price,
		Update: time.UnixMilli(cq.Update).UTC(),
	}, nil
}
