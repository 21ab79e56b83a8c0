package quote

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/chucky-1/stockledger/internal/repository"
	log "github.com/sirupsen/logrus"

	"context"
)

// Lookuper is anything that resolves a symbol to a quote
type Lookuper interface {
	Lookup(ctx context.Context, symbol string) (*model.Quote, error)
}

// Cached serves quotes from the cache and reads through to upstream on a miss
type Cached struct {
	upstream Lookuper
	cache    *repository.Cache
}

// NewCached is constructor
func NewCached(upstream Lookuper, cache *repository.Cache) *Cached {
	return &Cached{upstream: upstream, cache: cache}
}

// Lookup returns the cached quote of symbol or fetches it
func (c *Cached) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	sym := model.NormalizeSymbol(symbol)
	loaded := false
	q, err := c.cache.Once(ctx, sym, func() (*model.Quote, error) {
		loaded = true
		return c.upstream.Lookup(ctx, sym)
	})
	if err == nil || loaded || model.KindOf(err) != 0 || ctx.Err() != nil {
		return q, err
	}
	// the cache itself failed, not the upstream
	log.WithField("symbol", sym).Warnf("quote cache: %v", err)
	return c.upstream.Lookup(ctx, sym)
}
