package quote

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/chucky-1/stockledger/internal/repository"
	"github.com/chucky-1/stockledger/protocol"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"context"
	"errors"
	"io"
	"time"
)

// Feed copies a streamed price feed into the quote cache
type Feed struct {
	client  protocol.PricesClient
	cache   *repository.Cache
	symbols []string
	backoff time.Duration
}

// NewFeed is constructor. An empty symbols list subscribes to every symbol.
func NewFeed(client protocol.PricesClient, cache *repository.Cache, symbols []string) *Feed {
	return &Feed{client: client, cache: cache, symbols: symbols, backoff: 5 * time.Second}
}

// Run subscribes until ctx is done, resubscribing after stream failures
func (f *Feed) Run(ctx context.Context) {
	for {
		err := f.Subscribe(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Errorf("price feed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.backoff):
		}
	}
}

// Subscribe consumes one stream session. It returns nil when the server ends the stream.
func (f *Feed) Subscribe(ctx context.Context) error {
	stream, err := f.client.SubAll(ctx, &protocol.Request{Symbols: f.symbols})
	if err != nil {
		return err
	}
	for {
		st, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		q, err := stockToQuote(st)
		if err != nil {
			log.WithField("symbol", st.Symbol).Error(err)
			// drop the last good price so lookups go upstream instead of serving it
			if sym := model.NormalizeSymbol(st.Symbol); sym != "" {
				if err = f.cache.Delete(ctx, sym); err != nil {
					log.WithField("symbol", sym).Error(err)
				}
			}
			continue
		}
		if err = f.cache.Set(ctx, q); err != nil {
			log.WithField("symbol", q.Symbol).Error(err)
		}
	}
}

func stockToQuote(st *protocol.Stock) (*model.Quote, error) {
	symbol := model.NormalizeSymbol(st.Symbol)
	if symbol == "" {
		return nil, errors.New("price update without symbol")
	}
	price, err := decimal.NewFromString(st.Price)
	if err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, errors.New("price update with non-positive price " + st.Price)
	}
	update := time.Now().UTC()
	if st.Update > 0 {
		update = time.UnixMilli(st.Update).UTC()
	}
	return &model.Quote{Symbol: symbol, Name: st.Title, Price: price, Update: update}, nil
}
