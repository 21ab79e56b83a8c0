package cli

import (
	"github.com/chucky-1/stockledger/internal/config"
	"github.com/chucky-1/stockledger/internal/events"
	"github.com/chucky-1/stockledger/internal/quote"
	"github.com/chucky-1/stockledger/internal/repository"
	"github.com/chucky-1/stockledger/internal/service"
	"github.com/chucky-1/stockledger/protocol"
	"github.com/go-redis/cache/v8"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"context"
	"net/http"
	"time"
)

// deps holds everything the ledger service runs on
type deps struct {
	store    repository.AccountStore
	quotes   service.QuoteProvider
	cache    *repository.Cache
	notifier service.Notifier
	feed     *quote.Feed
	closers  []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func build(ctx context.Context, cfg *config.Config) (*deps, error) {
	d := &deps{}
	if err := d.init(ctx, cfg); err != nil {
		d.close()
		return nil, err
	}
	return d, nil
}

func (d *deps) init(ctx context.Context, cfg *config.Config) error {
	switch cfg.Store {
	case config.StoreMemory:
		d.store = repository.NewMemory()
	default:
		pool, err := connect(ctx, cfg)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, pool.Close)
		d.store = repository.NewRepository(pool)
	}

	d.cache = newQuoteCache(cfg)
	upstream, err := newQuoteProvider(cfg)
	if err != nil {
		return err
	}
	d.quotes = quote.NewCached(upstream, d.cache)

	if len(cfg.KafkaBrokers) > 0 {
		k := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		d.notifier = k
		d.closers = append(d.closers, func() {
			if err := k.Close(); err != nil {
				log.Error(err)
			}
		})
	}

	if cfg.PriceFeed {
		conn, err := grpc.DialContext(ctx, cfg.PriceFeedAddr(), grpc.WithInsecure())
		if err != nil {
			return err
		}
		d.closers = append(d.closers, func() {
			if err := conn.Close(); err != nil {
				log.Error(err)
			}
		})
		d.feed = quote.NewFeed(protocol.NewPricesClient(conn), d.cache, nil)
	}
	return nil
}

func connect(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.Connect(ctx, cfg.PostgresURL())
	if err != nil {
		log.Errorf("Unable to connect to database: %v", err)
		return nil, err
	}
	return pool, nil
}

// newQuoteCache keeps quotes in a local TinyLFU in front of the redis ring
func newQuoteCache(cfg *config.Config) *repository.Cache {
	opts := &cache.Options{LocalCache: cache.NewTinyLFU(1000, cfg.QuoteTTL)}
	if cfg.HostRedisCache != "" {
		opts.Redis = redis.NewRing(&redis.RingOptions{
			Addrs: map[string]string{cfg.ServerRedisCache: cfg.RedisAddr()},
		})
	}
	return repository.NewCache(cache.New(opts), cfg.QuoteTTL)
}

func newQuoteProvider(cfg *config.Config) (quote.Lookuper, error) {
	prices, err := cfg.Quotes()
	if err != nil {
		return nil, err
	}
	if len(prices) > 0 {
		return quote.NewStatic(prices)
	}
	if cfg.APIKey == "" {
		log.Warn("API_KEY is not set, quote lookups will be rejected by the provider")
	}
	return quote.NewHTTP(cfg.QuoteAPIURL, cfg.APIKey, &http.Client{Timeout: 2 * cfg.QuoteTimeout}), nil
}

func newService(d *deps, cfg *config.Config) *service.Service {
	opts := []service.Option{service.WithQuoteTimeout(cfg.QuoteTimeout)}
	if d.notifier != nil {
		opts = append(opts, service.WithNotifier(d.notifier))
	}
	return service.NewService(d.store, d.quotes, opts...)
}

// dialLedger connects a client to the ledger service
func dialLedger(ctx context.Context, cfg *config.Config) (protocol.LedgerClient, func(), error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, cfg.LedgerAddr, grpc.WithInsecure(), grpc.WithBlock())
	if err != nil {
		return nil, nil, err
	}
	return protocol.NewLedgerClient(conn), func() {
		if err := conn.Close(); err != nil {
			log.Error(err)
		}
	}, nil
}
