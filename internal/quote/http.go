package quote

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/shopspring/decimal"

	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultURL is the IEX Cloud API root
const DefaultURL = "https://cloud.iexapis.com/stable"

// HTTP looks quotes up in an IEX Cloud compatible API
type HTTP struct {
	client  *http.Client
	baseURL string
	token   string
}

type iexQuote struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName"`
	LatestPrice decimal.Decimal `json:"latestPrice"`
	LatestTime  int64           `json:"latestUpdate"` // unix milliseconds
}

// NewHTTP is constructor. A nil client uses http.DefaultClient.
func NewHTTP(baseURL, token string, client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &HTTP{client: client, baseURL: strings.TrimRight(baseURL, "/"), token: token}
}

// Lookup fetches the latest quote of symbol
func (p *HTTP) Lookup(ctx context.Context, symbol string) (*model.Quote, error) {
	sym := model.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, model.Errorf(model.KindUnknownSymbol, "empty symbol")
	}
	u := fmt.Sprintf("%s/stock/%s/quote?token=%s", p.baseURL, url.PathEscape(sym), url.QueryEscape(p.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, model.Wrap(model.KindUnknownSymbol, err, sym)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, model.Wrap(model.KindQuoteUnavailable, err, sym)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, model.Errorf(model.KindQuoteUnavailable, "%s: %s", sym, resp.Status)
	default:
		return nil, model.Errorf(model.KindUnknownSymbol, "%s: %s", sym, resp.Status)
	}

	var iq iexQuote
	if err = json.NewDecoder(resp.Body).Decode(&iq); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, model.Wrap(model.KindUnknownSymbol, err, "decode "+sym)
	}
	if !iq.LatestPrice.IsPositive() {
		return nil, model.Errorf(model.KindUnknownSymbol, "%s: no price", sym)
	}
	q := &model.Quote{Symbol: sym, Name: iq.CompanyName, Price: iq.LatestPrice, Update: time.Now().UTC()}
	if iq.Symbol != "" {
		q.Symbol = model.NormalizeSymbol(iq.Symbol)
	}
	if iq.LatestTime > 0 {
		q.Update = time.UnixMilli(iq.LatestTime).UTC()
	}
	return q, nil
}
