package service

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"context"
	"fmt"
	"sort"
)

// maxConcurrentQuotes limits parallel lookups of one portfolio
const maxConcurrentQuotes = 8

// Portfolio values the account's holdings at current quotes. A symbol that cannot be
// priced stays in the result as an unpriced line and marks the portfolio incomplete.
func (s *Service) Portfolio(ctx context.Context, accountID int64) (*model.Portfolio, error) {
	snap, err := s.store.Snapshot(ctx, accountID)
	if err != nil {
		return nil, storeError(err)
	}

	lines := make([]model.PortfolioLine, len(snap.Holdings))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQuotes)
	for i, h := range snap.Holdings {
		i, h := i, h
		g.Go(func() error {
			lines[i] = s.value(gctx, h)
			return nil
		})
	}
	_ = g.Wait()

	p := &model.Portfolio{
		AccountID: accountID,
		Lines:     lines,
		Cash:      snap.Account.Cash,
		NetWorth:  snap.Account.Cash,
		Complete:  true,
	}
	for _, l := range lines {
		if !l.Priced {
			p.Complete = false
			continue
		}
		p.NetWorth = p.NetWorth.Add(l.Subtotal)
	}
	if !p.Complete {
		log.WithField("account", accountID).Warn("portfolio has unpriced holdings")
	}
	return p, nil
}

func (s *Service) value(ctx context.Context, h model.Holding) model.PortfolioLine {
	line := model.PortfolioLine{Symbol: h.Symbol, Shares: h.Shares}
	q, err := s.lookup(ctx, h.Symbol)
	if err != nil {
		line.Stale = err.Error()
		return line
	}
	line.Name = q.Name
	line.Price = q.Price
	line.Subtotal = q.Price.Mul(decimal.NewFromInt(h.Shares))
	line.Priced = true
	return line
}

// History returns the account's executed orders, oldest first
func (s *Service) History(ctx context.Context, accountID int64) ([]model.Transaction, error) {
	h, err := s.store.History(ctx, accountID)
	if err != nil {
		return nil, storeError(err)
	}
	return h, nil
}

// Audit replays the account's log from its initial cash grant and compares the result
// with the stored balances. It never mutates the account.
func (s *Service) Audit(ctx context.Context, accountID int64) (*model.AuditReport, error) {
	snap, transactions, err := s.store.Ledger(ctx, accountID)
	if err != nil {
		return nil, storeError(err)
	}
	return replay(snap, transactions), nil
}

func replay(snap model.Snapshot, transactions []model.Transaction) *model.AuditReport {
	r := &model.AuditReport{
		AccountID:    snap.Account.ID,
		Transactions: len(transactions),
		StoredCash:   snap.Account.Cash,
		ReplayedCash: snap.Account.InitialCash,
	}
	shares := make(map[string]int64)
	for _, t := range transactions {
		switch t.Side {
		case model.SideBuy:
			r.ReplayedCash = r.ReplayedCash.Sub(t.Amount())
			shares[t.Symbol] += t.Shares
		case model.SideSell:
			r.ReplayedCash = r.ReplayedCash.Add(t.Amount())
			shares[t.Symbol] -= t.Shares
		default:
			r.Violations = append(r.Violations, fmt.Sprintf("transaction %s has unknown side %q", t.ID, t.Side))
			continue
		}
		if r.ReplayedCash.IsNegative() {
			r.Violations = append(r.Violations, fmt.Sprintf("cash negative after transaction %s", t.ID))
		}
		if shares[t.Symbol] < 0 {
			r.Violations = append(r.Violations, fmt.Sprintf("%s shares negative after transaction %s", t.Symbol, t.ID))
		}
	}

	stored := make(map[string]int64, len(snap.Holdings))
	for _, h := range snap.Holdings {
		stored[h.Symbol] = h.Shares
		if h.Shares <= 0 {
			r.Violations = append(r.Violations, fmt.Sprintf("stored holding %s has %d shares", h.Symbol, h.Shares))
		}
	}
	for sym, n := range shares {
		if stored[sym] != n {
			r.Holdings = append(r.Holdings, model.HoldingMismatch{Symbol: sym, Stored: stored[sym], Replayed: n})
		}
	}
	for sym, n := range stored {
		if _, ok := shares[sym]; !ok {
			r.Holdings = append(r.Holdings, model.HoldingMismatch{Symbol: sym, Stored: n})
		}
	}
	sort.Slice(r.Holdings, func(i, j int) bool { return r.Holdings[i].Symbol < r.Holdings[j].Symbol })
	return r
}
