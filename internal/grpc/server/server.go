// Package server implements the server side of grpc
package server

import (
	"github.com/chucky-1/stockledger/internal/model"
	"github.com/chucky-1/stockledger/internal/request"
	"github.com/chucky-1/stockledger/protocol"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"context"
)

// Ledger contains the operations exposed over grpc
type Ledger interface {
	OpenAccount(ctx context.Context, cash decimal.Decimal) (model.Account, error)
	Buy(ctx context.Context, accountID int64, symbol string, shares int64) (*model.Execution, error)
	Sell(ctx context.Context, accountID int64, symbol string, shares int64) (*model.Execution, error)
	Quote(ctx context.Context, symbol string) (*model.Quote, error)
	Portfolio(ctx context.Context, accountID int64) (*model.Portfolio, error)
	History(ctx context.Context, accountID int64) ([]model.Transaction, error)
	Audit(ctx context.Context, accountID int64) (*model.AuditReport, error)
}

// Server contains methods of application on service side of grpc
type Server struct {
	protocol.UnimplementedLedgerServer
	ledger      Ledger
	initialCash decimal.Decimal
}

// NewServer is constructor. initialCash funds accounts opened without an explicit amount.
func NewServer(ledger Ledger, initialCash decimal.Decimal) *Server {
	return &Server{ledger: ledger, initialCash: initialCash}
}

// OpenAccount registers a new account
func (s *Server) OpenAccount(ctx context.Context, in *protocol.OpenAccountRequest) (*protocol.AccountResponse, error) {
	cash := s.initialCash
	if in.Cash != "" {
		var err error
		cash, err = decimal.NewFromString(in.Cash)
		if err != nil {
			return nil, toStatus(model.Wrap(model.KindValidation, err, "cash"))
		}
	}
	a, err := s.ledger.OpenAccount(ctx, cash)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.AccountResponse{AccountId: a.ID, Cash: a.Cash.String()}, nil
}

// Buy executes a buy order
func (s *Server) Buy(ctx context.Context, in *protocol.OrderRequest) (*protocol.ExecutionResponse, error) {
	order, err := request.ParseOrder(in.AccountId, in.Symbol, in.Shares)
	if err != nil {
		return nil, toStatus(err)
	}
	exec, err := s.ledger.Buy(ctx, order.AccountID, order.Symbol, order.Shares)
	if err != nil {
		return nil, toStatus(err)
	}
	return executionResponse(exec), nil
}

// Sell executes a sell order
func (s *Server) Sell(ctx context.Context, in *protocol.OrderRequest) (*protocol.ExecutionResponse, error) {
	order, err := request.ParseOrder(in.AccountId, in.Symbol, in.Shares)
	if err != nil {
		return nil, toStatus(err)
	}
	exec, err := s.ledger.Sell(ctx, order.AccountID, order.Symbol, order.Shares)
	if err != nil {
		return nil, toStatus(err)
	}
	return executionResponse(exec), nil
}

// Quote looks up the current price of a symbol
func (s *Server) Quote(ctx context.Context, in *protocol.QuoteRequest) (*protocol.QuoteResponse, error) {
	q, err := s.ledger.Quote(ctx, in.Symbol)
	if err != nil {
		return nil, toStatus(err)
	}
	return &protocol.QuoteResponse{Symbol: q.Symbol, Name: q.Name, Price: q.Price.String()}, nil
}

// Portfolio values the holdings of an account
func (s *Server) Portfolio(ctx context.Context, in *protocol.AccountRequest) (*protocol.PortfolioResponse, error) {
	p, err := s.ledger.Portfolio(ctx, in.AccountId)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &protocol.PortfolioResponse{
		AccountId: p.AccountID,
		Lines:     make([]*protocol.PortfolioLine, 0, len(p.Lines)),
		Cash:      p.Cash.String(),
		NetWorth:  p.NetWorth.String(),
		Complete:  p.Complete,
	}
	for _, l := range p.Lines {
		line := &protocol.PortfolioLine{Symbol: l.Symbol, Name: l.Name, Shares: l.Shares, Priced: l.Priced, Stale: l.Stale}
		if l.Priced {
			line.Price = l.Price.String()
			line.Subtotal = l.Subtotal.String()
		}
		resp.Lines = append(resp.Lines, line)
	}
	return resp, nil
}

// History lists executed orders of an account
func (s *Server) History(ctx context.Context, in *protocol.AccountRequest) (*protocol.HistoryResponse, error) {
	h, err := s.ledger.History(ctx, in.AccountId)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &protocol.HistoryResponse{Transactions: make([]*protocol.Transaction, 0, len(h))}
	for i := range h {
		resp.Transactions = append(resp.Transactions, transaction(&h[i]))
	}
	return resp, nil
}

// Audit compares stored balances of an account with its replayed log
func (s *Server) Audit(ctx context.Context, in *protocol.AccountRequest) (*protocol.AuditResponse, error) {
	r, err := s.ledger.Audit(ctx, in.AccountId)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &protocol.AuditResponse{
		AccountId:    r.AccountID,
		Consistent:   r.Consistent(),
		Transactions: r.Transactions,
		StoredCash:   r.StoredCash.String(),
		ReplayedCash: r.ReplayedCash.String(),
		Violations:   r.Violations,
	}
	for _, h := range r.Holdings {
		resp.Holdings = append(resp.Holdings, &protocol.HoldingMismatch{Symbol: h.Symbol, Stored: h.Stored, Replayed: h.Replayed})
	}
	return resp, nil
}

func executionResponse(exec *model.Execution) *protocol.ExecutionResponse {
	return &protocol.ExecutionResponse{
		Transaction: transaction(&exec.Transaction),
		Cash:        exec.Cash.String(),
		Shares:      exec.Shares,
	}
}

func transaction(t *model.Transaction) *protocol.Transaction {
	return &protocol.Transaction{
		Id:         t.ID,
		AccountId:  t.AccountID,
		Symbol:     t.Symbol,
		Shares:     t.Shares,
		Price:      t.Price.String(),
		Side:       string(t.Side),
		ExecutedAt: t.ExecutedAt,
	}
}

var codeOf = map[model.Kind]codes.Code{
	model.KindValidation:         codes.InvalidArgument,
	model.KindUnknownSymbol:      codes.NotFound,
	model.KindAccountNotFound:    codes.NotFound,
	model.KindQuoteUnavailable:   codes.Unavailable,
	model.KindInsufficientFunds:  codes.FailedPrecondition,
	model.KindInsufficientShares: codes.FailedPrecondition,
	model.KindStore:              codes.Aborted,
}

func toStatus(err error) error {
	code, ok := codeOf[model.KindOf(err)]
	if !ok {
		log.Error(err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
