package protocol

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"context"
	"time"
)

// OpenAccountRequest opens an account; an empty Cash grants the configured default
type OpenAccountRequest struct {
	Cash string `json:"cash,omitempty"`
}

// AccountRequest addresses one account
type AccountRequest struct {
	AccountId int64 `json:"account_id"`
}

// AccountResponse describes an account
type AccountResponse struct {
	AccountId int64  `json:"account_id"`
	Cash      string `json:"cash"`
}

// OrderRequest buys or sells shares. Shares is the text typed by the user.
type OrderRequest struct {
	AccountId int64  `json:"account_id"`
	Symbol    string `json:"symbol"`
	Shares    string `json:"shares"`
}

// Transaction is one executed order
type Transaction struct {
	Id         string    `json:"id"`
	AccountId  int64     `json:"account_id"`
	Symbol     string    `json:"symbol"`
	Shares     int64     `json:"shares"`
	Price      string    `json:"price"`
	Side       string    `json:"side"`
	ExecutedAt time.Time `json:"executed_at"`
}

// ExecutionResponse is the outcome of a buy or sell
type ExecutionResponse struct {
	Transaction *Transaction `json:"transaction"`
	Cash        string       `json:"cash"`
	Shares      int64        `json:"shares"`
}

// QuoteRequest looks up a symbol
type QuoteRequest struct {
	Symbol string `json:"symbol"`
}

// QuoteResponse is a current quote
type QuoteResponse struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Price  string `json:"price"`
}

// PortfolioLine values one holding
type PortfolioLine struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Shares   int64  `json:"shares"`
	Price    string `json:"price,omitempty"`
	Subtotal string `json:"subtotal,omitempty"`
	Priced   bool   `json:"priced"`
	Stale    string `json:"stale,omitempty"`
}

// PortfolioResponse values an account
type PortfolioResponse struct {
	AccountId int64            `json:"account_id"`
	Lines     []*PortfolioLine `json:"lines"`
	Cash      string           `json:"cash"`
	NetWorth  string           `json:"net_worth"`
	Complete  bool             `json:"complete"`
}

// HistoryResponse lists executed orders, oldest first
type HistoryResponse struct {
	Transactions []*Transaction `json:"transactions"`
}

// HoldingMismatch is a holding that differs from the replayed log
type HoldingMismatch struct {
	Symbol   string `json:"symbol"`
	Stored   int64  `json:"stored"`
	Replayed int64  `json:"replayed"`
}

// AuditResponse compares stored balances with the replayed log
type AuditResponse struct {
	AccountId    int64              `json:"account_id"`
	Consistent   bool               `json:"consistent"`
	Transactions int                `json:"transactions"`
	StoredCash   string             `json:"stored_cash"`
	ReplayedCash string             `json:"replayed_cash"`
	Holdings     []*HoldingMismatch `json:"holdings,omitempty"`
	Violations   []string           `json:"violations,omitempty"`
}

// LedgerClient is the client API for the Ledger service
type LedgerClient interface {
	OpenAccount(ctx context.Context, in *OpenAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error)
	Buy(ctx context.Context, in *OrderRequest, opts ...grpc.CallOption) (*ExecutionResponse, error)
	Sell(ctx context.Context, in *OrderRequest, opts ...grpc.CallOption) (*ExecutionResponse, error)
	Quote(ctx context.Context, in *QuoteRequest, opts ...grpc.CallOption) (*QuoteResponse, error)
	Portfolio(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*PortfolioResponse, error)
	History(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*HistoryResponse, error)
	Audit(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AuditResponse, error)
}

type ledgerClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerClient is constructor
func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient {
	return &ledgerClient{cc}
}

func (c *ledgerClient) invoke(ctx context.Context, method string, in, out interface{}, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{CallOption()}, opts...)
	return c.cc.Invoke(ctx, "/protocol.Ledger/"+method, in, out, opts...)
}

func (c *ledgerClient) OpenAccount(ctx context.Context, in *OpenAccountRequest, opts ...grpc.CallOption) (*AccountResponse, error) {
	out := new(AccountResponse)
	if err := c.invoke(ctx, "OpenAccount", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Buy(ctx context.Context, in *OrderRequest, opts ...grpc.CallOption) (*ExecutionResponse, error) {
	out := new(ExecutionResponse)
	if err := c.invoke(ctx, "Buy", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Sell(ctx context.Context, in *OrderRequest, opts ...grpc.CallOption) (*ExecutionResponse, error) {
	out := new(ExecutionResponse)
	if err := c.invoke(ctx, "Sell", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Quote(ctx context.Context, in *QuoteRequest, opts ...grpc.CallOption) (*QuoteResponse, error) {
	out := new(QuoteResponse)
	if err := c.invoke(ctx, "Quote", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Portfolio(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*PortfolioResponse, error) {
	out := new(PortfolioResponse)
	if err := c.invoke(ctx, "Portfolio", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) History(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*HistoryResponse, error) {
	out := new(HistoryResponse)
	if err := c.invoke(ctx, "History", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Audit(ctx context.Context, in *AccountRequest, opts ...grpc.CallOption) (*AuditResponse, error) {
	out := new(AuditResponse)
	if err := c.invoke(ctx, "Audit", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// LedgerServer is the server API for the Ledger service
type LedgerServer interface {
	OpenAccount(context.Context, *OpenAccountRequest) (*AccountResponse, error)
	Buy(context.Context, *OrderRequest) (*ExecutionResponse, error)
	Sell(context.Context, *OrderRequest) (*ExecutionResponse, error)
	Quote(context.Context, *QuoteRequest) (*QuoteResponse, error)
	Portfolio(context.Context, *AccountRequest) (*PortfolioResponse, error)
	History(context.Context, *AccountRequest) (*HistoryResponse, error)
	Audit(context.Context, *AccountRequest) (*AuditResponse, error)
}

// UnimplementedLedgerServer can be embedded to have forward compatible implementations
type UnimplementedLedgerServer struct{}

func (UnimplementedLedgerServer) OpenAccount(context.Context, *OpenAccountRequest) (*AccountResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method OpenAccount not implemented")
}
func (UnimplementedLedgerServer) Buy(context.Context, *OrderRequest) (*ExecutionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Buy not implemented")
}
func (UnimplementedLedgerServer) Sell(context.Context, *OrderRequest) (*ExecutionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Sell not implemented")
}
func (UnimplementedLedgerServer) Quote(context.Context, *QuoteRequest) (*QuoteResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Quote not implemented")
}
func (UnimplementedLedgerServer) Portfolio(context.Context, *AccountRequest) (*PortfolioResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Portfolio not implemented")
}
func (UnimplementedLedgerServer) History(context.Context, *AccountRequest) (*HistoryResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method History not implemented")
}
func (UnimplementedLedgerServer) Audit(context.Context, *AccountRequest) (*AuditResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Audit not implemented")
}

// RegisterLedgerServer registers srv on s
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&Ledger_ServiceDesc, srv)
}

type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func unary[Req any, Resp any](method string, call func(LedgerServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	var h methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LedgerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/protocol.Ledger/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(LedgerServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
	return grpc.MethodDesc{MethodName: method, Handler: h}
}

// Ledger_ServiceDesc is the grpc.ServiceDesc for the Ledger service
var Ledger_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "protocol.Ledger",
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("OpenAccount", LedgerServer.OpenAccount),
		unary("Buy", LedgerServer.Buy),
		unary("Sell", LedgerServer.Sell),
		unary("Quote", LedgerServer.Quote),
		unary("Portfolio", LedgerServer.Portfolio),
		unary("History", LedgerServer.History),
		unary("Audit", LedgerServer.Audit),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "protocol/ledger.go",
}
