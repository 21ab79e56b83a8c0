package server

import (
	"github.com/chucky-1/stockledger/internal/quote"
	"github.com/chucky-1/stockledger/internal/repository"
	"github.com/chucky-1/stockledger/internal/service"
	"github.com/chucky-1/stockledger/protocol"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"context"
	"errors"
	"net"
	"testing"
)

func dialLedger(t *testing.T, ledger Ledger) protocol.LedgerClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	protocol.RegisterLedgerServer(s, NewServer(ledger, decimal.RequireFromString("10000.00")))
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithInsecure())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return protocol.NewLedgerClient(conn)
}

func newLedger(t *testing.T) *service.Service {
	t.Helper()
	static, err := quote.NewStatic(map[string]string{"AAPL": "100", "MSFT": "250"})
	require.NoError(t, err)
	return service.NewService(repository.NewMemory(), static)
}

func TestServer_Orders(t *testing.T) {
	ctx := context.Background()
	client := dialLedger(t, newLedger(t))

	acc, err := client.OpenAccount(ctx, &protocol.OpenAccountRequest{})
	require.NoError(t, err)
	assert.Equal(t, "10000", acc.Cash)

	exec, err := client.Buy(ctx, &protocol.OrderRequest{AccountId: acc.AccountId, Symbol: "aapl", Shares: " 10 "})
	require.NoError(t, err)
	assert.Equal(t, "9000", exec.Cash)
	assert.Equal(t, int64(10), exec.Shares)
	assert.Equal(t, "BUY", exec.Transaction.Side)
	assert.Equal(t, "100", exec.Transaction.Price)
	assert.NotEmpty(t, exec.Transaction.Id)

	exec, err = client.Sell(ctx, &protocol.OrderRequest{AccountId: acc.AccountId, Symbol: "AAPL", Shares: "4"})
	require.NoError(t, err)
	assert.Equal(t, "9400", exec.Cash)
	assert.Equal(t, int64(6), exec.Shares)

	p, err := client.Portfolio(ctx, &protocol.AccountRequest{AccountId: acc.AccountId})
	require.NoError(t, err)
	require.Len(t, p.Lines, 1)
	assert.Equal(t, "600", p.Lines[0].Subtotal)
	assert.Equal(t, "10000", p.NetWorth)
	assert.True(t, p.Complete)

	h, err := client.History(ctx, &protocol.AccountRequest{AccountId: acc.AccountId})
	require.NoError(t, err)
	require.Len(t, h.Transactions, 2)
	assert.Equal(t, "SELL", h.Transactions[1].Side)
	assert.False(t, h.Transactions[0].ExecutedAt.IsZero())

	a, err := client.Audit(ctx, &protocol.AccountRequest{AccountId: acc.AccountId})
	require.NoError(t, err)
	assert.True(t, a.Consistent)
	assert.Equal(t, 2, a.Transactions)

	q, err := client.Quote(ctx, &protocol.QuoteRequest{Symbol: "msft"})
	require.NoError(t, err)
	assert.Equal(t, "250", q.Price)
}

func TestServer_Codes(t *testing.T) {
	ctx := context.Background()
	client := dialLedger(t, newLedger(t))
	acc, err := client.OpenAccount(ctx, &protocol.OpenAccountRequest{Cash: "150"})
	require.NoError(t, err)
	id := acc.AccountId

	testTable := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{name: "Failed if shares is not a number", code: codes.InvalidArgument, call: func() error {
			_, err := client.Buy(ctx, &protocol.OrderRequest{AccountId: id, Symbol: "AAPL", Shares: "1.5"})
			return err
		}},
		{name: "Failed if shares is zero", code: codes.InvalidArgument, call: func() error {
			_, err := client.Sell(ctx, &protocol.OrderRequest{AccountId: id, Symbol: "AAPL", Shares: "0"})
			return err
		}},
		{name: "Failed if cash is not a number", code: codes.InvalidArgument, call: func() error {
			_, err := client.OpenAccount(ctx, &protocol.OpenAccountRequest{Cash: "lots"})
			return err
		}},
		{name: "Failed if cash is short", code: codes.FailedPrecondition, call: func() error {
			_, err := client.Buy(ctx, &protocol.OrderRequest{AccountId: id, Symbol: "AAPL", Shares: "2"})
			return err
		}},
		{name: "Failed if holding is short", code: codes.FailedPrecondition, call: func() error {
			_, err := client.Sell(ctx, &protocol.OrderRequest{AccountId: id, Symbol: "AAPL", Shares: "1"})
			return err
		}},
		{name: "Failed if symbol is unknown", code: codes.NotFound, call: func() error {
			_, err := client.Quote(ctx, &protocol.QuoteRequest{Symbol: "NOPE"})
			return err
		}},
		{name: "Failed if account is unknown", code: codes.NotFound, call: func() error {
			_, err := client.Portfolio(ctx, &protocol.AccountRequest{AccountId: id + 100})
			return err
		}},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			err := testCase.call()
			assert.Equal(t, testCase.code, status.Code(err), "got %v", err)
		})
	}
}

func TestToStatus(t *testing.T) {
	assert.Equal(t, codes.Internal, status.Code(toStatus(errors.New("boom"))))
}
