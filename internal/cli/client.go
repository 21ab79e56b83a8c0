package cli

import (
	"github.com/chucky-1/stockledger/protocol"
	"github.com/spf13/cobra"

	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"
)

// withLedger runs fn with a client of the ledger service
func (a *app) withLedger(cmd *cobra.Command, fn func(ctx context.Context, client protocol.LedgerClient) error) error {
	client, closeConn, err := dialLedger(cmd.Context(), a.cfg)
	if err != nil {
		return fmt.Errorf("dial ledger at %s: %w", a.cfg.LedgerAddr, err)
	}
	defer closeConn()
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	return fn(ctx, client)
}

func parseAccount(text string) (int64, error) {
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("account must be a positive number, got %q", text)
	}
	return id, nil
}

func newOpenCmd(a *app) *cobra.Command {
	var cash string
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open an account funded with the initial cash grant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd, func(ctx context.Context, client protocol.LedgerClient) error {
				acc, err := client.OpenAccount(ctx, &protocol.OpenAccountRequest{Cash: cash})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "account %d opened with %s\n", acc.AccountId, usdText(acc.Cash))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cash, "cash", "", "initial cash (default INITIAL_CASH of the service)")
	return cmd
}

func newOrderCmd(a *app, side string) *cobra.Command {
	return &cobra.Command{
		Use:   side + " ACCOUNT SYMBOL SHARES",
		Short: "Execute a " + side + " order at the current price",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			in := &protocol.OrderRequest{AccountId: id, Symbol: args[1], Shares: args[2]}
			return a.withLedger(cmd, func(ctx context.Context, client protocol.LedgerClient) error {
				call := client.Buy
				if side == "sell" {
					call = client.Sell
				}
				exec, err := call(ctx, in)
				if err != nil {
					return err
				}
				t := exec.Transaction
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s at %s: cash %s, holding %d\n",
					t.Side, t.Shares, t.Symbol, usdText(t.Price), usdText(exec.Cash), exec.Shares)
				return nil
			})
		},
	}
}

func newQuoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL",
		Short: "Look up the current price of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLedger(cmd, func(ctx context.Context, client protocol.LedgerClient) error {
				q, err := client.Quote(ctx, &protocol.QuoteRequest{Symbol: args[0]})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "A share of %s (%s) costs %s.\n", q.Name, q.Symbol, usdText(q.Price))
				return nil
			})
		},
	}
}

func newPortfolioCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio ACCOUNT",
		Short: "Value the holdings of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, client protocol.LedgerClient) error {
				p, err := client.Portfolio(ctx, &protocol.AccountRequest{AccountId: id})
				if err != nil {
					return err
				}
				return printPortfolio(cmd.OutOrStdout(), p)
			})
		},
	}
}

func printPortfolio(out io.Writer, p *protocol.PortfolioResponse) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tSHARES\tPRICE\tTOTAL")
	for _, l := range p.Lines {
		if !l.Priced {
			fmt.Fprintf(w, "%s\t\t%d\tunpriced\t%s\n", l.Symbol, l.Shares, l.Stale)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", l.Symbol, l.Name, l.Shares, usdText(l.Price), usdText(l.Subtotal))
	}
	fmt.Fprintf(w, "CASH\t\t\t\t%s\n", usdText(p.Cash))
	total := usdText(p.NetWorth)
	if !p.Complete {
		total += " (incomplete)"
	}
	fmt.Fprintf(w, "TOTAL\t\t\t\t%s\n", total)
	return w.Flush()
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history ACCOUNT",
		Short: "List executed orders of an account, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, client protocol.LedgerClient) error {
				h, err := client.History(ctx, &protocol.AccountRequest{AccountId: id})
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tSIDE\tSYMBOL\tSHARES\tPRICE")
				for _, t := range h.Transactions {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
						t.ExecutedAt.Format(time.RFC3339), t.Side, t.Symbol, t.Shares, usdText(t.Price))
				}
				return w.Flush()
			})
		},
	}
}

func newAuditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "audit ACCOUNT",
		Short: "Replay the transaction log of an account and compare it with its balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAccount(args[0])
			if err != nil {
				return err
			}
			return a.withLedger(cmd, func(ctx context.Context, client protocol.LedgerClient) error {
				r, err := client.Audit(ctx, &protocol.AccountRequest{AccountId: id})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%d transactions, stored cash %s, replayed cash %s\n",
					r.Transactions, usdText(r.StoredCash), usdText(r.ReplayedCash))
				for _, h := range r.Holdings {
					fmt.Fprintf(out, "holding %s: stored %d, replayed %d\n", h.Symbol, h.Stored, h.Replayed)
				}
				for _, v := range r.Violations {
					fmt.Fprintln(out, "violation:", v)
				}
				if !r.Consistent {
					return fmt.Errorf("account %d is inconsistent", id)
				}
				fmt.Fprintln(out, "consistent")
				return nil
			})
		},
	}
}
