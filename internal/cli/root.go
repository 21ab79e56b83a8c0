// Package cli has the command tree of the ledger binary
package cli

import (
	"github.com/chucky-1/stockledger/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fmt"
)

type app struct {
	cfg *config.Config
}

// NewRoot builds the command tree
func NewRoot() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "stockledger",
		Short: "Paper trading ledger: accounts, cash, holdings and an append-only transaction log",
		Long: `stockledger keeps cash and share holdings of paper trading accounts.

Orders are priced from a quote provider and executed atomically per account.
Run "stockledger serve" for the gRPC ledger service; the other commands are its clients.
Configuration is read from the environment.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			a.cfg = cfg
			return setupLogging(cfg)
		},
	}

	account := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	account.AddCommand(newOpenCmd(a))

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		account,
		newOrderCmd(a, "buy"),
		newOrderCmd(a, "sell"),
		newQuoteCmd(a),
		newPortfolioCmd(a),
		newHistoryCmd(a),
		newAuditCmd(a),
	)
	return root
}

// Execute runs the command tree
func Execute() error {
	return NewRoot().Execute()
}

func setupLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
