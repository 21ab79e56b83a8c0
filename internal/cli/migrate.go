package cli

import (
	"github.com/chucky-1/stockledger/internal/repository"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger tables in postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := connect(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err = repository.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			log.Info("schema is up to date")
			return nil
		},
	}
}
