package cli

import (
	"github.com/chucky-1/stockledger/internal/grpc/server"
	"github.com/chucky-1/stockledger/protocol"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"context"
	"net"
	"os/signal"
	"syscall"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger gRPC service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	d, err := build(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer d.close()

	cash, err := a.cfg.Cash()
	if err != nil {
		return err
	}
	lis, err := net.Listen("tcp", a.cfg.LedgerAddr)
	if err != nil {
		return err
	}
	svc := newService(d, a.cfg)
	// runs before d.close, so pending events reach the writer before it is flushed
	defer svc.Wait()
	s := grpc.NewServer()
	protocol.RegisterLedgerServer(s, server.NewServer(svc, cash))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"addr": lis.Addr().String(), "store": a.cfg.Store}).Info("ledger listening")
		return s.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("ledger shutting down")
		s.GracefulStop()
		return nil
	})
	if d.feed != nil {
		g.Go(func() error {
			d.feed.Run(ctx)
			return nil
		})
	}
	return g.Wait()
}
