// cmd/notifier/serve.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hiring-notifier/internal/common/config"
	"hiring-notifier/internal/ingress"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP notification endpoint",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP port (overrides server.port)")
	serveCmd.Flags().Bool("with-worker", false, "also run the send-notification Zeebe worker")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	withWorker, _ := cmd.Flags().GetBool("with-worker")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := ingress.NewHandler(a.dispatcher, config.GetDuration(cfg.Server.RequestTimeout), a.log)
	srv := ingress.New(cfg.Server, handler, a.log)

	a.log.Info("notification endpoint ready", map[string]interface{}{
		"addr": cfg.Server.Addr(),
		"path": cfg.Server.EndpointPath,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if withWorker {
		g.Go(func() error { return runJobWorker(ctx, a) })
	}
	return g.Wait()
}
