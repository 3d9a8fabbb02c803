// cmd/notifier/worker.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"hiring-notifier/internal/common/camunda"
	"hiring-notifier/internal/common/config"
	sn "hiring-notifier/internal/workers/application/send-notification"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the send-notification Zeebe job worker",
	RunE:  runWorker,
}

func init() {
	workerCmd.Flags().String("metrics-addr", ":9090", "address for /health and /metrics; empty disables")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runJobWorker(ctx, a) })
	if metricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, metricsAddr) })
	}
	return g.Wait()
}

// runJobWorker connects to the gateway and processes send-notification jobs
// until ctx is canceled.
func runJobWorker(ctx context.Context, a *app) error {
	if !config.IsWorkerEnabled(a.cfg, sn.TaskType) {
		a.log.Info("worker disabled", map[string]interface{}{"taskType": sn.TaskType})
		<-ctx.Done()
		return nil
	}

	client, err := camunda.NewClient(ctx, a.cfg.Camunda.BrokerAddress)
	if err != nil {
		return err
	}
	defer client.Close()

	wcfg := sn.LoadConfig(a.cfg)
	handler := sn.NewHandler(wcfg, a.dispatcher, a.log)
	w := camunda.NewWorker(client.GetClient(), camunda.WorkerOptions{
		TaskType:      sn.TaskType,
		Name:          a.cfg.App.Name,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       wcfg.Timeout,
	}, handler, a.log)

	<-ctx.Done()
	w.Stop()
	return nil
}

func serveMetrics(ctx context.Context, addr string) error {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
