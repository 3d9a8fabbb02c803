// cmd/notifier/app.go
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"hiring-notifier/internal/common/aws"
	"hiring-notifier/internal/common/config"
	"hiring-notifier/internal/common/database"
	"hiring-notifier/internal/common/logger"
	"hiring-notifier/internal/common/observability"
	"hiring-notifier/internal/notification/dedup"
	"hiring-notifier/internal/notification/delivery"
	"hiring-notifier/internal/notification/dispatcher"
	"hiring-notifier/internal/notification/ledger"
	"hiring-notifier/internal/notification/templates"
)

// app holds the process-wide dependencies shared by serve and worker.
type app struct {
	cfg        *config.Config
	zap        *zap.Logger
	log        logger.Logger
	obs        *observability.Observability
	dispatcher *dispatcher.Dispatcher

	closers []func() error
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, logger.Logger, error) {
	zapLog, err := logger.New(logger.Options{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
	})
	if err != nil {
		return nil, nil, err
	}
	return zapLog, logger.NewZapAdapter(zapLog), nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	zapLog, log, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, zap: zapLog, log: log}

	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg

	serviceName := cfg.Tracing.ServiceName
	if serviceName == "" {
		serviceName = cfg.App.Name
	}
	obs, err := observability.New(observability.Options{
		ServiceName:    serviceName,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	a.obs = obs
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return obs.Shutdown(shutdownCtx)
	})

	resolver, err := templates.FromRegistryFile(cfg.Templates.RegistryPath)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}

	client, err := delivery.New(ctx, cfg.Delivery, a.log)
	if err != nil {
		return fmt.Errorf("init delivery client: %w", err)
	}

	var recorders []dispatcher.Recorder
	if cfg.Database.Postgres.Enabled() {
		l, err := a.openLedger(ctx)
		if err != nil {
			return err
		}
		recorders = append(recorders, l)
	}
	if arn := cfg.Notifications.SNS.TopicARN; arn != "" {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.SNS.Region)
		if err != nil {
			return fmt.Errorf("init SNS client: %w", err)
		}
		recorders = append(recorders, aws.NewSNSPublisher(snsClient, arn))
		a.log.Info("publishing outcomes to SNS", map[string]interface{}{"topicArn": arn})
	}

	d, err := dispatcher.New(dispatcher.Dependencies{
		Resolver:      resolver,
		Client:        client,
		Store:         a.dedupStore(ctx),
		Recorders:     recorders,
		Logger:        a.log,
		Observability: obs,
	}, dispatcher.ConfigFrom(cfg.Dispatch))
	if err != nil {
		return err
	}
	a.dispatcher = d

	a.log.Info("dispatcher ready", map[string]interface{}{
		"provider":    client.Name(),
		"maxAttempts": cfg.Dispatch.MaxAttempts,
		"recorders":   len(recorders),
	})
	return nil
}

// dedupStore returns a Redis store when an address is configured. An
// unreachable Redis is not fatal: the dispatcher fails open per request.
func (a *app) dedupStore(ctx context.Context) dedup.Store {
	redisCfg := a.cfg.Database.Redis
	if redisCfg.Address == "" {
		a.log.Info("using in-process dedup store", nil)
		return dedup.NewMemoryStore()
	}

	rc := database.NewRedis(redisCfg)
	a.closers = append(a.closers, rc.Close)
	if err := rc.Ping(ctx); err != nil {
		a.log.Warn("redis unreachable at startup", map[string]interface{}{
			"address": redisCfg.Address,
			"error":   err,
		})
	} else {
		a.log.Info("redis dedup store connected", map[string]interface{}{"address": redisCfg.Address})
	}
	return dedup.NewRedisStore(rc.Client)
}

func (a *app) openLedger(ctx context.Context) (*ledger.Ledger, error) {
	pg, err := connectPostgres(ctx, a.cfg.Database.Postgres, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pg.Close)

	l := ledger.New(pg.DB)
	if err := l.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	a.log.Info("notification log enabled", map[string]interface{}{"database": a.cfg.Database.Postgres.Database})
	return l, nil
}

// connectPostgres opens the pool and retries the first ping.
func connectPostgres(ctx context.Context, cfg config.PostgresConfig, log logger.Logger) (*database.PostgresClient, error) {
	pg, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, err
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, pg.Ping(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("postgres not ready; retrying", map[string]interface{}{"error": err, "retryIn": next.String()})
		}),
	)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("postgres connection failed after retries: %w", err)
	}
	return pg, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("shutdown step failed", map[string]interface{}{"error": err})
		}
	}
	a.closers = nil
	_ = a.zap.Sync()
}
