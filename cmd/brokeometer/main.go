package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"brokeometer/internal/amqp"
	"brokeometer/internal/backend"
	"brokeometer/internal/budget"
	"brokeometer/internal/cache"
	"brokeometer/internal/cli"
	apphttp "brokeometer/internal/http"
	"brokeometer/internal/insight"
	"brokeometer/internal/log"
	"brokeometer/internal/services"
	"brokeometer/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Logger)
	factory := backend.NewFactory(logger, janitor)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	// Clients built here keep this context for token refreshes.
	startCtx := context.Background()

	res := cli.InitStore(startCtx, logger, factory, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close record store", log.FieldError, err)
		}
	}()

	manager := budget.NewManager(res.Store, budget.WithLogger(logger))
	if err := manager.Load(startCtx); err != nil {
		logger.Error("Failed to load budget state", log.FieldError, err)
		os.Exit(1)
	}

	// With a broker the worker process owns mirroring and insight
	// generation; without one both run here.
	var (
		publisher  services.Publisher
		requester  insight.Requester
		refresher  *insight.AsyncRefresher
		sheets     *worker.SheetsWorker
		amqpClient *amqp.Client
	)
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, expense mirroring and insights disabled", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			if cfg.InsightsEnabled() {
				requester = amqpClient
			}
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		gen, err := factory.CreateGenerator(startCtx, bcfg)
		if err != nil {
			logger.Error("Failed to initialize insight generator", log.FieldError, err)
			os.Exit(1)
		}
		if gen != nil {
			refresher = insight.NewAsyncRefresher(insight.NewService(res.Store, gen, logger), cfg.InsightTimeout)
			requester = refresher
			logger.Info("Insights generated in-process", "model", cfg.GeminiModel)
		}

		mirror, err := factory.CreateMirror(startCtx, bcfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err)
			os.Exit(1)
		}
		if mirror != nil {
			sheets = worker.NewSheetsWorker(mirror, res.Store, logger)
		}
	}

	tracker := services.NewTracker(manager, publisher, requester, logger)
	srv := apphttp.NewServer(apphttp.Config{
		Addr:               net.JoinHostPort("", cfg.Port),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, tracker, res.Store, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if refresher != nil {
			refresher.Wait()
		}
	})

	janitor.Start(ctx, janitorInterval)
	defer janitor.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting brokeometer server", "port", cfg.Port, "backend", cfg.DataBackend, "mode", manager.Mode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sheets != nil {
		g.Go(func() error {
			err := sheets.RunReconcile(gctx, cfg.ReconcileInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
