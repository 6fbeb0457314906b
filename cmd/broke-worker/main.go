package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"brokeometer/internal/amqp"
	"brokeometer/internal/backend"
	"brokeometer/internal/cache"
	"brokeometer/internal/cli"
	"brokeometer/internal/insight"
	"brokeometer/internal/log"
	"brokeometer/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting broke-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to run the worker")
		os.Exit(1)
	}

	janitor := cache.NewJanitor(logger.WithComponent(log.ComponentCache).Logger)
	factory := backend.NewFactory(logger, janitor)
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	startCtx := context.Background()
	res := cli.InitStore(startCtx, logger, factory, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close record store", log.FieldError, err)
		}
	}()

	d := &worker.Dispatcher{Logger: logger}

	gen, err := factory.CreateGenerator(startCtx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize insight generator", log.FieldError, err)
		os.Exit(1)
	}
	if gen != nil {
		d.Insights = worker.NewInsightWorker(insight.NewService(res.Store, gen, logger), logger)
		logger.Info("Insight generation enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("Insight generation disabled - no GEMINI_API_KEY provided")
	}

	mirror, err := factory.CreateMirror(startCtx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets mirror", log.FieldError, err)
		os.Exit(1)
	}
	if mirror != nil {
		d.Sheets = worker.NewSheetsWorker(mirror, res.Store, logger)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)
	janitor.Start(ctx, janitorInterval)
	defer janitor.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, d.Handle)
	})
	if d.Sheets != nil {
		// Catches rows whose sync or delete message was lost.
		g.Go(func() error {
			return d.Sheets.RunReconcile(gctx, cfg.ReconcileInterval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
