package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"brokeometer/internal/amqp"
	"brokeometer/internal/budget"
	"brokeometer/internal/cli"
	"brokeometer/internal/config"
	"brokeometer/internal/log"
	"brokeometer/internal/services"
	"brokeometer/internal/storage"
)

var (
	flagDBPath    string
	flagVerbose   bool
	flagNoPublish bool
)

var rootCmd = &cobra.Command{
	Use:           "brokectl",
	Short:         "Student budget tracker CLI",
	Long:          "Inspect spending, record expenses and manage weekly limits of a broke-o-meter database.",
	RunE:          runStatus,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "  Error:", err)
		os.Exit(1)
	}
}

func init() {
	cli.LoadEnvFile()

	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "SQLite database path (default $SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&flagNoPublish, "no-publish", false, "Do not notify the worker of changes")
}

// session is an opened database plus the tracker that works on it.
type session struct {
	cfg     *config.Config
	store   storage.RecordStore
	tracker *services.Tracker
	logger  *log.Logger
	closers []func() error
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Warn("Close failed", log.FieldError, err)
		}
	}
}

// openSession loads the records and, when a broker is configured, publishes
// changes so the worker mirrors them and refreshes insights.
func openSession(ctx context.Context) (*session, error) {
	level := "warn"
	if flagVerbose {
		level = "debug"
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentCLI,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)

	cfg := config.Load()
	cfg.DataBackend = config.BackendSQLite
	if flagDBPath != "" {
		cfg.SQLiteDBPath = flagDBPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.SQLiteDBPath, err)
	}
	s := &session{cfg: cfg, store: store, logger: logger, closers: []func() error{store.Close}}

	m := budget.NewManager(store, budget.WithLogger(logger))
	if err := m.Load(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("load budget: %w", err)
	}

	var publisher services.Publisher
	var requester *amqp.Client
	if cfg.AMQPEnabled() && !flagNoPublish {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, changes will not be published", log.FieldError, err)
		} else {
			s.closers = append(s.closers, client.Close)
			publisher = client
			if cfg.InsightsEnabled() {
				requester = client
			}
		}
	}

	if requester != nil {
		s.tracker = services.NewTracker(m, publisher, requester, logger)
	} else {
		s.tracker = services.NewTracker(m, publisher, nil, logger)
	}
	return s, nil
}

// commandContext bounds a single command run.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

// withSession opens a session, runs fn and closes it.
func withSession(fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := commandContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}
