package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/example/conference-central/internal/application"
	"github.com/example/conference-central/internal/cache"
	"github.com/example/conference-central/internal/config"
	httptransport "github.com/example/conference-central/internal/http"
	"github.com/example/conference-central/internal/persistence/sqlite"
	"github.com/example/conference-central/internal/tasks"
	"github.com/example/conference-central/internal/telemetry"
)

const serviceName = "conference-central"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// options holds command-line overrides. Empty or zero values leave the
// loaded configuration untouched.
type options struct {
	port       int
	dbPath     string
	configFile string
	logLevel   string
}

func parseOptions(args []string, output io.Writer) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.IntVar(&opts.port, "port", 0, "HTTP listen port (overrides CONFERENCE_HTTP_PORT)")
	flagSet.StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides CONFERENCE_SQLITE_DSN)")
	flagSet.StringVar(&opts.configFile, "config", "", "YAML configuration file (overrides CONFERENCE_CONFIG_FILE)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, nil
}

func loadConfig(opts options) (config.Config, error) {
	path := strings.TrimSpace(opts.configFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.EnvConfigFile))
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return config.Config{}, err
	}

	if opts.port != 0 {
		if opts.port < 0 || opts.port > 65535 {
			return config.Config{}, fmt.Errorf("invalid --port value: %d", opts.port)
		}
		cfg.HTTPPort = opts.port
	}
	if path := strings.TrimSpace(opts.dbPath); path != "" {
		cfg.SQLiteDSN = path
	}
	if level := strings.TrimSpace(opts.logLevel); level != "" {
		if _, err := parseLevel(level); err != nil {
			return config.Config{}, err
		}
		cfg.LogLevel = strings.ToLower(level)
	}
	return cfg, nil
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", value)
	}
	return level, nil
}

func newLogger(w io.Writer, levelName string) *slog.Logger {
	level, err := parseLevel(levelName)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})).With("service", serviceName)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseOptions(args, os.Stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := newLogger(stdout, cfg.LogLevel)

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	store, err := sqlite.Open(sqlite.DefaultConfig(cfg.SQLiteDSN), sqlite.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	app, err := newApp(cfg, store, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("conference API listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return app.worker.Run(groupCtx)
	})
	group.Go(func() error {
		return refreshAnnouncements(groupCtx, app.conferences, cfg.AnnouncementInterval, logger)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("conference API stopped")
	return nil
}

type app struct {
	handler     http.Handler
	worker      *tasks.Worker
	conferences *application.ConferenceService
}

// newApp wires the services, the task worker and the HTTP surface on top of
// an opened store.
func newApp(cfg config.Config, store *sqlite.Store, logger *slog.Logger) (*app, error) {
	authority, err := httptransport.NewTokenAuthority(cfg.TokenSecret, cfg.TokenIssuer)
	if err != nil {
		return nil, fmt.Errorf("configure tokens: %w", err)
	}
	announcements, err := cache.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	entities := newStoreAdapter(store)
	dispatcher := tasks.NewDispatcher(store.Tasks(), tasks.WithDispatcherLogger(logger))

	profiles := application.NewProfileServiceWithLogger(entities, logger)
	conferences := application.NewConferenceServiceWithLogger(entities, announcements, dispatcher, logger)
	sessions := application.NewSessionServiceWithLogger(entities, announcements, dispatcher, logger)
	evaluator := application.NewFeaturedSpeakerEvaluator(entities.Sessions(), announcements, logger)

	worker := tasks.NewWorker(store.Tasks(), map[string]tasks.Handler{
		application.TaskSendConfirmationEmail: tasks.ConfirmationEmailHandler(tasks.LogMailer{Logger: logger}),
		application.TaskSetFeaturedSpeaker:    tasks.FeaturedSpeakerHandler(evaluator),
	}, tasks.Config{
		PollInterval: cfg.TaskPollInterval,
		MaxAttempts:  cfg.TaskMaxAttempts,
	}, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Conferences: httptransport.NewConferenceHandler(conferences, logger),
		Sessions:    httptransport.NewSessionHandler(sessions, logger),
		Profiles:    httptransport.NewProfileHandler(profiles, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.Authenticate(authority, logger),
		},
	})

	return &app{handler: handler, worker: worker, conferences: conferences}, nil
}

// refreshAnnouncements recomputes the nearly-sold-out announcement at start
// and then on every tick until ctx is done.
func refreshAnnouncements(ctx context.Context, conferences *application.ConferenceService, interval time.Duration, logger *slog.Logger) error {
	if interval <= 0 {
		interval = time.Hour
	}
	refresh := func() {
		if _, err := conferences.RefreshAnnouncement(ctx); err != nil && ctx.Err() == nil {
			logger.WarnContext(ctx, "announcement refresh failed", "error", err)
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			refresh()
		}
	}
}
