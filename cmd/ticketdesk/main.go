// ticketdesk is the operator front-end for the ticketing backend. It serves
// the event, ticket, organizer and admin screens to a local browser, keeps
// the operator's session in a local SQLite file, and optionally accepts scans
// from decoder devices over gRPC.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"ticketDesk/internal/backend"
	"ticketDesk/internal/config"
	"ticketDesk/internal/db"
	grpcserver "ticketDesk/internal/grpc"
	"ticketDesk/internal/logging"
	"ticketDesk/internal/screen"
	"ticketDesk/internal/session"
	"ticketDesk/internal/web"
	"ticketDesk/repository"
)

var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		addr       string
		dbPath     string
		dev        bool
		rollback   bool
	)
	flagSet := pflag.NewFlagSet("ticketdesk", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	flagSet.StringVar(&addr, "addr", "", "HTTP listen address (overrides http.address)")
	flagSet.StringVar(&dbPath, "db", "", "SQLite file for local state (overrides database.path)")
	flagSet.BoolVar(&dev, "dev", false, "fill in development defaults for missing secrets")
	flagSet.BoolVar(&rollback, "rollback", false, "roll back the latest local schema migration and exit")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println("ticketdesk", version)
		return nil
	}

	load := config.Load
	if dev {
		load = config.LoadWithDefaults
	}
	cfg, err := load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.HTTP.Address = addr
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger := logging.New(cfg.Logging, version)
	logger.Info("configuration loaded", "config", cfg.String())

	if rollback {
		return rollbackDB(cfg.Database.Path, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Error("close db", "error", err)
		}
	}()

	gate := session.NewGate(
		repository.NewClientStateRepository(d).Slot(repository.CredentialKey),
		session.WithLogger(logger),
	)
	gate.Initialize(ctx)

	api, err := backend.New(cfg.Backend.BaseURL, gate,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	screens := screen.NewTracker(ctx)
	defer screens.Close()

	site, err := web.New(web.Deps{
		Backend:        api,
		Session:        gate,
		Screens:        screens,
		Logger:         logger,
		ScanResetAfter: cfg.Scanner.ResetAfter,
		Version:        version,
	})
	if err != nil {
		return fmt.Errorf("web server: %w", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           site.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	var startFeed func() (func(context.Context) error, error)
	if cfg.GRPC.Address != "" {
		startFeed = func() (func(context.Context) error, error) {
			return grpcserver.StartGRPC(cfg, site, logger)
		}
	}
	return serve(ctx, httpSrv, startFeed, logger)
}

// serve runs the HTTP server and the optional scan feed until ctx ends or
// the HTTP server fails, then shuts both down. A listener failure is
// returned so the process exits non-zero.
func serve(ctx context.Context, httpSrv *http.Server, startFeed func() (func(context.Context) error, error), logger *logging.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var stopFeed func(context.Context) error
	if startFeed != nil {
		var err error
		stopFeed, err = startFeed()
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
				logger.Error("http shutdown", "error", serr)
			}
			return fmt.Errorf("start grpc: %w", err)
		}
		logger.Info("scan feed started")
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		logger.Error("http server", "error", err)
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if stopFeed != nil {
		if err := stopFeed(shutdownCtx); err != nil {
			logger.Error("grpc shutdown", "error", err)
		}
	}
	return runErr
}

func rollbackDB(path string, logger *logging.Logger) error {
	d, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer d.Close()
	if err := db.RollbackLast(d); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	logger.Info("rolled back latest migration", "path", path)
	return nil
}
