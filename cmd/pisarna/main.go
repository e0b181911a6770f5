package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/erazemk/pisarna/internal/accounts"
	"github.com/erazemk/pisarna/internal/api"
	"github.com/erazemk/pisarna/internal/auth"
	"github.com/erazemk/pisarna/internal/catalog"
	"github.com/erazemk/pisarna/internal/config"
	"github.com/erazemk/pisarna/internal/db"
	"github.com/erazemk/pisarna/internal/metrics"
	"github.com/erazemk/pisarna/internal/seed"
	"github.com/erazemk/pisarna/internal/store"
	"github.com/erazemk/pisarna/internal/workflow"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. If logPath is non-empty, all
// levels are also appended to that file. The returned cleanup closes it.
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fs := flag.NewFlagSet("pisarna", flag.ContinueOnError)

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fs.StringVar(&cfg.AdminName, "user", cfg.AdminName, "")
	fs.StringVar(&cfg.AdminName, "u", cfg.AdminName, "")
	fs.StringVar(&cfg.AdminEmail, "email", cfg.AdminEmail, "")
	fs.StringVar(&cfg.AdminEmail, "e", cfg.AdminEmail, "")
	fs.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fs.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")
	fs.BoolVar(&cfg.Seed, "seed", cfg.Seed, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: pisarna [flags]

Flags:
  -d, -db <path>          SQLite database path (default: pisarna.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin name on first run (default: Admin)
  -e, -email <address>    admin email on first run (default: admin@pisarna.local)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -seed                   load the master catalog into an empty database (default: true)
  -h, -help               show this help and exit

Every flag can also be set with a PISARNA_ environment variable or in .env.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.DBPath)

	res, err := seed.Run(ctx, database, seed.Options{
		AdminName:  cfg.AdminName,
		AdminEmail: cfg.AdminEmail,
		Catalog:    cfg.Seed,
	})
	if err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}
	if res.AdminCreated() {
		printAdmin(res)
	}
	if res.ItemsInserted > 0 {
		slog.Info("master catalog loaded", "items", res.ItemsInserted)
	}

	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	handler := api.NewRouter(api.Deps{
		DB:       database,
		Tokens:   auth.NewTokens(secret, cfg.TokenTTL),
		Accounts: accounts.New(database),
		Catalog:  catalog.New(database),
		Workflow: workflow.New(database, m),
		Metrics:  m,
		Gatherer: reg,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	if n, err := store.PruneRevokedTokens(ctx, database, time.Now()); err != nil {
		slog.Error("pruning revoked tokens", "error", err)
	} else if n > 0 {
		slog.Info("pruned revoked tokens", "count", n)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// printAdmin prints the first-run admin credentials to stdout.
func printAdmin(res *seed.Result) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", res.AdminEmail)
	fmt.Printf("  Password: %s\n", res.AdminPassword)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
}
