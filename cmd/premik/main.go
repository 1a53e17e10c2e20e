package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/premik/internal/api"
	"github.com/erazemk/premik/internal/audit"
	"github.com/erazemk/premik/internal/clock"
	"github.com/erazemk/premik/internal/config"
	"github.com/erazemk/premik/internal/db"
	"github.com/erazemk/premik/internal/handoff"
	"github.com/erazemk/premik/internal/ids"
	"github.com/erazemk/premik/internal/ledger"
	"github.com/erazemk/premik/internal/loan"
	"github.com/erazemk/premik/internal/metrics"
	"github.com/erazemk/premik/internal/scheduler"
	"github.com/erazemk/premik/internal/store"
	"github.com/erazemk/premik/internal/transfer"
	"github.com/erazemk/premik/internal/workflow"
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

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
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

// loadConfig reads the config file (if any) and applies flags that were set
// explicitly on the command line.
func loadConfig(fs *flag.FlagSet, configPath, dbPath, addr, logPath string) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d", "db":
			cfg.DBPath = dbPath
		case "a", "addr":
			cfg.Addr = addr
		case "l", "log":
			cfg.LogPath = logPath
		}
	})
	return cfg, cfg.Validate()
}

func main() {
	fs := flag.NewFlagSet("premik", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "premik.sqlite3", "")
	fs.StringVar(&dbPath, "d", "premik.sqlite3", "")

	var addr string
	fs.StringVar(&addr, "addr", ":8080", "")
	fs.StringVar(&addr, "a", ":8080", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: premik [flags]

Flags:
  -c, -config <path>      YAML config file (default: none, built-in defaults)
  -d, -db <path>          SQLite database path (default: premik.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Flags override values from the config file.
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

	cfg, err := loadConfig(fs, configPath, dbPath, addr, logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
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

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	slog.Info("database ready", "path", cfg.DBPath)

	// Handoff secret from the config file, otherwise generated on first run
	// and kept in the database.
	secret := cfg.HandoffSecret
	if secret == "" {
		secret, err = store.GetHandoffSecret(context.Background(), database)
		if err != nil {
			slog.Error("failed to get handoff secret", "error", err)
			os.Exit(1)
		}
	}

	codec, err := handoff.NewCodec(secret)
	if err != nil {
		slog.Error("failed to set up handoff tokens", "error", err)
		os.Exit(1)
	}

	c := clock.Real{}
	gen := ids.NewULID()
	m := metrics.New()
	deps := workflow.Deps{
		DB:      database,
		Ledger:  ledger.New(c, gen),
		Tokens:  handoff.NewRegistry(codec, c),
		Audit:   audit.New(c, gen),
		Metrics: m,
		Clock:   c,
		IDs:     gen,
	}
	transfers := transfer.NewService(deps)
	loans := loan.NewService(deps, cfg.DueSoonWindow)

	sched := scheduler.New(loans)
	if err := sched.Start(cfg.SweepSchedule); err != nil {
		slog.Error("failed to start overdue sweep", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.Deps{
		DB:        database,
		Transfers: transfers,
		Loans:     loans,
		Ledger:    deps.Ledger,
		Audit:     deps.Audit,
		Clock:     c,
		Metrics:   m,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(m, router),
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

		sched.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "sweep", cfg.SweepSchedule)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}
