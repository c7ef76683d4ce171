package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/pushcast/internal/admin"
	"github.com/pscheid92/pushcast/internal/broadcast"
	apperrors "github.com/pscheid92/pushcast/internal/errors"
	"github.com/pscheid92/pushcast/internal/platform/config"
	"github.com/pscheid92/pushcast/internal/platform/logging"
	"github.com/pscheid92/pushcast/internal/platform/version"
	"github.com/pscheid92/pushcast/internal/server"
	"github.com/pscheid92/pushcast/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

// run wires the process and blocks until ctx is cancelled. The return value is the exit code.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	port, err := config.ParseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, config.Usage)
		fmt.Fprintln(stderr, err)
		return apperrors.ExitCode(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return apperrors.ExitCode(err)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", append(version.Get().LogAttrs(), "port", port)...)

	clock := clockwork.NewRealClock()
	registry := session.NewRegistry()

	acceptor := server.NewAcceptor(registry, acceptorConfig(cfg, port), clock)
	if err := acceptor.Listen(ctx); err != nil {
		slog.Error("Failed to bind", "error", err)
		fmt.Fprintln(stderr, err)
		return apperrors.ExitCode(err)
	}

	worker := broadcast.NewWorker(registry, broadcast.Fixed(broadcast.DefaultPayload()), clock, cfg.TickInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return acceptor.Serve(gctx) })
	g.Go(func() error { return worker.Run(gctx) })
	if cfg.MetricsAddr != "" {
		adminSrv := admin.NewServer(cfg.MetricsAddr, registry)
		g.Go(func() error { return adminSrv.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		return apperrors.ExitCode(err)
	}

	slog.Info("Shutdown complete", "ticks", worker.Ticks(), "sends", worker.Sends())
	return 0
}

func acceptorConfig(cfg *config.Config, port int) server.Config {
	var handler session.Handler
	if cfg.Echo {
		handler = session.Echo
	}

	return server.Config{
		Port: port,
		Session: session.Options{
			ReadBufferSize: cfg.ReadBufferSize,
			WriteTimeout:   cfg.WriteTimeout,
			ReadTimeout:    cfg.ReadTimeout,
			Handler:        handler,
		},
		Limits: server.Limits{
			MaxConnections:      cfg.MaxConnections,
			MaxConnectionsPerIP: cfg.MaxConnectionsPerIP,
			ConnectionRate:      cfg.ConnectionRate,
			ConnectionBurst:     cfg.ConnectionBurst,
		},
		TCPUserTimeout: cfg.TCPUserTimeout,
	}
}
