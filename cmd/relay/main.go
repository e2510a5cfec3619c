package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/config"
)

func main() {
	opts := parseCLIFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runRelay(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runRelay(ctx context.Context, opts runtimeOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Relay.Addr = opts.addr
	}

	logger := setupLogger(opts.debug)
	hub := bus.NewHub(cfg.HubOptions(), logger)

	if err := serve(ctx, logger, cfg.Relay.Addr, hub); err != nil && !eris.Is(err, context.Canceled) {
		logger.Error("relay failed", slog.Any("error", err))
		return err
	}
	return nil
}

func setupLogger(debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	return logger
}

func newMux(hub *bus.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("/health", hub.HandleHealth)
	return mux
}

func serve(ctx context.Context, logger *slog.Logger, addr string, hub *bus.Hub) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("relay listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrapf(err, "listen on %s", addr)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("relay shutdown incomplete", slog.Any("error", err))
		}
		stats := hub.Stats()
		logger.Info("relay stopped",
			slog.Uint64("relayed", stats.Relayed),
			slog.Uint64("dropped", stats.Dropped))
		return nil
	})

	return g.Wait()
}
