package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/config"
	"github.com/cybre/backdrop-sync/internal/ui"
)

func main() {
	opts := parseCLIFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runController(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runController(ctx context.Context, opts runtimeOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.relayURL != "" {
		cfg.Bus.URL = opts.relayURL
	}

	interactive := opts.send == ""
	logger := setupLogger(opts.debug, interactive)

	client, err := bus.NewClient(cfg.ClientOptions(bus.RoleController), logger)
	if err != nil {
		return err
	}

	if !interactive {
		return sendOnce(ctx, logger, client, opts)
	}

	if err := run(ctx, client, buildRemoteConfig(cfg, client)); err != nil && !eris.Is(err, context.Canceled) {
		if eris.Is(err, ui.ErrNoInteractiveTTY) {
			return eris.Wrap(err, "the remote pad needs a terminal; use -send for scripted control")
		}
		logger.Error("controller failed", slog.Any("error", err))
		return err
	}
	return nil
}

func setupLogger(debug, tui bool) *slog.Logger {
	logOutput := os.Stdout
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	if tui && !debug {
		logLevel = slog.LevelWarn
	}
	if tui {
		logOutput = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	return logger
}

func run(ctx context.Context, client *bus.Client, remote ui.RemoteConfig) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(loopCtx)

	g.Go(func() error {
		return client.Run(gctx)
	})

	g.Go(func() error {
		defer cancel()
		return ui.RunRemote(gctx, client, remote)
	})

	if err := g.Wait(); err != nil {
		if eris.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}

func sendOnce(ctx context.Context, logger *slog.Logger, client *bus.Client, opts runtimeOptions) error {
	kind, payload, err := parseSend(opts.send)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, opts.sendTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Run(sendCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for !client.Connected() {
		select {
		case <-sendCtx.Done():
			return eris.Wrap(sendCtx.Err(), "relay not reachable")
		case <-ticker.C:
		}
	}

	if err := client.Publish(sendCtx, kind, payload); err != nil {
		return err
	}
	logger.Info("event sent", slog.String("kind", kind))
	return nil
}
