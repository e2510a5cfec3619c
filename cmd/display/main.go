package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/config"
	"github.com/cybre/backdrop-sync/internal/scene"
	"github.com/cybre/backdrop-sync/internal/ui"
)

func main() {
	opts := parseCLIFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runDisplay(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runDisplay(ctx context.Context, opts runtimeOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.relayURL != "" {
		cfg.Bus.URL = opts.relayURL
	}
	if opts.fps > 0 {
		cfg.Scene.FPS = opts.fps
	}

	logger := setupLogger(opts.debug, opts.visualize)

	sceneOpts, err := cfg.SceneOptions()
	if err != nil {
		return err
	}

	if err := run(ctx, logger, cfg, sceneOpts, opts); err != nil && !eris.Is(err, context.Canceled) {
		logger.Error("display loop failed", slog.Any("error", err))
		return err
	}
	return nil
}

func setupLogger(debug, visualize bool) *slog.Logger {
	logOutput := os.Stdout
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	if visualize && !debug {
		logLevel = slog.LevelWarn
	}
	if visualize {
		logOutput = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	return logger
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, sceneOpts scene.Options, opts runtimeOptions) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sc := scene.New(sceneOpts, logger)

	// Remote events are bridged onto a local bus so in-process drivers and
	// the relay feed the scene the same way.
	local := bus.NewLocal("display")
	sc.Attach(local)

	var renderer scene.Renderer
	if opts.visualize {
		viz := ui.NewVisualizer(cancel)
		defer viz.Close()
		renderer = viz
	}

	g, gctx := errgroup.WithContext(loopCtx)

	if !opts.offline {
		client, err := bus.NewClient(cfg.ClientOptions(bus.RoleDisplay), logger)
		if err != nil {
			return err
		}
		client.Subscribe(bus.Wildcard, func(env bus.Envelope) {
			local.Deliver(env)
		})
		g.Go(func() error {
			return client.Run(gctx)
		})
	} else {
		logger.Info("running offline, relay disabled")
	}

	g.Go(func() error {
		return sc.Run(gctx, cfg.Scene.FPS, renderer)
	})

	logger.Info("display started",
		slog.Int("fps", cfg.Scene.FPS),
		slog.String("stage", sceneOpts.Stage.Initial.String()))

	if err := g.Wait(); err != nil {
		if eris.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return nil
}
