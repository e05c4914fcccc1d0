// JuggleTracker - webcam shell for juggling-ball tracking
//
// Opens the default camera, loads calibration from the config directory and
// shows live frames until 'q' is pressed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/teslashibe/juggletracker/internal/config"
	"github.com/teslashibe/juggletracker/internal/log"
	"github.com/teslashibe/juggletracker/pkg/calibration"
	"github.com/teslashibe/juggletracker/pkg/camera/opencv"
	"github.com/teslashibe/juggletracker/pkg/tracker"
	"github.com/teslashibe/juggletracker/pkg/web"
)

func init() {
	// HighGUI windows must stay on the main thread (required on macOS).
	runtime.LockOSThread()
}

func main() {
	cfg := parseFlags()

	log.Init(cfg.LogLevel, cfg.Production())
	logger := log.L()

	if err := cfg.Validate(); err != nil {
		fatal("❌ Configuration error: %v", err)
	}
	camCfg, err := cfg.Camera()
	if err != nil {
		fatal("❌ Configuration error: %v", err)
	}

	dir, err := cfg.ResolveConfigDir()
	if err != nil {
		fatal("❌ Config directory: %v", err)
	}
	logger.Debug("config directory ready", "path", dir)

	store := calibration.NewStore(dir)
	shell := tracker.New(camCfg, tracker.Deps{
		Open:        opencv.Open,
		NewDisplay:  opencv.NewWindow,
		Calibration: store,
		Out:         os.Stdout,
		Logger:      logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.PreviewAddr != "" {
		preview := web.NewServer(web.Config{
			Addr:       cfg.PreviewAddr,
			FrameEvery: cfg.PreviewEvery,
		}, shell, store, camCfg, logger)
		preview.StartAsync(ctx)
	}

	if err := shell.Run(ctx); err != nil {
		cancel()
		fatal("❌ %v", err)
	}
}

// parseFlags loads env configuration, then lets flags override it.
func parseFlags() config.Config {
	cfg, err := config.Load()
	if err != nil {
		fatal("❌ Configuration error: %v", err)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()
	return cfg
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
