// Package web serves an optional live preview of a running tracker:
// status over REST and websockets, and JPEG frames over a websocket.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/juggletracker/pkg/calibration"
	"github.com/teslashibe/juggletracker/pkg/camera"
	"github.com/teslashibe/juggletracker/pkg/hub"
	"github.com/teslashibe/juggletracker/pkg/tracker"
)

// Observable is the part of tracker.Shell the preview needs.
type Observable interface {
	Status() tracker.Status
	OnStateChange(fn func(tracker.State))
	OnFrame(fn func(camera.Frame))
}

// Config holds preview server settings.
type Config struct {
	// Addr is the listen address, e.g. "127.0.0.1:8090".
	Addr string

	// FrameEvery sends one of every N displayed frames to camera clients.
	FrameEvery int
}

// DefaultFrameEvery keeps preview traffic near 10fps for a 30fps camera.
const DefaultFrameEvery = 3

// Server is the preview HTTP server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	shell       Observable
	calibration *calibration.Store
	camera      camera.Config

	statusHub *hub.Hub
	cameraHub *hub.Hub

	frameCount atomic.Int64
	framesSent atomic.Int64
}

// NewServer creates the preview server and subscribes it to shell events.
func NewServer(cfg Config, shell Observable, store *calibration.Store, camCfg camera.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FrameEvery < 1 {
		cfg.FrameEvery = DefaultFrameEvery
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger.With("component", "preview"),
		shell:       shell,
		calibration: store,
		camera:      camCfg,
		statusHub:   hub.New("status", logger),
		cameraHub:   hub.New("camera", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "JuggleTracker Preview",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/calibration", s.handleCalibration)
	api.Get("/camera", s.handleCamera)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/camera", websocket.New(s.handleCameraWS))

	s.app = app

	shell.OnStateChange(s.publishState)
	shell.OnFrame(s.publishFrame)
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on cfg.Addr and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("preview listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.statusHub.Run(ctx)
	go s.cameraHub.Run(ctx)

	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("preview shutdown", "error", err)
		}
	}()

	s.logger.Info("preview listening", "addr", ln.Addr().String())
	if err := s.app.Listener(ln); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("preview serve: %w", err)
	}
	return nil
}

// StartAsync starts the server in a goroutine, logging any failure.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("preview server failed", "error", err)
		}
	}()
}

// FramesSent returns how many frames were queued for camera clients.
func (s *Server) FramesSent() int64 {
	return s.framesSent.Load()
}

func (s *Server) publishState(tracker.State) {
	if err := s.statusHub.BroadcastJSON(s.shell.Status()); err != nil {
		s.logger.Warn("encode status", "error", err)
	}
}

// publishFrame runs on the capture loop, so it only encodes when someone is watching.
func (s *Server) publishFrame(f camera.Frame) {
	n := s.frameCount.Add(1)
	if (n-1)%int64(s.cfg.FrameEvery) != 0 {
		return
	}
	if s.cameraHub.ClientCount() == 0 {
		return
	}

	data, err := f.JPEG(s.camera.Quality)
	if err != nil {
		s.logger.Warn("encode preview frame", "error", err)
		return
	}
	s.cameraHub.BroadcastBinary(data)
	s.framesSent.Add(1)
}
