// Package tracker runs the JuggleTracker capture loop.
//
// A Shell owns one camera session and one calibration record. It opens the
// camera, checks for calibration, then reads, displays and polls for the quit
// key until the user quits or the camera fails. The camera and window are
// released exactly once on every exit path.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/juggletracker/pkg/calibration"
	"github.com/teslashibe/juggletracker/pkg/camera"
)

// QuitKey ends the run loop.
const QuitKey = 'q'

// User-facing notices, printed verbatim.
const (
	NoCalibrationNotice = "No calibration data found. Calibration needed."
	FrameReadNotice     = "Failed to grab frame"
)

// ErrAlreadyRun is returned when Run is called on a Shell more than once.
var ErrAlreadyRun = errors.New("tracker: shell already run")

// Deps are the collaborators a Shell composes.
type Deps struct {
	Open        camera.Opener
	NewDisplay  camera.DisplayFactory
	Calibration *calibration.Store

	// Out receives user-facing notices. Defaults to os.Stdout.
	Out io.Writer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Status is a snapshot of the shell for observers.
type Status struct {
	RunID      string    `json:"run_id"`
	State      State     `json:"state"`
	Calibrated bool      `json:"calibrated"`
	Frames     int64     `json:"frames"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Device     int       `json:"device"`
	StartedAt  time.Time `json:"started_at"`
}

// Shell composes a camera session and a calibration store into the run loop.
type Shell struct {
	cfg    camera.Config
	deps   Deps
	runID  string
	logger *slog.Logger

	mu        sync.RWMutex
	state     State
	history   []State
	source    camera.Source
	display   camera.Display
	started   bool
	released  bool
	startedAt time.Time

	frames atomic.Int64

	// Observers, called synchronously on the loop goroutine
	onState []func(State)
	onFrame []func(camera.Frame)
}

// New creates a shell. Nothing is acquired until Run.
func New(cfg camera.Config, deps Deps) *Shell {
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	runID := uuid.NewString()

	return &Shell{
		cfg:     cfg,
		deps:    deps,
		runID:   runID,
		logger:  deps.Logger.With("run_id", runID),
		state:   StateUninitialized,
		history: []State{StateUninitialized},
	}
}

// OnStateChange registers fn to be called after every transition.
func (s *Shell) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = append(s.onState, fn)
}

// OnFrame registers fn to be called with every displayed frame.
// The frame is only valid for the duration of the call.
func (s *Shell) OnFrame(fn func(camera.Frame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFrame = append(s.onFrame, fn)
}

// RunID identifies this shell in logs and status.
func (s *Shell) RunID() string {
	return s.runID
}

// State returns the current lifecycle stage.
func (s *Shell) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// History returns every state entered so far, in order.
func (s *Shell) History() []State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]State(nil), s.history...)
}

// NeedsCalibration reports whether no calibration record is loaded.
func (s *Shell) NeedsCalibration() bool {
	return s.deps.Calibration == nil || s.deps.Calibration.NeedsCalibration()
}

// Status returns a snapshot of the shell.
func (s *Shell) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		RunID:      s.runID,
		State:      s.state,
		Calibrated: !s.NeedsCalibration(),
		Frames:     s.frames.Load(),
		Width:      s.cfg.Width,
		Height:     s.cfg.Height,
		Device:     s.cfg.Device,
		StartedAt:  s.startedAt,
	}
}

// Run opens the camera, checks calibration and drives the frame loop.
//
// It returns nil when the user quits, ctx is cancelled, or calibration is
// missing (after printing a notice). Camera failures wrap camera.ErrUnavailable
// or camera.ErrReadFailed; a corrupt calibration file wraps calibration.ErrMalformed.
func (s *Shell) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyRun
	}
	s.started = true
	s.startedAt = time.Now()
	s.mu.Unlock()

	src, err := s.openCamera()
	if err != nil {
		// Nothing was acquired, so there is nothing to release.
		s.mu.Lock()
		s.released = true
		s.mu.Unlock()
		s.setState(StateReleased)
		s.logger.Error("camera unavailable", "device", s.cfg.Device, "error", err)
		return err
	}

	s.mu.Lock()
	s.source = src
	s.mu.Unlock()
	defer s.release()
	s.setState(StateCameraOpen)

	if s.deps.Calibration == nil {
		fmt.Fprintln(s.deps.Out, NoCalibrationNotice)
		return nil
	}
	present, err := s.deps.Calibration.Load()
	if err != nil {
		s.logger.Error("calibration unreadable", "path", s.deps.Calibration.Path(), "error", err)
		return fmt.Errorf("load calibration: %w", err)
	}
	if !present {
		s.logger.Info("calibration missing", "path", s.deps.Calibration.Path())
		fmt.Fprintln(s.deps.Out, NoCalibrationNotice)
		return nil
	}
	s.setState(StateCalibrationChecked)

	display, err := s.deps.NewDisplay(s.cfg)
	if err != nil {
		return fmt.Errorf("create display: %w", err)
	}
	s.mu.Lock()
	s.display = display
	s.mu.Unlock()

	s.setState(StateRunning)
	s.logger.Info("tracking started", "width", s.cfg.Width, "height", s.cfg.Height)

	return s.loop(ctx, src, display)
}

func (s *Shell) openCamera() (camera.Source, error) {
	src, err := s.deps.Open(s.cfg)
	if err == nil && src == nil {
		err = errors.New("opener returned no source")
	}
	if err != nil {
		if !errors.Is(err, camera.ErrUnavailable) {
			err = fmt.Errorf("%w: %v", camera.ErrUnavailable, err)
		}
		return nil, err
	}
	return src, nil
}

func (s *Shell) loop(ctx context.Context, src camera.Source, display camera.Display) error {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("run cancelled", "frames", s.frames.Load())
			return nil
		default:
		}

		frame, err := src.Read()
		if err != nil {
			fmt.Fprintln(s.deps.Out, FrameReadNotice)
			s.logger.Error("frame read failed", "frames", s.frames.Load(), "error", err)
			if !errors.Is(err, camera.ErrReadFailed) {
				err = fmt.Errorf("%w: %v", camera.ErrReadFailed, err)
			}
			return err
		}

		if err := display.Show(frame); err != nil {
			return fmt.Errorf("show frame: %w", err)
		}
		s.frames.Add(1)
		s.notifyFrame(frame)

		if display.PollKey() == QuitKey {
			s.logger.Info("quit requested", "frames", s.frames.Load())
			return nil
		}
	}
}

// release closes the display and the camera. Only the first call has effect.
func (s *Shell) release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	display, source := s.display, s.source
	s.display, s.source = nil, nil
	s.mu.Unlock()

	if display != nil {
		if err := display.Close(); err != nil {
			s.logger.Warn("failed to close display", "error", err)
		}
	}
	if source != nil {
		if err := source.Close(); err != nil {
			s.logger.Warn("failed to release camera", "error", err)
		}
	}

	s.setState(StateReleased)
	s.logger.Debug("resources released")
}

func (s *Shell) setState(next State) {
	s.mu.Lock()
	s.state = next
	s.history = append(s.history, next)
	observers := slices.Clone(s.onState)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}

func (s *Shell) notifyFrame(f camera.Frame) {
	s.mu.RLock()
	observers := s.onFrame
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(f)
	}
}
