// Package opencv implements camera.Source and camera.Display with GoCV.
package opencv

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/juggletracker/pkg/camera"
	"gocv.io/x/gocv"
)

// frame adapts a gocv.Mat to camera.Frame.
type frame struct {
	mat *gocv.Mat
}

func (f frame) Width() int  { return f.mat.Cols() }
func (f frame) Height() int { return f.mat.Rows() }

// JPEG encodes the Mat with the given quality.
func (f frame) JPEG(quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *f.mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory freed by Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Capture is an open video capture device.
type Capture struct {
	vc     *gocv.VideoCapture
	img    gocv.Mat
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Open opens the capture device and requests the configured resolution.
// The resolution is best effort; the device may deliver something else.
func Open(cfg camera.Config) (camera.Source, error) {
	c, err := OpenWithLogger(cfg, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// OpenWithLogger is Open with an explicit logger.
func OpenWithLogger(cfg camera.Config, logger *slog.Logger) (*Capture, error) {
	if logger == nil {
		logger = slog.Default()
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", camera.ErrUnavailable, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d", camera.ErrUnavailable, cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	logger.Debug("camera opened",
		"device", cfg.Device,
		"requested_width", cfg.Width,
		"requested_height", cfg.Height,
		"actual_width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"actual_height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
	)

	return &Capture{
		vc:     vc,
		img:    gocv.NewMat(),
		logger: logger,
	}, nil
}

// Read grabs the next frame into the shared Mat.
func (c *Capture) Read() (camera.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, camera.ErrClosed
	}
	if ok := c.vc.Read(&c.img); !ok || c.img.Empty() {
		return nil, camera.ErrReadFailed
	}
	return frame{mat: &c.img}, nil
}

// Close releases the device and the frame buffer.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	err := errors.Join(c.vc.Close(), c.img.Close())
	c.logger.Debug("camera released")
	return err
}

// Window is a HighGUI window showing captured frames.
type Window struct {
	win    *gocv.Window
	pollMS int
	mu     sync.Mutex
	closed bool
}

// NewWindow creates the display window.
// HighGUI needs to run on the main OS thread on macOS; callers lock it.
func NewWindow(cfg camera.Config) (camera.Display, error) {
	return &Window{
		win:    gocv.NewWindow(cfg.WindowTitle),
		pollMS: cfg.KeyPollMillis(),
	}, nil
}

// Show draws a frame produced by Capture.
func (w *Window) Show(f camera.Frame) error {
	fr, ok := f.(frame)
	if !ok {
		return fmt.Errorf("opencv window cannot show %T", f)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return camera.ErrClosed
	}
	if err := w.win.IMShow(*fr.mat); err != nil {
		return fmt.Errorf("show frame: %w", err)
	}
	return nil
}

// PollKey waits pollMS milliseconds for a key and pumps window events.
func (w *Window) PollKey() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return -1
	}
	key := w.win.WaitKey(w.pollMS)
	if key < 0 {
		return -1
	}
	return key & 0xFF
}

// Close destroys the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.win.Close()
}
