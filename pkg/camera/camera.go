package camera

import "errors"

// Sentinel errors for camera sessions.
var (
	// ErrUnavailable is returned when the capture device cannot be opened
	// (absent, busy, or permission denied).
	ErrUnavailable = errors.New("camera: could not initialize camera")

	// ErrReadFailed is returned when a frame cannot be grabbed
	// (end of stream or hardware fault).
	ErrReadFailed = errors.New("camera: failed to grab frame")

	// ErrClosed is returned when using a source or display after Close.
	ErrClosed = errors.New("camera: closed")
)

// Frame is a single captured image. It is only valid until the next Read
// on the source that produced it.
type Frame interface {
	Width() int
	Height() int

	// JPEG encodes the frame with the given quality (1-100).
	JPEG(quality int) ([]byte, error)
}

// Source is an open capture device producing frames on demand.
type Source interface {
	// Read blocks until the next frame is available.
	// Any error ends the stream; sources are not restartable.
	Read() (Frame, error)

	// Close releases the device. Calling it more than once is a no-op.
	Close() error
}

// Display shows frames and reports key presses.
type Display interface {
	// Show draws the frame.
	Show(f Frame) error

	// PollKey waits briefly for a key press and services window events.
	// Returns the pressed key's low byte, or -1 if none was pressed.
	PollKey() int

	// Close destroys the window. Calling it more than once is a no-op.
	Close() error
}

// Opener opens a capture source for the given configuration.
type Opener func(cfg Config) (Source, error)

// DisplayFactory creates a display for the given configuration.
type DisplayFactory func(cfg Config) (Display, error)
