package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"sync/atomic"
)

// MockFrame is a solid-color frame for testing.
type MockFrame struct {
	W, H  int
	Seq   int
	Color color.RGBA
}

// Width returns the frame width.
func (f *MockFrame) Width() int { return f.W }

// Height returns the frame height.
func (f *MockFrame) Height() int { return f.H }

// JPEG encodes the frame.
func (f *MockFrame) JPEG(quality int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			img.SetRGBA(x, y, f.Color)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// MockSource is a scripted capture source for testing.
type MockSource struct {
	cfg Config

	mu     sync.Mutex
	limit  int // frames before a read failure, -1 = unlimited
	served int
	closed bool

	closeCount atomic.Int32
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithFrameLimit makes Read fail with ErrReadFailed after n frames.
func WithFrameLimit(n int) MockSourceOption {
	return func(m *MockSource) {
		m.limit = n
	}
}

// NewMockSource creates a mock source delivering frames at the configured size.
func NewMockSource(cfg Config, opts ...MockSourceOption) *MockSource {
	m := &MockSource{cfg: cfg, limit: -1}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Read returns the next synthetic frame.
func (m *MockSource) Read() (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.limit >= 0 && m.served >= m.limit {
		return nil, ErrReadFailed
	}
	m.served++
	return &MockFrame{
		W:     m.cfg.Width,
		H:     m.cfg.Height,
		Seq:   m.served,
		Color: color.RGBA{R: uint8(m.served), G: 128, B: 255, A: 255},
	}, nil
}

// Close marks the source closed and counts the call.
func (m *MockSource) Close() error {
	m.closeCount.Add(1)
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Served returns how many frames were delivered.
func (m *MockSource) Served() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.served
}

// CloseCount returns how many times Close was called.
func (m *MockSource) CloseCount() int {
	return int(m.closeCount.Load())
}

// MockDisplay records shown frames and replays scripted key presses.
type MockDisplay struct {
	mu     sync.Mutex
	keys   []int
	polls  int
	shown  int
	closed bool

	closeCount atomic.Int32
}

// NewMockDisplay creates a display that returns keys in order from PollKey,
// then -1 once they run out.
func NewMockDisplay(keys ...int) *MockDisplay {
	return &MockDisplay{keys: keys}
}

// Show counts the frame.
func (d *MockDisplay) Show(f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	d.shown++
	return nil
}

// PollKey returns the next scripted key.
func (d *MockDisplay) PollKey() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.polls >= len(d.keys) {
		d.polls++
		return -1
	}
	k := d.keys[d.polls]
	d.polls++
	return k
}

// Close marks the display closed and counts the call.
func (d *MockDisplay) Close() error {
	d.closeCount.Add(1)
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Shown returns how many frames were displayed.
func (d *MockDisplay) Shown() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shown
}

// CloseCount returns how many times Close was called.
func (d *MockDisplay) CloseCount() int {
	return int(d.closeCount.Load())
}
