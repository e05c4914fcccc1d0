package opencv

import (
	"errors"
	"os"
	"testing"

	"github.com/teslashibe/juggletracker/pkg/camera"
	"gocv.io/x/gocv"
)

// TestOpenMissingDevice opens a device index no machine should have.
func TestOpenMissingDevice(t *testing.T) {
	cfg := camera.DefaultConfig()
	cfg.Device = 97

	src, err := Open(cfg)
	if err == nil {
		src.Close()
		t.Fatal("expected error opening a missing device")
	}
	if !errors.Is(err, camera.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestFrameJPEG(t *testing.T) {
	mat := gocv.NewMatWithSize(72, 128, gocv.MatTypeCV8UC3)
	defer mat.Close()

	f := frame{mat: &mat}
	if f.Width() != 128 || f.Height() != 72 {
		t.Fatalf("unexpected size %dx%d", f.Width(), f.Height())
	}

	data, err := f.JPEG(80)
	if err != nil {
		t.Fatalf("JPEG failed: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("output is not a JPEG")
	}
}

// TestCaptureRoundTrip needs a real camera; set JUGGLE_CAMERA_TEST=1 to run it.
func TestCaptureRoundTrip(t *testing.T) {
	if os.Getenv("JUGGLE_CAMERA_TEST") == "" {
		t.Skip("JUGGLE_CAMERA_TEST not set, skipping hardware test")
	}

	capture, err := OpenWithLogger(camera.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("open camera: %v", err)
	}

	f, err := capture.Read()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Width() == 0 || f.Height() == 0 {
		t.Error("empty frame")
	}

	if err := capture.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := capture.Close(); err != nil {
		t.Errorf("second close should be a no-op: %v", err)
	}
	if _, err := capture.Read(); !errors.Is(err, camera.ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestWindowShowRejects(t *testing.T) {
	mat := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	defer mat.Close()

	w := &Window{closed: true}
	if err := w.Show(frame{mat: &mat}); !errors.Is(err, camera.ErrClosed) {
		t.Errorf("expected ErrClosed from a closed window, got %v", err)
	}
	if err := w.Show(&camera.MockFrame{W: 8, H: 8}); err == nil {
		t.Error("expected error showing a frame not read by Capture")
	}
}

// TestWindowShowError needs a display; set JUGGLE_DISPLAY_TEST=1 to run it.
func TestWindowShowError(t *testing.T) {
	if os.Getenv("JUGGLE_DISPLAY_TEST") == "" {
		t.Skip("JUGGLE_DISPLAY_TEST not set, skipping display test")
	}

	cfg := camera.DefaultConfig()
	cfg.WindowTitle = "juggletracker-test"
	d, err := NewWindow(cfg)
	if err != nil {
		t.Fatalf("new window: %v", err)
	}
	defer d.Close()

	// OpenCV refuses to show an empty image; the failure must reach the caller.
	empty := gocv.NewMat()
	defer empty.Close()
	if err := d.Show(frame{mat: &empty}); err == nil {
		t.Error("expected error showing an empty frame")
	}

	mat := gocv.NewMatWithSize(72, 128, gocv.MatTypeCV8UC3)
	defer mat.Close()
	if err := d.Show(frame{mat: &mat}); err != nil {
		t.Errorf("show frame: %v", err)
	}
}
