// Package configdir resolves the per-user JuggleTracker configuration directory.
//
// macOS and Linux are supported. Both are POSIX systems, so the choice is made
// on the platform identifier (runtime.GOOS), not on the OS family.
package configdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under the platform config root.
const AppName = "JuggleTracker"

// Platform identifiers, as reported by runtime.GOOS.
const (
	PlatformDarwin = "darwin"
	PlatformLinux  = "linux"
)

var (
	// ErrUnsupportedPlatform is returned for any platform other than macOS or Linux.
	ErrUnsupportedPlatform = errors.New("unsupported platform")

	// ErrNoHome is returned when the home directory is unknown.
	ErrNoHome = errors.New("home directory not set")
)

// Resolve returns the config directory for goos under home without touching disk.
func Resolve(goos, home string) (string, error) {
	var root string
	switch goos {
	case PlatformDarwin:
		root = filepath.Join(home, "Library", "Application Support")
	case PlatformLinux:
		root = filepath.Join(home, ".config")
	default:
		return "", fmt.Errorf("%w: %q (only macOS and Linux are supported)", ErrUnsupportedPlatform, goos)
	}
	if home == "" {
		return "", ErrNoHome
	}
	return filepath.Join(root, AppName), nil
}

// Ensure resolves the config directory and creates it with any missing parents.
// Safe to call when the directory already exists.
func Ensure(goos, home string) (string, error) {
	dir, err := Resolve(goos, home)
	if err != nil {
		return "", err
	}
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// EnsureDir creates an explicit directory, used when the location is overridden.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// Default resolves and creates the config directory for the running host.
func Default() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		// Unsupported platforms fail first so the error names the real problem.
		if _, rerr := Resolve(runtime.GOOS, "/"); rerr != nil {
			return "", rerr
		}
		return "", fmt.Errorf("%w: %v", ErrNoHome, err)
	}
	return Ensure(runtime.GOOS, home)
}
