package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cjeanneret/snapcam/internal/debug"
)

var (
	// ErrNotMounted is returned by file operations on a volume whose mount failed.
	ErrNotMounted = errors.New("storage: volume not mounted")
	// ErrNoCard is returned by Mount when the mount point exists but cannot take writes.
	ErrNoCard = errors.New("storage: no card detected")
)

const writeCheckName = ".snapcam-writecheck"

// Volume is a mounted directory that captures are written to.
// Paths are given relative to the volume root ("/IMG_x.jpg") and cannot
// leave it.
type Volume struct {
	root       *os.Root
	dir        string
	oneBitMode bool
}

// Mount opens dir as a volume. On failure the returned volume is still
// usable but every Create fails with ErrNotMounted.
func Mount(dir string, oneBitMode bool) (*Volume, error) {
	v := &Volume{dir: dir, oneBitMode: oneBitMode}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return v, fmt.Errorf("mount %s: %w", dir, err)
	}

	// A card must accept writes; check with a throwaway file.
	check, err := root.OpenFile(writeCheckName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		root.Close()
		return v, fmt.Errorf("%w at %s: %v", ErrNoCard, dir, err)
	}
	check.Close()
	_ = root.Remove(writeCheckName)

	v.root = root
	debug.Verbose("Storage: mounted %s (1-bit mode: %v)", dir, oneBitMode)
	return v, nil
}

// Mounted reports whether the volume can be written to.
func (v *Volume) Mounted() bool {
	return v != nil && v.root != nil
}

// OneBitMode reports the configured bus mode.
func (v *Volume) OneBitMode() bool {
	return v.oneBitMode
}

// Dir returns the mount point.
func (v *Volume) Dir() string {
	return v.dir
}

// Create opens path for writing, truncating any existing file.
func (v *Volume) Create(path string) (io.WriteCloser, error) {
	if !v.Mounted() {
		return nil, ErrNotMounted
	}
	name := strings.TrimLeft(path, "/")
	if name == "" {
		return nil, fmt.Errorf("create %q: empty name", path)
	}
	f, err := v.root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

// Unmount releases the volume.
func (v *Volume) Unmount() error {
	if !v.Mounted() {
		return nil
	}
	err := v.root.Close()
	v.root = nil
	return err
}
