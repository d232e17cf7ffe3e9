package capture

import (
	"fmt"
	"io"
	"time"

	"github.com/cjeanneret/snapcam/internal/debug"
	"github.com/cjeanneret/snapcam/internal/hw/camera"
)

// Light is the illumination output toggled around frame acquisition.
type Light interface {
	On() error
	Off() error
}

// Store creates files on the capture volume.
type Store interface {
	Create(path string) (io.WriteCloser, error)
}

// Result describes one capture-and-store attempt.
type Result struct {
	Path  string // volume path, e.g. "/IMG_foo.jpg"; empty if no frame
	Bytes int    // bytes written
	Err   error
}

// Sequence grabs a frame under the flash and writes it to the volume.
type Sequence struct {
	light  Light
	camera camera.Camera
	store  Store
	warmup time.Duration
	sleep  func(time.Duration)
}

// NewSequence wires the flash, camera and volume. warmup is the delay
// between flash on and frame grab.
func NewSequence(l Light, c camera.Camera, s Store, warmup time.Duration) *Sequence {
	return &Sequence{
		light:  l,
		camera: c,
		store:  s,
		warmup: warmup,
		sleep:  time.Sleep,
	}
}

// SavePhoto captures one frame and stores it as /<name>.jpg.
// The flash is switched off right after the grab, and the frame is
// released on every path once acquired.
func (s *Sequence) SavePhoto(name string) Result {
	debug.Verbose("Capture: flash on, warmup %v", s.warmup)
	if err := s.light.On(); err != nil {
		debug.Error(fmt.Errorf("flash on: %w", err))
	}
	s.sleep(s.warmup)

	frame, grabErr := s.camera.Grab()

	if err := s.light.Off(); err != nil {
		debug.Error(fmt.Errorf("flash off: %w", err))
	}

	if grabErr != nil || frame == nil {
		debug.Info("PHOTO FAIL (no framebuffer)")
		if grabErr == nil {
			grabErr = camera.ErrNoFrame
		}
		debug.Verbose("Capture: %v", grabErr)
		return Result{Err: grabErr}
	}
	defer s.camera.Release(frame)

	path := "/" + name + ".jpg"
	f, err := s.store.Create(path)
	if err != nil {
		debug.Info("FILE OPEN FAIL")
		debug.Verbose("Capture: %v", err)
		return Result{Path: path, Err: err}
	}

	n, err := f.Write(frame.Buf)
	if err != nil {
		debug.Error(fmt.Errorf("write %s: %w", path, err))
	} else {
		debug.Saved(path, n)
	}

	if cerr := f.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", path, cerr)
		debug.Error(err)
	}
	return Result{Path: path, Bytes: n, Err: err}
}
