package camera

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoFrame is returned when the driver cannot produce a frame buffer.
var ErrNoFrame = errors.New("camera: no frame buffer")

// Frame is one encoded JPEG image owned by the caller until Release.
type Frame struct {
	Buf       []byte
	Width     int
	Height    int
	Timestamp time.Time

	released bool
}

// Len returns the number of encoded bytes.
func (f *Frame) Len() int {
	return len(f.Buf)
}

// Camera is the high-level interface used by the rest of the application.
// It represents an abstract camera, regardless of how frames are produced.
type Camera interface {
	// Grab returns the next frame. The frame must be handed back with
	// Release once the caller is done with it.
	Grab() (*Frame, error)
	// Release returns a frame buffer to the driver.
	Release(f *Frame)
}

// buffers tracks how many frame buffers are outstanding.
// A driver with all buffers handed out cannot produce a new frame.
type buffers struct {
	mu    sync.Mutex
	count int
	inUse int
}

func newBuffers(count int) *buffers {
	if count <= 0 {
		count = 1
	}
	return &buffers{count: count}
}

func (b *buffers) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inUse >= b.count {
		return fmt.Errorf("%w: all %d buffers in use", ErrNoFrame, b.count)
	}
	b.inUse++
	return nil
}

// put hands back a buffer that never left the driver.
func (b *buffers) put() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inUse > 0 {
		b.inUse--
	}
}

// release hands back the buffer held by f. Releasing twice is a no-op.
func (b *buffers) release(f *Frame) {
	if f == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if f.released || b.inUse == 0 {
		return
	}
	f.released = true
	f.Buf = nil
	b.inUse--
}

// outstanding returns the number of frames not yet released.
func (b *buffers) outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inUse
}

// Unavailable stands in for a camera whose initialization failed.
// Every Grab fails.
type Unavailable struct {
	Err error
}

func (u Unavailable) Grab() (*Frame, error) {
	if u.Err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, u.Err)
	}
	return nil, ErrNoFrame
}

func (u Unavailable) Release(*Frame) {}

// GoQuality converts a sensor JPEG quality (0-63, lower is better) to the
// 1-100 scale used by Go encoders.
func GoQuality(sensorQuality int) int {
	if sensorQuality < 0 {
		sensorQuality = 0
	}
	if sensorQuality > 63 {
		sensorQuality = 63
	}
	return 100 - sensorQuality*99/63
}
