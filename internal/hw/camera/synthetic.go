package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/cjeanneret/snapcam/internal/debug"
	"github.com/disintegration/imaging"
)

// Synthetic renders a test pattern and encodes it as JPEG.
// Used on development machines without a sensor attached.
type Synthetic struct {
	width   int
	height  int
	quality int // Go scale, 1-100
	bufs    *buffers
	now     func() time.Time
	frames  int
}

// NewSynthetic creates a synthetic camera producing width x height frames.
// sensorQuality uses the sensor scale (0-63, lower is better).
func NewSynthetic(width, height, sensorQuality, fbCount int) (*Synthetic, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	return &Synthetic{
		width:   width,
		height:  height,
		quality: GoQuality(sensorQuality),
		bufs:    newBuffers(fbCount),
		now:     time.Now,
	}, nil
}

// Grab renders and encodes one frame.
func (s *Synthetic) Grab() (*Frame, error) {
	if err := s.bufs.acquire(); err != nil {
		return nil, err
	}

	s.frames++
	img := s.render(s.frames)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.quality)); err != nil {
		s.bufs.put()
		return nil, fmt.Errorf("%w: encode: %v", ErrNoFrame, err)
	}

	debug.Verbose("Camera: synthetic frame %d (%dx%d, %d bytes)", s.frames, s.width, s.height, buf.Len())
	return &Frame{
		Buf:       buf.Bytes(),
		Width:     s.width,
		Height:    s.height,
		Timestamp: s.now(),
	}, nil
}

// Release returns the frame buffer.
func (s *Synthetic) Release(f *Frame) {
	s.bufs.release(f)
}

// Outstanding reports frames grabbed but not yet released.
func (s *Synthetic) Outstanding() int {
	return s.bufs.outstanding()
}

// render draws diagonal bands shifted by the frame number so consecutive
// captures differ.
func (s *Synthetic) render(n int) *image.NRGBA {
	img := imaging.New(s.width, s.height, color.NRGBA{A: 255})
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			v := uint8((x + y + n*16) % 256)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: uint8(y * 255 / s.height), B: 255 - v, A: 255})
		}
	}
	return img
}
