package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"time"

	"github.com/cjeanneret/snapcam/internal/debug"
	"github.com/disintegration/imaging"
)

// Command runs an external still-capture tool that writes a JPEG to
// stdout (for example "rpicam-still -n -e jpg -o -"). Frames whose size
// differs from the configured one are resized and re-encoded.
type Command struct {
	argv    []string
	width   int
	height  int
	quality int // Go scale, 1-100
	timeout time.Duration
	bufs    *buffers
}

// NewCommand checks that argv[0] can be found and returns the camera.
func NewCommand(argv []string, width, height, sensorQuality, fbCount int, timeout time.Duration) (*Command, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("capture command %q: %w", argv[0], err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Command{
		argv:    append([]string(nil), argv...),
		width:   width,
		height:  height,
		quality: GoQuality(sensorQuality),
		timeout: timeout,
		bufs:    newBuffers(fbCount),
	}, nil
}

// Grab runs the capture command once.
func (c *Command) Grab() (*Frame, error) {
	if err := c.bufs.acquire(); err != nil {
		return nil, err
	}

	data, err := c.run()
	if err != nil {
		c.bufs.put()
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}

	frame, err := c.normalize(data)
	if err != nil {
		c.bufs.put()
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	frame.Timestamp = time.Now()
	return frame, nil
}

// Release returns the frame buffer.
func (c *Command) Release(f *Frame) {
	c.bufs.release(f)
}

func (c *Command) run() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	debug.Verbose("Camera: running %v", c.argv)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w (stderr: %s)", c.argv[0], err, bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("run %s: empty output", c.argv[0])
	}
	return stdout.Bytes(), nil
}

// normalize decodes the tool output and re-encodes it when its size does
// not match the configured frame size.
func (c *Command) normalize(data []byte) (*Frame, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	if format == "jpeg" && cfg.Width == c.width && cfg.Height == c.height {
		return &Frame{Buf: data, Width: cfg.Width, Height: cfg.Height}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}
	img = imaging.Fill(img, c.width, c.height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(c.quality)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	debug.Verbose("Camera: resized %dx%d %s to %dx%d", cfg.Width, cfg.Height, format, c.width, c.height)
	return &Frame{Buf: buf.Bytes(), Width: c.width, Height: c.height}, nil
}
