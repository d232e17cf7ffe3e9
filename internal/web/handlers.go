package web

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cjeanneret/snapcam/internal/debug"
	"github.com/cjeanneret/snapcam/internal/logic/capture"
	"github.com/cjeanneret/snapcam/internal/logic/token"
)

// CaptureCommand is the request line prefix that triggers a capture.
const CaptureCommand = "GET /capture"

// MaxRequestBytes caps how much of a connection is read. Anything past it
// is never buffered; a longer request line is cut at this length.
const MaxRequestBytes = 2048

// Response bodies.
const (
	BodyCaptured = "OK"
	BodyReady    = "ESP32-CAM ready"
)

// Capturer stores one photo under the given name.
type Capturer interface {
	SavePhoto(name string) capture.Result
}

// Handlers answers a single request read from a connection.
type Handlers struct {
	Capture Capturer
	Clock   token.Clock
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(c Capturer, clock token.Clock) *Handlers {
	return &Handlers{Capture: c, Clock: clock}
}

// NewRequestReader returns a buffered reader over at most MaxRequestBytes of r.
func NewRequestReader(r io.Reader) *bufio.Reader {
	return bufio.NewReader(io.LimitReader(r, MaxRequestBytes))
}

// ReadRequestLine reads up to the first '\r', then discards the rest of
// the line up to '\n'. Whatever was read before an error (timeout, EOF)
// is returned as the line.
func ReadRequestLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\r')
	line = strings.TrimSuffix(line, "\r")
	if err != nil {
		return line, err
	}
	if _, err := r.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrDeadlineExceeded) {
		return line, err
	}
	return line, nil
}

// Handle reads one request line from r and writes the response to w.
// A capture request is always answered with OK; the capture outcome is
// only logged.
func (h *Handlers) Handle(r *bufio.Reader, w io.Writer) error {
	line, err := ReadRequestLine(r)
	if err != nil {
		debug.Verbose("Request: partial line (%v)", err)
	}
	debug.Live("Request: %q", line)

	if strings.Contains(line, CaptureCommand) {
		tok := token.Resolve(line, h.Clock)
		res := h.Capture.SavePhoto(token.Filename(tok))
		if res.Err != nil {
			debug.Verbose("Request: capture %q failed: %v", tok, res.Err)
		}
		return writeResponse(w, BodyCaptured, true)
	}

	return writeResponse(w, BodyReady, false)
}

// writeResponse writes a plain-text 200 response with CRLF line endings.
func writeResponse(w io.Writer, body string, closeHeader bool) error {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	b.WriteString("Content-Type: text/plain\r\n")
	if closeHeader {
		b.WriteString("Connection: close\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
