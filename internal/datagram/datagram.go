// Package datagram prints UDP payloads received from devices on the LAN.
package datagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"unicode/utf8"

	"github.com/cjeanneret/snapcam/internal/debug"
)

// ErrDecode is returned when a payload is not valid UTF-8 text.
var ErrDecode = errors.New("datagram: payload is not valid UTF-8")

// DefaultBufferSize is the largest payload read per datagram.
const DefaultBufferSize = 1024

// Logger prints every datagram received on conn.
type Logger struct {
	conn    net.PacketConn
	out     io.Writer
	bufSize int
}

// Listen binds a UDP socket on addr ("0.0.0.0:4210").
func Listen(addr string, out io.Writer, bufSize int) (*Logger, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return New(conn, out, bufSize), nil
}

// New wraps an existing packet connection.
func New(conn net.PacketConn, out io.Writer, bufSize int) *Logger {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Logger{conn: conn, out: out, bufSize: bufSize}
}

// Addr returns the bound local address.
func (l *Logger) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Run prints "<sender>: <payload>" for each datagram until ctx is
// cancelled (returns nil) or a payload fails to decode (returns ErrDecode).
// The socket is closed on return.
func (l *Logger) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { l.conn.Close() })
	defer stop()
	defer l.conn.Close()

	fmt.Fprintln(l.out, "Listening...")
	debug.Verbose("Datagram: listening on %s (buffer %d bytes)", l.conn.LocalAddr(), l.bufSize)

	buf := make([]byte, l.bufSize)
	for {
		n, addr, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receive: %w", err)
		}

		text, err := Decode(buf[:n])
		if err != nil {
			return fmt.Errorf("from %s: %w", addr, err)
		}
		fmt.Fprintf(l.out, "%s: %s\n", addr, text)
	}
}

// Decode interprets a payload as UTF-8 text.
func Decode(payload []byte) (string, error) {
	if !utf8.Valid(payload) {
		return "", ErrDecode
	}
	return string(payload), nil
}
