package web

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cjeanneret/snapcam/internal/debug"
	"github.com/google/uuid"
)

// Server accepts one connection at a time and answers one request per
// connection. The next connection is accepted only after the current one
// is closed, so captures never overlap.
type Server struct {
	addr        string
	handlers    *Handlers
	readTimeout time.Duration
}

// NewServer creates a server for the given address and handlers.
// readTimeout bounds the wait for the first byte and for the request line.
func NewServer(addr string, handlers *Handlers, readTimeout time.Duration) *Server {
	return &Server{
		addr:        addr,
		handlers:    handlers,
		readTimeout: readTimeout,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	debug.Info("server listening on %s", ln.Addr())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			return err
		}
		s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	// Connection IDs only show up in live logs.
	id := "-"
	if debug.IsEnabled(debug.LevelLive) {
		id = uuid.NewString()
		debug.Conn(id, conn.RemoteAddr().String())
	}

	br := NewRequestReader(conn)
	if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
		debug.Error(err)
		return
	}
	if _, err := br.Peek(1); err != nil {
		debug.Live("Connection %s: no data within %v, closing", id, s.readTimeout)
		return
	}

	// Fresh budget for the request line itself.
	_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	if err := s.handlers.Handle(br, conn); err != nil {
		debug.Live("Connection %s: %v", id, err)
	}
	debug.Live("Connection %s closed", id)
}
