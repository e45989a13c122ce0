// Package tcpserver implements the server lifecycle: accept loop, session
// registry, periodic reaping of dead handles, and graceful shutdown.
package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hashd/internal/errs"
	"hashd/internal/logging"
	"hashd/internal/metrics"
	"hashd/internal/session"
	"hashd/internal/sessionid"
)

// minReapInterval floors a configured reap interval, matching the
// original server's 200ms floor on its monitoring timer.
const minReapInterval = 200 * time.Millisecond

// Config configures a Server.
type Config struct {
	// Port is the TCP port to listen on.
	Port uint16
	// ConnectionTimeout, when > 0, bounds every individual Read/Write a
	// session performs. Zero disables per-operation deadlines.
	ConnectionTimeout time.Duration
	// ReapInterval is how often dead handles are pruned from the
	// registry. Floored to minReapInterval; zero selects the default of
	// 2 seconds.
	ReapInterval time.Duration
}

func (c Config) reapInterval() time.Duration {
	interval := c.ReapInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if interval < minReapInterval {
		interval = minReapInterval
	}
	return interval
}

// Server accepts connections on a single TCP port, spawns a session per
// connection, and periodically reaps handles for sessions that have
// exited.
type Server struct {
	cfg  Config
	log  logging.Logger
	sink metrics.Sink

	mu       sync.Mutex
	listener *net.TCPListener
	registry []*session.Handle
	cancel   context.CancelFunc

	stopped bool
}

// New constructs a Server. It does not bind a listener until Start is
// called.
func New(cfg Config, log logging.Logger, sink metrics.Sink) (*Server, error) {
	if log == nil {
		return nil, errors.New("tcpserver: logger is required")
	}
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		sink:     sink,
		registry: make([]*session.Handle, 0, 256),
	}, nil
}

// Start binds the listener and runs the accept loop and the reap loop
// until ctx is cancelled or an unrecoverable error occurs. It blocks until
// both loops have returned.
func (s *Server) Start(ctx context.Context) error {
	addr := &net.TCPAddr{Port: int(s.cfg.Port)}
	ln, err := net.ListenTCP("tcp4", addr)
	if err != nil {
		return fmt.Errorf("tcpserver: listen on port %d: %w", s.cfg.Port, err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Message(fmt.Sprintf("listening on %s", ln.Addr()))

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return s.acceptLoop(gctx)
	})
	g.Go(func() error {
		return s.reapLoop(gctx)
	})

	go func() {
		<-gctx.Done()
		_ = ln.Close()
	}()

	err = g.Wait()
	cancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// acceptLoop matches the original's accepting(): on success, spawn a
// session and register its handle; on cancellation, stop quietly; on any
// other I/O error, log and re-arm rather than bringing the server down.
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		s.mu.Lock()
		ln := s.listener
		s.mu.Unlock()

		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.sink.AcceptError()
			s.log.Warning(fmt.Sprintf("accept: %v", err))
			continue
		}

		id := sessionid.New(time.Now())
		h, err := session.Spawn(ctx, id, conn, s.log, s.sink, s.cfg.ConnectionTimeout)
		if err != nil {
			s.log.Error(fmt.Sprintf("session %s: %v", id, err))
			_ = conn.Close()
			continue
		}
		s.register(h)
	}
}

// reapLoop removes handles for sessions that have already exited. Its own
// failure (only possible if the ticker's interval is somehow invalid) is
// the one condition the original treats as fatal to the whole server.
func (s *Server) reapLoop(ctx context.Context) error {
	interval := s.cfg.reapInterval()
	if interval <= 0 {
		_ = s.Stop()
		return fmt.Errorf("%w: invalid reap interval %s", errs.ErrTimerSetup, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.reapOnce()
		}
	}
}

func (s *Server) register(h *session.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = append(s.registry, h)
}

func (s *Server) reapOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	alive := s.registry[:0]
	reaped := 0
	for _, h := range s.registry {
		if h.IsAlive() {
			alive = append(alive, h)
		} else {
			reaped++
		}
	}
	s.registry = alive

	for i := 0; i < reaped; i++ {
		s.sink.SessionReaped()
	}
}

// Stop cancels the accept and reap loops started by Start, closes the
// listener, and terminates every currently registered session. It does
// not wait for Start to return; callers that need that should hold the
// context passed to Start and call its cancel func, then Start itself
// returns once both loops have drained.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	ln := s.listener
	cancel := s.cancel
	handles := make([]*session.Handle, len(s.registry))
	copy(handles, s.registry)
	s.registry = s.registry[:0]
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Warning(fmt.Sprintf("close listener: %v", err))
		}
	}

	for _, h := range handles {
		h.Terminate()
	}

	return nil
}

// Addr returns the bound listener's address, or nil if Start has not yet
// succeeded. Chiefly useful in tests that bind port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// RegisteredCount reports the current registry size, for tests observing
// the reaper.
func (s *Server) RegisteredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.registry)
}

// ParsePort parses the CLI positional port argument, matching the
// original's single optional argv[1].
func ParsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	return uint16(n), nil
}
