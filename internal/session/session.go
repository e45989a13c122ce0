// Package session implements the per-connection state machine: Receive,
// Encode, Respond, looping until the peer disconnects, an I/O error occurs,
// or the session is terminated from outside.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"hashd/internal/errs"
	"hashd/internal/hashengine"
	"hashd/internal/linebuf"
	"hashd/internal/logging"
	"hashd/internal/metrics"
)

type state int

const (
	stateReceive state = iota
	stateEncode
	stateRespond
)

// session owns one accepted connection exclusively. It is driven by exactly
// one goroutine (loop); nothing else ever touches conn, buf, resp, or engine,
// which is what lets the Receive/Encode/Respond transitions run without a
// mutex on the hot path.
type session struct {
	conn        net.Conn
	id          string
	log         logging.Logger
	sink        metrics.Sink
	connTimeout time.Duration

	buf      linebuf.Buffer
	resp     [hashengine.HexSize + 1]byte
	engine   *hashengine.Engine
	lineSize int

	cancel context.CancelFunc
	once   sync.Once
}

// Spawn accepts ownership of conn and starts the session's goroutine. The
// returned Handle observes the session's liveness and can request early
// termination; it is the only thing the caller needs to hold on to.
//
// If construction fails — currently only possible if hashengine.New ever
// becomes fallible — Spawn returns a nil Handle and an error wrapped in
// errs.ErrInit, and never starts a goroutine or touches conn. Per spec.md
// §4.6, the caller is responsible for logging that error and closing conn
// itself without registering a handle.
func Spawn(ctx context.Context, id string, conn net.Conn, log logging.Logger, sink metrics.Sink, connTimeout time.Duration) (*Handle, error) {
	engine, err := hashengine.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInit, err)
	}

	_, cancel := context.WithCancel(ctx)

	s := &session{
		conn:        conn,
		id:          id,
		log:         log,
		sink:        sink,
		connTimeout: connTimeout,
		engine:      engine,
		cancel:      cancel,
	}

	h := &Handle{}
	h.ref.Store(s)

	sink.SessionAccepted()
	go s.loop(h)

	return h, nil
}

// loop runs the Receive/Encode/Respond state machine until the connection
// can no longer make progress. On return, the handle is cleared so IsAlive
// reports false and the server's reaper can drop it from the registry.
func (s *session) loop(h *Handle) {
	defer s.cleanup(h)

	st := stateReceive
	for {
		var err error
		switch st {
		case stateReceive:
			st, err = s.receive()
		case stateEncode:
			st, err = s.encode()
		case stateRespond:
			st, err = s.respond()
		}
		if err != nil {
			s.logTerminalError(err)
			return
		}
	}
}

// receive blocks for more bytes. It is only ever entered with buf.Pending
// == 0, so the read always starts at the front of the buffer.
func (s *session) receive() (state, error) {
	if err := s.setDeadline(s.conn.SetReadDeadline); err != nil {
		return stateReceive, err
	}

	n, err := s.conn.Read(s.buf.Data[:])
	if err != nil {
		return stateReceive, classifyTransport(err)
	}
	if n == 0 {
		// net.Conn.Read is documented to never return (0, nil); treat it
		// as EOF defensively rather than spinning.
		return stateReceive, fmt.Errorf("%w: zero-byte read", errs.ErrPeerClosed)
	}

	s.buf.Pending = n
	return stateEncode, nil
}

// encode folds the next available chunk into the running hash and, once a
// full line has been seen, transitions to Respond.
func (s *session) encode() (state, error) {
	if s.buf.Pending == 0 {
		return stateReceive, nil
	}

	dataLength, toConsume := linebuf.Inspect(s.buf.Data[:s.buf.Pending], '\n')
	if err := s.engine.Update(s.buf.Data[:dataLength]); err != nil {
		return stateEncode, fmt.Errorf("session encode: %w", err)
	}
	s.lineSize += dataLength
	s.buf.ShiftLeft(toConsume)

	lineComplete := toConsume-dataLength == 1
	if lineComplete {
		return stateRespond, nil
	}
	return stateReceive, nil
}

// respond finalizes the digest, writes the 65-byte hex response, and
// reports the completed line to the metrics sink.
func (s *session) respond() (state, error) {
	digest, err := s.engine.Finalize()
	if err != nil {
		return stateRespond, fmt.Errorf("session respond: %w", err)
	}

	hex := hashengine.ToHex(digest)
	copy(s.resp[:hashengine.HexSize], hex[:])
	s.resp[hashengine.HexSize] = '\n'

	if err := s.setDeadline(s.conn.SetWriteDeadline); err != nil {
		return stateRespond, err
	}
	if _, err := s.conn.Write(s.resp[:]); err != nil {
		return stateRespond, classifyTransport(err)
	}

	s.sink.LineProcessed(s.lineSize)
	s.lineSize = 0

	if s.buf.Pending > 0 {
		return stateEncode, nil
	}
	return stateReceive, nil
}

func (s *session) setDeadline(set func(time.Time) error) error {
	if s.connTimeout <= 0 {
		return nil
	}
	if err := set(time.Now().Add(s.connTimeout)); err != nil {
		return fmt.Errorf("%w: set deadline: %w", errs.ErrTransport, err)
	}
	return nil
}

// classifyTransport wraps a raw I/O error from conn in the errs sentinel
// that best matches its cause, so logTerminalError (and any future
// caller) can classify terminal errors with errors.Is against errs.* and
// never against concrete stdlib error types.
func classifyTransport(err error) error {
	switch {
	case errors.Is(err, net.ErrClosed):
		return fmt.Errorf("%w: %w", errs.ErrCancelled, err)
	case errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %w", errs.ErrPeerClosed, err)
	default:
		return fmt.Errorf("%w: %w", errs.ErrTransport, err)
	}
}

// logTerminalError classifies why the loop stopped per spec.md §7's
// taxonomy: Cancelled and PeerClosed are routine and logged at message
// level; everything else (TransportError, HashUpdateFailure,
// HashFinalizeFailure) is logged at error level.
func (s *session) logTerminalError(err error) {
	switch {
	case errors.Is(err, errs.ErrCancelled):
		s.log.Message(fmt.Sprintf("session %s: cancelled", s.id))
	case errors.Is(err, errs.ErrPeerClosed):
		s.log.Message(fmt.Sprintf("session %s: peer closed connection", s.id))
	default:
		s.log.Error(fmt.Sprintf("session %s: %v", s.id, err))
	}
}

func (s *session) cleanup(h *Handle) {
	s.terminate()
	h.ref.Store(nil)
	s.sink.SessionClosed()
}

// terminate is idempotent and safe from any goroutine: it is the body of
// both Handle.Terminate (external request) and the loop's own defer
// (normal exit). Closing conn while a Read/Write may be blocked on it is
// documented as safe by net.Conn; that safety is what lets the per-session
// serialization work without an explicit mutex.
func (s *session) terminate() {
	s.once.Do(func() {
		s.cancel()
		_ = s.conn.Close()
	})
}

// Handle observes one session's liveness and can request its termination.
// It never blocks and is safe to use from any goroutine, including the
// server's reap loop and an accept-loop goroutine racing a graceful
// shutdown.
type Handle struct {
	ref atomic.Pointer[session]
}

// IsAlive reports whether the session's goroutine is still running. Once
// false, it stays false — the underlying session is never resurrected.
func (h *Handle) IsAlive() bool {
	return h.ref.Load() != nil
}

// Terminate requests that the session stop. It is a no-op if the session
// has already exited.
func (h *Handle) Terminate() {
	s := h.ref.Load()
	if s == nil {
		return
	}
	s.terminate()
}
