// Package errs declares the sentinel error kinds the session and server
// components wrap terminal failures in, grounded on the teacher's
// cmd/identity/kinds.go + errors.go split: stable sentinel vars declared
// with errors.New, classified by callers with errors.Is rather than by
// comparing against concrete stdlib error types.
package errs

import "errors"

// Sentinel error kinds, one per taxonomy entry in spec.md §7. Call sites
// wrap the underlying cause with these via fmt.Errorf's %w.
var (
	// ErrInit marks a session construction failure (e.g. HashEngine
	// creation) — the connection is closed without a handle ever being
	// registered.
	ErrInit = errors.New("init")
	// ErrTransport marks a read/write/accept I/O failure that is neither
	// cancellation nor a clean peer close.
	ErrTransport = errors.New("transport")
	// ErrCancelled marks an operation aborted by Terminate or Stop.
	ErrCancelled = errors.New("cancelled")
	// ErrPeerClosed marks a clean EOF on read.
	ErrPeerClosed = errors.New("peer_closed")
	// ErrHashUpdate marks a failed HashEngine.Update call.
	ErrHashUpdate = errors.New("hash_update")
	// ErrHashFinalize marks a failed HashEngine.Finalize call.
	ErrHashFinalize = errors.New("hash_finalize")
	// ErrTimerSetup marks a failure arming the reap timer; the one kind
	// that is fatal to the whole server rather than to one session.
	ErrTimerSetup = errors.New("timer_setup")
)
