// Package hashengine wraps the SHA-256 primitive behind the stateful
// update/finalize contract spec'd for the session state machine. It treats
// crypto/sha256 as the black-box cryptographic collaborator — the package
// never reimplements the digest, only the incremental/reset lifecycle
// around it.
package hashengine

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"hashd/internal/errs"
)

// Size is the length in bytes of a SHA-256 digest.
const Size = sha256.Size

// Digest is a fixed-size SHA-256 output.
type Digest [Size]byte

// ErrClosed is returned by Update/Finalize on an Engine whose last
// Finalize failed to re-initialize; per spec.md §4.1 such an engine is
// unusable afterward. crypto/sha256 cannot fail on New(), so this path is
// unreachable today — it exists so the contract stays honest if Engine is
// ever backed by a fallible resource.
var ErrClosed = errors.New("hashengine: engine is closed after a failed finalize")

// Engine is a stateful SHA-256 accumulator. The zero value is not usable;
// construct one with New.
type Engine struct {
	h      hash.Hash
	closed bool
}

// New constructs a fresh SHA-256 accumulator. The error return exists to
// preserve the create() -> HashEngine | InitError contract from spec.md
// §4.1 even though sha256.New() cannot presently fail; session.Spawn wraps
// a non-nil return in errs.ErrInit, and its caller logs it and drops the
// socket.
func New() (*Engine, error) {
	return &Engine{h: sha256.New()}, nil
}

// Update folds p into the running digest. An empty slice is a valid no-op.
// Failures are wrapped in errs.ErrHashUpdate so callers can classify them
// with errors.Is without depending on this package's own ErrClosed type.
func (e *Engine) Update(p []byte) error {
	if e.closed {
		return fmt.Errorf("%w: %w", errs.ErrHashUpdate, ErrClosed)
	}
	// hash.Hash.Write never returns an error for any sha256 implementation
	// in the standard library; it is checked anyway so a future backing
	// hash with real I/O would surface failures through this same path.
	if _, err := e.h.Write(p); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrHashUpdate, err)
	}
	return nil
}

// Finalize emits the digest of all bytes fed since construction or the
// last successful Finalize, then reinitializes the engine for reuse.
// Failures are wrapped in errs.ErrHashFinalize.
func (e *Engine) Finalize() (Digest, error) {
	if e.closed {
		return Digest{}, fmt.Errorf("%w: %w", errs.ErrHashFinalize, ErrClosed)
	}

	var d Digest
	copy(d[:], e.h.Sum(nil))

	// Re-arm for the next line. If this ever became fallible, the digest
	// above is still correct and returned — only future calls would fail.
	e.h = sha256.New()

	return d, nil
}
