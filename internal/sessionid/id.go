// Package sessionid mints correlation identifiers for log lines. These
// IDs are never part of the wire protocol (spec.md's wire protocol is
// exactly 65 response bytes per line, nothing more) — they only give an
// operator a stable handle to grep for one connection's log lines.
package sessionid

import (
	"bytes"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a 26-character ULID, adapted from the teacher's
// cmd/identity/ids.NewULID: lexicographically sortable by acceptance time,
// which makes log lines for concurrently-accepted sessions easy to
// interleave-sort by eye.
func New(now time.Time) string {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		// crypto/rand.Reader failing is a catastrophic host problem; fall
		// back to a timestamp-only ULID so logging still works rather
		// than panicking inside the accept path.
		zero := make([]byte, 10)
		id, _ = ulid.New(ulid.Timestamp(now), bytes.NewReader(zero))
	}
	return id.String()
}
