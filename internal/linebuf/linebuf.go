// Package linebuf implements the fixed-capacity read buffer and the pure
// byte-shuffling helpers the session state machine uses to find and drain
// newline-terminated lines without ever allocating per line.
package linebuf

// Capacity is the fixed size in bytes of a Buffer's backing array.
const Capacity = 2048

// Buffer is a fixed-capacity byte region plus the count of currently valid
// bytes. Data[:Pending] is valid; the rest is unspecified until filled by
// the next read.
type Buffer struct {
	Data    [Capacity]byte
	Pending int
}

// Inspect scans data (the caller passes Data[:Pending]) for the first
// occurrence of term. dataLength is the number of bytes preceding a found
// terminator (or all of data if none is found). toConsume is dataLength+1
// when a terminator was found, or dataLength when it was not — i.e. how
// many leading bytes should be removed from the buffer once the returned
// span has been consumed.
func Inspect(data []byte, term byte) (dataLength, toConsume int) {
	for i, b := range data {
		if b == term {
			return i, i + 1
		}
	}
	return len(data), len(data)
}

// ShiftLeft moves Data[n:Pending] to Data[0:Pending-n] and zeroes the
// vacated tail. Zeroing is defense in depth, not a correctness
// requirement: only Data[:Pending-n] is semantically valid afterward.
func (b *Buffer) ShiftLeft(n int) {
	if n <= 0 {
		return
	}
	if n >= b.Pending {
		clearTail(b.Data[:b.Pending])
		b.Pending = 0
		return
	}

	remaining := b.Pending - n
	copy(b.Data[:remaining], b.Data[n:b.Pending])
	clearTail(b.Data[remaining:b.Pending])
	b.Pending = remaining
}

func clearTail(s []byte) {
	for i := range s {
		s[i] = 0
	}
}
