package linebuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name           string
		data           string
		wantDataLen    int
		wantToConsume  int
	}{
		{name: "no terminator", data: "abc", wantDataLen: 3, wantToConsume: 3},
		{name: "terminator at start", data: "\nabc", wantDataLen: 0, wantToConsume: 1},
		{name: "terminator at end", data: "abc\n", wantDataLen: 3, wantToConsume: 4},
		{name: "empty", data: "", wantDataLen: 0, wantToConsume: 0},
		{name: "multiple lines takes first", data: "a\nb\n", wantDataLen: 1, wantToConsume: 2},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dataLen, toConsume := Inspect([]byte(tc.data), '\n')
			assert.Equal(t, tc.wantDataLen, dataLen)
			assert.Equal(t, tc.wantToConsume, toConsume)
		})
	}
}

func TestShiftLeft(t *testing.T) {
	t.Parallel()

	var b Buffer
	copy(b.Data[:], "a\nbc")
	b.Pending = 4

	b.ShiftLeft(2)

	assert.Equal(t, 2, b.Pending)
	assert.Equal(t, byte('b'), b.Data[0])
	assert.Equal(t, byte('c'), b.Data[1])
	// Tail beyond Pending is zeroed (defense in depth, not load-bearing).
	assert.Equal(t, byte(0), b.Data[2])
	assert.Equal(t, byte(0), b.Data[3])
}

func TestShiftLeftEntireBuffer(t *testing.T) {
	t.Parallel()

	var b Buffer
	copy(b.Data[:], "abc")
	b.Pending = 3

	b.ShiftLeft(3)

	assert.Equal(t, 0, b.Pending)
}

func TestShiftLeftZeroIsNoOp(t *testing.T) {
	t.Parallel()

	var b Buffer
	copy(b.Data[:], "abc")
	b.Pending = 3

	b.ShiftLeft(0)

	assert.Equal(t, 3, b.Pending)
	assert.Equal(t, byte('a'), b.Data[0])
}

func TestInspectThenShiftLeftDrainsMultipleLines(t *testing.T) {
	t.Parallel()

	var b Buffer
	copy(b.Data[:], "a\nb\n")
	b.Pending = 4

	var lines []string
	for b.Pending > 0 {
		dataLen, toConsume := Inspect(b.Data[:b.Pending], '\n')
		if toConsume == dataLen {
			break // no terminator in the remaining bytes
		}
		lines = append(lines, string(b.Data[:dataLen]))
		b.ShiftLeft(toConsume)
	}

	assert.Equal(t, []string{"a", "b"}, lines)
	assert.Equal(t, 0, b.Pending)
}
