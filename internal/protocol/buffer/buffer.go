// Package buffer provides the fixed-capacity cursor buffer shared by the
// streaming readers and writers.
//
// A Buffer never grows. The caller supplies the backing array; the buffer only
// moves two offsets over it: head (next unread byte) and tail (next writable
// byte), with 0 <= head <= tail <= cap at all times.
package buffer

import (
	"errors"
	"io"
)

var (
	ErrOverflow  = errors.New("buffer: tail past capacity")
	ErrUnderflow = errors.New("buffer: head past tail")
	ErrFull      = errors.New("buffer: no free space")
)

// Buffer is a head/tail cursor pair over a caller-owned byte array.
type Buffer struct {
	buf  []byte
	head int
	tail int
}

// New returns an empty buffer over buf.
func New(buf []byte) Buffer {
	return Buffer{buf: buf}
}

// From returns a buffer whose readable region is all of buf.
func From(buf []byte) Buffer {
	return Buffer{buf: buf, tail: len(buf)}
}

func (b *Buffer) Cap() int { return len(b.buf) }

// Len is the number of unread bytes.
func (b *Buffer) Len() int { return b.tail - b.head }

// Remaining is the number of writable bytes after tail.
func (b *Buffer) Remaining() int { return len(b.buf) - b.tail }

func (b *Buffer) Head() int { return b.head }
func (b *Buffer) Tail() int { return b.tail }

// Bytes returns the unread region. It aliases the backing array.
func (b *Buffer) Bytes() []byte { return b.buf[b.head:b.tail] }

// Free returns the writable region after tail. Bytes copied into it become
// readable only after Extend.
func (b *Buffer) Free() []byte { return b.buf[b.tail:] }

// Extend marks n bytes of the free region as written.
func (b *Buffer) Extend(n int) error {
	if n < 0 || n > b.Remaining() {
		return ErrOverflow
	}
	b.tail += n
	return nil
}

// Push appends one byte.
func (b *Buffer) Push(c byte) error {
	if b.tail >= len(b.buf) {
		return ErrFull
	}
	b.buf[b.tail] = c
	b.tail++
	return nil
}

// Write copies p into the free region. It is all-or-nothing: when p does not
// fit, nothing is copied and ErrFull is returned.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) > b.Remaining() {
		return 0, ErrFull
	}
	n := copy(b.buf[b.tail:], p)
	b.tail += n
	return n, nil
}

// ReadFrom performs a single Read from r into the free region and extends by
// the count read. It does not loop; a transport read maps to one call.
func (b *Buffer) ReadFrom(r io.Reader) (int64, error) {
	if b.Remaining() == 0 {
		return 0, ErrFull
	}
	n, err := r.Read(b.buf[b.tail:])
	if n > 0 {
		b.tail += n
	}
	return int64(n), err
}

// Advance consumes n unread bytes.
func (b *Buffer) Advance(n int) error {
	if n < 0 || n > b.Len() {
		return ErrUnderflow
	}
	b.head += n
	return nil
}

// NextNull returns the absolute index of the first zero byte in the unread
// region, or -1.
func (b *Buffer) NextNull() int {
	for i := b.head; i < b.tail; i++ {
		if b.buf[i] == 0 {
			return i
		}
	}
	return -1
}

// NextPacket returns the bytes before the next zero byte and consumes them
// together with the zero. It reports false when no zero is buffered.
func (b *Buffer) NextPacket() ([]byte, bool) {
	i := b.NextNull()
	if i < 0 {
		return nil, false
	}
	p := b.buf[b.head:i]
	b.head = i + 1
	return p, true
}

// Compact resets both offsets to zero once everything has been consumed.
// It never moves data.
func (b *Buffer) Compact() {
	if b.head == b.tail {
		b.head = 0
		b.tail = 0
	}
}

// Reclaim moves the unread region to the start of the backing array so the
// free region can grow. Slices previously returned by Bytes or NextPacket are
// invalidated.
func (b *Buffer) Reclaim() {
	if b.head == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.head:b.tail])
	b.head = 0
	b.tail = n
}

// Reset discards all buffered bytes.
func (b *Buffer) Reset() {
	b.head = 0
	b.tail = 0
}
