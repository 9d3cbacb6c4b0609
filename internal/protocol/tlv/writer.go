package tlv

import "github.com/danmuck/sctl/internal/protocol/leb128"

// Writer appends records to a fixed buffer. Every write checks the full record
// size first, so a failed write leaves the buffer and position unchanged.
type Writer struct {
	buf []byte
	pos int

	// open holds the sequence number of each record still open, innermost last.
	open  [MaxOpen]uint32
	depth int
	seq   uint32
}

// MaxOpen bounds how many records may be open at once.
const MaxOpen = 8

// Mark is a record header reserved by Open. It is valid until the record is
// closed or rolled back, or the writer is reset.
type Mark struct {
	start int
	body  int
	width Width
	depth int
	seq   uint32
}

func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) Cap() int       { return len(w.buf) }
func (w *Writer) Pos() int       { return w.pos }
func (w *Writer) Remaining() int { return len(w.buf) - w.pos }

// Bytes returns the records written so far.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

func (w *Writer) Reset() {
	w.pos = 0
	w.depth = 0
}

func (w *Writer) putTag(tag uint32) {
	n, _ := leb128.PutU32(w.buf[w.pos:], tag)
	w.pos += n
}

func (w *Writer) putLen(width Width, n int) {
	width.put(w.buf[w.pos:], n)
	w.pos += int(width)
}

func (w *Writer) putBytes(p []byte) {
	w.pos += copy(w.buf[w.pos:], p)
}

// WriteTLV writes tag, a width-sized length, then value, and returns the
// record size.
func (w *Writer) WriteTLV(width Width, tag uint32, value []byte) (int, error) {
	if err := width.check(len(value)); err != nil {
		return 0, err
	}
	size := Size(width, tag, len(value))
	if size > w.Remaining() {
		return 0, ErrBufferTooShort
	}
	w.putTag(tag)
	w.putLen(width, len(value))
	w.putBytes(value)
	return size, nil
}

func (w *Writer) WriteTLV8(tag uint32, value []byte) (int, error) {
	return w.WriteTLV(Len8, tag, value)
}

func (w *Writer) WriteTLV16(tag uint32, value []byte) (int, error) {
	return w.WriteTLV(Len16, tag, value)
}

func (w *Writer) WriteTLV32(tag uint32, value []byte) (int, error) {
	return w.WriteTLV(Len32, tag, value)
}

// WriteLV writes a length-prefixed value with no tag.
func (w *Writer) WriteLV(width Width, value []byte) (int, error) {
	if err := width.check(len(value)); err != nil {
		return 0, err
	}
	size := int(width) + len(value)
	if size > w.Remaining() {
		return 0, ErrBufferTooShort
	}
	w.putLen(width, len(value))
	w.putBytes(value)
	return size, nil
}

func (w *Writer) WriteLV8(value []byte) (int, error) {
	return w.WriteLV(Len8, value)
}

// WriteATLV writes an LV address followed by a TLV record, both using width.
func (w *Writer) WriteATLV(width Width, addr []byte, tag uint32, value []byte) (int, error) {
	if err := width.check(len(addr)); err != nil {
		return 0, err
	}
	if err := width.check(len(value)); err != nil {
		return 0, err
	}
	size := int(width) + len(addr) + Size(width, tag, len(value))
	if size > w.Remaining() {
		return 0, ErrBufferTooShort
	}
	w.putLen(width, len(addr))
	w.putBytes(addr)
	w.putTag(tag)
	w.putLen(width, len(value))
	w.putBytes(value)
	return size, nil
}

func (w *Writer) WriteATLV8(addr []byte, tag uint32, value []byte) (int, error) {
	return w.WriteATLV(Len8, addr, tag, value)
}

func (w *Writer) WriteATLV16(addr []byte, tag uint32, value []byte) (int, error) {
	return w.WriteATLV(Len16, addr, tag, value)
}

func (w *Writer) WriteATLV32(addr []byte, tag uint32, value []byte) (int, error) {
	return w.WriteATLV(Len32, addr, tag, value)
}

// Open writes the tag and a zero length placeholder. The body is written
// with further calls and sized by Close.
func (w *Writer) Open(width Width, tag uint32) (Mark, error) {
	if !width.valid() {
		return Mark{}, ErrInvalidWidth
	}
	if w.depth == MaxOpen {
		return Mark{}, ErrOpenDepth
	}
	if Size(width, tag, 0) > w.Remaining() {
		return Mark{}, ErrBufferTooShort
	}
	w.seq++
	w.open[w.depth] = w.seq
	w.depth++
	m := Mark{start: w.pos, width: width, depth: w.depth, seq: w.seq}
	w.putTag(tag)
	w.putLen(width, 0)
	m.body = w.pos
	return m, nil
}

// live reports whether m is still open. Only the innermost record may be
// closed, but any open record may be rolled back.
func (w *Writer) live(m Mark) bool {
	return m.depth > 0 && m.depth <= w.depth && w.open[m.depth-1] == m.seq && m.body <= w.pos
}

// Close patches the length of an opened record. A body longer than the width
// allows is rolled back and reported as ErrOutOfRange. Closing a record
// that is not the innermost open one fails with ErrInvalidMark.
func (w *Writer) Close(m Mark) (int, error) {
	if !w.live(m) || m.depth != w.depth {
		return 0, ErrInvalidMark
	}
	n := w.pos - m.body
	if err := m.width.check(n); err != nil {
		w.Rollback(m)
		return 0, err
	}
	m.width.put(w.buf[m.body-int(m.width):], n)
	w.depth--
	return w.pos - m.start, nil
}

// Rollback discards an opened record, any record opened inside it, and
// everything written after it. A stale mark is ignored.
func (w *Writer) Rollback(m Mark) {
	if !w.live(m) {
		return
	}
	w.pos = m.start
	w.depth = m.depth - 1
}
