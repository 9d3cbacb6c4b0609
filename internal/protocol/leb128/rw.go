package leb128

// Reader decodes values from a fixed byte slice.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Len() int       { return len(r.buf) }
func (r *Reader) Pos() int       { return r.pos }
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// ReadU1 reads a boolean stored as 0 or 1.
func (r *Reader) ReadU1() (bool, bool, error) {
	if r.Remaining() == 0 {
		return false, false, nil
	}
	b := r.buf[r.pos]
	if b&^0x01 != 0 {
		return false, false, ErrOutOfRange
	}
	r.pos++
	return b != 0, true, nil
}

func (r *Reader) ReadU7() (uint8, bool, error) {
	if r.Remaining() == 0 {
		return 0, false, nil
	}
	b := r.buf[r.pos]
	if b&continuation != 0 {
		return 0, false, ErrOutOfRange
	}
	r.pos++
	return b, true, nil
}

func (r *Reader) ReadI7() (int8, bool, error) {
	if r.Remaining() == 0 {
		return 0, false, nil
	}
	b := r.buf[r.pos]
	if b&continuation != 0 {
		return 0, false, ErrOutOfRange
	}
	r.pos++
	// shift bit 6 into the sign position and back to sign-extend
	return int8(b<<1) >> 1, true, nil
}

func (r *Reader) ReadU32() (uint32, bool, error) {
	v, n, err := ReadU32(r.buf[r.pos:])
	if err != nil || n == 0 {
		return 0, false, err
	}
	r.pos += n
	return v, true, nil
}

func (r *Reader) ReadI32() (int32, bool, error) {
	v, n, err := ReadI32(r.buf[r.pos:])
	if err != nil || n == 0 {
		return 0, false, err
	}
	r.pos += n
	return v, true, nil
}

// Writer encodes values into a fixed byte slice. A failed write leaves the
// position where it was.
type Writer struct {
	buf []byte
	pos int
}

func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

func (w *Writer) Cap() int       { return len(w.buf) }
func (w *Writer) Pos() int       { return w.pos }
func (w *Writer) Remaining() int { return len(w.buf) - w.pos }

// Bytes returns the encoded prefix.
func (w *Writer) Bytes() []byte { return w.buf[:w.pos] }

func (w *Writer) Reset() { w.pos = 0 }

func (w *Writer) WriteU1(v bool) error {
	if w.Remaining() < 1 {
		return ErrBufferTooShort
	}
	w.buf[w.pos] = 0
	if v {
		w.buf[w.pos] = 1
	}
	w.pos++
	return nil
}

func (w *Writer) WriteU7(v uint8) error {
	if w.Remaining() < 1 {
		return ErrBufferTooShort
	}
	if v&continuation != 0 {
		return ErrOutOfRange
	}
	w.buf[w.pos] = v
	w.pos++
	return nil
}

func (w *Writer) WriteI7(v int8) error {
	if w.Remaining() < 1 {
		return ErrBufferTooShort
	}
	if v < -64 || v > 63 {
		return ErrOutOfRange
	}
	w.buf[w.pos] = byte(v) & payload
	w.pos++
	return nil
}

func (w *Writer) WriteU32(v uint32) error {
	n, err := PutU32(w.buf[w.pos:], v)
	if err != nil {
		return err
	}
	w.pos += n
	return nil
}

func (w *Writer) WriteI32(v int32) error {
	n, err := PutI32(w.buf[w.pos:], v)
	if err != nil {
		return err
	}
	w.pos += n
	return nil
}
