package frame

import (
	"errors"
	"io"

	"github.com/danmuck/sctl/internal/protocol/buffer"
)

// Writer appends terminated frames to a fixed destination buffer.
type Writer struct {
	buf buffer.Buffer
}

func NewWriter(dst []byte) *Writer {
	return &Writer{buf: buffer.New(dst)}
}

func (w *Writer) Cap() int       { return w.buf.Cap() }
func (w *Writer) Len() int       { return w.buf.Len() }
func (w *Writer) Remaining() int { return w.buf.Remaining() }

// Pos is the write offset, i.e. the end of the last complete frame.
func (w *Writer) Pos() int { return w.buf.Tail() }

// Bytes returns the frames written and not yet flushed.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) Reset() { w.buf.Reset() }

// WriteFrame encodes src as one frame followed by the terminator and returns
// the bytes used including the terminator. Nothing is committed on error.
func (w *Writer) WriteFrame(src []byte) (int, error) {
	free := w.buf.Free()
	n, err := Encode(src, free)
	if err != nil {
		return 0, err
	}
	if n+1 > len(free) {
		return 0, ErrBufferTooShort
	}
	free[n] = Delimiter
	if err := w.buf.Extend(n + 1); err != nil {
		return 0, err
	}
	return n + 1, nil
}

// Flush hands pending frames to dst. Bytes accepted by dst are consumed even
// when dst reports an error.
func (w *Writer) Flush(dst io.Writer) (int, error) {
	n, err := dst.Write(w.buf.Bytes())
	if n > 0 {
		_ = w.buf.Advance(n)
		w.buf.Compact()
	}
	if err == nil && w.buf.Len() > 0 {
		err = io.ErrShortWrite
	}
	return n, err
}

// Reader reassembles frames from bytes fed in arbitrary chunks.
type Reader struct {
	buf     buffer.Buffer
	discard bool
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buffer.New(buf)}
}

func (r *Reader) Cap() int { return r.buf.Cap() }

// Len is the number of buffered, unconsumed bytes.
func (r *Reader) Len() int { return r.buf.Len() }

// Pos is the offset of the next unconsumed byte.
func (r *Reader) Pos() int { return r.buf.Head() }

// Remaining is the free space available for Fill/Extend.
func (r *Reader) Remaining() int { return r.buf.Remaining() }

// Free is the region a transport may copy into before calling Extend.
func (r *Reader) Free() []byte { return r.buf.Free() }

func (r *Reader) Extend(n int) error { return r.buf.Extend(n) }

// Fill copies as much of p as fits and returns the count copied.
func (r *Reader) Fill(p []byte) int {
	n := copy(r.buf.Free(), p)
	_ = r.buf.Extend(n)
	return n
}

// ReadFrom performs one read from src into the free region.
func (r *Reader) ReadFrom(src io.Reader) (int64, error) {
	return r.buf.ReadFrom(src)
}

// Compact resets the buffer offsets once every buffered byte is consumed.
func (r *Reader) Compact() { r.buf.Compact() }

// Reclaim moves a partially received frame to the start of the buffer.
func (r *Reader) Reclaim() { r.buf.Reclaim() }

// ReadFrame decodes the next complete frame into dst. ok is false with a nil
// error when no terminator has arrived yet; nothing is consumed in that case.
//
// A frame that fails to decode is dropped through its terminator and the
// error returned, so the next call starts on a frame boundary. ErrDestTooShort
// leaves the frame buffered for a retry with a larger dst.
func (r *Reader) ReadFrame(dst []byte) (n int, ok bool, err error) {
	span, ok, err := r.next()
	if !ok || err != nil {
		return 0, false, err
	}
	n, err = Decode(span, dst)
	if errors.Is(err, ErrDestTooShort) {
		return 0, false, err
	}
	_ = r.buf.Advance(len(span) + 1)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// NextFrame decodes the next complete frame in place and returns a view of
// it. The view is valid until the next call that mutates the reader.
func (r *Reader) NextFrame() ([]byte, bool, error) {
	span, ok, err := r.next()
	if !ok || err != nil {
		return nil, false, err
	}
	n, err := Decode(span, span)
	_ = r.buf.Advance(len(span) + 1)
	if err != nil {
		return nil, false, err
	}
	return span[:n], true, nil
}

// next locates the next non-empty terminated span, skipping idle zeros and
// the tail of a frame dropped for overrunning the buffer.
func (r *Reader) next() ([]byte, bool, error) {
	for {
		i := r.buf.NextNull()
		if i < 0 {
			if r.discard {
				r.buf.Reset()
				return nil, false, nil
			}
			if r.buf.Len() > 0 && r.buf.Len() == r.buf.Cap() {
				r.buf.Reset()
				r.discard = true
				return nil, false, ErrMissingTerminator
			}
			return nil, false, nil
		}
		span := r.buf.Bytes()[:i-r.buf.Head()]
		if r.discard || len(span) == 0 {
			r.discard = false
			_ = r.buf.Advance(len(span) + 1)
			continue
		}
		return span, true, nil
	}
}
