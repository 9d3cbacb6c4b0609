package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/sctl/internal/protocol/frame"
	"github.com/danmuck/sctl/internal/protocol/tlv"
)

// Reader iterates the records of one frame at a time.
type Reader struct {
	buf    []byte
	rec    tlv.Reader
	policy Policy
}

type Option func(*Reader)

// WithPolicy sets the unknown-tag policy. The default is PolicyOther.
func WithPolicy(p Policy) Option {
	return func(r *Reader) {
		r.policy = p
	}
}

// NewReader returns a reader that unstuffs frames into buf.
func NewReader(buf []byte, opts ...Option) *Reader {
	r := &Reader{buf: buf}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reader) Policy() Policy { return r.policy }

// Remaining is the number of unread record bytes in the current frame.
func (r *Reader) Remaining() int { return r.rec.Remaining() }

// Decode unstuffs one encoded frame. The trailing terminator is optional.
// Records left from a previous frame are discarded.
func (r *Reader) Decode(src []byte) error {
	if n := len(src); n > 0 && src[n-1] == frame.Delimiter {
		src = src[:n-1]
	}
	n, err := frame.Decode(src, r.buf)
	if err != nil {
		r.rec.Reset(nil)
		return wrap(LayerFrame, err)
	}
	r.rec.Reset(r.buf[:n])
	return nil
}

// ReadFrame pulls the next complete frame from fr. ok is false when fr holds
// no complete frame yet.
func (r *Reader) ReadFrame(fr *frame.Reader) (bool, error) {
	n, ok, err := fr.ReadFrame(r.buf)
	if err != nil {
		return false, wrap(LayerFrame, err)
	}
	if !ok {
		return false, nil
	}
	r.rec.Reset(r.buf[:n])
	return true, nil
}

// Load points the reader at records that are already unstuffed. raw is not
// copied.
func (r *Reader) Load(raw []byte) {
	r.rec.Reset(raw)
}

// Next copies the next message value into dst. ok is false with a nil error
// at the end of the frame. A dst too small for the value fails with
// tlv.ErrBufferTooShort without consuming the record.
func (r *Reader) Next(dst []byte) (Message, bool, error) {
	if rec, ok, err := r.rec.PeekTLV(tlv.Len8); ok && err == nil && len(rec.Value) > len(dst) {
		return Message{}, false, wrap(LayerTLV, tlv.ErrBufferTooShort)
	}
	m, ok, err := r.NextView()
	if !ok || err != nil {
		return Message{}, ok, err
	}
	n := copy(dst, m.Value)
	m.Value = dst[:n]
	return m, true, nil
}

// NextView returns the next message with Value aliasing the reader's buffer.
// A record that fails validation is consumed before its error is returned,
// so iteration can continue.
func (r *Reader) NextView() (Message, bool, error) {
	if r.rec.Remaining() == 0 {
		return Message{}, false, nil
	}
	rec, ok, err := r.rec.NextTLV(tlv.Len8)
	if err != nil {
		// record boundary is lost; drop the rest of the frame
		_ = r.rec.Skip(r.rec.Remaining())
		return Message{}, false, wrap(LayerTLV, err)
	}
	if !ok {
		_ = r.rec.Skip(r.rec.Remaining())
		return Message{}, false, wrap(LayerProtocol, ErrTruncated)
	}
	m := Message{Tag: Tag(rec.Tag), Value: rec.Value}
	if err := r.check(m); err != nil {
		return Message{}, false, err
	}
	return m, true, nil
}

// check applies the unknown-tag policy and the value shape of known tags.
// A shape mismatch matches both ErrInvalidLength and schema.ValidationError.
func (r *Reader) check(m Message) error {
	err := Validate(m, r.policy == PolicyStrict)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnknownTag):
		return wrap(LayerProtocol, err)
	default:
		return wrap(LayerProtocol, fmt.Errorf("%w: %w", ErrInvalidLength, err))
	}
}
