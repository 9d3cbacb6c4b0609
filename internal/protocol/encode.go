package protocol

import (
	"github.com/danmuck/sctl/internal/protocol/frame"
	"github.com/danmuck/sctl/internal/protocol/tlv"
)

// Writer accumulates records for one frame in a caller-owned buffer.
type Writer struct {
	rec *tlv.Writer
}

func NewWriter(buf []byte) *Writer {
	return &Writer{rec: tlv.NewWriter(buf)}
}

// Len is the size of the records accumulated so far.
func (w *Writer) Len() int       { return w.rec.Pos() }
func (w *Writer) Remaining() int { return w.rec.Remaining() }

// Bytes returns the unstuffed records.
func (w *Writer) Bytes() []byte { return w.rec.Bytes() }

func (w *Writer) Reset() { w.rec.Reset() }

// Append writes one record. Values longer than 255 bytes fail with
// tlv.ErrOutOfRange.
func (w *Writer) Append(tag Tag, value []byte) error {
	_, err := w.rec.WriteTLV8(uint32(tag), value)
	return wrap(LayerTLV, err)
}

func (w *Writer) AppendMessage(m Message) error {
	return w.Append(m.Tag, m.Value)
}

func (w *Writer) Boot(value []byte) error      { return w.Append(TagBoot, value) }
func (w *Writer) Run(value []byte) error       { return w.Append(TagRun, value) }
func (w *Writer) Exception(value []byte) error { return w.Append(TagException, value) }
func (w *Writer) Panic(value []byte) error     { return w.Append(TagPanic, value) }
func (w *Writer) Stdin(value []byte) error     { return w.Append(TagStdin, value) }
func (w *Writer) Stdout(value []byte) error    { return w.Append(TagStdout, value) }
func (w *Writer) Stderr(value []byte) error    { return w.Append(TagStderr, value) }
func (w *Writer) Error(value []byte) error     { return w.Append(TagError, value) }
func (w *Writer) Warn(value []byte) error      { return w.Append(TagWarn, value) }
func (w *Writer) Info(value []byte) error      { return w.Append(TagInfo, value) }
func (w *Writer) Debug(value []byte) error     { return w.Append(TagDebug, value) }
func (w *Writer) Trace(value []byte) error     { return w.Append(TagTrace, value) }
func (w *Writer) Get(key []byte) error         { return w.Append(TagGet, key) }

func (w *Writer) Exit(status byte) error {
	return w.Append(TagExit, []byte{status})
}

func (w *Writer) Val(key, value []byte) error { return w.keyValue(TagVal, key, value) }
func (w *Writer) Set(key, value []byte) error { return w.keyValue(TagSet, key, value) }

// keyValue builds the record body in place. Any failure leaves no partial
// record behind.
func (w *Writer) keyValue(tag Tag, key, value []byte) error {
	m, err := w.rec.Open(tlv.Len8, uint32(tag))
	if err != nil {
		return wrap(LayerTLV, err)
	}
	if _, err := w.rec.WriteLV8(key); err != nil {
		w.rec.Rollback(m)
		return wrap(LayerTLV, err)
	}
	if _, err := w.rec.WriteLV8(value); err != nil {
		w.rec.Rollback(m)
		return wrap(LayerTLV, err)
	}
	_, err = w.rec.Close(m)
	return wrap(LayerTLV, err)
}

// Encode stuffs the accumulated records into dst as one terminated frame and
// resets the writer. On failure the records are kept.
func (w *Writer) Encode(dst []byte) (int, error) {
	n, err := frame.Encode(w.rec.Bytes(), dst)
	if err != nil {
		return 0, wrap(LayerFrame, err)
	}
	if n >= len(dst) {
		return 0, wrap(LayerFrame, frame.ErrBufferTooShort)
	}
	dst[n] = frame.Delimiter
	w.rec.Reset()
	return n + 1, nil
}

// EncodeTo appends the accumulated records to fw as one frame and resets the
// writer. On failure the records are kept.
func (w *Writer) EncodeTo(fw *frame.Writer) (int, error) {
	n, err := fw.WriteFrame(w.rec.Bytes())
	if err != nil {
		return 0, wrap(LayerFrame, err)
	}
	w.rec.Reset()
	return n, nil
}
