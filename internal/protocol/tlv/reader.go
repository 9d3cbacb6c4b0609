package tlv

import "github.com/danmuck/sctl/internal/protocol/leb128"

// Reader parses records from a fixed buffer. A read that runs out of bytes
// at any stage reports ok=false and leaves the position unchanged.
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

// Bytes returns the unread bytes.
func (r *Reader) Bytes() []byte { return r.buf[r.pos:] }

// Reset points the reader at a new buffer.
func (r *Reader) Reset(buf []byte) {
	r.buf = buf
	r.pos = 0
}

// Skip consumes n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || n > r.Remaining() {
		return ErrBufferTooShort
	}
	r.pos += n
	return nil
}

// lv locates an LV item at off. It returns the value bounds when the whole
// item is buffered.
func (r *Reader) lv(width Width, off int) (start, end int, ok bool) {
	if len(r.buf)-off < int(width) {
		return 0, 0, false
	}
	n := width.get(r.buf[off:])
	start = off + int(width)
	if n > uint64(len(r.buf)-start) {
		return 0, 0, false
	}
	return start, start + int(n), true
}

// tlv locates a TLV record at off without consuming it.
func (r *Reader) tlv(width Width, off int) (tag uint32, start, end int, ok bool, err error) {
	if !width.valid() {
		return 0, 0, 0, false, ErrInvalidWidth
	}
	tag, n, err := leb128.ReadU32(r.buf[off:])
	if err != nil {
		return 0, 0, 0, false, tagError(err)
	}
	if n == 0 {
		return 0, 0, 0, false, nil
	}
	start, end, ok = r.lv(width, off+n)
	return tag, start, end, ok, nil
}

// PeekTLV returns the next record without consuming it. Value aliases the
// reader's buffer.
func (r *Reader) PeekTLV(width Width) (Record, bool, error) {
	tag, start, end, ok, err := r.tlv(width, r.pos)
	if !ok || err != nil {
		return Record{}, false, err
	}
	return Record{Tag: tag, Value: r.buf[start:end:end]}, true, nil
}

// NextTLV consumes the next record and returns it. Value aliases the
// reader's buffer.
func (r *Reader) NextTLV(width Width) (Record, bool, error) {
	tag, start, end, ok, err := r.tlv(width, r.pos)
	if !ok || err != nil {
		return Record{}, false, err
	}
	r.pos = end
	return Record{Tag: tag, Value: r.buf[start:end:end]}, true, nil
}

// ReadTLV consumes the next record and copies its value into dst. A dst
// shorter than the value fails with ErrBufferTooShort and consumes nothing.
func (r *Reader) ReadTLV(width Width, dst []byte) (Record, bool, error) {
	tag, start, end, ok, err := r.tlv(width, r.pos)
	if !ok || err != nil {
		return Record{}, false, err
	}
	if end-start > len(dst) {
		return Record{}, false, ErrBufferTooShort
	}
	n := copy(dst, r.buf[start:end])
	r.pos = end
	return Record{Tag: tag, Value: dst[:n]}, true, nil
}

func (r *Reader) ReadTLV8(dst []byte) (Record, bool, error) {
	return r.ReadTLV(Len8, dst)
}

func (r *Reader) ReadTLV16(dst []byte) (Record, bool, error) {
	return r.ReadTLV(Len16, dst)
}

func (r *Reader) ReadTLV32(dst []byte) (Record, bool, error) {
	return r.ReadTLV(Len32, dst)
}

// ReadLV consumes a length-prefixed value into dst.
func (r *Reader) ReadLV(width Width, dst []byte) ([]byte, bool, error) {
	if !width.valid() {
		return nil, false, ErrInvalidWidth
	}
	start, end, ok := r.lv(width, r.pos)
	if !ok {
		return nil, false, nil
	}
	if end-start > len(dst) {
		return nil, false, ErrBufferTooShort
	}
	n := copy(dst, r.buf[start:end])
	r.pos = end
	return dst[:n], true, nil
}

func (r *Reader) ReadLV8(dst []byte) ([]byte, bool, error) {
	return r.ReadLV(Len8, dst)
}

// NextLV consumes a length-prefixed value and returns a view of it.
func (r *Reader) NextLV(width Width) ([]byte, bool, error) {
	if !width.valid() {
		return nil, false, ErrInvalidWidth
	}
	start, end, ok := r.lv(width, r.pos)
	if !ok {
		return nil, false, nil
	}
	r.pos = end
	return r.buf[start:end:end], true, nil
}

// ReadATLV consumes an address record, copying the address into addrDst and
// the value into valDst.
func (r *Reader) ReadATLV(width Width, addrDst, valDst []byte) (AddrRecord, bool, error) {
	if !width.valid() {
		return AddrRecord{}, false, ErrInvalidWidth
	}
	astart, aend, ok := r.lv(width, r.pos)
	if !ok {
		return AddrRecord{}, false, nil
	}
	tag, start, end, ok, err := r.tlv(width, aend)
	if !ok || err != nil {
		return AddrRecord{}, false, err
	}
	if aend-astart > len(addrDst) || end-start > len(valDst) {
		return AddrRecord{}, false, ErrBufferTooShort
	}
	na := copy(addrDst, r.buf[astart:aend])
	nv := copy(valDst, r.buf[start:end])
	r.pos = end
	return AddrRecord{
		Addr:   addrDst[:na],
		Record: Record{Tag: tag, Value: valDst[:nv]},
	}, true, nil
}

func (r *Reader) ReadATLV8(addrDst, valDst []byte) (AddrRecord, bool, error) {
	return r.ReadATLV(Len8, addrDst, valDst)
}

func (r *Reader) ReadATLV16(addrDst, valDst []byte) (AddrRecord, bool, error) {
	return r.ReadATLV(Len16, addrDst, valDst)
}

func (r *Reader) ReadATLV32(addrDst, valDst []byte) (AddrRecord, bool, error) {
	return r.ReadATLV(Len32, addrDst, valDst)
}
