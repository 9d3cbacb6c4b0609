// Package tlv lays out tag-length-value records: a LEB128 tag, a big-endian
// length of 1, 2 or 4 bytes, then the value. LV records drop the tag and
// address records prefix an LV address blob of the same width.
package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/sctl/internal/protocol/leb128"
)

// Width is the size in bytes of a record's length field.
type Width int

const (
	Len8  Width = 1
	Len16 Width = 2
	Len32 Width = 4
)

var (
	ErrBufferTooShort = errors.New("tlv: buffer too short")
	ErrOutOfRange     = errors.New("tlv: value out of range")
	ErrInvalidWidth   = errors.New("tlv: invalid length width")
	ErrInvalidMark    = errors.New("tlv: mark does not belong to open record")
	ErrOpenDepth      = errors.New("tlv: too many open records")
)

// Record is one decoded tag and value.
type Record struct {
	Tag   uint32
	Value []byte
}

// AddrRecord is a record addressed to an endpoint.
type AddrRecord struct {
	Addr []byte
	Record
}

func (w Width) valid() bool {
	return w == Len8 || w == Len16 || w == Len32
}

// Max is the largest length representable in the width.
func (w Width) Max() uint64 {
	return 1<<(8*uint(w)) - 1
}

func (w Width) String() string {
	switch w {
	case Len8:
		return "len8"
	case Len16:
		return "len16"
	case Len32:
		return "len32"
	default:
		return fmt.Sprintf("width(%d)", int(w))
	}
}

func (w Width) put(dst []byte, n int) {
	switch w {
	case Len8:
		dst[0] = byte(n)
	case Len16:
		binary.BigEndian.PutUint16(dst, uint16(n))
	case Len32:
		binary.BigEndian.PutUint32(dst, uint32(n))
	}
}

func (w Width) get(src []byte) uint64 {
	switch w {
	case Len8:
		return uint64(src[0])
	case Len16:
		return uint64(binary.BigEndian.Uint16(src))
	default:
		return uint64(binary.BigEndian.Uint32(src))
	}
}

func (w Width) check(n int) error {
	if !w.valid() {
		return ErrInvalidWidth
	}
	if uint64(n) > w.Max() {
		return fmt.Errorf("%w: length %d exceeds %s", ErrOutOfRange, n, w)
	}
	return nil
}

// Size is the encoded size of a TLV record.
func Size(w Width, tag uint32, n int) int {
	return leb128.SizeU32(tag) + int(w) + n
}

// tagError reports a tag that failed varint decoding; it matches both this
// package's and leb128's sentinel.
func tagError(err error) error {
	if errors.Is(err, leb128.ErrOutOfRange) {
		return fmt.Errorf("%w: tag: %w", ErrOutOfRange, err)
	}
	return err
}
