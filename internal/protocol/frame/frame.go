// Package frame delimits messages on an unframed byte stream using
// Consistent Overhead Byte Stuffing.
//
// An encoded frame contains no zero bytes; a single 0x00 terminates it on the
// wire. Encode and Decode work on caller-owned slices and never allocate.
package frame

import "errors"

const (
	// Delimiter terminates every frame on the wire.
	Delimiter byte = 0x00

	// maxCode marks a full group of 254 literal bytes with no elided zero.
	maxCode = 0xff
)

var (
	ErrBufferTooShort    = errors.New("frame: buffer too short")
	ErrDestTooShort      = errors.New("frame: destination too short")
	ErrSourceTooShort    = errors.New("frame: source too short")
	ErrUnexpectedNull    = errors.New("frame: unexpected null in encoded frame")
	ErrMissingTerminator = errors.New("frame: missing terminator")
	ErrInvalidEncoding   = errors.New("frame: invalid encoding")
)

// MaxEncodedLen is the worst-case encoded size of an n byte payload,
// excluding the terminator.
func MaxEncodedLen(n int) int {
	return n + (n+254)/254
}

// Encode stuffs src into dst and returns the number of bytes used. The
// result holds no zero bytes and does not include the terminator.
func Encode(src, dst []byte) (int, error) {
	code := byte(1)
	cp := 0 // reserved header slot for the open group
	d := 1
	for _, c := range src {
		if c == 0 {
			if cp >= len(dst) {
				return 0, ErrBufferTooShort
			}
			dst[cp] = code
			cp = d
			d++
			code = 1
			continue
		}
		if d >= len(dst) {
			return 0, ErrBufferTooShort
		}
		dst[d] = c
		d++
		code++
		if code == maxCode {
			if cp >= len(dst) {
				return 0, ErrBufferTooShort
			}
			dst[cp] = code
			cp = d
			d++
			code = 1
		}
	}
	if cp >= len(dst) {
		return 0, ErrBufferTooShort
	}
	dst[cp] = code
	return d, nil
}

// Decode unstuffs one encoded frame (without its terminator) into dst and
// returns the number of bytes written. dst must hold at least len(src)-1
// bytes. src and dst may be the same slice.
func Decode(src, dst []byte) (int, error) {
	if len(src) == 0 {
		return 0, ErrInvalidEncoding
	}
	if len(dst)+1 < len(src) {
		return 0, ErrDestTooShort
	}
	s, d := 0, 0
	for s < len(src) {
		code := int(src[s])
		if code == 0 {
			return 0, ErrUnexpectedNull
		}
		if s+code > len(src) {
			return 0, ErrSourceTooShort
		}
		s++
		for i := 1; i < code; i++ {
			c := src[s]
			if c == 0 {
				return 0, ErrUnexpectedNull
			}
			dst[d] = c
			d++
			s++
		}
		// the zero is implied only between groups
		if code != maxCode && s != len(src) {
			dst[d] = 0
			d++
		}
	}
	return d, nil
}
