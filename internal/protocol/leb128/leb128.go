// Package leb128 encodes and decodes little-endian base-128 integers bounded
// to 32 bits, plus the single-byte u1/u7/i7 forms.
//
// Reads never fail for lack of data: an exhausted buffer reports ok=false and
// leaves the reader position untouched so the call can be repeated after
// more bytes arrive.
package leb128

import (
	"errors"
	"math/bits"
)

const (
	MaxLen32 = 5

	continuation = 0x80
	payload      = 0x7f
	signBit      = 0x40
)

var (
	ErrBufferTooShort = errors.New("leb128: buffer too short")
	ErrOutOfRange     = errors.New("leb128: value out of range")
)

// SizeU32 is the canonical encoded length of v.
func SizeU32(v uint32) int {
	n := 1
	for v >>= 7; v != 0; v >>= 7 {
		n++
	}
	return n
}

// SizeI32 is the canonical encoded length of v.
func SizeI32(v int32) int {
	n := 1
	for {
		b := byte(v) & payload
		v >>= 7
		if (v == 0 && b&signBit == 0) || (v == -1 && b&signBit != 0) {
			return n
		}
		n++
	}
}

// PutU32 encodes v into dst and returns the number of bytes written. dst is
// not modified when it is too short.
func PutU32(dst []byte, v uint32) (int, error) {
	n := SizeU32(v)
	if len(dst) < n {
		return 0, ErrBufferTooShort
	}
	for i := 0; i < n-1; i++ {
		dst[i] = byte(v)&payload | continuation
		v >>= 7
	}
	dst[n-1] = byte(v)
	return n, nil
}

// PutI32 encodes v into dst and returns the number of bytes written. dst is
// not modified when it is too short.
func PutI32(dst []byte, v int32) (int, error) {
	n := SizeI32(v)
	if len(dst) < n {
		return 0, ErrBufferTooShort
	}
	for i := 0; i < n-1; i++ {
		dst[i] = byte(v)&payload | continuation
		v >>= 7
	}
	dst[n-1] = byte(v) & payload
	return n, nil
}

// ReadU32 decodes an unsigned value from the start of src. n is zero when
// src ends before the terminating group.
func ReadU32(src []byte) (v uint32, n int, err error) {
	var shift uint
	for i, b := range src {
		if i == MaxLen32 {
			return 0, 0, ErrOutOfRange
		}
		v |= uint32(b&payload) << shift
		shift += 7
		if b&continuation == 0 {
			// significant bits = 7 per full group + bits used in the last one
			size := int(shift) + 1 - bits.LeadingZeros8(b)
			if size > 32 {
				return 0, 0, ErrOutOfRange
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, nil
}

// ReadI32 decodes a signed value from the start of src. n is zero when src
// ends before the terminating group.
func ReadI32(src []byte) (v int32, n int, err error) {
	var shift uint
	for i, b := range src {
		if i == MaxLen32 {
			return 0, 0, ErrOutOfRange
		}
		v |= int32(b&payload) << shift
		shift += 7
		if b&continuation != 0 {
			continue
		}
		// magnitude bits of the last group plus one sign bit
		mag := b
		if b&signBit != 0 {
			mag = ^(b | continuation)
		}
		size := int(shift) + 2 - bits.LeadingZeros8(mag)
		if size > 32 {
			return 0, 0, ErrOutOfRange
		}
		if shift < 32 && b&signBit != 0 {
			v |= -1 << shift
		}
		return v, i + 1, nil
	}
	return 0, 0, nil
}
