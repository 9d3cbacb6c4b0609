package tlv

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/danmuck/sctl/internal/protocol/leb128"
)

var hello = []byte("Hello, World")

func TestWriteReadEachWidth(t *testing.T) {
	cases := []struct {
		width Width
		write func(*Writer, uint32, []byte) (int, error)
		read  func(*Reader, []byte) (Record, bool, error)
	}{
		{Len8, (*Writer).WriteTLV8, (*Reader).ReadTLV8},
		{Len16, (*Writer).WriteTLV16, (*Reader).ReadTLV16},
		{Len32, (*Writer).WriteTLV32, (*Reader).ReadTLV32},
	}
	for _, tc := range cases {
		t.Run(tc.width.String(), func(t *testing.T) {
			w := NewWriter(make([]byte, 256))
			n, err := tc.write(w, 0x1234, hello)
			if err != nil {
				t.Fatalf("write: %v", err)
			}
			if want := 2 + int(tc.width) + len(hello); n != want || w.Pos() != want {
				t.Fatalf("expected %d bytes, got n=%d pos=%d", want, n, w.Pos())
			}
			r := NewReader(w.Bytes())
			rec, ok, err := tc.read(r, make([]byte, 256))
			if err != nil || !ok {
				t.Fatalf("read: ok=%v err=%v", ok, err)
			}
			if rec.Tag != 0x1234 || !bytes.Equal(rec.Value, hello) {
				t.Fatalf("unexpected record %+v", rec)
			}
			if r.Remaining() != 0 {
				t.Fatalf("remaining=%d", r.Remaining())
			}
		})
	}
}

func TestSequencePreservesOrder(t *testing.T) {
	v1, v2 := []byte("Hello, World"), []byte("Hi, There")
	for _, width := range []Width{Len8, Len16, Len32} {
		w := NewWriter(make([]byte, 256))
		if _, err := w.WriteTLV(width, 0x01, v1); err != nil {
			t.Fatalf("%s: %v", width, err)
		}
		if w.Pos() != 1+int(width)+len(v1) {
			t.Fatalf("%s: pos=%d", width, w.Pos())
		}
		if _, err := w.WriteTLV(width, 0x02, v2); err != nil {
			t.Fatalf("%s: %v", width, err)
		}
		if w.Pos() != 2*(1+int(width))+len(v1)+len(v2) {
			t.Fatalf("%s: pos=%d", width, w.Pos())
		}
		r := NewReader(w.Bytes())
		for _, want := range []Record{{1, v1}, {2, v2}} {
			rec, ok, err := r.ReadTLV(width, make([]byte, 64))
			if err != nil || !ok || rec.Tag != want.Tag || !bytes.Equal(rec.Value, want.Value) {
				t.Fatalf("%s: got %+v ok=%v err=%v", width, rec, ok, err)
			}
		}
	}
}

func TestRandomRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	type rec struct {
		width Width
		tag   uint32
		value []byte
	}
	widths := []Width{Len8, Len16, Len32}
	buf := make([]byte, 1<<16)
	w := NewWriter(buf)
	var recs []rec
	for i := 0; i < 200; i++ {
		r := rec{width: widths[rng.IntN(3)], tag: rng.Uint32()}
		r.value = make([]byte, rng.IntN(256))
		for j := range r.value {
			r.value[j] = byte(rng.Uint32())
		}
		if _, err := w.WriteTLV(r.width, r.tag, r.value); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
		recs = append(recs, r)
	}
	rd := NewReader(w.Bytes())
	for i, want := range recs {
		got, ok, err := rd.NextTLV(want.width)
		if err != nil || !ok {
			t.Fatalf("record %d: ok=%v err=%v", i, ok, err)
		}
		if got.Tag != want.tag || !bytes.Equal(got.Value, want.value) {
			t.Fatalf("record %d mismatch", i)
		}
	}
	if rd.Remaining() != 0 {
		t.Fatalf("remaining=%d", rd.Remaining())
	}
}

func TestWriteLengthOutOfRange(t *testing.T) {
	w := NewWriter(make([]byte, 1024))
	if _, err := w.WriteTLV8(1, make([]byte, 256)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := w.WriteATLV8(make([]byte, 300), 1, nil); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for address, got %v", err)
	}
	if _, err := w.WriteTLV8(1, make([]byte, 255)); err != nil {
		t.Fatalf("255 byte value should fit: %v", err)
	}
	if _, err := w.WriteTLV(Width(3), 1, nil); !errors.Is(err, ErrInvalidWidth) {
		t.Fatalf("expected ErrInvalidWidth, got %v", err)
	}
}

func TestWriteBufferTooShortLeavesNoPartialRecord(t *testing.T) {
	w := NewWriter(make([]byte, 10))
	if _, err := w.WriteTLV8(1, []byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	before := w.Pos()
	for _, fn := range []func() (int, error){
		func() (int, error) { return w.WriteTLV8(0x1234, []byte("abcd")) },
		func() (int, error) { return w.WriteLV8([]byte("abcdef")) },
		func() (int, error) { return w.WriteATLV8([]byte{1}, 1, []byte("ab")) },
	} {
		if _, err := fn(); !errors.Is(err, ErrBufferTooShort) {
			t.Fatalf("expected ErrBufferTooShort, got %v", err)
		}
		if w.Pos() != before {
			t.Fatalf("failed write moved pos to %d", w.Pos())
		}
	}
}

func TestReadIncompleteAtEveryStage(t *testing.T) {
	w := NewWriter(make([]byte, 64))
	if _, err := w.WriteTLV16(0x1234, hello); err != nil {
		t.Fatalf("write: %v", err)
	}
	full := w.Bytes()
	for cut := 0; cut < len(full); cut++ {
		r := NewReader(full[:cut])
		rec, ok, err := r.ReadTLV16(make([]byte, 64))
		if ok || err != nil {
			t.Fatalf("cut %d: expected incomplete, got %+v ok=%v err=%v", cut, rec, ok, err)
		}
		if r.Pos() != 0 {
			t.Fatalf("cut %d: incomplete read moved pos to %d", cut, r.Pos())
		}
	}
}

func TestReadDestTooShort(t *testing.T) {
	w := NewWriter(make([]byte, 64))
	_, _ = w.WriteTLV8(7, hello)
	r := NewReader(w.Bytes())
	if _, _, err := r.ReadTLV8(make([]byte, len(hello)-1)); !errors.Is(err, ErrBufferTooShort) {
		t.Fatalf("expected ErrBufferTooShort, got %v", err)
	}
	if r.Pos() != 0 {
		t.Fatalf("pos=%d", r.Pos())
	}
	if _, ok, err := r.ReadTLV8(make([]byte, len(hello))); !ok || err != nil {
		t.Fatalf("retry: ok=%v err=%v", ok, err)
	}
}

func TestReadTagOutOfRangeMatchesBothSentinels(t *testing.T) {
	r := NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x10, 0x00})
	_, _, err := r.ReadTLV8(make([]byte, 8))
	if !errors.Is(err, ErrOutOfRange) || !errors.Is(err, leb128.ErrOutOfRange) {
		t.Fatalf("expected tag range error, got %v", err)
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	w := NewWriter(make([]byte, 64))
	_, _ = w.WriteTLV8(3, []byte{0x55})
	r := NewReader(w.Bytes())
	rec, ok, err := r.PeekTLV(Len8)
	if err != nil || !ok || rec.Tag != 3 || !bytes.Equal(rec.Value, []byte{0x55}) {
		t.Fatalf("peek got %+v ok=%v err=%v", rec, ok, err)
	}
	if r.Pos() != 0 {
		t.Fatalf("peek moved pos to %d", r.Pos())
	}
}

func TestLVRoundTrip(t *testing.T) {
	w := NewWriter(make([]byte, 64))
	_, _ = w.WriteLV8([]byte("key"))
	_, _ = w.WriteLV(Len16, []byte("value"))
	r := NewReader(w.Bytes())
	k, ok, err := r.ReadLV8(make([]byte, 8))
	if err != nil || !ok || string(k) != "key" {
		t.Fatalf("key got %q ok=%v err=%v", k, ok, err)
	}
	v, ok, err := r.NextLV(Len16)
	if err != nil || !ok || string(v) != "value" {
		t.Fatalf("value got %q ok=%v err=%v", v, ok, err)
	}
}

func TestATLVRoundTrip(t *testing.T) {
	addr := []byte{0x0a, 0x0b}
	for _, width := range []Width{Len8, Len16, Len32} {
		w := NewWriter(make([]byte, 64))
		n, err := w.WriteATLV(width, addr, 0x1234, hello)
		if err != nil {
			t.Fatalf("%s: %v", width, err)
		}
		if want := 2*int(width) + len(addr) + 2 + len(hello); n != want {
			t.Fatalf("%s: size %d want %d", width, n, want)
		}
		r := NewReader(w.Bytes())
		rec, ok, err := r.ReadATLV(width, make([]byte, 8), make([]byte, 32))
		if err != nil || !ok {
			t.Fatalf("%s: ok=%v err=%v", width, ok, err)
		}
		if !bytes.Equal(rec.Addr, addr) || rec.Tag != 0x1234 || !bytes.Equal(rec.Value, hello) {
			t.Fatalf("%s: got %+v", width, rec)
		}
		for cut := 0; cut < n; cut++ {
			r := NewReader(w.Bytes()[:cut])
			if _, ok, err := r.ReadATLV(width, make([]byte, 8), make([]byte, 32)); ok || err != nil {
				t.Fatalf("%s cut %d: ok=%v err=%v", width, cut, ok, err)
			}
		}
	}
}

func TestOpenCloseAssemblesNestedBody(t *testing.T) {
	w := NewWriter(make([]byte, 64))
	m, err := w.Open(Len8, 0x32)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = w.WriteLV8([]byte("k"))
	_, _ = w.WriteLV8([]byte("vv"))
	n, err := w.Close(m)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	want := []byte{0x32, 0x05, 0x01, 'k', 0x02, 'v', 'v'}
	if n != len(want) || !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("got % x want % x", w.Bytes(), want)
	}
}

func TestCloseOverflowRollsBack(t *testing.T) {
	w := NewWriter(make([]byte, 512))
	_, _ = w.WriteTLV8(1, []byte{0xaa})
	before := w.Pos()
	m, err := w.Open(Len8, 2)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = w.WriteLV(Len16, make([]byte, 300))
	if _, err := w.Close(m); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if w.Pos() != before {
		t.Fatalf("pos=%d want %d", w.Pos(), before)
	}
}

func TestOpenRollback(t *testing.T) {
	w := NewWriter(make([]byte, 16))
	m, err := w.Open(Len16, 9)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = w.WriteLV8([]byte("x"))
	w.Rollback(m)
	if w.Pos() != 0 {
		t.Fatalf("pos=%d", w.Pos())
	}
	if _, err := w.Close(m); !errors.Is(err, ErrInvalidMark) {
		t.Fatalf("expected ErrInvalidMark after rollback, got %v", err)
	}
	if _, err := NewWriter(make([]byte, 2)).Open(Len16, 9); !errors.Is(err, ErrBufferTooShort) {
		t.Fatalf("expected ErrBufferTooShort, got %v", err)
	}
}

func TestStaleMarkCannotPatchLaterRecord(t *testing.T) {
	w := NewWriter(make([]byte, 64))
	stale, err := w.Open(Len8, 7)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	w.Rollback(stale)
	if _, err := w.WriteTLV8(0x11, []byte("abcdef")); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := append([]byte(nil), w.Bytes()...)
	if _, err := w.Close(stale); !errors.Is(err, ErrInvalidMark) {
		t.Fatalf("expected ErrInvalidMark, got %v", err)
	}
	w.Rollback(stale)
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("stale mark changed output: % x want % x", w.Bytes(), want)
	}

	// a reopened record at the same offset does not revive the old mark
	w.Reset()
	fresh, err := w.Open(Len8, 7)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_, _ = w.WriteLV8([]byte("zz"))
	if _, err := w.Close(stale); !errors.Is(err, ErrInvalidMark) {
		t.Fatalf("expected ErrInvalidMark for reused offset, got %v", err)
	}
	if _, err := w.Close(fresh); err != nil {
		t.Fatalf("close fresh: %v", err)
	}
}

func TestNestedOpenClosesInnermostFirst(t *testing.T) {
	w := NewWriter(make([]byte, 64))
	outer, _ := w.Open(Len8, 1)
	inner, _ := w.Open(Len8, 2)
	_, _ = w.WriteLV8([]byte("x"))
	if _, err := w.Close(outer); !errors.Is(err, ErrInvalidMark) {
		t.Fatalf("expected ErrInvalidMark closing outer first, got %v", err)
	}
	if _, err := w.Close(inner); err != nil {
		t.Fatalf("close inner: %v", err)
	}
	if _, err := w.Close(outer); err != nil {
		t.Fatalf("close outer: %v", err)
	}
	want := []byte{0x01, 0x04, 0x02, 0x02, 0x01, 'x'}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("got % x want % x", w.Bytes(), want)
	}

	w.Reset()
	for i := 0; i < MaxOpen; i++ {
		if _, err := w.Open(Len8, 1); err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
	}
	if _, err := w.Open(Len8, 1); !errors.Is(err, ErrOpenDepth) {
		t.Fatalf("expected ErrOpenDepth, got %v", err)
	}
}
