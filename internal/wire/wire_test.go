package wire

import (
	"bytes"
	"math"
	"testing"
)

func TestFloat32RoundTrip(t *testing.T) {
	values := []float32{0, 1, -1, 0.1, float32(math.Inf(1)), math.MaxFloat32}
	for _, v := range values {
		var b [4]byte
		PutFloat32(b[:], v)
		if got := Float32(b[:]); got != v {
			t.Errorf("Float32(PutFloat32(%v)) = %v", v, got)
		}
	}

	var b [4]byte
	PutFloat32(b[:], float32(math.NaN()))
	if got := Float32(b[:]); got == got {
		t.Error("NaN did not round-trip as NaN")
	}
}

func TestFloat32LittleEndian(t *testing.T) {
	var b [4]byte
	PutFloat32(b[:], 1)
	if !bytes.Equal(b[:], []byte{0x00, 0x00, 0x80, 0x3f}) {
		t.Errorf("bytes of 1.0 = % x, want 00 00 80 3f", b)
	}
}

func TestReaderSequence(t *testing.T) {
	w := NewBufferWriter(0)
	w.WriteUint8(0xab)
	w.WriteUint16(0x1234)
	w.WriteUint32(0xdeadbeef)
	w.WriteFloat32(2.5)
	w.WriteFloat64(-0.125)
	w.WriteBytes([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	if v, err := r.ReadUint8(); err != nil || v != 0xab {
		t.Fatalf("ReadUint8 = %v, %v", v, err)
	}
	if v, err := r.ReadUint16(); err != nil || v != 0x1234 {
		t.Fatalf("ReadUint16 = %v, %v", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 0xdeadbeef {
		t.Fatalf("ReadUint32 = %v, %v", v, err)
	}
	if v, err := r.ReadFloat32(); err != nil || v != 2.5 {
		t.Fatalf("ReadFloat32 = %v, %v", v, err)
	}
	if v, err := r.ReadFloat64(); err != nil || v != -0.125 {
		t.Fatalf("ReadFloat64 = %v, %v", v, err)
	}
	rest := make([]byte, 3)
	if err := r.ReadBytesInto(rest); err != nil || !bytes.Equal(rest, []byte{1, 2, 3}) {
		t.Fatalf("ReadBytesInto = % x, %v", rest, err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after draining", r.Len())
	}
}

func TestReaderBounds(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if _, err := r.ReadUint32(); err != ErrShortBuffer {
		t.Errorf("ReadUint32 on short buffer: %v", err)
	}
	if err := r.Skip(3); err != ErrShortBuffer {
		t.Errorf("Skip past end: %v", err)
	}
	if err := r.Skip(-1); err != ErrNegativeSize {
		t.Errorf("negative Skip: %v", err)
	}
	if err := r.Skip(2); err != nil {
		t.Errorf("exact Skip: %v", err)
	}
	if _, err := r.ReadByte(); err != ErrShortBuffer {
		t.Errorf("ReadByte at end: %v", err)
	}
	if err := r.SetPos(3); err != ErrShortBuffer {
		t.Errorf("SetPos out of bounds: %v", err)
	}
	if err := r.SetPos(0); err != nil {
		t.Errorf("SetPos(0): %v", err)
	}
	if r.Pos() != 0 || r.Len() != 2 {
		t.Errorf("Pos=%d Len=%d after reset", r.Pos(), r.Len())
	}
}

func TestBufferWriterReset(t *testing.T) {
	w := NewBufferWriter(16)
	w.WriteUint32(7)
	if w.Len() != 4 {
		t.Errorf("Len() = %d, want 4", w.Len())
	}
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d", w.Len())
	}
}
