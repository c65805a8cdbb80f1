package fragments

import (
	"errors"
	"testing"
)

func TestReadPrimitivesLittleEndian(t *testing.T) {
	// byte, then int16 after a 1-byte pad, then another byte.
	buf := []byte{0x12, 0x00, 0x34, 0x56, 0x78}
	r := NewReader(buf, LittleEndian)

	b, err := r.ReadUint8()
	if err != nil || b != 0x12 {
		t.Fatalf("ReadUint8() = %#x, %v, want 0x12, nil", b, err)
	}
	u16, err := r.ReadUint16()
	if err != nil || u16 != 0x5634 {
		t.Fatalf("ReadUint16() = %#x, %v, want 0x5634, nil", u16, err)
	}
	b2, err := r.ReadUint8()
	if err != nil || b2 != 0x78 {
		t.Fatalf("ReadUint8() = %#x, %v, want 0x78, nil", b2, err)
	}
	if r.Pos() != 5 {
		t.Errorf("Pos() = %d, want 5", r.Pos())
	}
}

func TestReadString(t *testing.T) {
	buf := []byte{0x03, 0x00, 0x00, 0x00, 'f', 'o', 'o', 0x00}
	r := NewReader(buf, LittleEndian)
	s, err := r.ReadString(true)
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if s != "foo" {
		t.Errorf("ReadString() = %q, want %q", s, "foo")
	}
	if r.Pos() != 8 {
		t.Errorf("Pos() = %d, want 8", r.Pos())
	}
}

func TestReadStringMissingNul(t *testing.T) {
	buf := []byte{0x03, 0x00, 0x00, 0x00, 'f', 'o', 'o', 'x'}
	r := NewReader(buf, LittleEndian)
	if _, err := r.ReadString(true); !errors.Is(err, ErrMissingNul) {
		t.Errorf("ReadString() error = %v, want ErrMissingNul", err)
	}
}

func TestReadStringInvalidUTF8(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x00, 0x00, 0xff, 0x00}
	r := NewReader(buf, LittleEndian)
	if _, err := r.ReadString(true); !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("ReadString() error = %v, want ErrInvalidUTF8", err)
	}
}

func TestReadUint8EndOfStream(t *testing.T) {
	r := NewReader(nil, LittleEndian)
	if _, err := r.ReadUint8(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("ReadUint8() on empty buffer = %v, want ErrEndOfStream", err)
	}
}

func TestReadUint32InvalidAlignment(t *testing.T) {
	// One byte present, but a uint32 needs to align to 4 and then
	// read 4 bytes: there's no room even after alignment.
	r := NewReader([]byte{0x01}, LittleEndian)
	if _, err := r.ReadUint32(); !errors.Is(err, ErrInvalidAlignment) {
		t.Errorf("ReadUint32() = %v, want ErrInvalidAlignment", err)
	}
}

func TestReadBoolInvalidValue(t *testing.T) {
	buf := []byte{0x02, 0x00, 0x00, 0x00}
	r := NewReader(buf, LittleEndian)
	if _, err := r.ReadBool(); !errors.Is(err, ErrInvalidBoolValue) {
		t.Errorf("ReadBool() = %v, want ErrInvalidBoolValue", err)
	}
}

func TestReadArrayFrame(t *testing.T) {
	// u32 length 8, 4 bytes of padding to the uint64 elements' 8-byte
	// alignment (not counted in the length), then 8 bytes of uint64
	// elements (one element: 5).
	buf := []byte{
		0x00, 0x00, 0x00, 0x08,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x05,
	}
	r := NewReader(buf, BigEndian)
	sub, err := r.ReadArrayFrame(8)
	if err != nil {
		t.Fatalf("ReadArrayFrame: %v", err)
	}
	if sub.Remaining() != 8 {
		t.Fatalf("sub.Remaining() = %d, want 8", sub.Remaining())
	}
	u, err := sub.ReadUint64()
	if err != nil || u != 5 {
		t.Errorf("sub.ReadUint64() = %d, %v, want 5, nil", u, err)
	}
	if r.Pos() != len(buf) {
		t.Errorf("outer Pos() = %d, want %d", r.Pos(), len(buf))
	}
}

func TestStrictPaddingRejectsNonZero(t *testing.T) {
	buf := []byte{0x01, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00}
	r := NewReader(buf, LittleEndian)
	r.Strict = true
	if _, err := r.ReadUint8(); err != nil {
		t.Fatalf("ReadUint8: %v", err)
	}
	if _, err := r.ReadUint32(); !errors.Is(err, ErrNonZeroPadding) {
		t.Errorf("ReadUint32() in strict mode = %v, want ErrNonZeroPadding", err)
	}
}

func TestLenientPaddingAcceptsNonZero(t *testing.T) {
	buf := []byte{0x01, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x00}
	r := NewReader(buf, LittleEndian)
	if _, err := r.ReadUint8(); err != nil {
		t.Fatalf("ReadUint8: %v", err)
	}
	if _, err := r.ReadUint32(); err != nil {
		t.Errorf("ReadUint32() in lenient mode = %v, want nil", err)
	}
}

func TestOrderForFlag(t *testing.T) {
	if o, err := OrderForFlag('l'); err != nil || o != LittleEndian {
		t.Errorf("OrderForFlag('l') = %v, %v, want LittleEndian, nil", o, err)
	}
	if o, err := OrderForFlag('B'); err != nil || o != BigEndian {
		t.Errorf("OrderForFlag('B') = %v, %v, want BigEndian, nil", o, err)
	}
	if _, err := OrderForFlag('x'); err == nil {
		t.Errorf("OrderForFlag('x') succeeded, want error")
	}
}
