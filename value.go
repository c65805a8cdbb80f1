package dbus

import (
	"errors"
	"fmt"

	"github.com/mirelsonn/dbuswire/fragments"
)

// ErrVariantSignature is returned when a VARIANT's inline signature
// does not describe exactly one complete type.
var ErrVariantSignature = errors.New("dbus: variant signature must describe exactly one complete type")

// Value is a decoded DBus value. It is a closed tagged union over
// [Type]: exactly the fields relevant to Value.Type are meaningful,
// the rest are zero.
//
// VARIANT values box their payload behind a pointer (Variant) to
// break the otherwise self-referential type definition, per the DBus
// specification's observation that a variant's value is itself a
// DBus value of arbitrary type.
type Value struct {
	Type Type

	Bool  bool
	Int   int64   // INT16, INT32, INT64 (sign-extended)
	Uint  uint64  // BYTE, UINT16, UINT32, UINT64, UNIX_FD
	Float float64 // DOUBLE

	Str string    // STRING, OBJECT_PATH, and the raw text of SIGNATURE
	Sig Signature // SIGNATURE

	Variant *Value // VARIANT

	// Elems holds STRUCT fields in order, ARRAY elements in order, or
	// (for DICT_ENTRY) exactly [key, value].
	Elems []Value
}

// DecodeValue reads a single value described by sig from r. sig must
// name exactly one complete type; use [DecodeValues] to read a
// sequence, such as a message body.
func DecodeValue(r *fragments.Reader, sig Signature) (Value, error) {
	if _, ok := sig.soleType(); !ok {
		return Value{}, fmt.Errorf("dbus: DecodeValue requires a signature with exactly one complete type, got %q", sig.String())
	}
	v, _, err := decodeValue(r, sig.elems, 0)
	return v, err
}

// DecodeValues reads the sequence of values described by sig from r,
// in order. It is the tool downstream body parsing uses: the Header
// Decoder exposes a message body's byte range and its Signature field
// verbatim, and DecodeValues turns those two into the actual argument
// list.
func DecodeValues(r *fragments.Reader, sig Signature) ([]Value, error) {
	var vs []Value
	for i := 0; i < len(sig.elems); {
		v, next, err := decodeValue(r, sig.elems, i)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
		i = next
	}
	return vs, nil
}

// decodeValue decodes the complete type starting at elems[i], and
// returns the index just past it (== typeSpan(elems, i)) so callers
// can advance without re-deriving the span.
func decodeValue(r *fragments.Reader, elems []element, i int) (Value, int, error) {
	debugf("decodeValue(%s) at pos %d", elems[i].Type, r.Pos())
	switch elems[i].Type {
	case Byte:
		u, err := r.ReadUint8()
		return Value{Type: Byte, Uint: uint64(u)}, i + 1, err
	case Boolean:
		b, err := r.ReadBool()
		return Value{Type: Boolean, Bool: b}, i + 1, err
	case Int16:
		u, err := r.ReadUint16()
		return Value{Type: Int16, Int: int64(int16(u))}, i + 1, err
	case Uint16:
		u, err := r.ReadUint16()
		return Value{Type: Uint16, Uint: uint64(u)}, i + 1, err
	case Int32:
		u, err := r.ReadUint32()
		return Value{Type: Int32, Int: int64(int32(u))}, i + 1, err
	case Uint32:
		u, err := r.ReadUint32()
		return Value{Type: Uint32, Uint: uint64(u)}, i + 1, err
	case UnixFD:
		u, err := r.ReadUint32()
		return Value{Type: UnixFD, Uint: uint64(u)}, i + 1, err
	case Int64:
		u, err := r.ReadUint64()
		return Value{Type: Int64, Int: int64(u)}, i + 1, err
	case Uint64:
		u, err := r.ReadUint64()
		return Value{Type: Uint64, Uint: u}, i + 1, err
	case Double:
		f, err := r.ReadFloat64()
		return Value{Type: Double, Float: f}, i + 1, err
	case String:
		s, err := r.ReadString(true)
		return Value{Type: String, Str: s}, i + 1, err
	case TypeObjectPath:
		s, err := r.ReadString(false)
		if err != nil {
			return Value{}, i + 1, err
		}
		if !IsValidObjectPath(s) {
			return Value{}, i + 1, fmt.Errorf("dbus: %q is not a valid object path", s)
		}
		return Value{Type: TypeObjectPath, Str: s}, i + 1, nil
	case SignatureType:
		raw, err := r.ReadSignatureBytes()
		if err != nil {
			return Value{}, i + 1, err
		}
		sig, err := ParseSignature(raw)
		if err != nil {
			return Value{}, i + 1, err
		}
		return Value{Type: SignatureType, Sig: sig, Str: raw}, i + 1, nil
	case Variant:
		raw, err := r.ReadVariantSignature()
		if err != nil {
			return Value{}, i + 1, err
		}
		if raw == "" {
			return Value{}, i + 1, ErrEmptySignature
		}
		inner, err := ParseSignature(raw)
		if err != nil {
			return Value{}, i + 1, err
		}
		if _, ok := inner.soleType(); !ok {
			return Value{}, i + 1, ErrVariantSignature
		}
		iv, _, err := decodeValue(r, inner.elems, 0)
		if err != nil {
			return Value{}, i + 1, err
		}
		return Value{Type: Variant, Variant: &iv}, i + 1, nil
	case Array:
		end := typeSpan(elems, i)
		elemAlign := alignmentAt(elems, i+1)
		sub, err := r.ReadArrayFrame(elemAlign)
		if err != nil {
			return Value{}, end, err
		}
		var out []Value
		for sub.Remaining() > 0 {
			ev, _, err := decodeValue(sub, elems, i+1)
			if err != nil {
				return Value{}, end, err
			}
			out = append(out, ev)
		}
		return Value{Type: Array, Elems: out}, end, nil
	case Struct:
		if err := r.AlignTo(8); err != nil {
			return Value{}, typeSpan(elems, i), err
		}
		n := int(elems[i+1].Len)
		j := i + 2
		fields := make([]Value, 0, n)
		for k := 0; k < n; k++ {
			fv, next, err := decodeValue(r, elems, j)
			if err != nil {
				return Value{}, typeSpan(elems, i), err
			}
			fields = append(fields, fv)
			j = next
		}
		return Value{Type: Struct, Elems: fields}, j, nil
	case DictEntry:
		if err := r.AlignTo(8); err != nil {
			return Value{}, typeSpan(elems, i), err
		}
		j := i + 2
		key, next, err := decodeValue(r, elems, j)
		if err != nil {
			return Value{}, typeSpan(elems, i), err
		}
		j = next
		val, next, err := decodeValue(r, elems, j)
		if err != nil {
			return Value{}, typeSpan(elems, i), err
		}
		j = next
		return Value{Type: DictEntry, Elems: []Value{key, val}}, j, nil
	default:
		return Value{}, i + 1, fmt.Errorf("dbus: cannot decode type tag %s", elems[i].Type)
	}
}

// skipValue decodes and discards the complete type starting at
// elems[i]. It exists as a named operation (rather than callers just
// ignoring DecodeValue's result) because the Header Decoder uses it
// specifically to implement "unknown header field codes are parsed
// and dropped" without pretending the value was ever meaningful.
func skipValue(r *fragments.Reader, elems []element, i int) (int, error) {
	_, next, err := decodeValue(r, elems, i)
	return next, err
}
