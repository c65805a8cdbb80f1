package dbus

import (
	"strings"

	"github.com/creachadair/mds/mapset"
)

// Type is a DBus wire-format type tag. The set of values is closed:
// every DBus signature byte maps to exactly one Type, plus two marker
// types (StructLength, DictEntryLength) that exist only inside the
// vectorized [Signature] representation, never on the wire.
type Type uint8

const (
	Invalid Type = iota
	Byte
	Boolean
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Double
	UnixFD
	String
	TypeObjectPath
	SignatureType
	Variant
	Struct
	StructLength
	Array
	DictEntry
	DictEntryLength
)

func (t Type) String() string {
	switch t {
	case Byte:
		return "BYTE"
	case Boolean:
		return "BOOLEAN"
	case Int16:
		return "INT16"
	case Uint16:
		return "UINT16"
	case Int32:
		return "INT32"
	case Uint32:
		return "UINT32"
	case Int64:
		return "INT64"
	case Uint64:
		return "UINT64"
	case Double:
		return "DOUBLE"
	case UnixFD:
		return "UNIX_FD"
	case String:
		return "STRING"
	case TypeObjectPath:
		return "OBJECT_PATH"
	case SignatureType:
		return "SIGNATURE"
	case Variant:
		return "VARIANT"
	case Struct:
		return "STRUCT"
	case StructLength:
		return "STRUCT_LENGTH"
	case Array:
		return "ARRAY"
	case DictEntry:
		return "DICT_ENTRY"
	case DictEntryLength:
		return "DICT_ENTRY_LENGTH"
	default:
		return "INVALID"
	}
}

// tokens maps a DBus signature byte to the Type it names, for every
// type that is not a container (containers are introduced by '(',
// '{' and 'a', handled separately by the parser).
var tokens = map[byte]Type{
	'y': Byte,
	'b': Boolean,
	'n': Int16,
	'q': Uint16,
	'i': Int32,
	'u': Uint32,
	'x': Int64,
	't': Uint64,
	'd': Double,
	'h': UnixFD,
	's': String,
	'o': TypeObjectPath,
	'g': SignatureType,
	'v': Variant,
}

// runes is the inverse of tokens, used by Signature.String to render
// the vectorized form back into a signature string.
var runes = func() map[Type]byte {
	m := make(map[Type]byte, len(tokens))
	for b, t := range tokens {
		m[t] = b
	}
	return m
}()

// basicTypes is the set of Types that may appear as a dict entry key
// (spec invariant: "the first [dict entry child], of which is a basic
// type"). VARIANT and the container types are not basic.
var basicTypes = mapset.New(
	Byte, Boolean, Int16, Uint16, Int32, Uint32, Int64, Uint64,
	Double, UnixFD, String, TypeObjectPath, SignatureType,
)

// IsBasic reports whether t is a DBus basic type, i.e. eligible to be
// a dict entry key.
func IsBasic(t Type) bool {
	return basicTypes.Has(t)
}

// AlignmentOf returns the natural alignment, in bytes, of values of
// type t. STRUCT_LENGTH and DICT_ENTRY_LENGTH have no wire
// representation and are not meaningfully aligned; AlignmentOf
// returns 1 for them.
func AlignmentOf(t Type) int {
	switch t {
	case Byte, SignatureType:
		return 1
	case Boolean, Int32, Uint32, UnixFD, String, TypeObjectPath, Array:
		return 4
	case Int16, Uint16:
		return 2
	case Int64, Uint64, Double, Struct, DictEntry:
		return 8
	default:
		return 1
	}
}

// element is one entry in a vectorized Signature. Len is meaningful
// only for StructLength and DictEntryLength entries, where it holds
// the number of complete child types that follow.
type element struct {
	Type Type
	Len  uint8
}

// Signature is the vectorized, parsed form of a DBus type signature
// string: an ordered sequence of type tags, with STRUCT_LENGTH and
// DICT_ENTRY_LENGTH markers recording how many child types follow a
// STRUCT or DICT_ENTRY tag. It supports index-based traversal without
// building a tree of heap nodes.
//
// The zero Signature is valid and denotes the empty signature (zero
// complete types).
type Signature struct {
	elems []element
}

// IsZero reports whether s is the empty signature.
func (s Signature) IsZero() bool { return len(s.elems) == 0 }

// String renders s back into DBus signature string form by walking
// the vectorized representation. [ParseSignature] and String are
// inverses: for any valid signature string s, ParseSignature(s).String()
// == s.
func (s Signature) String() string {
	var b strings.Builder
	i := 0
	for i < len(s.elems) {
		i = renderOne(&b, s.elems, i)
	}
	return b.String()
}

func renderOne(b *strings.Builder, elems []element, i int) int {
	switch elems[i].Type {
	case Array:
		b.WriteByte('a')
		return renderOne(b, elems, i+1)
	case Struct:
		b.WriteByte('(')
		j := i + 2
		for k := 0; k < int(elems[i+1].Len); k++ {
			j = renderOne(b, elems, j)
		}
		b.WriteByte(')')
		return j
	case DictEntry:
		b.WriteByte('{')
		j := i + 2
		for k := 0; k < int(elems[i+1].Len); k++ {
			j = renderOne(b, elems, j)
		}
		b.WriteByte('}')
		return j
	default:
		b.WriteByte(runes[elems[i].Type])
		return i + 1
	}
}

// typeSpan returns the index just past the complete type that starts
// at i. It is the traversal primitive the value decoder, TypeCount
// and soleType use to move the cursor without re-parsing the
// signature string.
func typeSpan(elems []element, i int) int {
	switch elems[i].Type {
	case Array:
		return typeSpan(elems, i+1)
	case Struct, DictEntry:
		j := i + 2
		for k := 0; k < int(elems[i+1].Len); k++ {
			j = typeSpan(elems, j)
		}
		return j
	default:
		return i + 1
	}
}

// alignmentAt returns the natural alignment of the complete type that
// starts at i, treating STRUCT and DICT_ENTRY as aligning to 8
// regardless of their first field (their own AlignmentOf already
// says 8, so this is just a readable alias over elems[i].Type).
func alignmentAt(elems []element, i int) int {
	return AlignmentOf(elems[i].Type)
}

// TypeCount reports how many top-level complete types s describes.
func (s Signature) TypeCount() int {
	n := 0
	for i := 0; i < len(s.elems); {
		i = typeSpan(s.elems, i)
		n++
	}
	return n
}

// soleType reports whether s names exactly one top-level complete
// type, and if so, returns its Type tag. Used when validating that a
// VARIANT's inline signature describes a single value.
func (s Signature) soleType() (Type, bool) {
	if len(s.elems) == 0 {
		return Invalid, false
	}
	end := typeSpan(s.elems, 0)
	if end != len(s.elems) {
		return Invalid, false
	}
	return s.elems[0].Type, true
}

// ParseSignature parses a DBus type signature string into its
// vectorized form.
//
// An empty string is accepted and yields the zero Signature ("zero or
// more complete types" per the DBus specification); some historical
// implementations rejected the empty signature, but this package
// follows the specification text and accepts it.
func ParseSignature(s string) (Signature, error) {
	if len(s) > 255 {
		return Signature{}, ErrTooLong
	}
	p := &sigParser{src: s}
	for p.i < len(s) {
		if err := p.parseOne(false); err != nil {
			return Signature{}, err
		}
	}
	return Signature{elems: p.elems}, nil
}

type sigParser struct {
	src   string
	i     int
	elems []element
	// depth tracks every container open (array, struct, dict entry);
	// typeDepth tracks array/struct nesting specifically. Limits are
	// per spec invariant (v).
	depth     int
	typeDepth int
}

const (
	maxTypeDepth  = 32
	maxTotalDepth = 64
)

// parseOne consumes exactly one complete type starting at p.i.
// allowDict is true only when parseOne is called to parse the single
// element type immediately following an 'a', since '{' is only valid
// there.
func (p *sigParser) parseOne(allowDict bool) error {
	c := p.src[p.i]
	debugf("parseOne(%q) at %d, depth %d", c, p.i, p.depth)
	if t, ok := tokens[c]; ok {
		p.elems = append(p.elems, element{Type: t})
		p.i++
		return nil
	}

	switch c {
	case 'a':
		p.i++
		if p.i >= len(p.src) {
			return ErrArrayMissingElem
		}
		p.depth++
		p.typeDepth++
		if p.depth > maxTotalDepth || p.typeDepth > maxTypeDepth {
			return ErrTooDeep
		}
		p.elems = append(p.elems, element{Type: Array})
		if err := p.parseOne(true); err != nil {
			return err
		}
		p.depth--
		p.typeDepth--
		return nil

	case '(':
		p.i++
		p.depth++
		p.typeDepth++
		if p.depth > maxTotalDepth || p.typeDepth > maxTypeDepth {
			return ErrTooDeep
		}
		idx := len(p.elems)
		p.elems = append(p.elems, element{Type: Struct}, element{Type: StructLength})
		count := 0
		for {
			if p.i >= len(p.src) {
				return ErrUnbalancedStruct
			}
			if p.src[p.i] == ')' {
				p.i++
				break
			}
			if err := p.parseOne(false); err != nil {
				return err
			}
			count++
		}
		if count == 0 {
			return ErrEmptyStruct
		}
		p.elems[idx+1].Len = uint8(count)
		p.depth--
		p.typeDepth--
		return nil

	case '{':
		if !allowDict {
			return ErrDictOutsideArray
		}
		p.i++
		p.depth++
		if p.depth > maxTotalDepth {
			return ErrTooDeep
		}
		idx := len(p.elems)
		p.elems = append(p.elems, element{Type: DictEntry}, element{Type: DictEntryLength})
		count := 0
		for {
			if p.i >= len(p.src) {
				return ErrUnbalancedDict
			}
			if p.src[p.i] == '}' {
				p.i++
				break
			}
			before := len(p.elems)
			if err := p.parseOne(false); err != nil {
				return err
			}
			if count == 0 && !IsBasic(p.elems[before].Type) {
				return ErrDictKeyNotBasic
			}
			count++
		}
		if count != 2 {
			return ErrUnbalancedDict
		}
		p.elems[idx+1].Len = uint8(count)
		p.depth--
		return nil

	default:
		return ErrUnknownTypeCode
	}
}
