package dbus

import (
	"fmt"

	"github.com/mirelsonn/dbuswire/fragments"
)

// Endian is the byte order a message was encoded with, taken from its
// first byte.
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// MsgType is the type of a DBus message, the second byte of every
// header.
type MsgType uint8

const (
	MethodCall   MsgType = 1
	MethodReturn MsgType = 2
	Error        MsgType = 3
	Signal       MsgType = 4
)

func (t MsgType) String() string {
	switch t {
	case MethodCall:
		return "MethodCall"
	case MethodReturn:
		return "MethodReturn"
	case Error:
		return "Error"
	case Signal:
		return "Signal"
	default:
		return fmt.Sprintf("MsgType(%d)", t)
	}
}

// HeaderFlags is the third byte of a DBus header.
type HeaderFlags uint8

const (
	FlagNoReplyExpected               HeaderFlags = 1 << 0
	FlagNoAutoStart                   HeaderFlags = 1 << 1
	FlagAllowInteractiveAuthorization HeaderFlags = 1 << 2

	knownFlags = FlagNoReplyExpected | FlagNoAutoStart | FlagAllowInteractiveAuthorization
)

// HeaderFieldCode identifies a DBus header field within the header's
// a(yv) field array.
type HeaderFieldCode uint8

const (
	FieldPath        HeaderFieldCode = 1
	FieldInterface   HeaderFieldCode = 2
	FieldMember      HeaderFieldCode = 3
	FieldErrorName   HeaderFieldCode = 4
	FieldReplySerial HeaderFieldCode = 5
	FieldDestination HeaderFieldCode = 6
	FieldSender      HeaderFieldCode = 7
	FieldSignature   HeaderFieldCode = 8
	FieldUnixFDs     HeaderFieldCode = 9
)

// HeaderField is one decoded entry of a message header's field array.
// It is a tagged union over [HeaderFieldCode]: only the member named
// by Code is meaningful.
type HeaderField struct {
	Code HeaderFieldCode

	Path        ObjectPath
	Interface   string
	Member      string
	ErrorName   string
	ReplySerial uint32
	Destination string
	Sender      string
	Signature   Signature
	UnixFDs     uint32
}

// MessageHeader is the decoded fixed-shape header that precedes every
// DBus message, plus the message body's byte range.
type MessageHeader struct {
	Endian          Endian
	Type            MsgType
	Flags           HeaderFlags
	ProtocolVersion uint8
	BodyLength      uint32
	Serial          uint32

	// Fields is the ordered list of known header fields present in
	// the message. Unknown field codes are parsed (so the decoder
	// stays in sync with the byte stream) and then silently dropped,
	// per the DBus forward-compatibility rule.
	Fields []HeaderField

	// Body is the message body, a sub-slice of the buffer passed to
	// DecodeHeader, starting at the first 8-aligned offset after the
	// field array and running for BodyLength bytes.
	Body []byte

	// BodySignature is the Signature header field's value, or the
	// zero Signature if the message has no body; callers can check
	// this with BodySignature.IsZero() before decoding.
	BodySignature Signature

	// Warnings collects recoverable anomalies noticed during
	// decoding that do not, per the wire format, abort decoding (for
	// example, a zero Serial).
	Warnings []string
}

func (h *MessageHeader) field(code HeaderFieldCode) (HeaderField, bool) {
	for _, f := range h.Fields {
		if f.Code == code {
			return f, true
		}
	}
	return HeaderField{}, false
}

// Path returns the message's PATH field, if present.
func (h *MessageHeader) Path() (ObjectPath, bool) {
	f, ok := h.field(FieldPath)
	return f.Path, ok
}

// Interface returns the message's INTERFACE field, if present.
func (h *MessageHeader) Interface() (string, bool) {
	f, ok := h.field(FieldInterface)
	return f.Interface, ok
}

// Member returns the message's MEMBER field, if present.
func (h *MessageHeader) Member() (string, bool) {
	f, ok := h.field(FieldMember)
	return f.Member, ok
}

// ErrorName returns the message's ERROR_NAME field, if present.
func (h *MessageHeader) ErrorName() (string, bool) {
	f, ok := h.field(FieldErrorName)
	return f.ErrorName, ok
}

// ReplySerial returns the message's REPLY_SERIAL field, if present.
func (h *MessageHeader) ReplySerial() (uint32, bool) {
	f, ok := h.field(FieldReplySerial)
	return f.ReplySerial, ok
}

// Destination returns the message's DESTINATION field, if present.
func (h *MessageHeader) Destination() (string, bool) {
	f, ok := h.field(FieldDestination)
	return f.Destination, ok
}

// Sender returns the message's SENDER field, if present.
func (h *MessageHeader) Sender() (string, bool) {
	f, ok := h.field(FieldSender)
	return f.Sender, ok
}

// UnixFDs returns the message's UNIX_FDS field, if present. The core
// does not allocate or resolve the file descriptors themselves; it
// only reports how many the transport layer should expect alongside
// the message.
func (h *MessageHeader) UnixFDs() (uint32, bool) {
	f, ok := h.field(FieldUnixFDs)
	return f.UnixFDs, ok
}

// WantsReply reports whether the sender expects a reply to this call.
func (h *MessageHeader) WantsReply() bool {
	return h.Type == MethodCall && h.Flags&FlagNoReplyExpected == 0
}

// HeaderLength reads a DBus message's 16-byte fixed prefix and
// returns the total length, in bytes, of the complete framed message:
// fixed header, field array, inter-section padding, and body.
//
// A transport that can only read_exact (spec.md §6's "Consumed
// interface") has no other way to learn how much to read before it
// can call [DecodeHeader], which requires the entire message up
// front: read 16 bytes, call HeaderLength on them, then read_exact the
// remaining HeaderLength(prefix)-16 bytes.
//
// prefix must contain at least the first 16 bytes of the message;
// any bytes beyond that are ignored.
func HeaderLength(prefix []byte) (int, error) {
	if len(prefix) < 16 {
		return 0, fmt.Errorf("dbus: header prefix truncated: got %d bytes, need at least 16: %w", len(prefix), fragments.ErrEndOfStream)
	}
	order, err := fragments.OrderForFlag(prefix[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidEndian, err)
	}
	r := fragments.NewReader(prefix[:16], order)
	if err := r.Skip(4); err != nil { // endian, type, flags, version
		return 0, err
	}
	bodyLen, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if err := r.Skip(4); err != nil { // serial
		return 0, err
	}
	fieldsLen, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	headerAndFields := 16 + int(fieldsLen)
	return alignUp(headerAndFields, 8) + int(bodyLen), nil
}

func alignUp(n, align int) int {
	if rem := n % align; rem != 0 {
		return n + (align - rem)
	}
	return n
}

// DecodeHeader parses a complete DBus message buffer's fixed header
// and field array, and returns a MessageHeader whose Body is the
// BodyLength bytes that follow the 8-aligned end of the field array.
//
// buf must contain at least the full message: header, field array,
// inter-section padding, and body. DecodeHeader does not consume
// trailing bytes beyond the declared body length; a caller that
// framed buf using [HeaderLength] first will not have any.
//
// Any error aborts decoding with no partial MessageHeader returned.
func DecodeHeader(buf []byte) (*MessageHeader, error) {
	if len(buf) < 16 {
		return nil, fmt.Errorf("dbus: header truncated: got %d bytes, need at least 16: %w", len(buf), fragments.ErrEndOfStream)
	}

	debugf("DecodeHeader(%d bytes)", len(buf))

	// READ_ENDIAN
	order, err := fragments.OrderForFlag(buf[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndian, err)
	}
	r := fragments.NewReader(buf, order)
	if _, err := r.ReadUint8(); err != nil {
		return nil, err
	}

	h := &MessageHeader{Endian: LittleEndian}
	if order == fragments.BigEndian {
		h.Endian = BigEndian
	}

	// READ_TYPE
	typeByte, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if typeByte == 0 || typeByte > 4 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMsgType, typeByte)
	}
	h.Type = MsgType(typeByte)

	// READ_FLAGS
	flagsByte, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if HeaderFlags(flagsByte)&^knownFlags != 0 {
		return nil, fmt.Errorf("%w: 0x%02x", ErrInvalidFlags, flagsByte)
	}
	h.Flags = HeaderFlags(flagsByte)

	// READ_VERSION
	version, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("%w: got version %d, want 1", ErrInvalidVersion, version)
	}
	h.ProtocolVersion = version

	// READ_BODY_LEN
	if h.BodyLength, err = r.ReadUint32(); err != nil {
		return nil, err
	}

	// READ_SERIAL
	if h.Serial, err = r.ReadUint32(); err != nil {
		return nil, err
	}
	if h.Serial == 0 {
		h.Warnings = append(h.Warnings, "message serial is zero")
	}

	// READ_FIELDS_LEN
	fieldsLen, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	fieldsEnd := 16 + int(fieldsLen)
	if fieldsEnd > len(buf) {
		return nil, fmt.Errorf("%w: field array of %d bytes runs past end of buffer", ErrInvalidHeaderField, fieldsLen)
	}

	// READ_FIELD_STRUCT* / FIELDS_DONE
	seen := map[HeaderFieldCode]bool{}
	for r.Pos() < fieldsEnd {
		if err := r.AlignTo(8); err != nil {
			return nil, err
		}
		codeByte, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		code := HeaderFieldCode(codeByte)
		debugf("header field code %d at pos %d", code, r.Pos())
		if seen[code] {
			return nil, fmt.Errorf("%w: code %d", ErrDuplicateHeaderField, code)
		}
		seen[code] = true

		sigStr, err := r.ReadVariantSignature()
		if err != nil {
			return nil, err
		}
		sig, err := ParseSignature(sigStr)
		if err != nil {
			return nil, err
		}
		want, ok := sig.soleType()
		if !ok {
			if sigStr == "" {
				return nil, ErrEmptySignature
			}
			return nil, ErrVariantSignature
		}
		if !isKnownHeaderFieldCode(code) {
			// Unknown codes are parsed and discarded, not skipped
			// wholesale: the cursor must stay in sync with the wire,
			// but the value itself is never meaningful.
			if _, err := skipValue(r, sig.elems, 0); err != nil {
				return nil, err
			}
			continue
		}

		v, _, err := decodeValue(r, sig.elems, 0)
		if err != nil {
			return nil, err
		}

		hf, known, err := fieldFromValue(code, want, v)
		if err != nil {
			return nil, err
		}
		if known {
			h.Fields = append(h.Fields, hf)
		}
	}
	if r.Pos() != fieldsEnd {
		return nil, fmt.Errorf("%w: field array did not end on a type boundary", ErrInvalidHeaderField)
	}

	// ALIGN_BODY
	if err := r.AlignTo(8); err != nil {
		return nil, err
	}
	if r.Remaining() < int(h.BodyLength) {
		return nil, fmt.Errorf("dbus: body of %d bytes runs past end of buffer: %w", h.BodyLength, fragments.ErrInvalidLength)
	}
	body, err := r.Take(int(h.BodyLength))
	if err != nil {
		return nil, err
	}
	h.Body = body
	if sigField, ok := h.field(FieldSignature); ok {
		h.BodySignature = sigField.Signature
	}

	if err := h.validateRequiredFields(); err != nil {
		return nil, err
	}

	return h, nil
}

// fieldFromValue converts a decoded variant value into a HeaderField
// for a known code, checking that its type matches what that code
// requires. For unknown codes it reports known=false without error:
// the value was still correctly decoded by the caller, which is all
// the wire format requires of an unrecognized field.
func fieldFromValue(code HeaderFieldCode, t Type, v Value) (HeaderField, bool, error) {
	mismatch := func() (HeaderField, bool, error) {
		return HeaderField{}, false, fmt.Errorf("%w: code %d carries type %s", ErrInvalidHeaderField, code, t)
	}
	switch code {
	case FieldPath:
		if t != TypeObjectPath {
			return mismatch()
		}
		return HeaderField{Code: code, Path: ObjectPath(v.Str)}, true, nil
	case FieldInterface:
		if t != String {
			return mismatch()
		}
		return HeaderField{Code: code, Interface: v.Str}, true, nil
	case FieldMember:
		if t != String {
			return mismatch()
		}
		return HeaderField{Code: code, Member: v.Str}, true, nil
	case FieldErrorName:
		if t != String {
			return mismatch()
		}
		return HeaderField{Code: code, ErrorName: v.Str}, true, nil
	case FieldReplySerial:
		if t != Uint32 {
			return mismatch()
		}
		return HeaderField{Code: code, ReplySerial: uint32(v.Uint)}, true, nil
	case FieldDestination:
		if t != String {
			return mismatch()
		}
		return HeaderField{Code: code, Destination: v.Str}, true, nil
	case FieldSender:
		if t != String {
			return mismatch()
		}
		return HeaderField{Code: code, Sender: v.Str}, true, nil
	case FieldSignature:
		if t != SignatureType {
			return mismatch()
		}
		return HeaderField{Code: code, Signature: v.Sig}, true, nil
	case FieldUnixFDs:
		if t != Uint32 {
			return mismatch()
		}
		return HeaderField{Code: code, UnixFDs: uint32(v.Uint)}, true, nil
	default:
		return HeaderField{}, false, nil
	}
}

func isKnownHeaderFieldCode(code HeaderFieldCode) bool {
	switch code {
	case FieldPath, FieldInterface, FieldMember, FieldErrorName,
		FieldReplySerial, FieldDestination, FieldSender, FieldSignature, FieldUnixFDs:
		return true
	default:
		return false
	}
}

func (h *MessageHeader) validateRequiredFields() error {
	_, hasPath := h.field(FieldPath)
	_, hasMember := h.field(FieldMember)
	_, hasInterface := h.field(FieldInterface)
	_, hasErrorName := h.field(FieldErrorName)
	_, hasReplySerial := h.field(FieldReplySerial)

	missing := func(name string) error {
		return fmt.Errorf("%w: %s (message type %s)", ErrRequiredFieldMissing, name, h.Type)
	}

	switch h.Type {
	case MethodCall:
		if !hasPath {
			return missing("Path")
		}
		if !hasMember {
			return missing("Member")
		}
	case Signal:
		if !hasPath {
			return missing("Path")
		}
		if !hasMember {
			return missing("Member")
		}
		if !hasInterface {
			return missing("Interface")
		}
	case Error:
		if !hasErrorName {
			return missing("ErrorName")
		}
		if !hasReplySerial {
			return missing("ReplySerial")
		}
	case MethodReturn:
		if !hasReplySerial {
			return missing("ReplySerial")
		}
	}
	return nil
}
