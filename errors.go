package dbus

import "errors"

// Signature errors, returned by [ParseSignature]. ParseSignature
// accepts the empty signature, so ErrEmptySignature is returned
// instead by [DecodeHeader] and the value decoders when a variant's
// inline signature is empty.
var (
	ErrUnknownTypeCode  = errors.New("dbus: unknown type code")
	ErrUnbalancedStruct = errors.New("dbus: unbalanced struct, missing )")
	ErrUnbalancedDict   = errors.New("dbus: unbalanced dict entry, missing }")
	ErrEmptyStruct      = errors.New("dbus: struct must contain at least one field")
	ErrDictKeyNotBasic  = errors.New("dbus: dict entry key must be a basic type")
	ErrArrayMissingElem = errors.New("dbus: array missing element type")
	ErrDictOutsideArray = errors.New("dbus: dict entry type found outside array")
	ErrTooDeep          = errors.New("dbus: signature nests too deeply")
	ErrTooLong          = errors.New("dbus: signature exceeds 255 bytes")
	ErrEmptySignature   = errors.New("dbus: signature is empty")
)

// Header errors, returned by [DecodeHeader].
var (
	ErrInvalidEndian        = errors.New("dbus: invalid endian flag")
	ErrInvalidMsgType       = errors.New("dbus: invalid message type")
	ErrInvalidFlags         = errors.New("dbus: invalid header flags")
	ErrInvalidVersion       = errors.New("dbus: unsupported protocol version")
	ErrInvalidHeaderField   = errors.New("dbus: header field has the wrong type for its code")
	ErrDuplicateHeaderField = errors.New("dbus: duplicate header field code")
	ErrRequiredFieldMissing = errors.New("dbus: required header field missing")
)
