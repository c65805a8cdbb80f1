// package dbus implements the core of the DBus wire-format codec:
// parsing type signatures into a vectorized representation, decoding
// typed values from an aligned byte stream, and decoding the
// fixed-shape message header that precedes every DBus message.
//
// This package does not perform transport I/O, does not implement
// the SASL authentication handshake or the bus connection state
// machine, and does not serialize outbound messages. It hands callers
// a [MessageHeader] with the message body's byte range and declared
// [Signature] attached, and leaves turning that body into Go values
// to [DecodeValues].
//
// The low-level, signature-agnostic byte reader lives in the
// [github.com/mirelsonn/dbuswire/fragments] subpackage; most callers
// will not need to use it directly.
package dbus
