// package fragments provides the low-level aligned reader used to
// parse DBus wire format messages.
//
// The Reader here is very low level, and does not know any DBus
// semantics beyond primitive alignment and length-prefix framing. It
// is the caller's responsibility to interpret the bytes it returns
// according to a DBus type signature.
//
// You should not need to use this package directly unless you are
// implementing a new value decoder; ordinary callers should use
// [github.com/mirelsonn/dbuswire]'s Signature and MessageHeader
// decoding instead.
package fragments
