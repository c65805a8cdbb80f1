package dbus

import "log"

// debugTrace gates verbose per-field tracing in the header and value
// decoders. It is off by default; flip it during development, the way
// the teacher's decode.go gates its own reflect-walk tracing.
const debugTrace = false

func debugf(msg string, args ...any) {
	if !debugTrace {
		return
	}
	log.Printf(msg, args...)
}
