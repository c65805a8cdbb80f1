package fragments

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/cpu"
)

// ByteOrder is the byte order a Reader uses to interpret multi-byte
// primitives. It is [binary.ByteOrder] plus the DBus endian flag byte
// that names it on the wire.
type ByteOrder interface {
	binary.ByteOrder
	dbusFlag() byte
}

type wrapStd struct {
	binary.ByteOrder
}

func (w wrapStd) dbusFlag() byte {
	switch w.ByteOrder {
	case binary.BigEndian:
		return 'B'
	case binary.LittleEndian:
		return 'l'
	case binary.NativeEndian:
		if cpu.IsBigEndian {
			return 'B'
		}
		return 'l'
	default:
		panic("unknown ByteOrder, how did you manage to make one of those?")
	}
}

var (
	BigEndian    ByteOrder = wrapStd{binary.BigEndian}
	LittleEndian ByteOrder = wrapStd{binary.LittleEndian}
	NativeEndian ByteOrder = wrapStd{binary.NativeEndian}
)

// OrderForFlag maps a DBus message's endian flag byte ('l' or 'B') to
// the corresponding ByteOrder. Any other byte is a fatal format error
// per the DBus wire format.
func OrderForFlag(flag byte) (ByteOrder, error) {
	switch flag {
	case 'l':
		return LittleEndian, nil
	case 'B':
		return BigEndian, nil
	default:
		return nil, fmt.Errorf("unknown DBus endian flag %q", flag)
	}
}
