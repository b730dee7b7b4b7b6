package grib

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// messageLength reads the total length from section 0 and checks the end
// section.
func messageLength(b []byte) (int, error) {
	if len(b) < 8 {
		return 0, ErrTruncated
	}
	var n uint64
	switch b[7] {
	case 1:
		n = uint64(b[4])<<16 | uint64(b[5])<<8 | uint64(b[6])
	case 2:
		if len(b) < 16 {
			return 0, ErrTruncated
		}
		n = binary.BigEndian.Uint64(b[8:16])
	default:
		return 0, fmt.Errorf("%w: edition %d", ErrInvalidMessage, b[7])
	}
	if n < 12 || n > uint64(len(b)) {
		return 0, fmt.Errorf("%w: length %d with %d bytes available", ErrTruncated, n, len(b))
	}
	if string(b[n-4:n]) != tail {
		return 0, fmt.Errorf("%w: missing end section", ErrInvalidMessage)
	}
	return int(n), nil
}

// Scan finds the next message in b at or after off. It returns the start
// offset and length of the message, or ErrNoMessage when b holds no further
// GRIB magic.
func Scan(b []byte, off int) (start, length int, err error) {
	if off < 0 || off > len(b) {
		return 0, 0, ErrNoMessage
	}
	idx := bytes.Index(b[off:], []byte(magic))
	if idx < 0 {
		return 0, 0, ErrNoMessage
	}
	start = off + idx
	length, err = messageLength(b[start:])
	if err != nil {
		return start, 0, err
	}
	return start, length, nil
}
