package grib

import (
	"encoding/binary"
	"fmt"
	"math"
)

// reader walks a section of a message. All GRIB integers are big-endian and
// signed values use sign-and-magnitude rather than two's complement.
type reader struct {
	b   []byte
	off int
}

func newReader(b []byte) *reader {
	return &reader{b: b}
}

func (r *reader) readN(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid read length %d", n)
	}
	if r.off+n > len(r.b) {
		return nil, fmt.Errorf("%w: read of %d bytes at offset %d past section end %d", ErrTruncated, n, r.off, len(r.b))
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *reader) skip(n int) error {
	_, err := r.readN(n)
	return err
}

func (r *reader) readU8() (uint8, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readU16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) readU24() (uint32, error) {
	b, err := r.readN(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) readU64() (uint64, error) {
	b, err := r.readN(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// readS8 reads a one byte sign-and-magnitude integer.
func (r *reader) readS8() (int, error) {
	v, err := r.readU8()
	return signMagnitude(uint64(v), 8), err
}

func (r *reader) readS16() (int, error) {
	v, err := r.readU16()
	return signMagnitude(uint64(v), 16), err
}

func (r *reader) readS24() (int, error) {
	v, err := r.readU24()
	return signMagnitude(uint64(v), 24), err
}

func (r *reader) readS32() (int, error) {
	v, err := r.readU32()
	return signMagnitude(uint64(v), 32), err
}

func (r *reader) readF32() (float32, error) {
	u, err := r.readU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func signMagnitude(v uint64, bits uint) int {
	sign := uint64(1) << (bits - 1)
	if v&sign != 0 {
		return -int(v &^ sign)
	}
	return int(v)
}

// writer is the encoding counterpart of reader.
type writer struct {
	b []byte
}

func (w *writer) u8(v int)  { w.b = append(w.b, byte(v)) }
func (w *writer) u16(v int) { w.b = binary.BigEndian.AppendUint16(w.b, uint16(v)) }
func (w *writer) u24(v int) { w.b = append(w.b, byte(v>>16), byte(v>>8), byte(v)) }
func (w *writer) u32(v uint32) {
	w.b = binary.BigEndian.AppendUint32(w.b, v)
}
func (w *writer) u64(v uint64) { w.b = binary.BigEndian.AppendUint64(w.b, v) }
func (w *writer) bytes(p []byte) {
	w.b = append(w.b, p...)
}

func (w *writer) s8(v int)  { w.u8(int(toSignMagnitude(v, 8))) }
func (w *writer) s16(v int) { w.u16(int(toSignMagnitude(v, 16))) }
func (w *writer) s24(v int) { w.u24(int(toSignMagnitude(v, 24))) }
func (w *writer) s32(v int) { w.u32(uint32(toSignMagnitude(v, 32))) }

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func toSignMagnitude(v int, bits uint) uint64 {
	if v < 0 {
		return uint64(-v) | uint64(1)<<(bits-1)
	}
	return uint64(v)
}

// patchLen stores n as a big-endian integer of width bytes at off.
func (w *writer) patchLen(off, width int, n int) {
	for i := width - 1; i >= 0; i-- {
		w.b[off+i] = byte(n)
		n >>= 8
	}
}
