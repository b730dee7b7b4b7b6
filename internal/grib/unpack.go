package grib

import (
	"fmt"
	"math"
	"math/bits"
)

// Values decodes the field into buf and returns the number of grid points
// the bitmap marks missing. Missing points are set to m.Missing.
func (m *Message) Values(buf []float64) (int, error) {
	if len(buf) < m.Grid.Size() {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrBufferTooSmall, m.Grid.Size(), len(buf))
	}
	return m.unpack(func(i int, v float64) { buf[i] = v })
}

// ValuesF32 is Values for single precision buffers.
func (m *Message) ValuesF32(buf []float32) (int, error) {
	if len(buf) < m.Grid.Size() {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrBufferTooSmall, m.Grid.Size(), len(buf))
	}
	return m.unpack(func(i int, v float64) { buf[i] = float32(v) })
}

// MissingCount returns the number of grid points absent from the bitmap.
func (m *Message) MissingCount() int {
	if m.bitmap == nil {
		return 0
	}
	return m.Grid.Size() - countBits(m.bitmap, m.Grid.Size())
}

func (m *Message) unpack(store func(i int, v float64)) (int, error) {
	n := m.Grid.Size()
	present := n
	if m.bitmap != nil {
		if len(m.bitmap)*8 < n {
			return 0, fmt.Errorf("%w: bitmap covers %d of %d points", ErrTruncated, len(m.bitmap)*8, n)
		}
		present = countBits(m.bitmap, n)
	}
	if m.Edition == 2 && present != m.NumValues {
		return 0, fmt.Errorf("%w: %d packed values but %d present points", ErrInvalidMessage, m.NumValues, present)
	}
	width := m.Packing.Bits
	if need := (present*width + 7) / 8; len(m.data) < need {
		return 0, fmt.Errorf("%w: data section holds %d of %d bytes", ErrTruncated, len(m.data), need)
	}

	ref := float64(m.Packing.Reference)
	escale := math.Ldexp(1, m.Packing.BinaryScale)
	dscale := math.Pow10(-m.Packing.DecimalScale)
	br := bitReader{b: m.data}
	missing := 0
	for i := 0; i < n; i++ {
		if m.bitmap != nil && m.bitmap[i>>3]&(0x80>>(i&7)) == 0 {
			store(i, m.Missing)
			missing++
			continue
		}
		var x uint64
		if width > 0 {
			x = br.read(width)
		}
		store(i, (ref+float64(x)*escale)*dscale)
	}
	return missing, nil
}

func countBits(bitmap []byte, n int) int {
	full := n / 8
	if full > len(bitmap) {
		full = len(bitmap)
	}
	count := 0
	for _, b := range bitmap[:full] {
		count += bits.OnesCount8(b)
	}
	if rem := n % 8; rem != 0 && full < len(bitmap) {
		count += bits.OnesCount8(bitmap[full] & ^byte(0xFF>>rem))
	}
	return count
}

// bitReader reads big-endian bit fields.
type bitReader struct {
	b   []byte
	pos int
}

func (r *bitReader) read(width int) uint64 {
	var v uint64
	for width > 0 {
		idx := r.pos >> 3
		shift := r.pos & 7
		avail := 8 - shift
		take := avail
		if take > width {
			take = width
		}
		chunk := (r.b[idx] >> (avail - take)) & byte(0xFF>>(8-take))
		v = v<<take | uint64(chunk)
		r.pos += take
		width -= take
	}
	return v
}

// bitWriter is the encoding counterpart of bitReader.
type bitWriter struct {
	b   []byte
	pos int
}

func (w *bitWriter) write(v uint64, width int) {
	for width > 0 {
		if w.pos>>3 >= len(w.b) {
			w.b = append(w.b, 0)
		}
		shift := w.pos & 7
		avail := 8 - shift
		take := avail
		if take > width {
			take = width
		}
		chunk := byte(v>>(width-take)) & byte(0xFF>>(8-take))
		w.b[w.pos>>3] |= chunk << (avail - take)
		w.pos += take
		width -= take
	}
}
