// Package record reads and writes Fortran unformatted sequential records:
// a 4-byte length marker, the payload, and the same marker again. Files may
// be written in either byte order.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	// ErrCorruptRecord reports mismatched or impossible length markers.
	ErrCorruptRecord = errors.New("record: corrupt record")
	ErrWidth         = errors.New("record: payload is not a whole number of words")
)

// maxRecord bounds a single record so a garbage marker cannot trigger a
// huge allocation.
const maxRecord = 1 << 30

// Reader reads records from r.
type Reader struct {
	r     io.ReadSeeker
	order binary.ByteOrder
	off   int64
}

func NewReader(r io.ReadSeeker, order binary.ByteOrder) *Reader {
	return &Reader{r: r, order: order}
}

// Order is the byte order of the markers and payloads.
func (r *Reader) Order() binary.ByteOrder { return r.order }

// Offset is the file offset of the next record.
func (r *Reader) Offset() int64 { return r.off }

// SeekRecord positions the reader on the record that starts at off.
func (r *Reader) SeekRecord(off int64) error {
	if _, err := r.r.Seek(off, io.SeekStart); err != nil {
		return err
	}
	r.off = off
	return nil
}

func (r *Reader) marker() (int, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, err
	}
	n := r.order.Uint32(b[:])
	if n > maxRecord {
		return 0, fmt.Errorf("%w: marker %d at offset %d", ErrCorruptRecord, n, r.off)
	}
	return int(n), nil
}

func (r *Reader) trailer(n int) error {
	m, err := r.marker()
	if err != nil {
		return unexpected(err)
	}
	if m != n {
		return fmt.Errorf("%w: leading marker %d, trailing marker %d at offset %d", ErrCorruptRecord, n, m, r.off)
	}
	r.off += int64(n) + 8
	return nil
}

// Next reads the following record. It returns io.EOF when the stream ends
// exactly at a record boundary.
func (r *Reader) Next() ([]byte, error) {
	n, err := r.marker()
	if err != nil {
		return nil, err
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, unexpected(err)
	}
	if err := r.trailer(n); err != nil {
		return nil, err
	}
	return body, nil
}

// Skip moves past the following record, reading only its markers, and
// returns the payload length.
func (r *Reader) Skip() (int, error) {
	n, err := r.marker()
	if err != nil {
		return 0, err
	}
	if _, err := r.r.Seek(int64(n), io.SeekCurrent); err != nil {
		return 0, err
	}
	if err := r.trailer(n); err != nil {
		return 0, err
	}
	return n, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrCorruptRecord, io.ErrUnexpectedEOF)
	}
	return err
}

// SniffOrder picks the byte order in which the leading marker b reads as
// one of the expected payload lengths. ok is false when neither does.
func SniffOrder(b []byte, expected ...int) (binary.ByteOrder, bool) {
	if len(b) < 4 {
		return nil, false
	}
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		n := int(order.Uint32(b))
		for _, e := range expected {
			if n == e {
				return order, true
			}
		}
	}
	return nil, false
}

// Writer writes records to w.
type Writer struct {
	w     io.Writer
	order binary.ByteOrder
}

func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

// Write writes p as one record.
func (w *Writer) Write(p []byte) error {
	var m [4]byte
	w.order.PutUint32(m[:], uint32(len(p)))
	if _, err := w.w.Write(m[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(p); err != nil {
		return err
	}
	_, err := w.w.Write(m[:])
	return err
}

// Ints decodes a payload of signed integers of the given width (4 or 8).
func Ints(p []byte, order binary.ByteOrder, width int) ([]int64, error) {
	if width != 4 && width != 8 || len(p)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes, width %d", ErrWidth, len(p), width)
	}
	out := make([]int64, len(p)/width)
	for i := range out {
		if width == 4 {
			out[i] = int64(int32(order.Uint32(p[i*4:])))
		} else {
			out[i] = int64(order.Uint64(p[i*8:]))
		}
	}
	return out, nil
}

// Floats decodes a payload of IEEE floats of the given width into buf and
// returns the number of values.
func Floats(p []byte, order binary.ByteOrder, width int, buf []float64) (int, error) {
	if width != 4 && width != 8 || len(p)%width != 0 {
		return 0, fmt.Errorf("%w: %d bytes, width %d", ErrWidth, len(p), width)
	}
	n := len(p) / width
	if len(buf) < n {
		return 0, fmt.Errorf("record: buffer of %d values for %d", len(buf), n)
	}
	for i := 0; i < n; i++ {
		if width == 4 {
			buf[i] = float64(math.Float32frombits(order.Uint32(p[i*4:])))
		} else {
			buf[i] = math.Float64frombits(order.Uint64(p[i*8:]))
		}
	}
	return n, nil
}

// AppendInts encodes v as integers of the given width.
func AppendInts(dst []byte, order binary.ByteOrder, width int, v ...int64) []byte {
	var b [8]byte
	for _, x := range v {
		if width == 4 {
			order.PutUint32(b[:], uint32(int32(x)))
		} else {
			order.PutUint64(b[:], uint64(x))
		}
		dst = append(dst, b[:width]...)
	}
	return dst
}

// AppendFloats encodes v as IEEE floats of the given width.
func AppendFloats(dst []byte, order binary.ByteOrder, width int, v ...float64) []byte {
	var b [8]byte
	for _, x := range v {
		if width == 4 {
			order.PutUint32(b[:], math.Float32bits(float32(x)))
		} else {
			order.PutUint64(b[:], math.Float64bits(x))
		}
		dst = append(dst, b[:width]...)
	}
	return dst
}
