// Package extra reads and writes the EXTRA format: per field a header record
// of four integers (date, code, level, size) and a data record of size reals.
package extra

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/record"
	"github.com/samcharles93/gridscan/internal/timefmt"
	"github.com/samcharles93/gridscan/pkg/field"
)

const headerWords = 4

type Header struct {
	Date  int64
	Code  int64
	Level int64
	Size  int64
}

// Source iterates the fields of an EXTRA file.
type Source struct {
	p      *record.Pairs
	header Header
}

func Open(path string) (*Source, error) {
	p, err := record.OpenPairs(path, headerWords*4, headerWords*8)
	if err != nil {
		return nil, err
	}
	return &Source{p: p}, nil
}

func OpenSource(path string) (stream.Source, error) {
	return Open(path)
}

func (s *Source) Next(m *stream.Meta) error {
	b, err := s.p.Header()
	if err != nil {
		return err
	}
	width := len(b) / headerWords
	v, err := record.Ints(b, s.p.Order(), width)
	if err != nil || len(v) != headerWords {
		return fmt.Errorf("%w: EXTRA header of %d bytes", record.ErrCorruptRecord, len(b))
	}
	h := Header{Date: v[0], Code: v[1], Level: v[2], Size: v[3]}
	if h.Size <= 0 {
		return fmt.Errorf("%w: EXTRA field size %d", record.ErrCorruptRecord, h.Size)
	}
	s.header = h

	dt := field.Flt32
	if width == 8 {
		dt = field.Flt64
	}
	// EXTRA dates carry no time of day.
	t := timefmt.FromDateTime(h.Date, 0)
	*m = stream.Meta{
		Name:      "var" + strconv.FormatInt(h.Code, 10),
		Param:     field.CodeParam(int(h.Code), 0),
		Datatype:  dt,
		Kind:      field.TimestepInstant,
		RefTime:   t,
		Start:     t,
		LevelType: field.LevelGeneric,
		Level:     [2]float64{float64(h.Level), float64(h.Level)},
		Grid:      field.Grid{Type: field.GridGeneric, Nx: int(h.Size)},
	}
	return nil
}

func (s *Source) Header() Header { return s.header }

func (s *Source) Skip() error { return s.p.Skip() }

func (s *Source) Read(buf []float64) (int, error) {
	return s.p.Values(int(s.header.Size), buf)
}

func (s *Source) Close() error { return s.p.Close() }

// Writer writes EXTRA fields.
type Writer struct {
	w     *record.Writer
	order binary.ByteOrder
	width int
}

func NewWriter(w io.Writer, order binary.ByteOrder, width int) *Writer {
	return &Writer{w: record.NewWriter(w, order), order: order, width: width}
}

// Write appends one field. h.Size is set from values when zero.
func (w *Writer) Write(h Header, values []float64) error {
	if h.Size == 0 {
		h.Size = int64(len(values))
	}
	if h.Size != int64(len(values)) {
		return fmt.Errorf("extra: %d values for size %d", len(values), h.Size)
	}
	if err := w.w.Write(record.AppendInts(nil, w.order, w.width, h.Date, h.Code, h.Level, h.Size)); err != nil {
		return err
	}
	return w.w.Write(record.AppendFloats(nil, w.order, w.width, values...))
}
