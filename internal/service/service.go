// Package service reads and writes the SERVICE format: per field a header
// record of eight integers (code, level, date, time, nlon, nlat and two
// user words) and a data record of nlon*nlat reals.
package service

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

const headerWords = 8

// Header is one SERVICE header record.
type Header struct {
	Code  int64
	Level int64
	Date  int64
	Time  int64
	Nlon  int64
	Nlat  int64
	Disp1 int64
	Disp2 int64
}

func (h Header) ints() []int64 {
	return []int64{h.Code, h.Level, h.Date, h.Time, h.Nlon, h.Nlat, h.Disp1, h.Disp2}
}

// Source iterates the fields of a SERVICE file.
type Source struct {
	p      *record.Pairs
	width  int
	header Header
}

// Open opens a SERVICE file written with 4 or 8 byte words.
func Open(path string) (*Source, error) {
	p, err := record.OpenPairs(path, headerWords*4, headerWords*8)
	if err != nil {
		return nil, err
	}
	return &Source{p: p}, nil
}

// OpenSource adapts Open to stream.OpenFunc.
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
		return fmt.Errorf("%w: SERVICE header of %d bytes", record.ErrCorruptRecord, len(b))
	}
	h := Header{v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7]}
	if h.Nlon <= 0 || h.Nlat <= 0 {
		return fmt.Errorf("%w: SERVICE grid %dx%d", record.ErrCorruptRecord, h.Nlon, h.Nlat)
	}
	s.width, s.header = width, h

	t := timefmt.FromDateTime(h.Date, h.Time)
	*m = stream.Meta{
		Name:      "var" + strconv.FormatInt(h.Code, 10),
		Param:     field.CodeParam(int(h.Code), 0),
		Datatype:  floatType(width),
		Kind:      field.TimestepInstant,
		RefTime:   t,
		Start:     t,
		LevelType: field.LevelGeneric,
		Level:     [2]float64{float64(h.Level), float64(h.Level)},
		Grid:      field.Grid{Type: field.GridGeneric, Nx: int(h.Nlon), Ny: int(h.Nlat)},
	}
	return nil
}

// Header returns the header of the current field.
func (s *Source) Header() Header { return s.header }

func (s *Source) Skip() error { return s.p.Skip() }

func (s *Source) Read(buf []float64) (int, error) {
	return s.p.Values(int(s.header.Nlon*s.header.Nlat), buf)
}

func (s *Source) Close() error { return s.p.Close() }

func floatType(width int) field.Datatype {
	if width == 8 {
		return field.Flt64
	}
	return field.Flt32
}

// Writer writes SERVICE fields.
type Writer struct {
	w     *record.Writer
	order binary.ByteOrder
	width int
}

// NewWriter writes words of width bytes (4 or 8) in the given order.
func NewWriter(w io.Writer, order binary.ByteOrder, width int) *Writer {
	return &Writer{w: record.NewWriter(w, order), order: order, width: width}
}

// Write appends one field. len(values) must equal Nlon*Nlat.
func (w *Writer) Write(h Header, values []float64) error {
	if int64(len(values)) != h.Nlon*h.Nlat {
		return fmt.Errorf("service: %d values for a %dx%d grid", len(values), h.Nlon, h.Nlat)
	}
	if err := w.w.Write(record.AppendInts(nil, w.order, w.width, h.ints()...)); err != nil {
		return err
	}
	return w.w.Write(record.AppendFloats(nil, w.order, w.width, values...))
}
