// Package ieg reads and writes the IEG format used by regional climate
// models. Each field is a header record and a data record. The header holds
// 37 product definition words and 22 grid description words as 4-byte
// integers, followed by 100 vertical coordinate reals; the reals and the
// data values are 4 or 8 bytes wide, so headers are 636 or 1036 bytes.
//
// Product and grid words follow the order of the GRIB-1 PDS and GDS octets,
// and level types use GRIB-1 codes. The year word holds all four digits.
package ieg

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/record"
	"github.com/samcharles93/gridscan/pkg/field"
)

const (
	pdsWords = 37
	gdsWords = 22
	vctWords = 100

	header4 = (pdsWords+gdsWords)*4 + vctWords*4
	header8 = (pdsWords+gdsWords)*4 + vctWords*8
)

// Product definition word indices.
const (
	pdsTable     = 0
	pdsCentre    = 1
	pdsFlag      = 4
	pdsCode      = 5
	pdsLevelType = 6
	pdsLevel1    = 7
	pdsLevel2    = 8
	pdsYear      = 9
	pdsMonth     = 10
	pdsDay       = 11
	pdsHour      = 12
	pdsMinute    = 13
	pdsUnit      = 14
	pdsP1        = 15
	pdsP2        = 16
	pdsTimeRange = 17
)

// Grid description word indices.
const (
	gdsType  = 0
	gdsNx    = 1
	gdsNy    = 2
	gdsLat1  = 3
	gdsLon1  = 4
	gdsRes   = 5
	gdsLat2  = 6
	gdsLon2  = 7
	gdsDi    = 8
	gdsDj    = 9
	gdsScan  = 10
	gdsNV    = 11
	levelHPa = 100
)

// Header is a decoded IEG header record. Angles are in millidegrees.
type Header struct {
	Table     int
	Centre    int
	Code      int
	LevelType int
	// Level holds the two level words; single levels repeat the value.
	Level     [2]int
	RefTime   time.Time
	Unit      int
	P1, P2    int
	TimeRange int

	Nx, Ny     int
	Lat1, Lon1 int
	Lat2, Lon2 int
	Di, Dj     int
	Scan       int

	VCT []float64
	// Precision is the width of reals in bytes, 4 or 8.
	Precision int
}

func decodeHeader(b []byte, order binary.ByteOrder) (Header, error) {
	var prec int
	switch len(b) {
	case header4:
		prec = 4
	case header8:
		prec = 8
	default:
		return Header{}, fmt.Errorf("%w: IEG header of %d bytes", record.ErrCorruptRecord, len(b))
	}
	ints, err := record.Ints(b[:(pdsWords+gdsWords)*4], order, 4)
	if err != nil {
		return Header{}, err
	}
	vct := make([]float64, vctWords)
	if _, err := record.Floats(b[(pdsWords+gdsWords)*4:], order, prec, vct); err != nil {
		return Header{}, err
	}
	pds, gds := ints[:pdsWords], ints[pdsWords:]
	word := func(v []int64, i int) int { return int(v[i]) }
	h := Header{
		Table:     word(pds, pdsTable),
		Centre:    word(pds, pdsCentre),
		Code:      word(pds, pdsCode),
		LevelType: word(pds, pdsLevelType),
		Level:     [2]int{word(pds, pdsLevel1), word(pds, pdsLevel2)},
		RefTime: time.Date(word(pds, pdsYear), time.Month(word(pds, pdsMonth)), word(pds, pdsDay),
			word(pds, pdsHour), word(pds, pdsMinute), 0, 0, time.UTC),
		Unit:      word(pds, pdsUnit),
		P1:        word(pds, pdsP1),
		P2:        word(pds, pdsP2),
		TimeRange: word(pds, pdsTimeRange),
		Nx:        word(gds, gdsNx),
		Ny:        word(gds, gdsNy),
		Lat1:      word(gds, gdsLat1),
		Lon1:      word(gds, gdsLon1),
		Lat2:      word(gds, gdsLat2),
		Lon2:      word(gds, gdsLon2),
		Di:        word(gds, gdsDi),
		Dj:        word(gds, gdsDj),
		Scan:      word(gds, gdsScan),
		VCT:       vct,
		Precision: prec,
	}
	if gds[gdsType] != 0 {
		return Header{}, fmt.Errorf("ieg: grid representation %d is not a lat/lon grid", gds[gdsType])
	}
	if h.Nx <= 0 || h.Ny <= 0 {
		return Header{}, fmt.Errorf("%w: IEG grid %dx%d", record.ErrCorruptRecord, h.Nx, h.Ny)
	}
	return h, nil
}

func (h Header) encode(order binary.ByteOrder) []byte {
	pds := make([]int64, pdsWords)
	pds[pdsTable] = int64(h.Table)
	pds[pdsCentre] = int64(h.Centre)
	pds[pdsFlag] = 0x80
	pds[pdsCode] = int64(h.Code)
	pds[pdsLevelType] = int64(h.LevelType)
	pds[pdsLevel1] = int64(h.Level[0])
	pds[pdsLevel2] = int64(h.Level[1])
	t := h.RefTime.UTC()
	pds[pdsYear] = int64(t.Year())
	pds[pdsMonth] = int64(t.Month())
	pds[pdsDay] = int64(t.Day())
	pds[pdsHour] = int64(t.Hour())
	pds[pdsMinute] = int64(t.Minute())
	pds[pdsUnit] = int64(h.Unit)
	pds[pdsP1] = int64(h.P1)
	pds[pdsP2] = int64(h.P2)
	pds[pdsTimeRange] = int64(h.TimeRange)

	gds := make([]int64, gdsWords)
	gds[gdsNx] = int64(h.Nx)
	gds[gdsNy] = int64(h.Ny)
	gds[gdsLat1] = int64(h.Lat1)
	gds[gdsLon1] = int64(h.Lon1)
	gds[gdsRes] = 0x80
	gds[gdsLat2] = int64(h.Lat2)
	gds[gdsLon2] = int64(h.Lon2)
	gds[gdsDi] = int64(h.Di)
	gds[gdsDj] = int64(h.Dj)
	gds[gdsScan] = int64(h.Scan)
	gds[gdsNV] = int64(len(h.VCT))

	prec := h.Precision
	if prec == 0 {
		prec = 4
	}
	vct := make([]float64, vctWords)
	copy(vct, h.VCT)

	b := record.AppendInts(nil, order, 4, pds...)
	b = record.AppendInts(b, order, 4, gds...)
	return record.AppendFloats(b, order, prec, vct...)
}

// layerTypes have distinct top and bottom level words.
var layerTypes = map[int]bool{
	101: true, 104: true, 106: true, 108: true, 110: true, 112: true,
	114: true, 116: true, 120: true, 121: true, 128: true, 141: true,
}

func (h Header) meta() (stream.Meta, error) {
	var step time.Duration
	switch h.Unit {
	case 0:
		step = time.Minute
	case 1:
		step = time.Hour
	case 2:
		step = 24 * time.Hour
	default:
		return stream.Meta{}, fmt.Errorf("ieg: time unit %d", h.Unit)
	}
	m := stream.Meta{
		Name:      "var" + strconv.Itoa(h.Code),
		Param:     field.CodeParam(h.Code, h.Table),
		Datatype:  field.Flt32,
		Kind:      field.TimestepInstant,
		RefTime:   h.RefTime,
		Start:     h.RefTime.Add(time.Duration(h.P1) * step),
		LevelType: field.FromGRIB1(h.LevelType),
		Grid:      grid(h),
	}
	if h.Precision == 8 {
		m.Datatype = field.Flt64
	}
	switch h.TimeRange {
	case 0, 1, 10:
	case 3:
		m.Kind = field.TimestepAverage
		m.End = h.RefTime.Add(time.Duration(h.P2) * step)
	case 4:
		m.Kind = field.TimestepAccumulation
		m.End = h.RefTime.Add(time.Duration(h.P2) * step)
	default:
		return stream.Meta{}, fmt.Errorf("ieg: time range indicator %d", h.TimeRange)
	}
	top, bottom := float64(h.Level[0]), float64(h.Level[1])
	if !layerTypes[h.LevelType] {
		bottom = top
	}
	if h.LevelType == levelHPa {
		top, bottom = top*100, bottom*100
	}
	m.Level = [2]float64{top, bottom}
	return m, nil
}

func grid(h Header) field.Grid {
	xinc, yinc := float64(h.Di)/1e3, -float64(h.Dj)/1e3
	if h.Scan&0x80 != 0 {
		xinc = -xinc
	}
	if h.Scan&0x40 != 0 {
		yinc = -yinc
	}
	return field.Grid{
		Type:   field.GridLonLat,
		Nx:     h.Nx,
		Ny:     h.Ny,
		XFirst: float64(h.Lon1) / 1e3,
		XInc:   xinc,
		YFirst: float64(h.Lat1) / 1e3,
		YInc:   yinc,
	}
}

// Source iterates the fields of an IEG file.
type Source struct {
	p      *record.Pairs
	header Header
}

func Open(path string) (*Source, error) {
	p, err := record.OpenPairs(path, header4, header8)
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
	h, err := decodeHeader(b, s.p.Order())
	if err != nil {
		return err
	}
	meta, err := h.meta()
	if err != nil {
		return err
	}
	s.header, *m = h, meta
	return nil
}

func (s *Source) Header() Header { return s.header }

func (s *Source) Skip() error { return s.p.Skip() }

func (s *Source) Read(buf []float64) (int, error) {
	return s.p.Values(s.header.Nx*s.header.Ny, buf)
}

func (s *Source) Close() error { return s.p.Close() }

// Writer writes IEG fields.
type Writer struct {
	w     *record.Writer
	order binary.ByteOrder
}

func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: record.NewWriter(w, order), order: order}
}

// Write appends one field at the precision of h.
func (w *Writer) Write(h Header, values []float64) error {
	if len(values) != h.Nx*h.Ny {
		return fmt.Errorf("ieg: %d values for a %dx%d grid", len(values), h.Nx, h.Ny)
	}
	if h.Precision == 0 {
		h.Precision = 4
	}
	if err := w.w.Write(h.encode(w.order)); err != nil {
		return err
	}
	return w.w.Write(record.AppendFloats(nil, w.order, h.Precision, values...))
}
