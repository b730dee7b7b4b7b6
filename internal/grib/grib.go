// Package grib decodes and encodes self-contained GRIB edition 1 and 2
// messages on regular latitude/longitude grids with simple packing.
//
// A Message owns a private copy of its bytes, so it stays valid after the
// buffer it was decoded from is reused or unmapped.
package grib

import (
	"bytes"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/gridscan/pkg/field"
)

var (
	ErrNoMessage          = errors.New("grib: no message found")
	ErrInvalidMessage     = errors.New("grib: invalid message")
	ErrTruncated          = errors.New("grib: truncated message")
	ErrUnsupported        = errors.New("grib: unsupported template")
	ErrBufferTooSmall     = errors.New("grib: value buffer too small")
	ErrUnsupportedKey     = errors.New("grib: unknown key")
	ErrInvalidCombination = errors.New("grib: query contradicts message metadata")
)

const (
	magic = "GRIB"
	tail  = "7777"

	// DefaultMissingValue fills grid points that the bitmap marks absent.
	DefaultMissingValue = -9e33

	// surfaceGeneralized is the GRIB-2 fixed surface type of levels
	// defined by an external vertical grid.
	surfaceGeneralized = 150
	surfaceMissing     = 255
)

// Packing holds the simple packing parameters of the data section.
type Packing struct {
	Reference    float32
	BinaryScale  int
	DecimalScale int
	Bits         int
}

// Message is one decoded GRIB message.
type Message struct {
	Edition int
	Offset  int64

	Centre      int
	Discipline  int
	Category    int
	Number      int
	Table       int
	Code        int
	Template    int
	RefTime     time.Time
	Start       time.Time
	End         time.Time
	HasEnd      bool
	Kind        field.TimestepKind
	SurfaceType [2]int
	Level       [2]float64

	VGrid   *field.LevelUUID
	Tile    *field.Tile
	Tiles   field.TileCount
	HasTile bool

	Grid      field.Grid
	Packing   Packing
	Missing   float64
	NumValues int

	raw    []byte
	bitmap []byte
	data   []byte
}

// Decode parses the message starting at the beginning of b. b must hold the
// whole message; trailing bytes are ignored.
func Decode(b []byte) (*Message, error) {
	if len(b) < 8 || !bytes.HasPrefix(b, []byte(magic)) {
		return nil, ErrNoMessage
	}
	n, err := messageLength(b)
	if err != nil {
		return nil, err
	}
	raw := bytes.Clone(b[:n])
	m := &Message{Edition: int(raw[7]), Missing: DefaultMissingValue, raw: raw}
	switch m.Edition {
	case 1:
		err = m.decode1()
	case 2:
		err = m.decode2()
	default:
		err = ErrInvalidMessage
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Bytes returns the encoded message. The slice must not be modified.
func (m *Message) Bytes() []byte { return m.raw }

// Len is the encoded message length.
func (m *Message) Len() int { return len(m.raw) }

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	c, err := Decode(m.raw)
	if err != nil {
		// m decoded from the same bytes a moment ago.
		panic("grib: clone of a valid message failed: " + err.Error())
	}
	c.Offset = m.Offset
	return c
}

// Param returns the parameter identity. Edition 1 messages use the code
// table form {255, table, code}.
func (m *Message) Param() field.Param {
	if m.Edition == 1 {
		return field.CodeParam(m.Code, m.Table)
	}
	return field.Param{Discipline: m.Discipline, Category: m.Category, Number: m.Number}
}

// Datatype reports the packed bit width.
func (m *Message) Datatype() field.Datatype {
	if m.Packing.Bits == 0 {
		return field.Pack(8)
	}
	return field.Pack(m.Packing.Bits)
}

// LevelType maps the fixed surface of the selected bound.
func (m *Message) LevelType(sel field.LevelSelector) field.LevelType {
	code := m.SurfaceType[0]
	if sel == field.LevelBottom && m.SurfaceType[1] != surfaceMissing && m.SurfaceType[1] != 0 {
		code = m.SurfaceType[1]
	}
	if m.Edition == 1 {
		return field.FromGRIB1(code)
	}
	return field.FromGRIB2(code)
}

// LevelValues returns the value of the selected bound. For generalized
// levels this is the level number and level count.
func (m *Message) LevelValues(sel field.LevelSelector) (float64, float64) {
	if m.VGrid != nil {
		return m.Level[0], float64(m.VGrid.LevelCount)
	}
	if sel == field.LevelBottom {
		return m.Level[1], 0
	}
	return m.Level[0], 0
}

// Generalized returns the external vertical grid reference.
func (m *Message) Generalized() (field.LevelUUID, error) {
	if m.VGrid == nil {
		return field.LevelUUID{VGridNumber: -1, LevelCount: 0, UUID: uuid.Nil}, ErrInvalidCombination
	}
	return *m.VGrid, nil
}

// ValueCount is the number of grid points, missing ones included.
func (m *Message) ValueCount() int {
	return m.Grid.Size()
}
