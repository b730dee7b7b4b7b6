// Package iterator is a forward cursor over gridded data files. An Iterator
// hides which encoding it reads: GRIB messages, NetCDF variables and the
// SERVICE, EXTRA and IEG record formats all advance, describe and decode
// their fields through the same methods.
//
// A new Iterator is un-advanced. Every query other than Next, Filetype and
// Close panics with a *UsageError until Next has been called once. Iterators
// can be cloned, and serialized into a single line of text that Deserialize
// turns back into an iterator on an equivalent field, possibly in another
// process.
//
// An Iterator is not safe for concurrent use. Clones and deserialized
// iterators own their state and may be driven from other goroutines.
package iterator

import (
	"errors"
	"fmt"
	"io"

	"github.com/samcharles93/gridscan/internal/backend/driver"
	"github.com/samcharles93/gridscan/internal/timefmt"
	"github.com/samcharles93/gridscan/pkg/field"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

// Iterator walks the fields of one file.
type Iterator struct {
	ft       filetype.Type
	advanced bool
	// onField is false before the first Next and after a Next that failed.
	onField bool
	cur     driver.Cursor

	param    field.Param
	datatype field.Datatype
	kind     field.TimestepKind
	grid     *field.Grid
}

func newIterator(ft filetype.Type, cur driver.Cursor, advanced bool) *Iterator {
	return &Iterator{ft: ft, cur: cur, advanced: advanced}
}

// load refreshes the metadata cache from the cursor.
func (it *Iterator) load() {
	it.onField = true
	it.param = it.cur.Param()
	it.datatype = it.cur.Datatype()
	it.kind = it.cur.TimestepKind()
	it.grid = it.cur.Grid()
}

func (it *Iterator) reset() {
	it.onField = false
	it.param = field.Param{Discipline: field.ParamUndefined, Category: field.ParamUndefined, Number: field.ParamUndefined}
	it.datatype = field.DatatypeUndefined
	it.kind = field.TimestepUndefined
	it.grid = nil
}

func (it *Iterator) live(op string) {
	if it == nil {
		usage(op, "nil iterator")
	}
	if it.cur == nil {
		usage(op, "iterator is closed")
	}
}

// check is the sanity rule of every query.
func (it *Iterator) check(op string) {
	it.live(op)
	if !it.advanced {
		usage(op, "iterator has not been advanced")
	}
}

// Filetype returns the encoding the iterator was opened with.
func (it *Iterator) Filetype() filetype.Type {
	if it == nil {
		usage("Filetype", "nil iterator")
	}
	return it.ft
}

// Advanced reports whether Next has been called.
func (it *Iterator) Advanced() bool {
	if it == nil {
		usage("Advanced", "nil iterator")
	}
	return it.advanced
}

// HasField reports whether the last Next succeeded, so that the queries
// describe a field.
func (it *Iterator) HasField() bool {
	if it == nil {
		usage("HasField", "nil iterator")
	}
	return it.onField
}

// Next moves to the following field. It returns io.EOF when the file holds
// no further fields. The iterator counts as advanced even when Next fails.
func (it *Iterator) Next() error {
	it.live("Next")
	it.advanced = true
	if err := it.cur.Next(); err != nil {
		it.reset()
		return err
	}
	it.load()
	return nil
}

// Clone returns an independent iterator on the same field. Cloning a GRIB
// iterator copies the decoded message; cloning a record stream reopens the
// file and replays the advances.
func (it *Iterator) Clone() (*Iterator, error) {
	it.check("Clone")
	cur, err := it.cur.Clone()
	if err != nil {
		return nil, fmt.Errorf("clone %s iterator: %w", it.ft, err)
	}
	c := newIterator(it.ft, cur, true)
	if it.onField {
		c.load()
	} else {
		c.reset()
	}
	return c, nil
}

// Serialize describes the iterator position as "<tag> <state> <payload>".
func (it *Iterator) Serialize() string {
	it.check("Serialize")
	return it.description()
}

func (it *Iterator) description() string {
	return description{ft: it.ft, advanced: it.advanced, payload: it.cur.Payload()}.String()
}

// String returns the serialized description, or the tag and state when the
// iterator has not been advanced.
func (it *Iterator) String() string {
	switch {
	case it == nil:
		return "<nil iterator>"
	case it.cur == nil:
		return it.ft.Tag() + " closed"
	}
	return it.description()
}

// Close releases the backend state. Closing twice is a no-op.
func (it *Iterator) Close() error {
	if it == nil || it.cur == nil {
		return nil
	}
	err := it.cur.Close()
	it.cur = nil
	it.reset()
	return err
}

// Param returns the parameter identifier of the current field.
func (it *Iterator) Param() field.Param {
	it.check("Param")
	return it.param
}

// ParamParts returns the parameter identifier as its three numbers.
func (it *Iterator) ParamParts() (discipline, category, number int) {
	p := it.Param()
	return p.Discipline, p.Category, p.Number
}

func (it *Iterator) Datatype() field.Datatype {
	it.check("Datatype")
	return it.datatype
}

func (it *Iterator) TimestepKind() field.TimestepKind {
	it.check("TimestepKind")
	return it.kind
}

// Grid describes the horizontal grid of the current field. The value is
// owned by the backend and overwritten by the next call to Next.
func (it *Iterator) Grid() *field.Grid {
	it.check("Grid")
	if it.grid == nil {
		return &field.Grid{}
	}
	return it.grid
}

// VariableName returns the variable or short name of the current field.
func (it *Iterator) VariableName() string {
	it.check("VariableName")
	if !it.onField {
		return ""
	}
	return it.cur.VariableName()
}

func (it *Iterator) time(op string, kind field.TimeKind) (string, bool) {
	it.check(op)
	if !it.onField {
		return "", false
	}
	t, ok := it.cur.Time(kind)
	if !ok {
		return "", false
	}
	return timefmt.ISO8601(t), true
}

// StartTime returns the data time of the field, or the start of its
// statistical interval.
func (it *Iterator) StartTime() (string, bool) { return it.time("StartTime", field.TimeStart) }

// EndTime returns the end of the statistical interval. Point-in-time fields
// report false.
func (it *Iterator) EndTime() (string, bool) { return it.time("EndTime", field.TimeEnd) }

func (it *Iterator) ReferenceTime() (string, bool) {
	return it.time("ReferenceTime", field.TimeReference)
}

// ValidityTime is the end time when the field has one and the start time
// otherwise.
func (it *Iterator) ValidityTime() (string, bool) {
	if s, ok := it.time("ValidityTime", field.TimeEnd); ok {
		return s, true
	}
	return it.time("ValidityTime", field.TimeStart)
}

// LevelType returns the vertical coordinate of the selected bound.
// Fields without level information report field.LevelUndefined.
func (it *Iterator) LevelType(sel field.LevelSelector) field.LevelType {
	it.check("LevelType")
	if !it.onField {
		return field.LevelUndefined
	}
	return it.cur.LevelType(sel)
}

// Level returns the value of the selected bound. For hybrid levels the two
// values are the level coefficients; generalized levels report the level
// number and the level count. Other level types report the value and 0.
func (it *Iterator) Level(sel field.LevelSelector) (value1, value2 float64, err error) {
	it.check("Level")
	if !it.onField {
		return 0, 0, ErrNotApplicable
	}
	value1, value2, err = it.cur.Level(sel)
	return value1, value2, it.classify("Level", err)
}

// LevelUUID returns the vertical grid reference of a generalized level.
func (it *Iterator) LevelUUID() (field.LevelUUID, error) {
	it.check("LevelUUID")
	if !it.onField {
		return field.LevelUUID{VGridNumber: -1}, ErrNotApplicable
	}
	u, err := it.cur.LevelUUID()
	return u, it.classify("LevelUUID", err)
}

// Tile returns the tile index and attribute of the current field.
func (it *Iterator) Tile() (field.Tile, error) {
	it.check("Tile")
	if !it.onField {
		return field.NoTile, ErrNotApplicable
	}
	t, err := it.cur.Tile()
	if err != nil {
		t = field.NoTile
	}
	return t, it.classify("Tile", err)
}

func (it *Iterator) TileCount() (field.TileCount, error) {
	it.check("TileCount")
	if !it.onField {
		return field.TileCount{}, ErrNotApplicable
	}
	n, err := it.cur.TileCount()
	if err != nil {
		n = field.TileCount{}
	}
	return n, it.classify("TileCount", err)
}

// classify passes the recoverable query results through and treats any
// other backend failure as a broken invariant.
func (it *Iterator) classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, driver.ErrNotApplicable), errors.Is(err, driver.ErrInvalidCombination):
		return err
	}
	invariant(op, "%s backend returned %v", it.ft, err)
	return nil
}

// ReadField decodes the current field into buf and returns the number of
// missing values. buf must hold at least Grid().Size() values.
func (it *Iterator) ReadField(buf []float64) (int, error) {
	it.check("ReadField")
	if buf == nil {
		usage("ReadField", "nil buffer")
	}
	if !it.onField {
		return 0, io.EOF
	}
	if n := it.grid.Size(); len(buf) < n {
		usage("ReadField", fmt.Sprintf("buffer holds %d values, field has %d", len(buf), n))
	}
	return it.cur.ReadField(buf)
}

// ReadFieldF is ReadField in single precision.
func (it *Iterator) ReadFieldF(buf []float32) (int, error) {
	it.check("ReadFieldF")
	if buf == nil {
		usage("ReadFieldF", "nil buffer")
	}
	if !it.onField {
		return 0, io.EOF
	}
	if n := it.grid.Size(); len(buf) < n {
		usage("ReadFieldF", fmt.Sprintf("buffer holds %d values, field has %d", len(buf), n))
	}
	return it.cur.ReadFieldF(buf)
}
