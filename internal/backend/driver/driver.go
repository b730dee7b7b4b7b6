// Package driver defines the contract between the iterator facade and the
// encoding specific backends.
//
// A Driver constructs Cursors. A Cursor is the backend context of exactly one
// iterator; it is never shared, and it is only driven by one goroutine at a
// time.
package driver

import (
	"errors"
	"time"

	"github.com/samcharles93/gridscan/internal/grib"
	"github.com/samcharles93/gridscan/pkg/field"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

var (
	// ErrNotApplicable reports a query the current encoding or field has no
	// notion of, such as tiles in a legacy record format.
	ErrNotApplicable = errors.New("query not applicable to this field")

	// ErrInvalidCombination reports a query that contradicts the field's
	// own metadata, such as a level UUID for a field on pressure levels.
	ErrInvalidCombination = errors.New("query contradicts field metadata")

	// ErrCorruptPayload is returned by Restore for payloads it cannot parse.
	ErrCorruptPayload = errors.New("corrupt iterator payload")
)

// Driver is implemented once per backend family.
type Driver interface {
	Name() string

	// Open creates an un-advanced cursor over path.
	Open(path string, ft filetype.Type) (Cursor, error)

	// Restore rebuilds a cursor from the payload produced by Cursor.Payload.
	// advanced tells whether the serialized cursor had been advanced; a
	// restored advanced cursor is positioned on the same field.
	Restore(ft filetype.Type, advanced bool, payload string) (Cursor, error)
}

// Cursor is the per-iterator backend context. Metadata accessors are only
// called after a successful Next.
type Cursor interface {
	// Next moves to the following field and returns io.EOF when there is none.
	Next() error

	// Exhausted reports whether the last Next failed. Payload records it, so
	// a restored cursor is exhausted as well.
	Exhausted() bool

	// Clone returns an independent cursor on the same field.
	Clone() (Cursor, error)

	// Payload describes the cursor position for Restore. It never contains
	// a newline.
	Payload() string

	Close() error

	Param() field.Param
	Datatype() field.Datatype
	TimestepKind() field.TimestepKind

	// Grid returns backend-owned storage that is overwritten by Next.
	Grid() *field.Grid

	// Time returns the requested time and false when the field has none.
	Time(kind field.TimeKind) (time.Time, bool)

	LevelType(sel field.LevelSelector) field.LevelType
	Level(sel field.LevelSelector) (value1, value2 float64, err error)
	LevelUUID() (field.LevelUUID, error)

	Tile() (field.Tile, error)
	TileCount() (field.TileCount, error)

	VariableName() string

	// ValueCount is the number of values of the current field.
	ValueCount() int

	// ReadField decodes the current field into buf, which holds at least
	// Grid().Size() values, and returns the number of missing values.
	ReadField(buf []float64) (int, error)
	ReadFieldF(buf []float32) (int, error)
}

// MessageCursor is implemented by cursors over self-contained messages. The
// returned message belongs to the cursor and is replaced by Next; it is nil
// before the first Next and after a Next that failed.
type MessageCursor interface {
	Cursor
	Message() *grib.Message
}
