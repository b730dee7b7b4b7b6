// Package message is the backend for encodings made of self-contained
// messages. The cursor position is the byte offset of the current message,
// so clones and restored cursors seek directly instead of replaying.
package message

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samcharles93/gridscan/internal/backend/driver"
	"github.com/samcharles93/gridscan/internal/grib"
	"github.com/samcharles93/gridscan/internal/logger"
	"github.com/samcharles93/gridscan/pkg/field"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

// Driver reads GRIB edition 1 and 2 files.
type Driver struct {
	log logger.Logger
}

func New(log logger.Logger) *Driver {
	if log == nil {
		log = logger.Discard()
	}
	return &Driver{log: log}
}

func (d *Driver) Name() string { return "grib" }

func (d *Driver) Open(path string, ft filetype.Type) (driver.Cursor, error) {
	if ft.Family() != filetype.FamilyGRIB {
		return nil, fmt.Errorf("grib driver cannot read %s", ft)
	}
	m, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	return &cursor{d: d, path: path, ft: ft, file: m}, nil
}

// Restore parses a payload of the form `"<path>" <offset> [eof]`. For an
// advanced cursor offset is the start of the current message, otherwise the
// offset from which the next advance scans. eof marks a cursor whose last
// advance failed; its offset is where that scan started.
func (d *Driver) Restore(ft filetype.Type, advanced bool, payload string) (driver.Cursor, error) {
	quoted, err := strconv.QuotedPrefix(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driver.ErrCorruptPayload, err)
	}
	path, _ := strconv.Unquote(quoted)
	rest := strings.Fields(payload[len(quoted):])
	eof := len(rest) == 2 && rest[1] == eofMarker
	if len(rest) != 1 && !eof {
		return nil, fmt.Errorf("%w: bad message position in %q", driver.ErrCorruptPayload, payload)
	}
	off, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil || off < 0 {
		return nil, fmt.Errorf("%w: bad message offset in %q", driver.ErrCorruptPayload, payload)
	}
	if eof && !advanced {
		return nil, fmt.Errorf("%w: exhausted unadvanced cursor", driver.ErrCorruptPayload)
	}
	c, err := d.Open(path, ft)
	if err != nil {
		return nil, err
	}
	cur := c.(*cursor)
	if off > int64(len(cur.file.data)) {
		_ = cur.Close()
		return nil, fmt.Errorf("%w: offset %d past end of %s", driver.ErrCorruptPayload, off, path)
	}
	cur.next = int(off)
	if !advanced {
		return cur, nil
	}
	err = cur.Next()
	if eof {
		if err == nil {
			_ = cur.Close()
			return nil, fmt.Errorf("%w: message follows offset %d of exhausted cursor", driver.ErrCorruptPayload, off)
		}
		return cur, nil
	}
	if err != nil {
		_ = cur.Close()
		if errors.Is(err, io.EOF) {
			err = driver.ErrCorruptPayload
		}
		return nil, fmt.Errorf("restore %s at %d: %w", path, off, err)
	}
	if cur.msg.Offset != off {
		_ = cur.Close()
		return nil, fmt.Errorf("%w: no message starts at offset %d", driver.ErrCorruptPayload, off)
	}
	return cur, nil
}

// eofMarker ends the payload of an exhausted cursor.
const eofMarker = "eof"

type cursor struct {
	d    *Driver
	path string
	ft   filetype.Type
	file *mapping
	next int
	done bool
	msg  *grib.Message
	grid field.Grid
}

func (c *cursor) Next() error {
	msg, end, err := c.scan()
	if err != nil {
		c.msg, c.done = nil, true
		return err
	}
	c.msg, c.grid, c.next, c.done = msg, msg.Grid, end, false
	return nil
}

// scan decodes the first message at or after c.next and returns it with the
// offset just past it.
func (c *cursor) scan() (*grib.Message, int, error) {
	start, n, err := grib.Scan(c.file.data, c.next)
	if errors.Is(err, grib.ErrNoMessage) {
		return nil, 0, io.EOF
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s at offset %d: %w", c.path, start, err)
	}
	msg, err := grib.Decode(c.file.data[start : start+n])
	if err != nil {
		return nil, 0, fmt.Errorf("%s at offset %d: %w", c.path, start, err)
	}
	msg.Offset = int64(start)
	return msg, start + n, nil
}

func (c *cursor) Exhausted() bool { return c.done }

func (c *cursor) Clone() (driver.Cursor, error) {
	m, err := mapFile(c.path)
	if err != nil {
		return nil, err
	}
	k := &cursor{d: c.d, path: c.path, ft: c.ft, file: m, next: c.next, done: c.done, grid: c.grid}
	if c.msg != nil {
		k.msg = c.msg.Clone()
	}
	c.d.log.Debug("cloned message cursor", "path", c.path, "next", c.next)
	return k, nil
}

func (c *cursor) Payload() string {
	p := strconv.Quote(c.path) + " "
	switch {
	case c.done:
		return p + strconv.Itoa(c.next) + " " + eofMarker
	case c.msg != nil:
		return p + strconv.FormatInt(c.msg.Offset, 10)
	}
	return p + strconv.Itoa(c.next)
}

func (c *cursor) Close() error {
	c.msg = nil
	return c.file.close()
}

func (c *cursor) Message() *grib.Message { return c.msg }

func (c *cursor) Param() field.Param               { return c.msg.Param() }
func (c *cursor) Datatype() field.Datatype         { return c.msg.Datatype() }
func (c *cursor) TimestepKind() field.TimestepKind { return c.msg.Kind }
func (c *cursor) Grid() *field.Grid                { return &c.grid }
func (c *cursor) VariableName() string             { return c.msg.ShortName() }
func (c *cursor) ValueCount() int                  { return c.msg.ValueCount() }

func (c *cursor) Time(kind field.TimeKind) (time.Time, bool) {
	switch kind {
	case field.TimeStart:
		return c.msg.Start, true
	case field.TimeEnd:
		return c.msg.End, c.msg.HasEnd
	case field.TimeReference:
		return c.msg.RefTime, true
	}
	return time.Time{}, false
}

func (c *cursor) LevelType(sel field.LevelSelector) field.LevelType {
	return c.msg.LevelType(sel)
}

func (c *cursor) Level(sel field.LevelSelector) (float64, float64, error) {
	if c.msg.LevelType(sel) == field.LevelUndefined {
		return 0, 0, driver.ErrNotApplicable
	}
	v1, v2 := c.msg.LevelValues(sel)
	return v1, v2, nil
}

func (c *cursor) LevelUUID() (field.LevelUUID, error) {
	if c.msg.Edition == 1 {
		return field.LevelUUID{VGridNumber: -1}, driver.ErrNotApplicable
	}
	lv, err := c.msg.Generalized()
	if err != nil {
		return lv, driver.ErrInvalidCombination
	}
	return lv, nil
}

func (c *cursor) Tile() (field.Tile, error) {
	if !c.msg.HasTile {
		return field.NoTile, driver.ErrNotApplicable
	}
	return *c.msg.Tile, nil
}

func (c *cursor) TileCount() (field.TileCount, error) {
	if !c.msg.HasTile {
		return field.TileCount{}, driver.ErrNotApplicable
	}
	return c.msg.Tiles, nil
}

func (c *cursor) ReadField(buf []float64) (int, error) {
	return c.msg.Values(buf)
}

func (c *cursor) ReadFieldF(buf []float32) (int, error) {
	return c.msg.ValuesF32(buf)
}
