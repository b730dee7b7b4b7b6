// Package stream is the generic backend for encodings read as a sequence of
// records from an open file. Positions are record indices, so cloning and
// restoring reopen the file and replay the advances.
package stream

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samcharles93/gridscan/internal/backend/driver"
	"github.com/samcharles93/gridscan/internal/logger"
	"github.com/samcharles93/gridscan/pkg/field"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

// Meta describes the field a Source is positioned on. Zero times are
// undefined.
type Meta struct {
	Name      string
	Param     field.Param
	Datatype  field.Datatype
	Kind      field.TimestepKind
	RefTime   time.Time
	Start     time.Time
	End       time.Time
	LevelType field.LevelType
	Level     [2]float64
	Grid      field.Grid
}

// Source decodes one record-stream encoding.
type Source interface {
	// Next moves to the following field and fills m. It returns io.EOF at
	// the end of the stream.
	Next(m *Meta) error
	// Skip moves past the following field, decoding as little as possible.
	Skip() error
	// Read decodes the current field into buf and returns the number of
	// missing values.
	Read(buf []float64) (int, error)
	Close() error
}

// OpenFunc opens a Source over path.
type OpenFunc func(path string) (Source, error)

// Driver serves every file type registered with it.
type Driver struct {
	name    string
	openers map[filetype.Type]OpenFunc
	log     logger.Logger
}

func New(name string, log logger.Logger) *Driver {
	if log == nil {
		log = logger.Discard()
	}
	return &Driver{name: name, openers: make(map[filetype.Type]OpenFunc), log: log}
}

// Register makes ft readable through open.
func (d *Driver) Register(ft filetype.Type, open OpenFunc) {
	d.openers[ft] = open
}

func (d *Driver) Name() string { return d.name }

func (d *Driver) Open(path string, ft filetype.Type) (driver.Cursor, error) {
	return d.replay(path, ft, 0)
}

// Restore parses a payload of the form `"<path>" <index> [eof]`, where index
// counts the successful advances of the serialized cursor and eof marks a
// cursor whose last advance failed.
func (d *Driver) Restore(ft filetype.Type, advanced bool, payload string) (driver.Cursor, error) {
	path, index, eof, err := parsePayload(payload)
	if err != nil {
		return nil, err
	}
	if (!advanced && (index > 0 || eof)) || (advanced && index == 0 && !eof) {
		return nil, fmt.Errorf("%w: %q in %s cursor", driver.ErrCorruptPayload, payload, state(advanced))
	}
	c, err := d.replay(path, ft, index)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s holds fewer than %d fields", driver.ErrCorruptPayload, path, index)
	}
	if err != nil {
		return nil, err
	}
	if !eof {
		return c, nil
	}
	if err := c.Next(); err == nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: %s holds more than %d fields", driver.ErrCorruptPayload, path, index)
	}
	return c, nil
}

func state(advanced bool) string {
	if advanced {
		return "advanced"
	}
	return "unadvanced"
}

func parsePayload(payload string) (path string, index int, eof bool, err error) {
	quoted, err := strconv.QuotedPrefix(payload)
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: %v", driver.ErrCorruptPayload, err)
	}
	path, err = strconv.Unquote(quoted)
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: %v", driver.ErrCorruptPayload, err)
	}
	rest := strings.Fields(payload[len(quoted):])
	switch {
	case len(rest) == 2 && rest[1] == eofMarker:
		eof = true
	case len(rest) != 1:
		return "", 0, false, fmt.Errorf("%w: bad record position in %q", driver.ErrCorruptPayload, payload)
	}
	index, err = strconv.Atoi(rest[0])
	if err != nil || index < 0 {
		return "", 0, false, fmt.Errorf("%w: bad record index in %q", driver.ErrCorruptPayload, payload)
	}
	return path, index, eof, nil
}

// eofMarker ends the payload of an exhausted cursor.
const eofMarker = "eof"

// replay opens path and advances n times.
func (d *Driver) replay(path string, ft filetype.Type, n int) (*cursor, error) {
	open, ok := d.openers[ft]
	if !ok {
		return nil, fmt.Errorf("%s driver cannot read %s", d.name, ft)
	}
	src, err := open(path)
	if err != nil {
		return nil, err
	}
	c := &cursor{d: d, ft: ft, path: path, src: src}
	if n == 0 {
		return c, nil
	}
	if n > 1 {
		d.log.Debug("replaying record stream", "path", path, "type", ft.String(), "skip", n-1)
	}
	for i := 0; i < n-1; i++ {
		if err := src.Skip(); err != nil {
			_ = src.Close()
			return nil, err
		}
	}
	if err := c.Next(); err != nil {
		_ = src.Close()
		return nil, err
	}
	if c.index != n {
		_ = src.Close()
		return nil, fmt.Errorf("stream replay reached index %d, want %d", c.index, n)
	}
	return c, nil
}

type cursor struct {
	d     *Driver
	ft    filetype.Type
	path  string
	src   Source
	index int
	done  bool
	meta  Meta
	grid  field.Grid

	scratch []float64
}

func (c *cursor) Next() error {
	var m Meta
	if err := c.src.Next(&m); err != nil {
		c.done = true
		return err
	}
	c.index++
	c.done = false
	c.meta = m
	c.grid = m.Grid
	return nil
}

func (c *cursor) Clone() (driver.Cursor, error) {
	c.d.log.Debug("cloning stream cursor", "path", c.path, "index", c.index)
	k, err := c.d.replay(c.path, c.ft, c.index)
	if err != nil {
		return nil, err
	}
	k.done = c.done
	return k, nil
}

func (c *cursor) Exhausted() bool { return c.done }

func (c *cursor) Payload() string {
	p := strconv.Quote(c.path) + " " + strconv.Itoa(c.index)
	if c.done {
		p += " " + eofMarker
	}
	return p
}

func (c *cursor) Close() error { return c.src.Close() }

func (c *cursor) Param() field.Param               { return c.meta.Param }
func (c *cursor) Datatype() field.Datatype         { return c.meta.Datatype }
func (c *cursor) TimestepKind() field.TimestepKind { return c.meta.Kind }
func (c *cursor) Grid() *field.Grid                { return &c.grid }
func (c *cursor) VariableName() string             { return c.meta.Name }
func (c *cursor) ValueCount() int                  { return c.grid.Size() }

func (c *cursor) Time(kind field.TimeKind) (time.Time, bool) {
	var t time.Time
	switch kind {
	case field.TimeStart:
		t = c.meta.Start
	case field.TimeEnd:
		t = c.meta.End
	case field.TimeReference:
		t = c.meta.RefTime
	}
	return t, !t.IsZero()
}

func (c *cursor) LevelType(field.LevelSelector) field.LevelType { return c.meta.LevelType }

func (c *cursor) Level(sel field.LevelSelector) (float64, float64, error) {
	if c.meta.LevelType == field.LevelUndefined {
		return 0, 0, driver.ErrNotApplicable
	}
	if sel == field.LevelBottom {
		return c.meta.Level[1], 0, nil
	}
	return c.meta.Level[0], 0, nil
}

func (c *cursor) LevelUUID() (field.LevelUUID, error) {
	return field.LevelUUID{VGridNumber: -1}, driver.ErrNotApplicable
}

func (c *cursor) Tile() (field.Tile, error) { return field.NoTile, driver.ErrNotApplicable }

func (c *cursor) TileCount() (field.TileCount, error) {
	return field.TileCount{}, driver.ErrNotApplicable
}

func (c *cursor) ReadField(buf []float64) (int, error) {
	return c.src.Read(buf)
}

func (c *cursor) ReadFieldF(buf []float32) (int, error) {
	n := c.grid.Size()
	if cap(c.scratch) < n {
		c.scratch = make([]float64, n)
	}
	tmp := c.scratch[:n]
	missing, err := c.src.Read(tmp)
	if err != nil {
		return 0, err
	}
	for i, v := range tmp {
		buf[i] = float32(v)
	}
	return missing, nil
}
