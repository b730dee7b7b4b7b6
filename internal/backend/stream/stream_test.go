package stream

import (
	"errors"
	"io"
	"strconv"
	"testing"

	"github.com/samcharles93/gridscan/internal/backend/driver"
	"github.com/samcharles93/gridscan/pkg/field"
	"github.com/samcharles93/gridscan/pkg/filetype"
)

// fakeSource serves count fields; field i has param code i and every value
// equal to i.
type fakeSource struct {
	count  int
	pos    int
	skips  *int
	closed bool
}

func (s *fakeSource) Next(m *Meta) error {
	if s.pos >= s.count {
		return io.EOF
	}
	s.pos++
	*m = Meta{
		Name:      "var" + strconv.Itoa(s.pos),
		Param:     field.CodeParam(s.pos, 0),
		Datatype:  field.Flt32,
		Kind:      field.TimestepInstant,
		LevelType: field.LevelPressure,
		Level:     [2]float64{float64(s.pos * 100), float64(s.pos * 100)},
		Grid:      field.Grid{Type: field.GridGeneric, Nx: 2, Ny: 2},
	}
	return nil
}

func (s *fakeSource) Skip() error {
	if s.pos >= s.count {
		return io.EOF
	}
	s.pos++
	if s.skips != nil {
		*s.skips++
	}
	return nil
}

func (s *fakeSource) Read(buf []float64) (int, error) {
	for i := range 4 {
		buf[i] = float64(s.pos)
	}
	return 0, nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func newTestDriver(count int, skips *int) *Driver {
	d := New("test", nil)
	d.Register(filetype.SRV, func(string) (Source, error) {
		return &fakeSource{count: count, skips: skips}, nil
	})
	return d
}

func TestEmptyStream(t *testing.T) {
	t.Parallel()

	c, err := newTestDriver(0, nil).Open("empty.srv", filetype.SRV)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestPayloadRestore(t *testing.T) {
	t.Parallel()

	var skips int
	d := newTestDriver(5, &skips)
	c, err := d.Open(`dir with space/a "b".srv`, filetype.SRV)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := c.Payload(); got != `"dir with space/a \"b\".srv" 0` {
		t.Fatalf("unadvanced payload mismatch: got %s", got)
	}
	for range 3 {
		if err := c.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	payload := c.Payload()

	r, err := d.Restore(filetype.SRV, true, payload)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if r.Param() != c.Param() {
		t.Fatalf("param mismatch: got %v want %v", r.Param(), c.Param())
	}
	if skips != 2 {
		t.Fatalf("replay skips mismatch: got %d want 2", skips)
	}
	if r.Payload() != payload {
		t.Fatalf("payload mismatch: got %s want %s", r.Payload(), payload)
	}

	if _, err := d.Restore(filetype.SRV, false, payload); !errors.Is(err, driver.ErrCorruptPayload) {
		t.Fatalf("expected ErrCorruptPayload for state mismatch, got %v", err)
	}
	if _, err := d.Restore(filetype.SRV, true, `"x.srv" 9`); !errors.Is(err, driver.ErrCorruptPayload) {
		t.Fatalf("expected ErrCorruptPayload past end, got %v", err)
	}
	for _, bad := range []string{"", "x.srv 1", `"x.srv" one`, `"x.srv" -2`} {
		if _, err := d.Restore(filetype.SRV, true, bad); !errors.Is(err, driver.ErrCorruptPayload) {
			t.Fatalf("payload %q: expected ErrCorruptPayload, got %v", bad, err)
		}
	}
}

func TestExhaustedPayload(t *testing.T) {
	t.Parallel()

	d := newTestDriver(2, nil)
	c, err := d.Open("a.srv", filetype.SRV)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for range 2 {
		if err := c.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	if err := c.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if !c.Exhausted() {
		t.Fatal("cursor not exhausted after io.EOF")
	}
	payload := c.Payload()
	if payload != `"a.srv" 2 eof` {
		t.Fatalf("exhausted payload mismatch: got %s", payload)
	}

	r, err := d.Restore(filetype.SRV, true, payload)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !r.Exhausted() || r.Payload() != payload {
		t.Fatalf("restored cursor: exhausted %v payload %s", r.Exhausted(), r.Payload())
	}
	if err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("restored next: expected io.EOF, got %v", err)
	}

	k, err := c.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if !k.Exhausted() {
		t.Fatal("clone of exhausted cursor is not exhausted")
	}
	if err := k.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("clone next: expected io.EOF, got %v", err)
	}

	for _, tc := range []struct {
		advanced bool
		payload  string
	}{
		{false, `"a.srv" 0 eof`},
		{true, `"a.srv" 1 eof`},
		{true, `"a.srv" 2 done`},
		{true, `"a.srv" 0`},
	} {
		if _, err := d.Restore(filetype.SRV, tc.advanced, tc.payload); !errors.Is(err, driver.ErrCorruptPayload) {
			t.Fatalf("payload %q advanced=%v: expected ErrCorruptPayload, got %v", tc.payload, tc.advanced, err)
		}
	}
}

func TestEmptyStreamRoundTrip(t *testing.T) {
	t.Parallel()

	d := newTestDriver(0, nil)
	c, err := d.Open("empty.srv", filetype.SRV)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	r, err := d.Restore(filetype.SRV, true, c.Payload())
	if err != nil {
		t.Fatalf("restore %s: %v", c.Payload(), err)
	}
	if !r.Exhausted() {
		t.Fatal("restored empty cursor not exhausted")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	d := newTestDriver(3, nil)
	c, err := d.Open("a.srv", filetype.SRV)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	k, err := c.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	if err := c.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if k.Param().Number != 1 || c.Param().Number != 2 {
		t.Fatalf("clone moved with original: clone %v original %v", k.Param(), c.Param())
	}
	if c.Grid() == k.Grid() {
		t.Fatal("clone shares grid storage")
	}

	buf := make([]float32, 4)
	if _, err := k.ReadFieldF(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if buf[3] != 1 {
		t.Fatalf("clone value mismatch: got %v want 1", buf[3])
	}
}

func TestNotApplicable(t *testing.T) {
	t.Parallel()

	c, err := newTestDriver(1, nil).Open("a.srv", filetype.SRV)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := c.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if tile, err := c.Tile(); !errors.Is(err, driver.ErrNotApplicable) || tile != field.NoTile {
		t.Fatalf("tile: got %v, %v", tile, err)
	}
	if _, err := c.TileCount(); !errors.Is(err, driver.ErrNotApplicable) {
		t.Fatalf("tile count: expected ErrNotApplicable, got %v", err)
	}
	if lv, err := c.LevelUUID(); !errors.Is(err, driver.ErrNotApplicable) || lv.VGridNumber != -1 {
		t.Fatalf("level uuid: got %+v, %v", lv, err)
	}
	if v, _, err := c.Level(field.LevelTop); err != nil || v != 100 {
		t.Fatalf("level: got %v, %v", v, err)
	}
	if _, ok := c.Time(field.TimeEnd); ok {
		t.Fatal("expected no end time")
	}
	if _, err := newTestDriver(1, nil).Open("a.ext", filetype.EXT); err == nil {
		t.Fatal("expected error for unregistered type")
	}
}
