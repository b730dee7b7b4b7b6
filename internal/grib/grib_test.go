package grib

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/gridscan/pkg/field"
)

var refTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testGrid() field.Grid {
	return field.Grid{Type: field.GridLonLat, Nx: 3, Ny: 2, XFirst: 0, XInc: 1.5, YFirst: 45, YInc: -1.5}
}

func mustEncode(t *testing.T, f Field) []byte {
	t.Helper()
	b, err := Encode(f)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func mustDecode(t *testing.T, b []byte) *Message {
	t.Helper()
	m, err := Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return m
}

func checkValues(t *testing.T, got, want []float64, tol float64) {
	t.Helper()
	if len(got) < len(want) {
		t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > tol {
			t.Fatalf("value mismatch at %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestEdition2RoundTrip(t *testing.T) {
	t.Parallel()

	values := []float64{271.5, 272.25, 273, 274.75, 280.1, 290}
	b := mustEncode(t, Field{
		Edition:      2,
		Centre:       98,
		RefTime:      refTime,
		Start:        refTime.Add(6 * time.Hour),
		End:          refTime.Add(12 * time.Hour),
		Kind:         field.TimestepAccumulation,
		SurfaceType:  103,
		Level:        [2]float64{2, 2},
		Grid:         testGrid(),
		Values:       values,
		DecimalScale: 2,
	})
	m := mustDecode(t, b)

	if m.Edition != 2 || m.Centre != 98 {
		t.Fatalf("edition/centre mismatch: got %d/%d", m.Edition, m.Centre)
	}
	if got := m.Param(); got != (field.Param{Discipline: 0, Category: 0, Number: 0}) {
		t.Fatalf("param mismatch: got %v", got)
	}
	if m.Template != templateStatistical {
		t.Fatalf("template mismatch: got %d", m.Template)
	}
	if m.Kind != field.TimestepAccumulation {
		t.Fatalf("kind mismatch: got %v", m.Kind)
	}
	if !m.RefTime.Equal(refTime) || !m.Start.Equal(refTime.Add(6*time.Hour)) {
		t.Fatalf("time mismatch: ref %v start %v", m.RefTime, m.Start)
	}
	if !m.HasEnd || !m.End.Equal(refTime.Add(12*time.Hour)) {
		t.Fatalf("end mismatch: %v (%v)", m.End, m.HasEnd)
	}
	if lt := m.LevelType(field.LevelTop); lt != field.LevelHeight {
		t.Fatalf("level type mismatch: got %v", lt)
	}
	if v, _ := m.LevelValues(field.LevelBottom); v != 2 {
		t.Fatalf("bottom level mismatch: got %v", v)
	}
	if m.Grid != testGrid() {
		t.Fatalf("grid mismatch: got %+v", m.Grid)
	}
	if m.Datatype() != field.Pack(16) {
		t.Fatalf("datatype mismatch: got %v", m.Datatype())
	}
	if m.ShortName() != "t" {
		t.Fatalf("short name mismatch: got %q", m.ShortName())
	}

	buf := make([]float64, m.ValueCount())
	missing, err := m.Values(buf)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if missing != 0 {
		t.Fatalf("missing mismatch: got %d want 0", missing)
	}
	checkValues(t, buf, values, 1e-3)

	buf32 := make([]float32, m.ValueCount())
	if _, err := m.ValuesF32(buf32); err != nil {
		t.Fatalf("values f32: %v", err)
	}
	if math.Abs(float64(buf32[5])-290) > 1e-2 {
		t.Fatalf("f32 value mismatch: got %v", buf32[5])
	}
}

func TestEdition2LayerLevels(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, mustEncode(t, Field{
		Edition:     2,
		RefTime:     refTime,
		SurfaceType: 100,
		Level:       [2]float64{50000, 85000},
		Grid:        testGrid(),
		Values:      make([]float64, 6),
	}))
	top, _ := m.LevelValues(field.LevelTop)
	bottom, _ := m.LevelValues(field.LevelBottom)
	if top != 50000 || bottom != 85000 {
		t.Fatalf("layer mismatch: got %v..%v", top, bottom)
	}
	if m.LevelType(field.LevelBottom) != field.LevelPressure {
		t.Fatalf("bottom level type mismatch: got %v", m.LevelType(field.LevelBottom))
	}
	if m.Kind != field.TimestepInstant || m.HasEnd {
		t.Fatalf("expected instant field, got %v", m.Kind)
	}
}

func TestEdition2Bitmap(t *testing.T) {
	t.Parallel()

	grid := field.Grid{Type: field.GridLonLat, Nx: 2, Ny: 2, XInc: 1, YFirst: 1, YInc: -1}
	m := mustDecode(t, mustEncode(t, Field{
		Edition: 2,
		RefTime: refTime,
		Grid:    grid,
		Values:  []float64{1, DefaultMissingValue, 3, math.NaN()},
	}))
	if m.NumValues != 2 {
		t.Fatalf("packed values mismatch: got %d want 2", m.NumValues)
	}
	if m.MissingCount() != 2 {
		t.Fatalf("missing count mismatch: got %d want 2", m.MissingCount())
	}
	buf := make([]float64, 4)
	missing, err := m.Values(buf)
	if err != nil {
		t.Fatalf("values: %v", err)
	}
	if missing != 2 {
		t.Fatalf("missing mismatch: got %d want 2", missing)
	}
	checkValues(t, buf, []float64{1, DefaultMissingValue, 3, DefaultMissingValue}, 1e-3)
}

func TestEdition2Tile(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, mustEncode(t, Field{
		Edition:    2,
		Discipline: 2,
		RefTime:    refTime,
		Tile:       &field.Tile{Index: 2, Attribute: 1},
		Tiles:      field.TileCount{Tiles: 4, Attributes: 2},
		Grid:       testGrid(),
		Values:     make([]float64, 6),
	}))
	if !m.HasTile || m.Template != templateTile {
		t.Fatalf("expected tiled template, got %d", m.Template)
	}
	if *m.Tile != (field.Tile{Index: 2, Attribute: 1}) {
		t.Fatalf("tile mismatch: got %+v", *m.Tile)
	}
	if m.Tiles != (field.TileCount{Tiles: 4, Attributes: 2}) {
		t.Fatalf("tile count mismatch: got %+v", m.Tiles)
	}
	if m.ShortName() != "lsm" {
		t.Fatalf("short name mismatch: got %q", m.ShortName())
	}

	_, err := Encode(Field{
		Edition: 2,
		RefTime: refTime,
		End:     refTime.Add(time.Hour),
		Kind:    field.TimestepMaximum,
		Tile:    &field.Tile{},
		Grid:    testGrid(),
		Values:  make([]float64, 6),
	})
	if !errors.Is(err, ErrInvalidCombination) {
		t.Fatalf("expected ErrInvalidCombination, got %v", err)
	}
}

func TestEdition2Generalized(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0")
	m := mustDecode(t, mustEncode(t, Field{
		Edition: 2,
		RefTime: refTime,
		Level:   [2]float64{5, 5},
		VGrid:   &field.LevelUUID{VGridNumber: 3, LevelCount: 40, UUID: id},
		Grid:    testGrid(),
		Values:  make([]float64, 6),
	}))
	if m.LevelType(field.LevelTop) != field.LevelReference {
		t.Fatalf("level type mismatch: got %v", m.LevelType(field.LevelTop))
	}
	lv, err := m.Generalized()
	if err != nil {
		t.Fatalf("generalized: %v", err)
	}
	if lv.VGridNumber != 3 || lv.LevelCount != 40 || lv.UUID != id {
		t.Fatalf("generalized mismatch: got %+v", lv)
	}
	v1, v2 := m.LevelValues(field.LevelTop)
	if v1 != 5 || v2 != 40 {
		t.Fatalf("generalized level values mismatch: got %v %v", v1, v2)
	}

	plain := mustDecode(t, mustEncode(t, Field{Edition: 2, RefTime: refTime, Grid: testGrid(), Values: make([]float64, 6)}))
	if _, err := plain.Generalized(); !errors.Is(err, ErrInvalidCombination) {
		t.Fatalf("expected ErrInvalidCombination, got %v", err)
	}
}

func TestEdition1RoundTrip(t *testing.T) {
	t.Parallel()

	values := []float64{271.5, 272.25, 273, 274.75, 280.1, 290}
	m := mustDecode(t, mustEncode(t, Field{
		Edition:      1,
		Centre:       98,
		Table:        2,
		Code:         11,
		RefTime:      refTime,
		Start:        refTime.Add(3 * time.Hour),
		SurfaceType:  100,
		Level:        [2]float64{85000, 85000},
		Grid:         testGrid(),
		Values:       values,
		DecimalScale: 2,
	}))
	if m.Edition != 1 {
		t.Fatalf("edition mismatch: got %d", m.Edition)
	}
	if got := m.Param(); got != field.CodeParam(11, 2) {
		t.Fatalf("param mismatch: got %v", got)
	}
	if !m.RefTime.Equal(refTime) || !m.Start.Equal(refTime.Add(3*time.Hour)) {
		t.Fatalf("time mismatch: ref %v start %v", m.RefTime, m.Start)
	}
	if m.LevelType(field.LevelTop) != field.LevelPressure {
		t.Fatalf("level type mismatch: got %v", m.LevelType(field.LevelTop))
	}
	if v, _ := m.LevelValues(field.LevelTop); v != 85000 {
		t.Fatalf("level mismatch: got %v", v)
	}
	if m.Grid != testGrid() {
		t.Fatalf("grid mismatch: got %+v", m.Grid)
	}
	if m.ShortName() != "t" {
		t.Fatalf("short name mismatch: got %q", m.ShortName())
	}
	buf := make([]float64, 6)
	if _, err := m.Values(buf); err != nil {
		t.Fatalf("values: %v", err)
	}
	checkValues(t, buf, values, 1e-3)
}

func TestEdition1StatisticalAndLayer(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, mustEncode(t, Field{
		Edition:     1,
		Table:       2,
		Code:        61,
		RefTime:     refTime,
		Start:       refTime.Add(6 * time.Hour),
		End:         refTime.Add(12 * time.Hour),
		Kind:        field.TimestepAccumulation,
		SurfaceType: 112,
		Level:       [2]float64{10, 40},
		Grid:        testGrid(),
		Values:      []float64{0, 1, DefaultMissingValue, 3, 4, 5},
	}))
	if m.Kind != field.TimestepAccumulation || !m.HasEnd {
		t.Fatalf("kind mismatch: got %v", m.Kind)
	}
	if !m.End.Equal(refTime.Add(12 * time.Hour)) {
		t.Fatalf("end mismatch: got %v", m.End)
	}
	top, _ := m.LevelValues(field.LevelTop)
	bottom, _ := m.LevelValues(field.LevelBottom)
	if top != 10 || bottom != 40 {
		t.Fatalf("layer mismatch: got %v..%v", top, bottom)
	}
	if m.MissingCount() != 1 {
		t.Fatalf("missing count mismatch: got %d", m.MissingCount())
	}
	if _, err := Encode(Field{Edition: 1, RefTime: refTime, Tile: &field.Tile{}, Grid: testGrid(), Values: make([]float64, 6)}); !errors.Is(err, ErrInvalidCombination) {
		t.Fatalf("expected ErrInvalidCombination for tiled edition 1, got %v", err)
	}
}

func TestScan(t *testing.T) {
	t.Parallel()

	a := mustEncode(t, Field{Edition: 2, RefTime: refTime, Grid: testGrid(), Values: make([]float64, 6)})
	b := mustEncode(t, Field{Edition: 1, Table: 2, Code: 11, RefTime: refTime, Grid: testGrid(), Values: make([]float64, 6)})
	file := append([]byte("junk"), a...)
	file = append(file, 0, 0)
	file = append(file, b...)

	start, n, err := Scan(file, 0)
	if err != nil {
		t.Fatalf("scan first: %v", err)
	}
	if start != 4 || n != len(a) {
		t.Fatalf("first message mismatch: start %d len %d", start, n)
	}
	start, n, err = Scan(file, start+n)
	if err != nil {
		t.Fatalf("scan second: %v", err)
	}
	if start != 4+len(a)+2 || n != len(b) {
		t.Fatalf("second message mismatch: start %d len %d", start, n)
	}
	if _, _, err := Scan(file, start+n); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	t.Parallel()

	b := mustEncode(t, Field{Edition: 2, RefTime: refTime, Grid: testGrid(), Values: make([]float64, 6)})
	if _, err := Decode(b[:len(b)-10]); err == nil {
		t.Fatal("expected error for truncated message")
	}
	if _, err := Decode([]byte("not grib")); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}
}

func TestValuesBufferTooSmall(t *testing.T) {
	t.Parallel()

	m := mustDecode(t, mustEncode(t, Field{Edition: 2, RefTime: refTime, Grid: testGrid(), Values: make([]float64, 6)}))
	if _, err := m.Values(make([]float64, 5)); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
	if _, err := m.ValuesF32(make([]float32, 2)); !errors.Is(err, ErrBufferTooSmall) {
		t.Fatalf("expected ErrBufferTooSmall, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	src := mustEncode(t, Field{Edition: 2, RefTime: refTime, Grid: testGrid(), Values: []float64{1, 2, 3, 4, 5, 6}})
	m := mustDecode(t, src)
	m.Offset = 42
	for i := range src {
		src[i] = 0
	}
	c := m.Clone()
	if c.Offset != 42 {
		t.Fatalf("offset mismatch: got %d", c.Offset)
	}
	buf := make([]float64, 6)
	if _, err := c.Values(buf); err != nil {
		t.Fatalf("values: %v", err)
	}
	checkValues(t, buf, []float64{1, 2, 3, 4, 5, 6}, 1e-3)
}

func TestIBMFloat(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{1, -1, 0.15625, 27150, -118.625, 3.4e-5, 1e10} {
		got := ibmToFloat(floatToIBM(v))
		if got > v {
			t.Fatalf("ibm(%v) = %v exceeds input", v, got)
		}
		if math.Abs(got-v) > math.Abs(v)*1e-5 {
			t.Fatalf("ibm(%v) = %v", v, got)
		}
	}
	if ibmToFloat(floatToIBM(0)) != 0 {
		t.Fatal("ibm zero mismatch")
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	m2 := mustDecode(t, mustEncode(t, Field{
		Edition: 2, Discipline: 0, Category: 2, Number: 2,
		RefTime: refTime, Grid: testGrid(), Values: make([]float64, 6),
	}))
	tests := []struct {
		key  string
		want int64
	}{
		{"edition", 2},
		{"totalLength", int64(m2.Len())},
		{"parameterCategory", 2},
		{"parameterNumber", 2},
		{"Ni", 3},
		{"Nj", 2},
		{"bitsPerValue", 16},
		{"dataDate", 20240301},
		{"dataTime", 1200},
		{"productDefinitionTemplateNumber", 0},
	}
	for _, tt := range tests {
		got, err := m2.Long(tt.key)
		if err != nil {
			t.Fatalf("long %q: %v", tt.key, err)
		}
		if got != tt.want {
			t.Fatalf("key %q: got %d want %d", tt.key, got, tt.want)
		}
	}
	if s, _ := m2.String("shortName"); s != "u" {
		t.Fatalf("shortName mismatch: got %q", s)
	}
	if _, err := m2.Long("indicatorOfParameter"); !errors.Is(err, ErrUnsupportedKey) {
		t.Fatalf("expected ErrUnsupportedKey, got %v", err)
	}
	if _, err := m2.Double("nope"); !errors.Is(err, ErrUnsupportedKey) {
		t.Fatalf("expected ErrUnsupportedKey, got %v", err)
	}

	m1 := mustDecode(t, mustEncode(t, Field{Edition: 1, Table: 128, Code: 130, RefTime: refTime, Grid: testGrid(), Values: make([]float64, 6)}))
	if v, err := m1.Long("indicatorOfParameter"); err != nil || v != 130 {
		t.Fatalf("indicatorOfParameter: got %d, %v", v, err)
	}
	if s, _ := m1.String("shortName"); s != "var130" {
		t.Fatalf("shortName mismatch: got %q", s)
	}
	if _, err := m1.Long("discipline"); !errors.Is(err, ErrUnsupportedKey) {
		t.Fatalf("expected ErrUnsupportedKey, got %v", err)
	}
}
