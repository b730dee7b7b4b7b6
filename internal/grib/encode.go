package grib

import (
	"fmt"
	"math"
	"time"

	"github.com/samcharles93/gridscan/pkg/field"
)

// Field describes one message to encode. Values equal to Missing, or NaN,
// are left out of the packed data and marked in a bitmap.
type Field struct {
	Edition int
	Centre  int

	// Discipline, Category and Number identify edition 2 parameters.
	Discipline int
	Category   int
	Number     int
	// Table and Code identify edition 1 parameters.
	Table int
	Code  int

	RefTime time.Time
	Start   time.Time
	End     time.Time
	Kind    field.TimestepKind

	// SurfaceType is the raw level type code of the target edition.
	// Level holds top and bottom; differing values encode a layer.
	SurfaceType int
	Level       [2]float64
	VGrid       *field.LevelUUID

	Tile  *field.Tile
	Tiles field.TileCount

	Grid         field.Grid
	Values       []float64
	Bits         int
	DecimalScale int
	Missing      float64
}

// Encode builds a single-field message.
func Encode(f Field) ([]byte, error) {
	if f.Grid.Nx <= 0 || f.Grid.Ny <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidMessage, f.Grid.Nx, f.Grid.Ny)
	}
	if len(f.Values) != f.Grid.Size() {
		return nil, fmt.Errorf("%w: %d values for %d grid points", ErrInvalidMessage, len(f.Values), f.Grid.Size())
	}
	if f.Bits == 0 {
		f.Bits = 16
	}
	if f.Bits < 0 || f.Bits > 32 {
		return nil, fmt.Errorf("%w: %d bits per value", ErrUnsupported, f.Bits)
	}
	if f.Missing == 0 {
		f.Missing = DefaultMissingValue
	}
	if f.Kind == field.TimestepConstant {
		f.Kind = field.TimestepInstant
	}
	if f.Start.IsZero() {
		f.Start = f.RefTime
	}
	switch f.Edition {
	case 1:
		return encode1(f)
	case 2:
		return encode2(f)
	default:
		return nil, fmt.Errorf("%w: edition %d", ErrInvalidMessage, f.Edition)
	}
}

// packed is the result of simple packing.
type packed struct {
	ref    float64
	e      int
	bitmap []byte
	data   []byte
	count  int
}

// pack applies simple packing. round turns the minimum into a reference
// value representable by the edition that does not exceed the minimum.
func pack(f Field, round func(float64) float64) packed {
	n := len(f.Values)
	dscale := math.Pow10(f.DecimalScale)
	var p packed
	present := make([]bool, n)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range f.Values {
		if math.IsNaN(v) || v == f.Missing {
			continue
		}
		present[i] = true
		p.count++
		s := v * dscale
		lo = math.Min(lo, s)
		hi = math.Max(hi, s)
	}
	if p.count < n {
		p.bitmap = make([]byte, (n+7)/8)
		for i, ok := range present {
			if ok {
				p.bitmap[i>>3] |= 0x80 >> (i & 7)
			}
		}
	}
	if p.count == 0 {
		return p
	}
	p.ref = round(lo)

	maxInt := math.Ldexp(1, f.Bits) - 1
	if rng := hi - p.ref; rng > 0 && f.Bits > 0 {
		p.e = int(math.Ceil(math.Log2(rng / maxInt)))
		for rng/math.Ldexp(1, p.e) > maxInt {
			p.e++
		}
	}
	if f.Bits == 0 {
		return p
	}
	escale := math.Ldexp(1, -p.e)
	bw := bitWriter{b: make([]byte, 0, (p.count*f.Bits+7)/8)}
	for i, v := range f.Values {
		if !present[i] {
			continue
		}
		x := math.Round((v*dscale - p.ref) * escale)
		x = math.Max(0, math.Min(x, maxInt))
		bw.write(uint64(x), f.Bits)
	}
	p.data = bw.b
	return p
}

func float32Floor(v float64) float64 {
	r := float32(v)
	if float64(r) > v {
		r = math.Nextafter32(r, float32(math.Inf(-1)))
	}
	return float64(r)
}

func ibmFloor(v float64) float64 {
	return ibmToFloat(floatToIBM(v))
}

// stepUnit picks the coarsest time unit that represents d exactly.
// Codes follow the shared unit table of both editions.
func stepUnit(d time.Duration, allowSeconds bool) (uint8, int) {
	switch {
	case d%time.Hour == 0:
		return 1, int(d / time.Hour)
	case d%time.Minute == 0 || !allowSeconds:
		return 0, int(d / time.Minute)
	default:
		return 13, int(d / time.Second)
	}
}

func encode2(f Field) ([]byte, error) {
	if f.Tile != nil && f.Kind.Statistical() {
		return nil, fmt.Errorf("%w: tiled statistical fields", ErrInvalidCombination)
	}
	surface := f.SurfaceType
	if f.VGrid != nil {
		surface = surfaceGeneralized
	}

	w := &writer{}
	w.bytes([]byte(magic))
	w.u16(0)
	w.u8(f.Discipline)
	w.u8(2)
	w.u64(0)

	// Section 1: identification.
	start := len(w.b)
	w.u32(0)
	w.u8(1)
	w.u16(f.Centre)
	w.u16(0)
	w.u8(2)
	w.u8(0)
	w.u8(1)
	ref := f.RefTime.UTC()
	w.u16(ref.Year())
	w.u8(int(ref.Month()))
	w.u8(ref.Day())
	w.u8(ref.Hour())
	w.u8(ref.Minute())
	w.u8(ref.Second())
	w.u8(0)
	w.u8(1)
	w.patchLen(start, 4, len(w.b)-start)

	// Section 3: regular lat/lon grid.
	g := f.Grid
	start = len(w.b)
	w.u32(0)
	w.u8(3)
	w.u8(0)
	w.u32(uint32(g.Size()))
	w.u8(0)
	w.u8(0)
	w.u16(0)
	w.u8(6)
	w.u8(0)
	w.u32(0)
	w.u8(0)
	w.u32(0)
	w.u8(0)
	w.u32(0)
	w.u32(uint32(g.Nx))
	w.u32(uint32(g.Ny))
	w.u32(0)
	w.u32(0xFFFFFFFF)
	w.s32(micro(g.YFirst))
	w.s32(micro(g.XFirst))
	w.u8(0x30)
	w.s32(micro(g.YFirst + float64(g.Ny-1)*g.YInc))
	w.s32(micro(g.XFirst + float64(g.Nx-1)*g.XInc))
	w.u32(uint32(micro(math.Abs(g.XInc))))
	w.u32(uint32(micro(math.Abs(g.YInc))))
	w.u8(scanMode(g))
	w.patchLen(start, 4, len(w.b)-start)

	// Section 4: product definition.
	nv := 0
	if surface == surfaceGeneralized && f.VGrid != nil {
		nv = 6
	}
	tmpl := templateInstant
	switch {
	case f.Tile != nil:
		tmpl = templateTile
	case f.Kind.Statistical():
		tmpl = templateStatistical
	}
	start = len(w.b)
	w.u32(0)
	w.u8(4)
	w.u16(nv)
	w.u16(tmpl)
	w.u8(f.Category)
	w.u8(f.Number)
	if f.Tile != nil {
		w.u8(1)
		w.u8(f.Tiles.Tiles)
		w.u8(f.Tiles.Attributes)
		w.u8(f.Tile.Index)
		w.u8(f.Tile.Attribute)
	}
	w.u8(2)
	w.u8(0)
	w.u8(0)
	w.u16(0)
	w.u8(0)
	unit, forecast := stepUnit(f.Start.Sub(f.RefTime), true)
	w.u8(int(unit))
	w.s32(forecast)
	if err := writeSurface(w, surface, f.Level[0]); err != nil {
		return nil, err
	}
	if f.Level[1] != f.Level[0] && f.VGrid == nil {
		if err := writeSurface(w, surface, f.Level[1]); err != nil {
			return nil, err
		}
	} else {
		w.u8(surfaceMissing)
		w.u8(0xFF)
		w.u32(0xFFFFFFFF)
	}
	if tmpl == templateStatistical {
		if f.End.Before(f.Start) {
			return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidMessage, f.End, f.Start)
		}
		end := f.End.UTC()
		w.u16(end.Year())
		w.u8(int(end.Month()))
		w.u8(end.Day())
		w.u8(end.Hour())
		w.u8(end.Minute())
		w.u8(end.Second())
		w.u8(1)
		w.u32(0)
		w.u8(statisticalProcess(f.Kind))
		w.u8(2)
		unit, length := stepUnit(f.End.Sub(f.Start), true)
		w.u8(int(unit))
		w.u32(uint32(length))
		w.u8(255)
		w.u32(0)
	}
	if nv > 0 {
		w.u32(uint32(f.VGrid.LevelCount))
		w.u32(uint32(f.VGrid.VGridNumber))
		w.bytes(f.VGrid.UUID[:])
	}
	w.patchLen(start, 4, len(w.b)-start)

	p := pack(f, float32Floor)

	// Section 5: simple packing.
	start = len(w.b)
	w.u32(0)
	w.u8(5)
	w.u32(uint32(p.count))
	w.u16(0)
	w.f32(float32(p.ref))
	w.s16(p.e)
	w.s16(f.DecimalScale)
	w.u8(f.Bits)
	w.u8(0)
	w.patchLen(start, 4, len(w.b)-start)

	// Section 6: bitmap.
	start = len(w.b)
	w.u32(0)
	w.u8(6)
	if p.bitmap != nil {
		w.u8(0)
		w.bytes(p.bitmap)
	} else {
		w.u8(255)
	}
	w.patchLen(start, 4, len(w.b)-start)

	// Section 7: data.
	start = len(w.b)
	w.u32(0)
	w.u8(7)
	w.bytes(p.data)
	w.patchLen(start, 4, len(w.b)-start)

	w.bytes([]byte(tail))
	w.patchLen(8, 8, len(w.b))
	return w.b, nil
}

func writeSurface(w *writer, typ int, v float64) error {
	scale := 0
	for scale < 6 && math.Abs(v*math.Pow10(scale)-math.Round(v*math.Pow10(scale))) > 1e-9 {
		scale++
	}
	scaled := math.Round(v * math.Pow10(scale))
	if math.Abs(scaled) >= 1<<31 {
		return fmt.Errorf("%w: level %g out of range", ErrUnsupported, v)
	}
	w.u8(typ)
	w.s8(scale)
	w.s32(int(scaled))
	return nil
}

func micro(v float64) int { return int(math.Round(v * 1e6)) }

func milli(v float64) int { return int(math.Round(v * 1e3)) }

func scanMode(g field.Grid) int {
	var scan int
	if g.XInc < 0 {
		scan |= 0x80
	}
	if g.YInc > 0 {
		scan |= 0x40
	}
	return scan
}

func encode1(f Field) ([]byte, error) {
	if f.Tile != nil || f.VGrid != nil {
		return nil, fmt.Errorf("%w: edition 1 has no tiles or generalized levels", ErrInvalidCombination)
	}
	g := f.Grid
	if g.Nx > 0xFFFF || g.Ny > 0xFFFF {
		return nil, fmt.Errorf("%w: grid %dx%d too large for edition 1", ErrUnsupported, g.Nx, g.Ny)
	}

	w := &writer{}
	w.bytes([]byte(magic))
	w.u24(0)
	w.u8(1)

	p := pack(f, ibmFloor)

	// Product definition section.
	start := len(w.b)
	w.u24(0)
	w.u8(f.Table)
	w.u8(f.Centre)
	w.u8(0)
	w.u8(255)
	flag := flagGDS
	if p.bitmap != nil {
		flag |= flagBMS
	}
	w.u8(flag)
	w.u8(f.Code)
	w.u8(f.SurfaceType)
	switch {
	case layerTypes1[f.SurfaceType]:
		w.u8(int(f.Level[0]))
		w.u8(int(f.Level[1]))
	case f.SurfaceType == levelPressure1:
		w.u16(int(math.Round(f.Level[0] / 100)))
	default:
		w.u16(int(f.Level[0]))
	}
	ref := f.RefTime.UTC()
	century := (ref.Year()-1)/100 + 1
	w.u8(ref.Year() - (century-1)*100)
	w.u8(int(ref.Month()))
	w.u8(ref.Day())
	w.u8(ref.Hour())
	w.u8(ref.Minute())
	if err := timeRange1(w, f); err != nil {
		return nil, err
	}
	w.u16(0)
	w.u8(0)
	w.u8(century)
	w.u8(0)
	w.s16(f.DecimalScale)
	w.patchLen(start, 3, len(w.b)-start)

	// Grid description section.
	start = len(w.b)
	w.u24(0)
	w.u8(0)
	w.u8(255)
	w.u8(0)
	w.u16(g.Nx)
	w.u16(g.Ny)
	w.s24(milli(g.YFirst))
	w.s24(milli(g.XFirst))
	w.u8(0x80)
	w.s24(milli(g.YFirst + float64(g.Ny-1)*g.YInc))
	w.s24(milli(g.XFirst + float64(g.Nx-1)*g.XInc))
	w.u16(milli(math.Abs(g.XInc)))
	w.u16(milli(math.Abs(g.YInc)))
	w.u8(scanMode(g))
	w.u32(0)
	w.patchLen(start, 3, len(w.b)-start)

	if p.bitmap != nil {
		start = len(w.b)
		w.u24(0)
		w.u8((8 - len(f.Values)%8) % 8)
		w.u16(0)
		w.bytes(p.bitmap)
		w.patchLen(start, 3, len(w.b)-start)
	}

	// Binary data section.
	start = len(w.b)
	w.u24(0)
	w.u8((8 - (p.count*f.Bits)%8) % 8)
	w.s16(p.e)
	w.u32(floatToIBM(p.ref))
	w.u8(f.Bits)
	w.bytes(p.data)
	w.patchLen(start, 3, len(w.b)-start)

	w.bytes([]byte(tail))
	if len(w.b) > 0xFFFFFF {
		return nil, fmt.Errorf("%w: message of %d bytes exceeds edition 1 limit", ErrUnsupported, len(w.b))
	}
	w.patchLen(4, 3, len(w.b))
	return w.b, nil
}

// timeRange1 writes the unit, P1, P2 and time range indicator octets.
func timeRange1(w *writer, f Field) error {
	if !f.Kind.Statistical() {
		unit, p1 := stepUnit(f.Start.Sub(f.RefTime), false)
		w.u8(int(unit))
		if p1 > 0xFF {
			w.u16(p1)
			w.u8(10)
			return nil
		}
		w.u8(p1)
		w.u8(0)
		w.u8(0)
		return nil
	}
	var tri int
	switch f.Kind {
	case field.TimestepRange:
		tri = 2
	case field.TimestepAverage:
		tri = 3
	case field.TimestepAccumulation:
		tri = 4
	case field.TimestepDifference:
		tri = 5
	default:
		return fmt.Errorf("%w: %s fields in edition 1", ErrUnsupported, f.Kind)
	}
	d1, d2 := f.Start.Sub(f.RefTime), f.End.Sub(f.RefTime)
	unit, step := 1, time.Hour
	if d1%time.Hour != 0 || d2%time.Hour != 0 {
		unit, step = 0, time.Minute
	}
	p1, p2 := int(d1/step), int(d2/step)
	if p1 < 0 || p2 < p1 {
		return fmt.Errorf("%w: time range %s..%s", ErrInvalidMessage, d1, d2)
	}
	if p1 > 0xFF || p2 > 0xFF {
		return fmt.Errorf("%w: time range %d..%d does not fit edition 1", ErrUnsupported, p1, p2)
	}
	w.u8(unit)
	w.u8(p1)
	w.u8(p2)
	w.u8(tri)
	return nil
}
