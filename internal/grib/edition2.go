package grib

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/gridscan/pkg/field"
)

// Product definition templates understood by the decoder.
const (
	templateInstant     = 0
	templateStatistical = 8
	// templateTile is the tiled variant of template 4.0. After category
	// and number it carries tile classification, number of tiles, number
	// of tile attributes, tile index and tile attribute, one octet each.
	templateTile = 55
)

func (m *Message) decode2() error {
	m.Discipline = int(m.raw[6])
	off := 16
	end := len(m.raw) - len(tail)
	for off < end {
		if off+5 > end {
			return ErrTruncated
		}
		n := int(binary.BigEndian.Uint32(m.raw[off:]))
		num := m.raw[off+4]
		if n < 5 || off+n > end {
			return fmt.Errorf("%w: section %d length %d", ErrInvalidMessage, num, n)
		}
		sec := m.raw[off : off+n]
		var err error
		switch num {
		case 1:
			err = m.section1(sec)
		case 2:
			// local use
		case 3:
			err = m.section3(sec)
		case 4:
			err = m.section4(sec)
		case 5:
			err = m.section5(sec)
		case 6:
			err = m.section6(sec)
		case 7:
			m.data = sec[5:]
		default:
			err = fmt.Errorf("%w: unexpected section %d", ErrInvalidMessage, num)
		}
		if err != nil {
			return err
		}
		if m.data != nil {
			// Only the first field of a multi-field message is decoded.
			break
		}
		off += n
	}
	if m.data == nil || m.Grid.Nx == 0 {
		return fmt.Errorf("%w: missing grid or data section", ErrInvalidMessage)
	}
	return nil
}

func (m *Message) section1(sec []byte) error {
	r := newReader(sec)
	if err := r.skip(5); err != nil {
		return err
	}
	centre, _ := r.readU16()
	m.Centre = int(centre)
	if err := r.skip(5); err != nil {
		return err
	}
	year, _ := r.readU16()
	var parts [5]uint8
	for i := range parts {
		v, err := r.readU8()
		if err != nil {
			return err
		}
		parts[i] = v
	}
	m.RefTime = time.Date(int(year), time.Month(parts[0]), int(parts[1]), int(parts[2]), int(parts[3]), int(parts[4]), 0, time.UTC)
	return nil
}

func (m *Message) section3(sec []byte) error {
	r := newReader(sec)
	if err := r.skip(12); err != nil {
		return err
	}
	tmpl, err := r.readU16()
	if err != nil {
		return err
	}
	if tmpl != 0 {
		return fmt.Errorf("%w: grid definition template 3.%d", ErrUnsupported, tmpl)
	}
	if err := r.skip(16); err != nil {
		return err
	}
	ni, _ := r.readU32()
	nj, _ := r.readU32()
	if err := r.skip(8); err != nil {
		return err
	}
	la1, _ := r.readS32()
	lo1, _ := r.readS32()
	if err := r.skip(9); err != nil {
		return err
	}
	di, _ := r.readU32()
	dj, _ := r.readU32()
	scan, err := r.readU8()
	if err != nil {
		return err
	}
	m.Grid = regularGrid(int(ni), int(nj), float64(lo1)/1e6, float64(la1)/1e6, float64(di)/1e6, float64(dj)/1e6, scan)
	return nil
}

func regularGrid(ni, nj int, lo1, la1, di, dj float64, scan uint8) field.Grid {
	xinc, yinc := di, -dj
	if scan&0x80 != 0 {
		xinc = -di
	}
	if scan&0x40 != 0 {
		yinc = dj
	}
	return field.Grid{Type: field.GridLonLat, Nx: ni, Ny: nj, XFirst: lo1, XInc: xinc, YFirst: la1, YInc: yinc}
}

func (m *Message) section4(sec []byte) error {
	r := newReader(sec)
	if err := r.skip(5); err != nil {
		return err
	}
	nv, _ := r.readU16()
	tmpl, err := r.readU16()
	if err != nil {
		return err
	}
	m.Template = int(tmpl)
	switch tmpl {
	case templateInstant, templateStatistical, templateTile:
	default:
		return fmt.Errorf("%w: product definition template 4.%d", ErrUnsupported, tmpl)
	}
	cat, _ := r.readU8()
	num, err := r.readU8()
	if err != nil {
		return err
	}
	m.Category, m.Number = int(cat), int(num)

	if tmpl == templateTile {
		b, err := r.readN(5)
		if err != nil {
			return err
		}
		m.HasTile = true
		m.Tiles = field.TileCount{Tiles: int(b[1]), Attributes: int(b[2])}
		m.Tile = &field.Tile{Index: int(b[3]), Attribute: int(b[4])}
	}

	if err := r.skip(6); err != nil {
		return err
	}
	unit, _ := r.readU8()
	forecast, _ := r.readS32()
	for i := 0; i < 2; i++ {
		typ, _ := r.readU8()
		scale, _ := r.readU8()
		value, err := r.readU32()
		if err != nil {
			return err
		}
		m.SurfaceType[i] = int(typ)
		m.Level[i] = scaledLevel(scale, value)
	}
	if m.SurfaceType[1] == surfaceMissing {
		m.Level[1] = m.Level[0]
	}
	step, err := unitDuration(unit)
	if err != nil {
		return err
	}
	m.Start = m.RefTime.Add(time.Duration(forecast) * step)
	m.Kind = field.TimestepInstant

	if tmpl == templateStatistical {
		year, _ := r.readU16()
		b, err := r.readN(6)
		if err != nil {
			return err
		}
		m.End = time.Date(int(year), time.Month(b[0]), int(b[1]), int(b[2]), int(b[3]), int(b[4]), 0, time.UTC)
		m.HasEnd = true
		if b[5] == 0 {
			return fmt.Errorf("%w: statistical template without time range", ErrInvalidMessage)
		}
		if err := r.skip(4); err != nil {
			return err
		}
		process, err := r.readU8()
		if err != nil {
			return err
		}
		m.Kind = statisticalKind(int(process))
		if err := r.skip(11 + 12*(int(b[5])-1)); err != nil {
			return err
		}
	}

	if nv > 0 {
		coords, err := r.readN(4 * int(nv))
		if err != nil {
			return err
		}
		if m.SurfaceType[0] == surfaceGeneralized && nv >= 6 {
			id, err := uuid.FromBytes(coords[8:24])
			if err != nil {
				return err
			}
			m.VGrid = &field.LevelUUID{
				LevelCount:  int(binary.BigEndian.Uint32(coords[0:])),
				VGridNumber: int(binary.BigEndian.Uint32(coords[4:])),
				UUID:        id,
			}
		}
	}
	return nil
}

func scaledLevel(scale uint8, value uint32) float64 {
	if scale == 0xFF || value == 0xFFFFFFFF {
		return 0
	}
	s := signMagnitude(uint64(scale), 8)
	v := signMagnitude(uint64(value), 32)
	return float64(v) * math.Pow10(-s)
}

func (m *Message) section5(sec []byte) error {
	r := newReader(sec)
	if err := r.skip(5); err != nil {
		return err
	}
	n, _ := r.readU32()
	tmpl, err := r.readU16()
	if err != nil {
		return err
	}
	if tmpl != 0 {
		return fmt.Errorf("%w: data representation template 5.%d", ErrUnsupported, tmpl)
	}
	ref, _ := r.readF32()
	e, _ := r.readS16()
	d, _ := r.readS16()
	bits, err := r.readU8()
	if err != nil {
		return err
	}
	m.NumValues = int(n)
	m.Packing = Packing{Reference: ref, BinaryScale: e, DecimalScale: d, Bits: int(bits)}
	return nil
}

func (m *Message) section6(sec []byte) error {
	if len(sec) < 6 {
		return ErrTruncated
	}
	switch sec[5] {
	case 0:
		m.bitmap = sec[6:]
	case 255:
		m.bitmap = nil
	default:
		return fmt.Errorf("%w: bitmap indicator %d", ErrUnsupported, sec[5])
	}
	return nil
}

// unitDuration maps the indicator of unit of time range (GRIB-1 table 4,
// GRIB-2 code table 4.4).
func unitDuration(unit uint8) (time.Duration, error) {
	switch unit {
	case 0:
		return time.Minute, nil
	case 1:
		return time.Hour, nil
	case 2:
		return 24 * time.Hour, nil
	case 10:
		return 3 * time.Hour, nil
	case 11:
		return 6 * time.Hour, nil
	case 12:
		return 12 * time.Hour, nil
	case 13, 254:
		return time.Second, nil
	default:
		return 0, fmt.Errorf("%w: time unit %d", ErrUnsupported, unit)
	}
}

// statisticalKind maps GRIB-2 code table 4.10.
func statisticalKind(process int) field.TimestepKind {
	switch process {
	case 0:
		return field.TimestepAverage
	case 1:
		return field.TimestepAccumulation
	case 2:
		return field.TimestepMaximum
	case 3:
		return field.TimestepMinimum
	case 4, 8:
		return field.TimestepDifference
	case 5:
		return field.TimestepRMS
	case 6:
		return field.TimestepSD
	case 7:
		return field.TimestepCovariance
	case 9:
		return field.TimestepRatio
	default:
		return field.TimestepInstant
	}
}

func statisticalProcess(kind field.TimestepKind) int {
	switch kind {
	case field.TimestepAverage:
		return 0
	case field.TimestepAccumulation, field.TimestepSum:
		return 1
	case field.TimestepMaximum:
		return 2
	case field.TimestepMinimum:
		return 3
	case field.TimestepDifference:
		return 4
	case field.TimestepRMS:
		return 5
	case field.TimestepSD:
		return 6
	case field.TimestepCovariance:
		return 7
	case field.TimestepRatio:
		return 9
	default:
		return 255
	}
}
