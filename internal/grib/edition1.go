package grib

import (
	"fmt"
	"math"
	"time"

	"github.com/samcharles93/gridscan/pkg/field"
)

const (
	flagGDS = 0x80
	flagBMS = 0x40

	levelPressure1 = 100
)

// layerTypes1 are the GRIB-1 level types whose two level octets hold the
// top and bottom of a layer instead of one 16-bit value.
var layerTypes1 = map[int]bool{
	101: true, 104: true, 106: true, 108: true, 110: true, 112: true,
	114: true, 116: true, 120: true, 121: true, 128: true, 141: true,
}

func (m *Message) section1Length(off int) (int, error) {
	if off+3 > len(m.raw)-len(tail) {
		return 0, ErrTruncated
	}
	n := int(m.raw[off])<<16 | int(m.raw[off+1])<<8 | int(m.raw[off+2])
	if n < 4 || off+n > len(m.raw)-len(tail) {
		return 0, fmt.Errorf("%w: section length %d at %d", ErrInvalidMessage, n, off)
	}
	return n, nil
}

func (m *Message) decode1() error {
	off := 8
	n, err := m.section1Length(off)
	if err != nil {
		return err
	}
	flag, err := m.pds(m.raw[off : off+n])
	if err != nil {
		return err
	}
	off += n

	if flag&flagGDS == 0 {
		return fmt.Errorf("%w: predefined grids are not supported", ErrUnsupported)
	}
	if n, err = m.section1Length(off); err != nil {
		return err
	}
	if err := m.gds(m.raw[off : off+n]); err != nil {
		return err
	}
	off += n

	if flag&flagBMS != 0 {
		if n, err = m.section1Length(off); err != nil {
			return err
		}
		if err := m.bms(m.raw[off : off+n]); err != nil {
			return err
		}
		off += n
	}

	if n, err = m.section1Length(off); err != nil {
		return err
	}
	if err := m.bds(m.raw[off : off+n]); err != nil {
		return err
	}

	m.NumValues = m.Grid.Size()
	if m.bitmap != nil {
		m.NumValues = countBits(m.bitmap, m.Grid.Size())
	}
	return nil
}

func (m *Message) pds(sec []byte) (uint8, error) {
	r := newReader(sec)
	if err := r.skip(3); err != nil {
		return 0, err
	}
	b, err := r.readN(23)
	if err != nil {
		return 0, err
	}
	m.Table = int(b[0])
	m.Centre = int(b[1])
	flag := b[4]
	m.Code = int(b[5])
	levType := int(b[6])
	m.SurfaceType = [2]int{levType, levType}
	if layerTypes1[levType] {
		m.Level = [2]float64{float64(b[7]), float64(b[8])}
	} else {
		v := float64(int(b[7])<<8 | int(b[8]))
		if levType == levelPressure1 {
			v *= 100
		}
		m.Level = [2]float64{v, v}
	}

	century, yoc := int(b[21]), int(b[9])
	year := (century-1)*100 + yoc
	m.RefTime = time.Date(year, time.Month(b[10]), int(b[11]), int(b[12]), int(b[13]), 0, 0, time.UTC)

	step, err := unitDuration(b[14])
	if err != nil {
		return 0, err
	}
	p1, p2 := time.Duration(b[15])*step, time.Duration(b[16])*step
	m.Start = m.RefTime
	m.Kind = field.TimestepInstant
	switch tri := b[17]; tri {
	case 0:
		m.Start = m.RefTime.Add(p1)
	case 1:
	case 2, 3, 4, 5:
		m.Start = m.RefTime.Add(p1)
		m.End = m.RefTime.Add(p2)
		m.HasEnd = true
		m.Kind = [...]field.TimestepKind{
			2: field.TimestepRange,
			3: field.TimestepAverage,
			4: field.TimestepAccumulation,
			5: field.TimestepDifference,
		}[tri]
	case 10:
		m.Start = m.RefTime.Add(time.Duration(int(b[15])<<8|int(b[16])) * step)
	default:
		return 0, fmt.Errorf("%w: time range indicator %d", ErrUnsupported, tri)
	}

	d, err := r.readS16()
	if err != nil {
		return 0, err
	}
	m.Packing.DecimalScale = d
	return flag, nil
}

func (m *Message) gds(sec []byte) error {
	r := newReader(sec)
	if err := r.skip(5); err != nil {
		return err
	}
	drt, err := r.readU8()
	if err != nil {
		return err
	}
	if drt != 0 {
		return fmt.Errorf("%w: grid representation %d", ErrUnsupported, drt)
	}
	ni, _ := r.readU16()
	nj, _ := r.readU16()
	la1, _ := r.readS24()
	lo1, _ := r.readS24()
	if err := r.skip(7); err != nil {
		return err
	}
	di, _ := r.readU16()
	dj, _ := r.readU16()
	scan, err := r.readU8()
	if err != nil {
		return err
	}
	m.Grid = regularGrid(int(ni), int(nj), float64(lo1)/1e3, float64(la1)/1e3, float64(di)/1e3, float64(dj)/1e3, scan)
	return nil
}

func (m *Message) bms(sec []byte) error {
	if len(sec) < 6 {
		return ErrTruncated
	}
	if ref := int(sec[4])<<8 | int(sec[5]); ref != 0 {
		return fmt.Errorf("%w: predefined bitmap %d", ErrUnsupported, ref)
	}
	m.bitmap = sec[6:]
	return nil
}

func (m *Message) bds(sec []byte) error {
	r := newReader(sec)
	if err := r.skip(3); err != nil {
		return err
	}
	flag, _ := r.readU8()
	if flag&0xC0 != 0 {
		return fmt.Errorf("%w: complex or spherical harmonic packing", ErrUnsupported)
	}
	e, _ := r.readS16()
	ibm, _ := r.readU32()
	bits, err := r.readU8()
	if err != nil {
		return err
	}
	m.Packing.BinaryScale = e
	m.Packing.Reference = float32(ibmToFloat(ibm))
	m.Packing.Bits = int(bits)
	m.data = sec[11:]
	return nil
}

// ibmToFloat converts an IBM System/360 single precision float.
func ibmToFloat(v uint32) float64 {
	if v&0x7FFFFFFF == 0 {
		return 0
	}
	sign := 1.0
	if v&0x80000000 != 0 {
		sign = -1
	}
	exp := int((v>>24)&0x7F) - 64
	mant := float64(v&0x00FFFFFF) / (1 << 24)
	return sign * mant * math.Pow(16, float64(exp))
}

// floatToIBM converts f to an IBM float that is never greater than f, so a
// packing reference encoded with it keeps all offsets non-negative.
func floatToIBM(f float64) uint32 {
	if f == 0 {
		return 0
	}
	var sign uint32
	if f < 0 {
		sign = 0x80000000
		f = -f
	}
	exp := 64
	for f >= 1 {
		f /= 16
		exp++
	}
	for f < 1.0/16 {
		f *= 16
		exp--
	}
	mant := uint32(f * (1 << 24))
	if sign != 0 && float64(mant) < f*(1<<24) {
		mant++
		if mant == 1<<24 {
			mant >>= 4
			exp++
		}
	}
	return sign | uint32(exp)<<24 | mant
}
