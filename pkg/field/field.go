// Package field holds the metadata types that describe one field of a
// gridded data file: parameter identity, storage datatype, timestep kind,
// vertical level, tile and horizontal grid.
package field

import (
	"fmt"

	"github.com/google/uuid"
)

// Param identifies a physical quantity by GRIB-2 style discipline, category
// and number. Encodings without disciplines use 255 for the unused parts.
type Param struct {
	Discipline int
	Category   int
	Number     int
}

// ParamUndefined marks a missing parameter.
const ParamUndefined = 255

// CodeParam builds the parameter used for code-table encodings (GRIB-1 and
// the legacy record formats): discipline 255, category = table, number = code.
func CodeParam(code, table int) Param {
	return Param{Discipline: ParamUndefined, Category: table, Number: code}
}

func (p Param) String() string {
	return fmt.Sprintf("%d.%d.%d", p.Number, p.Category, p.Discipline)
}

// Datatype is the on-disk representation of a field's values. Packed types
// carry their bit width directly.
type Datatype int

const (
	DatatypeUndefined Datatype = -1
	Flt32             Datatype = 132
	Flt64             Datatype = 164
	Int8              Datatype = 208
	Int16             Datatype = 216
	Int32             Datatype = 232
	Uint8             Datatype = 308
	Uint16            Datatype = 316
	Uint32            Datatype = 332
)

// Pack returns the datatype of values packed with the given bit width.
// Widths outside 1..32 are undefined.
func Pack(bits int) Datatype {
	if bits < 1 || bits > 32 {
		return DatatypeUndefined
	}
	return Datatype(bits)
}

// Packed reports whether d is a packed type and its bit width.
func (d Datatype) Packed() (int, bool) {
	if d >= 1 && d <= 32 {
		return int(d), true
	}
	return 0, false
}

func (d Datatype) String() string {
	if bits, ok := d.Packed(); ok {
		return fmt.Sprintf("P%d", bits)
	}
	switch d {
	case Flt32:
		return "F32"
	case Flt64:
		return "F64"
	case Int8:
		return "I8"
	case Int16:
		return "I16"
	case Int32:
		return "I32"
	case Uint8:
		return "U8"
	case Uint16:
		return "U16"
	case Uint32:
		return "U32"
	default:
		return "undefined"
	}
}

// TimestepKind describes how a field relates to time.
type TimestepKind int

const (
	TimestepConstant TimestepKind = iota
	TimestepInstant
	TimestepAverage
	TimestepAccumulation
	TimestepMaximum
	TimestepMinimum
	TimestepDifference
	TimestepRMS
	TimestepSD
	TimestepCovariance
	TimestepRatio
	TimestepRange
	TimestepSum

	// TimestepUndefined is reported when there is no current field.
	TimestepUndefined TimestepKind = -1
)

var timestepNames = [...]string{
	TimestepConstant:     "constant",
	TimestepInstant:      "instant",
	TimestepAverage:      "avg",
	TimestepAccumulation: "accum",
	TimestepMaximum:      "max",
	TimestepMinimum:      "min",
	TimestepDifference:   "diff",
	TimestepRMS:          "rms",
	TimestepSD:           "sd",
	TimestepCovariance:   "cov",
	TimestepRatio:        "ratio",
	TimestepRange:        "range",
	TimestepSum:          "sum",
}

func (k TimestepKind) String() string {
	if k == TimestepUndefined {
		return "undefined"
	}
	if k >= 0 && int(k) < len(timestepNames) {
		return timestepNames[k]
	}
	return fmt.Sprintf("tstep(%d)", int(k))
}

// Statistical reports whether fields of this kind cover a time interval.
func (k TimestepKind) Statistical() bool {
	return k > TimestepInstant
}

// TimeKind selects one of the times attached to a field.
type TimeKind int

const (
	// TimeStart is the time of the data for point-in-time fields, or the
	// start of the integration interval for statistical fields.
	TimeStart TimeKind = iota
	// TimeEnd is the end of the integration interval. Point-in-time fields
	// have none.
	TimeEnd
	// TimeReference is the analysis or forecast reference time.
	TimeReference
)

func (k TimeKind) String() string {
	switch k {
	case TimeStart:
		return "start"
	case TimeEnd:
		return "end"
	case TimeReference:
		return "reference"
	default:
		return fmt.Sprintf("time(%d)", int(k))
	}
}

// Tile locates a field inside a tiled horizontal domain.
type Tile struct {
	Index     int
	Attribute int
}

// NoTile is reported for fields without tile information.
var NoTile = Tile{Index: -1, Attribute: -1}

// TileCount gives the number of tiles of the variable and the number of
// attributes of the current tile.
type TileCount struct {
	Tiles      int
	Attributes int
}

// LevelUUID references an external vertical grid description.
type LevelUUID struct {
	VGridNumber int
	LevelCount  int
	UUID        uuid.UUID
}
