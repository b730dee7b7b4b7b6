package field

import "fmt"

// LevelSelector picks the top or bottom bound of a layer. Single levels
// report the same value for both.
type LevelSelector int

const (
	LevelTop LevelSelector = iota
	LevelBottom
)

// LevelType classifies the vertical coordinate of a field.
type LevelType int

const (
	LevelUndefined LevelType = iota - 1
	LevelSurface
	LevelGeneric
	LevelHybrid
	LevelHybridHalf
	LevelPressure
	LevelHeight
	LevelDepthBelowSea
	LevelDepthBelowLand
	LevelIsentropic
	LevelTrajectory
	LevelAltitude
	LevelSigma
	LevelMeanSea
	LevelTopOfAtmosphere
	LevelReference
)

type levelNames struct {
	name, longName, stdName, unit string
}

var levelTable = map[LevelType]levelNames{
	LevelSurface:         {"sfc", "surface", "", ""},
	LevelGeneric:         {"lev", "generic", "", "level"},
	LevelHybrid:          {"lev", "hybrid level at layer midpoints", "hybrid_sigma_pressure", "level"},
	LevelHybridHalf:      {"lev", "hybrid level at layer interfaces", "hybrid_sigma_pressure", "level"},
	LevelPressure:        {"plev", "pressure", "air_pressure", "Pa"},
	LevelHeight:          {"height", "height", "height", "m"},
	LevelDepthBelowSea:   {"depth", "depth_below_sea", "depth", "m"},
	LevelDepthBelowLand:  {"depth", "depth_below_land", "", "cm"},
	LevelIsentropic:      {"theta", "isentropic", "", "K"},
	LevelTrajectory:      {"tlev", "trajectory", "", ""},
	LevelAltitude:        {"alt", "altitude", "", "m"},
	LevelSigma:           {"lev", "sigma", "", "level"},
	LevelMeanSea:         {"msl", "mean sea level", "", "m"},
	LevelTopOfAtmosphere: {"toa", "top of atmosphere", "", ""},
	LevelReference:       {"lev", "generalized height", "height", ""},
}

func (t LevelType) names() levelNames {
	return levelTable[t]
}

// Name returns the short name of the level type, "" when undefined.
func (t LevelType) Name() string { return t.names().name }

// LongName returns a human readable description.
func (t LevelType) LongName() string { return t.names().longName }

// StdName returns the CF standard name, "" if there is none.
func (t LevelType) StdName() string { return t.names().stdName }

// Unit returns the unit of level values for this type.
func (t LevelType) Unit() string { return t.names().unit }

func (t LevelType) String() string {
	if n := t.LongName(); n != "" {
		return n
	}
	return fmt.Sprintf("level(%d)", int(t))
}

// Layered reports whether fields of this type may have distinct top and
// bottom values.
func (t LevelType) Layered() bool {
	switch t {
	case LevelHybrid, LevelHybridHalf, LevelPressure, LevelHeight, LevelDepthBelowSea, LevelDepthBelowLand, LevelSigma:
		return true
	default:
		return false
	}
}

// FromGRIB1 maps a GRIB-1 level type indicator (table 3) to a LevelType.
// IEG headers reuse the same codes.
func FromGRIB1(code int) LevelType {
	switch code {
	case 1:
		return LevelSurface
	case 8:
		return LevelTopOfAtmosphere
	case 100, 101:
		return LevelPressure
	case 102:
		return LevelMeanSea
	case 103:
		return LevelAltitude
	case 105, 106:
		return LevelHeight
	case 107, 108:
		return LevelSigma
	case 109:
		return LevelHybrid
	case 110:
		return LevelHybridHalf
	case 111, 112:
		return LevelDepthBelowLand
	case 113:
		return LevelIsentropic
	case 160:
		return LevelDepthBelowSea
	default:
		return LevelGeneric
	}
}

// FromGRIB2 maps a GRIB-2 fixed surface type (code table 4.5).
func FromGRIB2(code int) LevelType {
	switch code {
	case 1:
		return LevelSurface
	case 8:
		return LevelTopOfAtmosphere
	case 100:
		return LevelPressure
	case 101:
		return LevelMeanSea
	case 102:
		return LevelAltitude
	case 103:
		return LevelHeight
	case 104:
		return LevelSigma
	case 105:
		return LevelHybrid
	case 106:
		return LevelDepthBelowLand
	case 107:
		return LevelIsentropic
	case 150:
		return LevelReference
	case 160:
		return LevelDepthBelowSea
	case 255:
		return LevelUndefined
	default:
		return LevelGeneric
	}
}
