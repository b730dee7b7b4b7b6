// Package cdf reads NetCDF files (classic CDF-1, CDF-2 and CDF-5 as well as
// HDF5 based NetCDF-4) as a record stream of two dimensional fields.
//
// Field variables are numeric variables whose last two dimensions are
// spatial. Fields are visited time step by time step, and within a step
// variable by variable and level by level. Variables without a time
// dimension only appear in the first step.
package cdf

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/samcharles93/gridscan/internal/backend/stream"
	"github.com/samcharles93/gridscan/internal/timefmt"
	"github.com/samcharles93/gridscan/pkg/field"
)

var ErrNoTimeAxis = errors.New("cdf: time coordinate without usable units")

type variable struct {
	name     string
	vg       api.VarGetter
	timed    bool
	nx, ny   int
	levels   []float64
	ltype    field.LevelType
	grid     field.Grid
	param    field.Param
	datatype field.Datatype
	kind     field.TimestepKind
	fills    []float64
	scale    float64
	offset   float64
}

// Source iterates the fields of a NetCDF file.
type Source struct {
	g      api.Group
	vars   []*variable
	epoch  time.Time
	times  []time.Time
	bounds [][2]time.Time

	steps   int
	t, v, l int

	cacheVar *variable
	cacheT   int
	cache    []float64
}

// Open indexes the field variables of path.
func Open(path string) (*Source, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cdf: open %s: %w", path, err)
	}
	s := &Source{g: g, l: -1}
	if err := s.index(); err != nil {
		g.Close()
		return nil, err
	}
	return s, nil
}

func OpenSource(path string) (stream.Source, error) {
	return Open(path)
}

// coordinate returns the values of the coordinate variable of dim.
func (s *Source) coordinate(dim string) ([]float64, api.AttributeMap) {
	v, err := s.g.GetVariable(dim)
	if err != nil || len(v.Dimensions) != 1 || v.Dimensions[0] != dim {
		return nil, nil
	}
	vals, err := flatten(nil, v.Values)
	if err != nil {
		return nil, nil
	}
	return vals, v.Attributes
}

func (s *Source) index() error {
	timeDim, err := s.timeAxis()
	if err != nil {
		return err
	}
	s.steps = max(len(s.times), 1)

	skip := make(map[string]bool)
	for _, name := range s.g.ListVariables() {
		vg, err := s.g.GetVarGetter(name)
		if err != nil {
			continue
		}
		if b := attrString(vg.Attributes(), "bounds"); b != "" {
			skip[b] = true
		}
	}

	for _, name := range s.g.ListVariables() {
		if skip[name] {
			continue
		}
		vg, err := s.g.GetVarGetter(name)
		if err != nil {
			return fmt.Errorf("cdf: variable %s: %w", name, err)
		}
		dims := vg.Dimensions()
		if !numericTypes[vg.GoType()] || len(dims) == 1 && dims[0] == name {
			continue
		}
		timed := len(dims) > 0 && timeDim != "" && dims[0] == timeDim
		spatial := dims
		if timed {
			spatial = dims[1:]
		}
		if len(spatial) < 2 || len(spatial) > 3 {
			continue
		}
		v, err := s.describe(name, vg, timed, spatial)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		v.param = field.Param{Discipline: field.ParamUndefined, Category: field.ParamUndefined, Number: -(len(s.vars) + 1)}
		if code, ok := attrNumber(vg.Attributes(), "code"); ok {
			table, _ := attrNumber(vg.Attributes(), "table")
			v.param = field.CodeParam(int(code), int(table))
		}
		s.vars = append(s.vars, v)
	}
	return nil
}

// timeAxis finds the time coordinate and decodes its values.
func (s *Source) timeAxis() (string, error) {
	var dim string
	for _, name := range s.g.ListVariables() {
		vg, err := s.g.GetVarGetter(name)
		if err != nil {
			continue
		}
		dims := vg.Dimensions()
		if len(dims) != 1 || dims[0] != name {
			continue
		}
		attrs := vg.Attributes()
		if name == "time" || attrString(attrs, "axis") == "T" || strings.Contains(attrString(attrs, "units"), " since ") {
			dim = name
			break
		}
	}
	if dim == "" {
		return "", nil
	}
	vals, attrs := s.coordinate(dim)
	units, err := timefmt.ParseUnits(attrString(attrs, "units"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoTimeAxis, err)
	}
	s.epoch = units.Epoch
	s.times = make([]time.Time, len(vals))
	for i, v := range vals {
		s.times[i] = units.At(v)
	}
	if b := attrString(attrs, "bounds"); b != "" {
		if bv, err := s.g.GetVariable(b); err == nil {
			flat, err := flatten(nil, bv.Values)
			if err == nil && len(flat) == 2*len(vals) {
				s.bounds = make([][2]time.Time, len(vals))
				for i := range s.bounds {
					s.bounds[i] = [2]time.Time{units.At(flat[2*i]), units.At(flat[2*i+1])}
				}
			}
		}
	}
	return dim, nil
}

// describe probes the storage shape of a field variable. It returns nil for
// time dependent variables in files without time steps.
func (s *Source) describe(name string, vg api.VarGetter, timed bool, spatial []string) (*variable, error) {
	var sample any
	var err error
	if timed {
		if len(s.times) == 0 {
			return nil, nil
		}
		sample, err = vg.GetSlice(0, 1)
	} else {
		sample, err = vg.Values()
	}
	if err != nil {
		return nil, fmt.Errorf("cdf: read %s: %w", name, err)
	}
	sh := shape(sample)
	if timed && len(sh) > 0 {
		sh = sh[1:]
	}
	if len(sh) != len(spatial) {
		return nil, fmt.Errorf("cdf: %s has shape %v for dimensions %v", name, sh, spatial)
	}
	attrs := vg.Attributes()
	v := &variable{
		name:     name,
		vg:       vg,
		timed:    timed,
		nx:       sh[len(sh)-1],
		ny:       sh[len(sh)-2],
		datatype: datatypeOf(vg.GoType()),
		kind:     kindOf(attrString(attrs, "cell_methods"), timed),
		scale:    1,
	}
	if f, ok := attrNumber(attrs, "scale_factor"); ok {
		v.scale = f
	}
	if f, ok := attrNumber(attrs, "add_offset"); ok {
		v.offset = f
	}
	for _, key := range []string{"_FillValue", "missing_value"} {
		if f, ok := attrNumber(attrs, key); ok {
			v.fills = append(v.fills, f)
		}
	}
	v.grid = s.horizontal(spatial[len(spatial)-1], spatial[len(spatial)-2], v.nx, v.ny)

	v.ltype, v.levels = field.LevelSurface, []float64{0}
	if len(sh) == 3 {
		v.ltype, v.levels = s.vertical(spatial[0], sh[0])
	}
	return v, nil
}

func (s *Source) horizontal(xdim, ydim string, nx, ny int) field.Grid {
	g := field.Grid{Type: field.GridGeneric, Nx: nx, Ny: ny}
	x, xattrs := s.coordinate(xdim)
	y, yattrs := s.coordinate(ydim)
	if len(x) != nx || len(y) != ny {
		return g
	}
	g.XFirst, g.YFirst = x[0], y[0]
	if nx > 1 {
		g.XInc = x[1] - x[0]
	}
	if ny > 1 {
		g.YInc = y[1] - y[0]
	}
	if strings.HasPrefix(attrString(xattrs, "units"), "degree") && strings.HasPrefix(attrString(yattrs, "units"), "degree") {
		g.Type = field.GridLonLat
	}
	return g
}

func (s *Source) vertical(dim string, n int) (field.LevelType, []float64) {
	vals, attrs := s.coordinate(dim)
	if len(vals) != n {
		vals = make([]float64, n)
		for i := range vals {
			vals[i] = float64(i + 1)
		}
		return field.LevelGeneric, vals
	}
	units := attrString(attrs, "units")
	switch {
	case strings.Contains(attrString(attrs, "standard_name"), "hybrid"):
		return field.LevelHybrid, vals
	case units == "Pa":
		return field.LevelPressure, vals
	case units == "hPa" || units == "mbar" || units == "millibar":
		for i := range vals {
			vals[i] *= 100
		}
		return field.LevelPressure, vals
	case units == "m" && attrString(attrs, "positive") == "down":
		return field.LevelDepthBelowSea, vals
	case units == "m":
		return field.LevelHeight, vals
	default:
		return field.LevelGeneric, vals
	}
}

func datatypeOf(goType string) field.Datatype {
	switch goType {
	case "float32":
		return field.Flt32
	case "float64":
		return field.Flt64
	case "int8":
		return field.Int8
	case "int16":
		return field.Int16
	case "int32":
		return field.Int32
	case "uint8":
		return field.Uint8
	case "uint16":
		return field.Uint16
	case "uint32":
		return field.Uint32
	default:
		return field.DatatypeUndefined
	}
}

func kindOf(cellMethods string, timed bool) field.TimestepKind {
	if !timed {
		return field.TimestepConstant
	}
	switch {
	case strings.Contains(cellMethods, "time: mean"):
		return field.TimestepAverage
	case strings.Contains(cellMethods, "time: sum"):
		return field.TimestepAccumulation
	case strings.Contains(cellMethods, "time: maximum"):
		return field.TimestepMaximum
	case strings.Contains(cellMethods, "time: minimum"):
		return field.TimestepMinimum
	default:
		return field.TimestepInstant
	}
}

// advance moves the position to the next (step, variable, level).
func (s *Source) advance() bool {
	t, v, l := s.t, s.v, s.l+1
	for t < s.steps {
		for v < len(s.vars) {
			vr := s.vars[v]
			present := vr.timed && t < len(s.times) || !vr.timed && t == 0
			if present && l < len(vr.levels) {
				s.t, s.v, s.l = t, v, l
				return true
			}
			v, l = v+1, 0
		}
		t, v, l = t+1, 0, 0
	}
	return false
}

func (s *Source) Skip() error {
	if !s.advance() {
		return io.EOF
	}
	return nil
}

func (s *Source) Next(m *stream.Meta) error {
	if !s.advance() {
		return io.EOF
	}
	vr := s.vars[s.v]
	lev := vr.levels[s.l]
	*m = stream.Meta{
		Name:      vr.name,
		Param:     vr.param,
		Datatype:  vr.datatype,
		Kind:      vr.kind,
		LevelType: vr.ltype,
		Level:     [2]float64{lev, lev},
		Grid:      vr.grid,
	}
	if vr.timed {
		m.RefTime = s.epoch
		m.Start = s.times[s.t]
		if vr.kind.Statistical() && s.bounds != nil {
			m.Start, m.End = s.bounds[s.t][0], s.bounds[s.t][1]
		}
	}
	return nil
}

func (s *Source) Read(buf []float64) (int, error) {
	if s.l < 0 {
		return 0, errors.New("cdf: read before first field")
	}
	vr := s.vars[s.v]
	if s.cacheVar != vr || s.cacheT != s.t {
		var raw any
		var err error
		if vr.timed {
			raw, err = vr.vg.GetSlice(int64(s.t), int64(s.t)+1)
		} else {
			raw, err = vr.vg.Values()
		}
		if err != nil {
			return 0, fmt.Errorf("cdf: read %s: %w", vr.name, err)
		}
		if s.cache, err = flatten(s.cache[:0], raw); err != nil {
			return 0, err
		}
		s.cacheVar, s.cacheT = vr, s.t
	}
	n := vr.nx * vr.ny
	lo := s.l * n
	if lo+n > len(s.cache) {
		return 0, fmt.Errorf("cdf: %s holds %d values, level %d needs %d", vr.name, len(s.cache), s.l, lo+n)
	}
	missing := 0
	for i, raw := range s.cache[lo : lo+n] {
		if vr.isFill(raw) {
			buf[i] = raw
			missing++
			continue
		}
		buf[i] = raw*vr.scale + vr.offset
	}
	return missing, nil
}

func (v *variable) isFill(raw float64) bool {
	if math.IsNaN(raw) {
		return true
	}
	for _, f := range v.fills {
		if raw == f {
			return true
		}
	}
	return false
}

func (s *Source) Close() error {
	s.g.Close()
	return nil
}
