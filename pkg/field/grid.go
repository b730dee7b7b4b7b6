package field

// GridType classifies the horizontal grid of a field.
type GridType int

const (
	GridGeneric GridType = iota
	GridLonLat
	GridGaussian
	GridUnstructured
)

func (t GridType) String() string {
	switch t {
	case GridLonLat:
		return "lonlat"
	case GridGaussian:
		return "gaussian"
	case GridUnstructured:
		return "unstructured"
	default:
		return "generic"
	}
}

// Grid describes the horizontal layout of a field. A *Grid handed out by an
// iterator belongs to the backend and is overwritten by the next advance.
type Grid struct {
	Type   GridType
	Nx, Ny int
	XFirst float64
	XInc   float64
	YFirst float64
	YInc   float64
}

// Size is the number of values of a field on this grid. It is the minimum
// buffer length for reading the field.
func (g *Grid) Size() int {
	if g == nil {
		return 0
	}
	if g.Ny == 0 {
		return g.Nx
	}
	return g.Nx * g.Ny
}

// XValues returns the longitudes (or x coordinates) of a regular grid.
func (g *Grid) XValues() []float64 {
	return axis(g.XFirst, g.XInc, g.Nx)
}

// YValues returns the latitudes (or y coordinates) of a regular grid.
func (g *Grid) YValues() []float64 {
	return axis(g.YFirst, g.YInc, g.Ny)
}

func axis(first, inc float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = first + float64(i)*inc
	}
	return out
}
