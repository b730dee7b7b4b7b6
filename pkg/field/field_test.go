package field

import "testing"

func TestParam(t *testing.T) {
	t.Parallel()

	p := CodeParam(130, 128)
	if got := p.String(); got != "130.128.255" {
		t.Fatalf("String: got %q want %q", got, "130.128.255")
	}
	if p.Discipline != ParamUndefined {
		t.Fatalf("discipline: got %d want %d", p.Discipline, ParamUndefined)
	}
	if got := (Param{Discipline: 0, Category: 2, Number: 3}).String(); got != "3.2.0" {
		t.Fatalf("String: got %q want %q", got, "3.2.0")
	}
}

func TestDatatype(t *testing.T) {
	t.Parallel()

	if got := Pack(12); got.String() != "P12" {
		t.Fatalf("Pack(12): got %v", got)
	}
	if bits, ok := Pack(24).Packed(); !ok || bits != 24 {
		t.Fatalf("Packed: got %d %v want 24 true", bits, ok)
	}
	for _, bits := range []int{0, 33, -4} {
		if got := Pack(bits); got != DatatypeUndefined {
			t.Fatalf("Pack(%d): got %v want undefined", bits, got)
		}
	}
	if _, ok := Flt64.Packed(); ok {
		t.Fatal("F64 reported as packed")
	}
	names := map[Datatype]string{Flt32: "F32", Flt64: "F64", Int16: "I16", Uint32: "U32", DatatypeUndefined: "undefined"}
	for d, want := range names {
		if got := d.String(); got != want {
			t.Fatalf("String(%d): got %q want %q", int(d), got, want)
		}
	}
}

func TestTimestepKind(t *testing.T) {
	t.Parallel()

	if TimestepInstant.Statistical() || TimestepConstant.Statistical() || TimestepUndefined.Statistical() {
		t.Fatal("point-in-time kind reported as statistical")
	}
	for _, k := range []TimestepKind{TimestepAverage, TimestepAccumulation, TimestepMaximum, TimestepSum} {
		if !k.Statistical() {
			t.Fatalf("%v not statistical", k)
		}
	}
	if got := TimestepAccumulation.String(); got != "accum" {
		t.Fatalf("String: got %q want accum", got)
	}
	if got := TimestepUndefined.String(); got != "undefined" {
		t.Fatalf("String: got %q want undefined", got)
	}
	if got := TimestepKind(40).String(); got != "tstep(40)" {
		t.Fatalf("String: got %q want tstep(40)", got)
	}
}

func TestLevelCodes(t *testing.T) {
	t.Parallel()

	grib1 := map[int]LevelType{1: LevelSurface, 100: LevelPressure, 105: LevelHeight, 109: LevelHybrid, 160: LevelDepthBelowSea, 42: LevelGeneric}
	for code, want := range grib1 {
		if got := FromGRIB1(code); got != want {
			t.Fatalf("FromGRIB1(%d): got %v want %v", code, got, want)
		}
	}
	grib2 := map[int]LevelType{1: LevelSurface, 100: LevelPressure, 103: LevelHeight, 105: LevelHybrid, 150: LevelReference, 255: LevelUndefined, 42: LevelGeneric}
	for code, want := range grib2 {
		if got := FromGRIB2(code); got != want {
			t.Fatalf("FromGRIB2(%d): got %v want %v", code, got, want)
		}
	}
}

func TestLevelNames(t *testing.T) {
	t.Parallel()

	if LevelPressure.Name() != "plev" || LevelPressure.Unit() != "Pa" || LevelPressure.StdName() != "air_pressure" {
		t.Fatalf("pressure names: got %q %q %q", LevelPressure.Name(), LevelPressure.Unit(), LevelPressure.StdName())
	}
	if got := LevelUndefined.Name(); got != "" {
		t.Fatalf("undefined name: got %q want empty", got)
	}
	if got := LevelUndefined.String(); got != "level(-1)" {
		t.Fatalf("undefined String: got %q", got)
	}
	if !LevelHybrid.Layered() || LevelSurface.Layered() {
		t.Fatal("Layered gave the wrong answer")
	}
}

func TestGrid(t *testing.T) {
	t.Parallel()

	var none *Grid
	if none.Size() != 0 {
		t.Fatalf("nil grid size: got %d want 0", none.Size())
	}
	g := &Grid{Type: GridLonLat, Nx: 4, Ny: 3, XFirst: 0, XInc: 90, YFirst: -45, YInc: 45}
	if got := g.Size(); got != 12 {
		t.Fatalf("Size: got %d want 12", got)
	}
	xs := g.XValues()
	want := []float64{0, 90, 180, 270}
	if len(xs) != len(want) {
		t.Fatalf("XValues: got %v want %v", xs, want)
	}
	for i := range want {
		if xs[i] != want[i] {
			t.Fatalf("XValues: got %v want %v", xs, want)
		}
	}
	if ys := g.YValues(); len(ys) != 3 || ys[2] != 45 {
		t.Fatalf("YValues: got %v", ys)
	}

	u := &Grid{Type: GridUnstructured, Nx: 7}
	if got := u.Size(); got != 7 {
		t.Fatalf("unstructured Size: got %d want 7", got)
	}
	if u.YValues() != nil {
		t.Fatal("unstructured grid has y values")
	}
	if got := u.Type.String(); got != "unstructured" {
		t.Fatalf("GridType: got %q", got)
	}
}
