package grib

import (
	"fmt"
	"strconv"
)

// shortNames2 names common GRIB-2 parameters by discipline, category and
// number.
var shortNames2 = map[[3]int]string{
	{0, 0, 0}:   "t",
	{0, 0, 6}:   "dpt",
	{0, 1, 0}:   "q",
	{0, 1, 1}:   "r",
	{0, 1, 8}:   "tp",
	{0, 2, 2}:   "u",
	{0, 2, 3}:   "v",
	{0, 2, 8}:   "w",
	{0, 3, 0}:   "pres",
	{0, 3, 1}:   "prmsl",
	{0, 3, 4}:   "gh",
	{0, 3, 5}:   "h",
	{0, 6, 1}:   "tcc",
	{2, 0, 0}:   "lsm",
	{10, 0, 3}:  "swh",
	{10, 2, 0}:  "ci",
	{10, 3, 0}:  "sst",
	{0, 19, 0}:  "vis",
	{0, 0, 17}:  "skt",
	{0, 4, 7}:   "dswrf",
	{0, 5, 3}:   "dlwrf",
	{0, 7, 6}:   "cape",
	{0, 14, 0}:  "tozne",
	{0, 191, 1}: "clat",
}

// shortNames1 names GRIB-1 parameters of WMO table 2.
var shortNames1 = map[int]string{
	1: "pres", 2: "prmsl", 6: "z", 7: "gh", 11: "t", 17: "dpt",
	33: "u", 34: "v", 39: "w", 51: "q", 52: "r", 61: "tp",
	71: "tcc", 81: "lsm", 91: "ci",
}

// ShortName returns the abbreviation of the parameter. Unknown parameters
// are named after their code.
func (m *Message) ShortName() string {
	if m.Edition == 1 {
		if m.Table <= 3 {
			if n, ok := shortNames1[m.Code]; ok {
				return n
			}
		}
		return "var" + strconv.Itoa(m.Code)
	}
	if n, ok := shortNames2[[3]int{m.Discipline, m.Category, m.Number}]; ok {
		return n
	}
	return fmt.Sprintf("param%d.%d.%d", m.Number, m.Category, m.Discipline)
}

// Long returns an integer valued key.
func (m *Message) Long(key string) (int64, error) {
	switch key {
	case "edition":
		return int64(m.Edition), nil
	case "totalLength":
		return int64(m.Len()), nil
	case "Ni":
		return int64(m.Grid.Nx), nil
	case "Nj":
		return int64(m.Grid.Ny), nil
	case "bitsPerValue":
		return int64(m.Packing.Bits), nil
	case "numberOfValues":
		return int64(m.NumValues), nil
	case "numberOfMissing":
		return int64(m.MissingCount()), nil
	case "typeOfFirstFixedSurface":
		return int64(m.SurfaceType[0]), nil
	case "binaryScaleFactor":
		return int64(m.Packing.BinaryScale), nil
	case "decimalScaleFactor":
		return int64(m.Packing.DecimalScale), nil
	case "dataDate":
		t := m.RefTime
		return int64(t.Year()*10000 + int(t.Month())*100 + t.Day()), nil
	case "dataTime":
		t := m.RefTime
		return int64(t.Hour()*100 + t.Minute()), nil
	}
	if m.Edition == 1 {
		switch key {
		case "table2Version":
			return int64(m.Table), nil
		case "indicatorOfParameter":
			return int64(m.Code), nil
		}
	} else {
		switch key {
		case "discipline":
			return int64(m.Discipline), nil
		case "parameterCategory":
			return int64(m.Category), nil
		case "parameterNumber":
			return int64(m.Number), nil
		case "productDefinitionTemplateNumber":
			return int64(m.Template), nil
		}
	}
	return 0, fmt.Errorf("%w: %q in edition %d", ErrUnsupportedKey, key, m.Edition)
}

// Double returns a floating point key. Integer keys are converted.
func (m *Message) Double(key string) (float64, error) {
	if key == "referenceValue" {
		return float64(m.Packing.Reference), nil
	}
	v, err := m.Long(key)
	if err != nil {
		return 0, err
	}
	return float64(v), nil
}

// String returns a key formatted as text.
func (m *Message) String(key string) (string, error) {
	if key == "shortName" {
		return m.ShortName(), nil
	}
	if key == "referenceValue" {
		return strconv.FormatFloat(float64(m.Packing.Reference), 'g', -1, 32), nil
	}
	v, err := m.Long(key)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}
