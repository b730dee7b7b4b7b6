// Package filetype names the on-disk encodings that gridscan can iterate over
// and maps each of them to the backend family that decodes it.
//
// The set of types is closed. Every type has a serialized tag, and tags remain
// recognizable even when the backend behind them was left out of the build.
package filetype

import (
	"fmt"
	"strings"
	"unicode"
)

// Type identifies a concrete file encoding.
type Type int

const (
	Undefined Type = iota
	GRB
	GRB2
	NC
	NC2
	NC4
	NC4C
	NC5
	NCZarr
	SRV
	EXT
	IEG
)

// Family groups types that share one backend driver.
type Family int

const (
	FamilyUndefined Family = iota
	FamilyGRIB
	FamilyNetCDF
	FamilySRV
	FamilyEXT
	FamilyIEG
)

// TagPrefix is prepended to every serialized type name.
const TagPrefix = "gridscan::"

var typeNames = map[Type]string{
	GRB:    "GRIB1",
	GRB2:   "GRIB2",
	NC:     "NetCDF",
	NC2:    "NetCDF2",
	NC4:    "NetCDF4",
	NC4C:   "NetCDF4C",
	NC5:    "NetCDF5",
	NCZarr: "NCZarr",
	SRV:    "SRV",
	EXT:    "EXT",
	IEG:    "IEG",
}

// Types returns every defined type in tag-table order.
func Types() []Type {
	out := make([]Type, 0, len(tagTable))
	for _, e := range tagTable {
		out = append(out, e.typ)
	}
	return out
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "undefined"
}

// Valid reports whether t is one of the defined types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Tag returns the serialized tag for t, or "" for Undefined.
func (t Type) Tag() string {
	if !t.Valid() {
		return ""
	}
	return TagPrefix + t.String()
}

// Family returns the backend family of t.
func (t Type) Family() Family {
	switch t {
	case GRB, GRB2:
		return FamilyGRIB
	case NC, NC2, NC4, NC4C, NC5, NCZarr:
		return FamilyNetCDF
	case SRV:
		return FamilySRV
	case EXT:
		return FamilyEXT
	case IEG:
		return FamilyIEG
	default:
		return FamilyUndefined
	}
}

func (f Family) String() string {
	switch f {
	case FamilyGRIB:
		return "grib"
	case FamilyNetCDF:
		return "netcdf"
	case FamilySRV:
		return "service"
	case FamilyEXT:
		return "extra"
	case FamilyIEG:
		return "ieg"
	default:
		return "undefined"
	}
}

// Types returns the members of f.
func (f Family) Types() []Type {
	var out []Type
	for _, t := range Types() {
		if t.Family() == f {
			out = append(out, t)
		}
	}
	return out
}

// Parse resolves a user supplied name to the types it denotes. It accepts
// type names ("GRIB2", "NetCDF4"), serialized tags and family names ("grib",
// "netcdf"), all case-insensitive.
func Parse(name string) ([]Type, error) {
	n := strings.TrimSpace(name)
	n = strings.TrimPrefix(n, TagPrefix)
	for _, t := range Types() {
		if strings.EqualFold(t.String(), n) {
			return []Type{t}, nil
		}
	}
	for _, f := range []Family{FamilyGRIB, FamilyNetCDF, FamilySRV, FamilyEXT, FamilyIEG} {
		if strings.EqualFold(f.String(), n) {
			return f.Types(), nil
		}
	}
	return nil, fmt.Errorf("unknown file type %q", name)
}

type tagEntry struct {
	tag string
	typ Type
}

// tagTable lists every tag. MatchTag compares whole tokens, so the order only
// matters for Types().
var tagTable = []tagEntry{
	{TagPrefix + "GRIB1", GRB},
	{TagPrefix + "GRIB2", GRB2},
	{TagPrefix + "NetCDF", NC},
	{TagPrefix + "NetCDF2", NC2},
	{TagPrefix + "NetCDF4", NC4},
	{TagPrefix + "NetCDF4C", NC4C},
	{TagPrefix + "NetCDF5", NC5},
	{TagPrefix + "NCZarr", NCZarr},
	{TagPrefix + "SRV", SRV},
	{TagPrefix + "EXT", EXT},
	{TagPrefix + "IEG", IEG},
}

// MatchTag splits the leading whitespace-delimited token off s and looks it
// up in the tag table. It returns the matched type and the remainder of s
// after the token. ok is false when the token is not a known tag.
func MatchTag(s string) (t Type, rest string, ok bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, unicode.IsSpace)
	token := s
	if end >= 0 {
		token, rest = s[:end], s[end:]
	}
	for _, e := range tagTable {
		if e.tag == token {
			return e.typ, rest, true
		}
	}
	return Undefined, s, false
}
