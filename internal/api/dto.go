package api

import (
	"github.com/samcharles93/gridscan/pkg/field"
	"github.com/samcharles93/gridscan/pkg/iterator"
)

type OpenCursorReq struct {
	Path string `json:"path"`
}

type RestoreCursorReq struct {
	State string `json:"state"`
}

type CursorResp struct {
	ID       string     `json:"id"`
	Object   string     `json:"object"`
	Filetype string     `json:"filetype"`
	Advanced bool       `json:"advanced"`
	Field    *FieldInfo `json:"field,omitempty"`
}

type NextResp struct {
	ID    string     `json:"id"`
	Done  bool       `json:"done"`
	Field *FieldInfo `json:"field,omitempty"`
}

type StateResp struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

type DataResp struct {
	ID        string     `json:"id"`
	Precision string     `json:"precision"`
	Missing   int        `json:"missing"`
	Values    []*float64 `json:"values"`
}

type DeleteCursorResp struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type FormatInfo struct {
	Name      string `json:"name"`
	Tag       string `json:"tag"`
	Family    string `json:"family"`
	Available bool   `json:"available"`
}

type ErrorBody struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

type LevelInfo struct {
	Type   string  `json:"type"`
	Unit   string  `json:"unit,omitempty"`
	Value1 float64 `json:"value1"`
	Value2 float64 `json:"value2"`
}

type GridInfo struct {
	Type   string  `json:"type"`
	Nx     int     `json:"nx"`
	Ny     int     `json:"ny"`
	XFirst float64 `json:"x_first"`
	XInc   float64 `json:"x_inc"`
	YFirst float64 `json:"y_first"`
	YInc   float64 `json:"y_inc"`
}

type TileInfo struct {
	Index     int `json:"index"`
	Attribute int `json:"attribute"`
	Tiles     int `json:"tiles"`
}

// FieldInfo is the metadata of one field as served and printed.
type FieldInfo struct {
	Index         int       `json:"index"`
	Variable      string    `json:"variable"`
	Param         string    `json:"param"`
	Datatype      string    `json:"datatype"`
	TimestepKind  string    `json:"tsteptype"`
	ReferenceTime string    `json:"reference_time,omitempty"`
	StartTime     string    `json:"start_time,omitempty"`
	EndTime       string    `json:"end_time,omitempty"`
	ValidityTime  string    `json:"validity_time,omitempty"`
	Level         LevelInfo `json:"level"`
	LevelUUID     string    `json:"level_uuid,omitempty"`
	Tile          *TileInfo `json:"tile,omitempty"`
	Grid          GridInfo  `json:"grid"`
	Values        int       `json:"values"`
}

// Describe collects the metadata of the field it is positioned on. it must
// have been advanced.
func Describe(it *iterator.Iterator, index int) FieldInfo {
	info := FieldInfo{
		Index:        index,
		Variable:     it.VariableName(),
		Param:        it.Param().String(),
		Datatype:     it.Datatype().String(),
		TimestepKind: it.TimestepKind().String(),
	}
	info.ReferenceTime, _ = it.ReferenceTime()
	info.StartTime, _ = it.StartTime()
	info.EndTime, _ = it.EndTime()
	info.ValidityTime, _ = it.ValidityTime()

	lt := it.LevelType(field.LevelTop)
	info.Level = LevelInfo{Type: lt.Name(), Unit: lt.Unit()}
	if v1, v2, err := it.Level(field.LevelTop); err == nil {
		info.Level.Value1, info.Level.Value2 = v1, v2
	}
	if lt.Layered() && info.Level.Value2 == 0 {
		if v, _, err := it.Level(field.LevelBottom); err == nil && v != info.Level.Value1 {
			info.Level.Value2 = v
		}
	}
	if u, err := it.LevelUUID(); err == nil {
		info.LevelUUID = u.UUID.String()
	}
	if t, err := it.Tile(); err == nil {
		n, _ := it.TileCount()
		info.Tile = &TileInfo{Index: t.Index, Attribute: t.Attribute, Tiles: n.Tiles}
	}

	g := it.Grid()
	info.Grid = GridInfo{Type: g.Type.String(), Nx: g.Nx, Ny: g.Ny, XFirst: g.XFirst, XInc: g.XInc, YFirst: g.YFirst, YInc: g.YInc}
	info.Values = g.Size()
	return info
}
