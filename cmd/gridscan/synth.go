package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gridscan/internal/extra"
	"github.com/samcharles93/gridscan/internal/grib"
	"github.com/samcharles93/gridscan/internal/ieg"
	"github.com/samcharles93/gridscan/internal/logger"
	"github.com/samcharles93/gridscan/internal/service"
	"github.com/samcharles93/gridscan/internal/timefmt"
	"github.com/samcharles93/gridscan/pkg/field"
)

var synthRefTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type synthOptions struct {
	format string
	fields int
	nx, ny int
}

func synthCmd() *cli.Command {
	var (
		format string
		fields int64
		nx, ny int64
	)

	return &cli.Command{
		Name:      "synth",
		Usage:     "Write a synthetic file of temperature-like fields",
		ArgsUsage: "OUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "grib2, grib1, srv, ext or ieg", Value: "grib2", Destination: &format},
			&cli.Int64Flag{Name: "fields", Usage: "number of fields", Value: 4, Destination: &fields},
			&cli.Int64Flag{Name: "nx", Usage: "longitudes", Value: 36, Destination: &nx},
			&cli.Int64Flag{Name: "ny", Usage: "latitudes", Value: 19, Destination: &ny},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			out := cmd.Args().First()
			if out == "" {
				return fmt.Errorf("synth: OUT is required")
			}
			opts := synthOptions{format: format, fields: int(fields), nx: int(nx), ny: int(ny)}
			if err := writeSynth(out, opts); err != nil {
				return err
			}
			logger.FromContext(ctx).Info("wrote synthetic file", "path", out, "format", format, "fields", fields)
			return nil
		},
	}
}

func writeSynth(path string, o synthOptions) error {
	if o.fields < 1 || o.nx < 2 || o.ny < 2 {
		return fmt.Errorf("synth: need at least one field on a 2x2 grid")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	err = synthFields(w, o)
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// synthValues is a smooth field in kelvin that varies with latitude and
// with the field number.
func synthValues(o synthOptions, k int) []float64 {
	v := make([]float64, o.nx*o.ny)
	for j := 0; j < o.ny; j++ {
		lat := 90 - 180*float64(j)/float64(o.ny-1)
		for i := 0; i < o.nx; i++ {
			lon := 360 * float64(i) / float64(o.nx)
			v[j*o.nx+i] = 250 + 40*math.Cos(lat*math.Pi/180) + 2*math.Sin(lon*math.Pi/180) + float64(k)
		}
	}
	return v
}

func synthGrid(o synthOptions) field.Grid {
	return field.Grid{
		Type:   field.GridLonLat,
		Nx:     o.nx,
		Ny:     o.ny,
		XFirst: 0,
		XInc:   360 / float64(o.nx),
		YFirst: 90,
		YInc:   -180 / float64(o.ny-1),
	}
}

func synthFields(w *bufio.Writer, o synthOptions) error {
	levels := []float64{1000, 850, 500, 250}
	for k := 0; k < o.fields; k++ {
		values := synthValues(o, k)
		hPa := levels[k%len(levels)]
		step := synthRefTime.Add(time.Duration(6*(k/len(levels))) * time.Hour)
		switch o.format {
		case "grib2", "grib1":
			edition, level := 2, hPa*100
			if o.format == "grib1" {
				edition = 1
			}
			b, err := grib.Encode(grib.Field{
				Edition:      edition,
				Centre:       98,
				Table:        128,
				Code:         130,
				RefTime:      synthRefTime,
				Start:        step,
				Kind:         field.TimestepInstant,
				SurfaceType:  100,
				Level:        [2]float64{level, level},
				Grid:         synthGrid(o),
				Values:       values,
				DecimalScale: 2,
			})
			if err != nil {
				return err
			}
			if _, err := w.Write(b); err != nil {
				return err
			}
		case "srv":
			date, hhmm := timefmt.ToDateTime(step)
			h := service.Header{Code: 130, Level: int64(hPa), Date: date, Time: hhmm, Nlon: int64(o.nx), Nlat: int64(o.ny)}
			if err := service.NewWriter(w, binary.BigEndian, 4).Write(h, values); err != nil {
				return err
			}
		case "ext":
			date, _ := timefmt.ToDateTime(step)
			h := extra.Header{Date: date, Code: 130, Level: int64(hPa)}
			if err := extra.NewWriter(w, binary.BigEndian, 4).Write(h, values); err != nil {
				return err
			}
		case "ieg":
			g := synthGrid(o)
			h := ieg.Header{
				Table: 128, Centre: 98, Code: 130, LevelType: 100, Level: [2]int{int(hPa), int(hPa)},
				RefTime: step, Unit: 1,
				Nx: o.nx, Ny: o.ny,
				Lat1: 90000, Lon1: 0,
				Lat2: -90000, Lon2: int(math.Round((360 - g.XInc) * 1000)),
				Di: int(math.Round(g.XInc * 1000)), Dj: int(math.Round(-g.YInc * 1000)),
				Precision: 4,
			}
			if err := ieg.NewWriter(w, binary.BigEndian).Write(h, values); err != nil {
				return err
			}
		default:
			return fmt.Errorf("synth: unknown format %q", o.format)
		}
	}
	return nil
}
