package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gridscan/internal/api"
	"github.com/samcharles93/gridscan/internal/record"
	"github.com/samcharles93/gridscan/pkg/iterator"
)

type fieldStats struct {
	Field   api.FieldInfo `json:"field"`
	Missing int           `json:"missing"`
	Min     float64       `json:"min"`
	Max     float64       `json:"max"`
	Mean    float64       `json:"mean"`
}

func dumpCmd() *cli.Command {
	var (
		index  int64
		asJSON bool
	)

	return &cli.Command{
		Name:      "dump",
		Usage:     "Decode one field and print summary statistics",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "field", Usage: "1-based field index", Value: 1, Destination: &index},
			jsonFlag(&asJSON),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("dump: FILE is required")
			}
			it, err := registry.Open(path)
			if err != nil {
				return err
			}
			defer it.Close()
			if err := seek(it, int(index)); err != nil {
				return err
			}
			st, err := summarize(it, int(index))
			if err != nil {
				return err
			}
			w := stdout(cmd)
			if asJSON {
				return json.NewEncoder(w).Encode(st)
			}
			fmt.Fprintf(w, "field %d: %s (%s) %s\n", st.Field.Index, st.Field.Variable, st.Field.Param, st.Field.ValidityTime)
			fmt.Fprintf(w, "values:  %d\nmissing: %d\nmin:     %g\nmax:     %g\nmean:    %g\n",
				st.Field.Values, st.Missing, st.Min, st.Max, st.Mean)
			return nil
		},
	}
}

// seek advances a fresh iterator onto the n-th field.
func seek(it *iterator.Iterator, n int) error {
	if n < 1 {
		return fmt.Errorf("field index must be at least 1, got %d", n)
	}
	for i := 1; i <= n; i++ {
		err := it.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("file holds %d fields, field %d requested", i-1, n)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// summarize reads the current field. Values that are NaN or the legacy
// missing value are left out of the statistics.
func summarize(it *iterator.Iterator, index int) (fieldStats, error) {
	st := fieldStats{Field: api.Describe(it, index)}
	buf := make([]float64, it.Grid().Size())
	missing, err := it.ReadField(buf)
	if err != nil {
		return st, err
	}
	st.Missing = missing
	st.Min, st.Max = math.Inf(1), math.Inf(-1)
	var sum float64
	var n int
	for _, v := range buf {
		if math.IsNaN(v) || record.IsMissing(v) {
			continue
		}
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
		sum += v
		n++
	}
	if n == 0 {
		st.Min, st.Max = 0, 0
		return st, nil
	}
	st.Mean = sum / float64(n)
	return st, nil
}
