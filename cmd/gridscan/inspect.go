package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gridscan/internal/api"
	"github.com/samcharles93/gridscan/pkg/iterator"
)

func inspectCmd() *cli.Command {
	var (
		asJSON bool
		limit  int64
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the fields of a file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			jsonFlag(&asJSON),
			&cli.Int64Flag{Name: "limit", Usage: "stop after N fields (0 = all)", Destination: &limit},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("inspect: FILE is required")
			}
			it, err := registry.Open(path)
			if err != nil {
				return err
			}
			defer it.Close()
			return listFields(stdout(cmd), it, 0, int(limit), asJSON)
		},
	}
}

// listFields advances it up to limit times and prints one line or JSON
// object per field. start is the index of the field before the first
// advance, so resumed iterators keep counting.
func listFields(w io.Writer, it *iterator.Iterator, start, limit int, asJSON bool) error {
	p := newFieldPrinter(w, it, asJSON)
	for n := 0; limit <= 0 || n < limit; n++ {
		err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if err := p.print(api.Describe(it, start+n+1)); err != nil {
			return err
		}
	}
	return p.flush()
}

type fieldPrinter struct {
	asJSON bool
	tag    string
	enc    *json.Encoder
	tw     *tabwriter.Writer
	header bool
}

func newFieldPrinter(w io.Writer, it *iterator.Iterator, asJSON bool) *fieldPrinter {
	return &fieldPrinter{
		asJSON: asJSON,
		tag:    it.Filetype().String(),
		enc:    json.NewEncoder(w),
		tw:     tabwriter.NewWriter(w, 0, 4, 2, ' ', 0),
	}
}

func (p *fieldPrinter) print(f api.FieldInfo) error {
	if p.asJSON {
		return p.enc.Encode(struct {
			Filetype string `json:"filetype"`
			api.FieldInfo
		}{p.tag, f})
	}
	if !p.header {
		fmt.Fprintln(p.tw, "#\ttype\tvariable\tparam\tlevel\tvalue\tvalidity\tgrid\tdatatype\ttsteptype")
		p.header = true
	}
	level := fmt.Sprintf("%g", f.Level.Value1)
	if f.Level.Value2 != 0 {
		level = fmt.Sprintf("%g-%g", f.Level.Value1, f.Level.Value2)
	}
	fmt.Fprintf(p.tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s %dx%d\t%s\t%s\n",
		f.Index, p.tag, f.Variable, f.Param, f.Level.Type, level, f.ValidityTime,
		f.Grid.Type, f.Grid.Nx, f.Grid.Ny, f.Datatype, f.TimestepKind)
	return nil
}

func (p *fieldPrinter) flush() error {
	if p.asJSON {
		return nil
	}
	return p.tw.Flush()
}
