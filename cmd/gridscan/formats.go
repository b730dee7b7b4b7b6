package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gridscan/pkg/filetype"
)

func formatsCmd() *cli.Command {
	return &cli.Command{
		Name:  "formats",
		Usage: "List the file types and whether this build can read them",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tw := tabwriter.NewWriter(stdout(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "type\ttag\tfamily\tstatus")
			for _, ft := range filetype.Types() {
				status := "available"
				if err := registry.Status(ft); err != nil {
					status = "unavailable"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ft, ft.Tag(), ft.Family(), status)
			}
			return tw.Flush()
		},
	}
}
