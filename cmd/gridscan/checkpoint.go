package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func checkpointCmd() *cli.Command {
	var index int64

	return &cli.Command{
		Name:      "checkpoint",
		Usage:     "Print the serialized position of a field",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "field", Usage: "1-based field index", Value: 1, Destination: &index},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return fmt.Errorf("checkpoint: FILE is required")
			}
			it, err := registry.Open(path)
			if err != nil {
				return err
			}
			defer it.Close()
			if err := seek(it, int(index)); err != nil {
				return err
			}
			_, err = fmt.Fprintln(stdout(cmd), it.Serialize())
			return err
		},
	}
}

func resumeCmd() *cli.Command {
	var (
		count  int64
		asJSON bool
	)

	return &cli.Command{
		Name:      "resume",
		Usage:     "Continue listing fields from a serialized position",
		ArgsUsage: "STATE",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "count", Usage: "list at most N more fields (0 = all)", Destination: &count},
			jsonFlag(&asJSON),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			state := strings.Join(cmd.Args().Slice(), " ")
			if state == "" {
				return fmt.Errorf("resume: STATE is required")
			}
			it, err := registry.Deserialize(state)
			if err != nil {
				return err
			}
			defer it.Close()
			return listFields(stdout(cmd), it, 0, int(count), asJSON)
		},
	}
}
