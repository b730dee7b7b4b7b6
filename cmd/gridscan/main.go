package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/gridscan/internal/logger"
	"github.com/samcharles93/gridscan/pkg/filetype"
	"github.com/samcharles93/gridscan/pkg/iterator"
)

// registry is built by the root Before hook and shared by every command.
var registry *iterator.Registry

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "gridscan",
		Usage:  "Iterate over fields of GRIB, NetCDF, SERVICE, EXTRA and IEG files",
		Flags:  globalFlags(),
		Before: setup,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			inspectCmd(),
			dumpCmd(),
			checkpointCmd(),
			resumeCmd(),
			formatsCmd(),
			synthCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

// setup merges the config file into the global flags, installs the logger
// and builds the registry.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configPath())
	if err != nil {
		return ctx, err
	}
	applyGlobalConfig(cmd, cfg)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = slog.LevelDebug
	}
	log, err := logger.ForFormat(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, err
	}

	var disabled []filetype.Type
	for _, name := range disabledFormats {
		types, err := filetype.Parse(name)
		if err != nil {
			return ctx, fmt.Errorf("--disable: %w", err)
		}
		disabled = append(disabled, types...)
	}
	registry = iterator.NewRegistry(iterator.WithLogger(log), iterator.WithDisabled(disabled...))
	return logger.WithContext(ctx, log), nil
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
