package main

import "github.com/urfave/cli/v3"

var (
	configFile      string
	logLevel        string
	logFormat       string
	debug           bool
	disabledFormats []string
)

func globalFlags() []cli.Flag {
	return append(loggingFlags(),
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml",
			Sources:     cli.EnvVars("GRIDSCAN_CONFIG"),
			Destination: &configFile,
		},
		&cli.StringSliceFlag{
			Name:        "disable",
			Usage:       "file types or families to treat as unavailable",
			Destination: &disabledFormats,
		},
	)
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func jsonFlag(dst *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "json",
		Usage:       "emit one JSON object per field",
		Destination: dst,
	}
}
