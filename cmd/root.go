/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"couchmatch/config"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "couchmatch",
		Usage: "Browse and match sofas from a furniture catalogue",
		Description: `Couchmatch serves a sofa catalogue over HTTP and browses it from the
		terminal as an infinitely scrolling feed.

		The catalogue server exposes a paginated listing endpoint and a
		matching endpoint that filters sofas by budget. The browse command
		loads the listing one page at a time as you scroll towards the end.

		Flags can generally be set via environment variables, e.g.:

		--config => COUCHMATCH_CONFIG=couchmatch.toml
		--base-url => COUCHMATCH_BASE_URL=http://localhost:8000
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "couchmatch.toml",
				Usage:   "Path to the configuration file, ignored when missing",
				EnvVars: []string{"COUCHMATCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level: trace, debug, info, warn or error",
				EnvVars: []string{"COUCHMATCH_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			level, err := log.ParseLevel(ctx.String("log-level"))
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			log.SetLevel(level)
			// Stdout is reserved for command output
			log.SetOutput(os.Stderr)
			return nil
		},
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			browseCmd(),
			listCmd(),
			matchCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("Command failed")
		os.Exit(1)
	}
}

// loadConfig reads the file named by the global --config flag. The default
// file is optional, an explicitly set one is not.
func loadConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg, err := config.LoadConfig(ctx.String("config"), ctx.IsSet("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
