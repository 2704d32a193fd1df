/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"couchmatch/tui"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func browseCmd() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse the catalogue in the terminal",
		Description: `Shows the catalogue as a scrolling list of product cards.

The first page is loaded when the view opens. Scrolling to within
--trigger-distance cards of the end loads the next page, until the
catalogue reports that there are no more pages. A failed page can be
retried with r.

Logs would corrupt the terminal view, so they are discarded unless
--log-file is given.`,
		Flags: append(clientFlags(),
			&cli.IntFlag{
				Name:    "trigger-distance",
				Usage:   "Cards from the end of the list at which the next page is loaded",
				EnvVars: []string{"COUCHMATCH_TRIGGER_DISTANCE"},
			},
			&cli.BoolFlag{
				Name:    "dedupe",
				Usage:   "Hide sofas already shown when a later page repeats them",
				EnvVars: []string{"COUCHMATCH_DEDUPE"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Write logs to this file while the view is open",
				EnvVars: []string{"COUCHMATCH_LOG_FILE"},
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, err := clientConfig(ctx)
			if err != nil {
				return err
			}

			client, err := connect(ctx, cfg)
			if err != nil {
				return err
			}

			if path := ctx.String("log-file"); path != "" {
				f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("could not open log file %s: %w", path, err)
				}
				defer f.Close()
				log.SetOutput(f)
			} else {
				log.SetOutput(io.Discard)
			}
			defer log.SetOutput(os.Stderr)

			controller := sofaFeed(ctx, cfg, client)
			defer controller.Close()

			log.WithField("feed", controller.ID()).Info("Browsing catalogue")
			return tui.Run(ctx.Context, controller, cfg.Client.TriggerDistance)
		},
	}
}
