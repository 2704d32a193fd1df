/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print the catalogue as JSON lines",
		Description: `Walks the listing endpoint page by page and prints every sofa as
a JSON object on a single line. Use a tool like jq to process the output.

Stops after --pages pages, or when the catalogue has no more pages.
Prints all log messages to stderr.`,
		Flags: append(clientFlags(),
			&cli.IntFlag{
				Name:    "pages",
				Aliases: []string{"n"},
				Usage:   "Maximum number of pages to load, 0 for all",
				Value:   0,
			},
			&cli.BoolFlag{
				Name:    "dedupe",
				Usage:   "Skip sofas already printed when a later page repeats them",
				EnvVars: []string{"COUCHMATCH_DEDUPE"},
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

			controller := sofaFeed(ctx, cfg, client)
			defer controller.Close()

			encoder := json.NewEncoder(os.Stdout)
			printed := 0
			for pages := 0; ctx.Int("pages") == 0 || pages < ctx.Int("pages"); pages++ {
				if !controller.FetchNextPage(ctx.Context) {
					break
				}

				snap := controller.Snapshot()
				if snap.Err != nil {
					return fmt.Errorf("unable to load page %d: %w", snap.Cursor, snap.Err)
				}
				for _, sofa := range snap.Items[printed:] {
					if err := encoder.Encode(sofa); err != nil {
						return err
					}
				}
				printed = len(snap.Items)
			}

			log.WithFields(log.Fields{
				"feed":  controller.ID(),
				"items": printed,
			}).Info("Listed catalogue")

			return nil
		},
	}
}
