/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"couchmatch/catalog"
	"couchmatch/config"
	"couchmatch/feed"
	"couchmatch/models"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// clientFlags are shared by the commands talking to a catalogue server
func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "base-url",
			Aliases: []string{"u"},
			Usage:   "Base URL of the catalogue API",
			EnvVars: []string{"COUCHMATCH_BASE_URL"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Timeout of a single catalogue request",
			EnvVars: []string{"COUCHMATCH_TIMEOUT"},
		},
		&cli.DurationFlag{
			Name:    "wait",
			Usage:   "How long to wait for the catalogue to come up, 0 to not wait",
			EnvVars: []string{"COUCHMATCH_WAIT"},
		},
	}
}

// clientConfig loads the configuration and applies the client flags to it
func clientConfig(ctx *cli.Context) (*config.TomlConfig, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	if ctx.IsSet("base-url") {
		cfg.Client.BaseURL = ctx.String("base-url")
	}
	if ctx.IsSet("timeout") {
		cfg.Client.Timeout.Duration = ctx.Duration("timeout")
	}
	if ctx.IsSet("trigger-distance") {
		cfg.Client.TriggerDistance = ctx.Int("trigger-distance")
	}
	if ctx.IsSet("dedupe") {
		cfg.Client.Dedupe = ctx.Bool("dedupe")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// connect creates a catalogue client and optionally waits for the server
func connect(ctx *cli.Context, cfg *config.TomlConfig) (*catalog.Client, error) {
	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL: cfg.Client.BaseURL,
		Timeout: cfg.Client.Timeout.Duration,
	})

	if wait := ctx.Duration("wait"); wait > 0 {
		log.WithFields(log.Fields{
			"base_url": cfg.Client.BaseURL,
			"wait":     wait,
		}).Info("Waiting for catalogue")
		if err := client.WaitReady(ctx.Context, wait); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// sofaFeed creates a feed over the listing endpoint
func sofaFeed(ctx *cli.Context, cfg *config.TomlConfig, client *catalog.Client) *feed.Controller[models.Sofa] {
	feedConfig := feed.Config[models.Sofa]{
		Logger: log.WithField("base_url", cfg.Client.BaseURL),
	}
	if cfg.Client.Dedupe {
		feedConfig.Key = models.Sofa.Key
	}
	return feed.New[models.Sofa](ctx.Context, client, feedConfig)
}
