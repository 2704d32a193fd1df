/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"couchmatch/db"
	"couchmatch/server"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sofa catalogue",
		Description: `Starts the catalogue HTTP server.

Serves the paginated listing endpoint on /api/sofas/ and the matching
endpoint on /api/sofas/matching/. The database defaults to an in-memory
SQLite database which is migrated and seeded from the [[sofas]] entries
of the configuration file on startup.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Address to listen on",
				EnvVars: []string{"COUCHMATCH_LISTEN"},
			},
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Usage:   "SQLite database file location, :memory: for an in-memory database",
				EnvVars: []string{"COUCHMATCH_DATABASE"},
			},
			&cli.IntFlag{
				Name:    "page-size",
				Usage:   "Default number of sofas per page",
				EnvVars: []string{"COUCHMATCH_PAGE_SIZE"},
			},
			&cli.IntFlag{
				Name:    "max-page-size",
				Usage:   "Largest page size a client may ask for",
				EnvVars: []string{"COUCHMATCH_MAX_PAGE_SIZE"},
			},
			&cli.StringFlag{
				Name:    "allow-origins",
				Usage:   "Comma separated list of CORS origins",
				EnvVars: []string{"COUCHMATCH_ALLOW_ORIGINS"},
			},
			&cli.DurationFlag{
				Name:    "cache-expiration",
				Usage:   "How long listing responses are cached, 0 disables caching",
				EnvVars: []string{"COUCHMATCH_CACHE_EXPIRATION"},
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return err
			}

			// Flags override the configuration file
			if ctx.IsSet("listen") {
				cfg.Server.Listen = ctx.String("listen")
			}
			if ctx.IsSet("database") {
				cfg.Server.Database = ctx.String("database")
			}
			if ctx.IsSet("page-size") {
				cfg.Server.PageSize = ctx.Int("page-size")
			}
			if ctx.IsSet("max-page-size") {
				cfg.Server.MaxPageSize = ctx.Int("max-page-size")
			}
			if ctx.IsSet("allow-origins") {
				cfg.Server.AllowOrigins = ctx.String("allow-origins")
			}
			if ctx.IsSet("cache-expiration") {
				cfg.Server.CacheExpiration.Duration = ctx.Duration("cache-expiration")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			store, err := db.OpenMigrated(cfg.Server.Database)
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.Seed(ctx.Context, cfg.SeedSofas()); err != nil {
				return fmt.Errorf("failed to seed catalogue: %w", err)
			}

			app := server.Server(&server.ServerConfig{
				Store:           store,
				PageSize:        cfg.Server.PageSize,
				MaxPageSize:     cfg.Server.MaxPageSize,
				AllowOrigins:    cfg.Server.AllowOrigins,
				CacheExpiration: cfg.Server.CacheExpiration.Duration,
			})

			// Graceful shutdown
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)

			go func() {
				select {
				case <-sig:
				case <-ctx.Context.Done():
				}
				log.Info("Gracefully shutting down...")
				if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
					log.WithFields(log.Fields{
						"error": err,
					}).Error("Error shutting down server")
				}
			}()

			log.WithFields(log.Fields{
				"listen":   cfg.Server.Listen,
				"database": cfg.Server.Database,
			}).Info("Starting catalogue server")

			return app.Listen(cfg.Server.Listen)
		},
	}
}
