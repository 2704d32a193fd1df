/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"couchmatch/db"

	"github.com/urfave/cli/v2"
)

func databaseFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database",
		Aliases: []string{"d"},
		Usage:   "SQLite database file location, defaults to server.database of the config",
		EnvVars: []string{"COUCHMATCH_DATABASE"},
	}
}

// openDatabase opens the database named by --database or the configuration
func openDatabase(ctx *cli.Context) (*db.DB, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	database := cfg.Server.Database
	if ctx.IsSet("database") {
		database = ctx.String("database")
	}
	fmt.Println("Database configured:", database)
	return db.Open(database)
}

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Run database migrations",
		Description: `Runs database migrations on the configured database. Will create the database if it does not exist.`,
		Flags:       []cli.Flag{databaseFlag()},
		Action: func(ctx *cli.Context) error {
			store, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Migrate()
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:        "rollback",
		Usage:       "Rollback database migration",
		Description: `Rolls back the last database migration`,
		Flags:       []cli.Flag{databaseFlag()},
		Action: func(ctx *cli.Context) error {
			store, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Rollback()
		},
	}
}
