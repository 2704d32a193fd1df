package db

import (
	"context"
	"fmt"

	"database/sql"

	log "github.com/sirupsen/logrus"
)

// DB is the sofa catalogue store
type DB struct {
	db *sql.DB
}

// Open connects to the SQLite database at dsn, MemoryDSN for an in-memory one
func Open(dsn string) (*DB, error) {
	conn, err := connection(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database %s: %w", dsn, err)
	}

	log.WithFields(log.Fields{
		"database": dsn,
	}).Info("Connected to catalogue database")

	return &DB{db: conn}, nil
}

// OpenMigrated opens the database and brings its schema up to date
func OpenMigrated(dsn string) (*DB, error) {
	database, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.db.Close()
}
