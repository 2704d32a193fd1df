package db

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory catalogue
const MemoryDSN = ":memory:"

func connection(database string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", database)
	if err != nil {
		return nil, err
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// only exists on the connection that created it
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // Never recycle the connection
	db.SetConnMaxIdleTime(0)

	pragmas := `
		PRAGMA foreign_keys = ON;
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -32000; -- 32MB cache
		PRAGMA temp_store = MEMORY;
	`
	if !isMemory(database) {
		pragmas += "PRAGMA journal_mode = WAL;"
	}

	if _, err := db.Exec(pragmas); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return db, nil
}

func isMemory(database string) bool {
	return database == MemoryDSN || strings.Contains(database, "mode=memory")
}
