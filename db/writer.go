package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"couchmatch/models"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("sofa not found")

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CreateSofa inserts a sofa and returns its id. The discounted price is
// always derived from price and discount.
func (db *DB) CreateSofa(ctx context.Context, sofa models.Sofa) (int64, error) {
	return createSofa(ctx, db.db, sofa)
}

func createSofa(ctx context.Context, ex execer, sofa models.Sofa) (int64, error) {
	if sofa.Name == "" {
		return 0, fmt.Errorf("name is required")
	}
	if sofa.Price <= 0 {
		return 0, fmt.Errorf("price must be a positive number")
	}
	if sofa.Discount < 0 || sofa.Discount > 100 {
		return 0, fmt.Errorf("discount must be between 0 and 100")
	}
	if sofa.Quantity < 0 {
		return 0, fmt.Errorf("quantity must not be negative")
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("sofas").
		Cols("name", "image", "price", "original_price", "quantity", "discount", "description").
		Values(
			sofa.Name,
			sofa.Image,
			sofa.Price,
			models.DiscountedPrice(sofa.Price, sofa.Discount),
			sofa.Quantity,
			sofa.Discount,
			sofa.Description,
		)

	sql, args := ib.Build()
	res, err := ex.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert error: %w", err)
	}

	log.WithFields(log.Fields{
		"id":   id,
		"name": sofa.Name,
	}).Debug("Created sofa")

	return id, nil
}

// Seed inserts the sofas in one transaction when the catalogue is empty and
// returns how many were inserted
func (db *DB) Seed(ctx context.Context, sofas []models.Sofa) (int, error) {
	count, err := db.CountSofas(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		log.WithFields(log.Fields{
			"existing": count,
		}).Info("Catalogue already seeded")
		return 0, nil
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for i, sofa := range sofas {
		if _, err := createSofa(ctx, tx, sofa); err != nil {
			return 0, fmt.Errorf("seed sofa %d (%s): %w", i, sofa.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}

	log.WithFields(log.Fields{
		"count": len(sofas),
	}).Info("Seeded catalogue")

	return len(sofas), nil
}
