package db

import (
	"context"
	"database/sql"
	"fmt"

	"couchmatch/models"
	"couchmatch/query"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

var sofaColumns = []string{"id", "name", "image", "price", "original_price", "quantity", "discount", "description"}

// ListSofas returns one page of sofas in insertion order together with the
// number of sofas matching the filters. Pages start at 1.
func (db *DB) ListSofas(ctx context.Context, page, size int, filters ...query.FilterStrategy) ([]models.Sofa, int, error) {
	if page < 1 || size < 1 {
		return nil, 0, fmt.Errorf("invalid page %d of size %d", page, size)
	}

	count, err := db.CountSofas(ctx, filters...)
	if err != nil {
		return nil, 0, err
	}

	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(sofaColumns...).From("sofas")
	query.Apply(sb, filters...)
	sb.OrderBy("id").Asc()
	sb.Limit(size).Offset((page - 1) * size)

	sql, args := sb.Build()

	log.WithFields(log.Fields{
		"page": page,
		"size": size,
		"sql":  sql,
	}).Debug("Listing sofas")

	sofas, err := db.querySofas(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	return sofas, count, nil
}

// CountSofas returns the number of sofas matching the filters
func (db *DB) CountSofas(ctx context.Context, filters ...query.FilterStrategy) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("sofas")
	query.Apply(sb, filters...)

	sql, args := sb.Build()

	var count int
	if err := db.db.QueryRowContext(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count error: %w", err)
	}
	return count, nil
}

// MatchSofas returns every sofa matching the filters
func (db *DB) MatchSofas(ctx context.Context, filters ...query.FilterStrategy) ([]models.Sofa, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(sofaColumns...).From("sofas")
	query.Apply(sb, filters...)
	sb.OrderBy("id").Asc()

	sql, args := sb.Build()
	return db.querySofas(ctx, sql, args...)
}

// GetSofa returns a single sofa, or ErrNotFound
func (db *DB) GetSofa(ctx context.Context, id int64) (*models.Sofa, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(sofaColumns...).From("sofas").Where(sb.Equal("id", id))

	sql, args := sb.Build()
	sofas, err := db.querySofas(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	if len(sofas) == 0 {
		return nil, ErrNotFound
	}
	return &sofas[0], nil
}

func (db *DB) querySofas(ctx context.Context, query string, args ...interface{}) ([]models.Sofa, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	sofas := []models.Sofa{}
	for rows.Next() {
		var sofa models.Sofa
		var description sql.NullString
		if err := rows.Scan(
			&sofa.Id,
			&sofa.Name,
			&sofa.Image,
			&sofa.Price,
			&sofa.OriginalPrice,
			&sofa.Quantity,
			&sofa.Discount,
			&description,
		); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		if description.Valid {
			sofa.Description = &description.String
		}
		sofas = append(sofas, sofa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sofas, nil
}
