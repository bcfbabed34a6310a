package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"

	"github.com/devflowhq/devflow/internal/models"
)

// ListTags returns the tag vocabulary. Sort modes mirror the tag browsing
// filters of the UI; anything unknown falls back to popularity.
func (sdb *SharedDB) ListTags(ctx context.Context, filter string) ([]*models.Tag, error) {
	var order string
	switch filter {
	case "recent":
		order = "created_at DESC"
	case "oldest":
		order = "created_at ASC"
	case "name":
		order = "name ASC"
	default:
		order = "question_count DESC"
	}

	sql, args, _ := psql.
		Select("*").
		From("tags").
		OrderBy(order).
		ToSql()

	var tags []*models.Tag
	err := pgxscan.Select(ctx, sdb.db, &tags, sql, args...)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// GetTagByName resolves a tag case-insensitively.
func (sdb *SharedDB) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	sql, args, _ := psql.
		Select("*").
		From("tags").
		Where(sq.Expr("lower(name) = lower(?)", name)).
		ToSql()

	var t models.Tag
	err := pgxscan.Get(ctx, sdb.db, &t, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, fmt.Errorf("%w: tag %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
