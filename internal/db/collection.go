package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
)

// ToggleSave bookmarks a question for the actor, or removes the bookmark if
// one exists. Returns whether the question is saved afterwards.
func (sdb *SharedDB) ToggleSave(ctx context.Context, actorID, questionID int) (saved bool, err error) {
	if actorID == 0 {
		return false, ErrUnauthorized
	}

	var exists int
	err = sdb.db.QueryRow(ctx,
		"SELECT 1 FROM questions WHERE id = $1", questionID).Scan(&exists)
	if err == pgx.ErrNoRows {
		return false, fmt.Errorf("%w: question %d", ErrNotFound, questionID)
	}
	if err != nil {
		return false, err
	}

	var collectionID int
	sql, args, _ := psql.
		Select("id").
		From("collections").
		Where(sq.Eq{"author_id": actorID, "question_id": questionID}).
		ToSql()
	err = sdb.db.QueryRow(ctx, sql, args...).Scan(&collectionID)
	if err == pgx.ErrNoRows {
		sql, args, _ := psql.
			Insert("collections").
			Columns("author_id", "question_id").
			Values(actorID, questionID).
			ToSql()
		if _, err := sdb.db.Exec(ctx, sql, args...); err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	sql, args, _ = psql.
		Delete("collections").
		Where(sq.Eq{"id": collectionID}).
		ToSql()
	if _, err := sdb.db.Exec(ctx, sql, args...); err != nil {
		return false, err
	}
	return false, nil
}

// BookmarkState reports whether the actor has saved the question.
func (sdb *SharedDB) BookmarkState(ctx context.Context, actorID, questionID int) (bool, error) {
	sql, args, _ := psql.
		Select("1").
		From("collections").
		Where(sq.Eq{"author_id": actorID, "question_id": questionID}).
		ToSql()

	var one int
	err := sdb.db.QueryRow(ctx, sql, args...).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
