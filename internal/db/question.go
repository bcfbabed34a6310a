package db

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"

	"github.com/devflowhq/devflow/internal/models"
)

// CreateQuestion inserts the question and attaches its tags in one
// transaction. Tag names are upserted case-insensitively; a fresh tag starts
// with question_count = 1, an existing one is incremented, both through the
// same atomic statement.
func (sdb *SharedDB) CreateQuestion(ctx context.Context, authorID int, title, content string, tagNames []string) (*models.Question, error) {
	if authorID == 0 {
		return nil, ErrUnauthorized
	}

	q := &models.Question{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	}
	err := execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		sql, args, _ := psql.
			Insert("questions").
			Columns("title", "content", "author_id").
			Values(title, content, authorID).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()

		row := tx.QueryRow(ctx, sql, args...)
		if err := row.Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return err
		}
		return reconcileTags(ctx, tx, q, tagNames)
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

// EditQuestion updates title/content and reconciles the tag set, owner only.
func (sdb *SharedDB) EditQuestion(ctx context.Context, questionID, authorID int, title, content string, tagNames []string) (*models.Question, error) {
	if authorID == 0 {
		return nil, ErrUnauthorized
	}

	var q models.Question
	err := execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		// Lock the question row so concurrent edits of the same question
		// serialize instead of interleaving their tag adjustments.
		sql, args, _ := psql.
			Select("*").
			From("questions").
			Where(sq.Eq{"id": questionID}).
			Suffix("FOR UPDATE").
			ToSql()

		err := pgxscan.Get(ctx, tx, &q, sql, args...)
		if pgxscan.NotFound(err) {
			return fmt.Errorf("%w: question %d", ErrNotFound, questionID)
		}
		if err != nil {
			return err
		}
		if q.AuthorID != authorID {
			return ErrForbidden
		}

		if q.Title != title || q.Content != content {
			q.Title = title
			q.Content = content
			sql, args, _ := psql.
				Update("questions").
				Set("title", title).
				Set("content", content).
				Set("updated_at", sq.Expr("now()")).
				Where(sq.Eq{"id": questionID}).
				ToSql()
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return err
			}
		}
		return reconcileTags(ctx, tx, &q, tagNames)
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// reconcileTags diffs the desired tag names against the question's current
// tags (case-insensitive) and applies the minimal adjustments: attach what is
// missing, detach what is no longer wanted, leave the rest untouched. Tag
// rows are never deleted, their question_count just moves.
func reconcileTags(ctx context.Context, tx DBTX, q *models.Question, desired []string) error {
	if len(desired) > LimitMaxTags {
		return ErrTooManyTags
	}

	sql, args, _ := psql.
		Select("t.id", "t.name").
		From("tags t").
		Join("tag_questions tq ON t.id = tq.tag_id").
		Where(sq.Eq{"tq.question_id": q.ID}).
		ToSql()

	var current []*models.Tag
	if err := pgxscan.Select(ctx, tx, &current, sql, args...); err != nil {
		return err
	}

	currentByName := make(map[string]*models.Tag, len(current))
	for _, t := range current {
		currentByName[strings.ToLower(t.Name)] = t
	}
	desiredSet := make(map[string]bool, len(desired))

	q.Tags = q.Tags[:0]
	for _, name := range desired {
		lower := strings.ToLower(name)
		if desiredSet[lower] {
			continue
		}
		desiredSet[lower] = true

		if t, ok := currentByName[lower]; ok {
			q.Tags = append(q.Tags, t.Name)
			continue
		}
		t, err := upsertTag(ctx, tx, name)
		if err != nil {
			return err
		}
		if err := attachTag(ctx, tx, t.ID, q.ID); err != nil {
			return err
		}
		q.Tags = append(q.Tags, t.Name)
	}

	var removeIDs []int
	for _, t := range current {
		if !desiredSet[strings.ToLower(t.Name)] {
			removeIDs = append(removeIDs, t.ID)
		}
	}
	if len(removeIDs) > 0 {
		if err := detachTags(ctx, tx, removeIDs, q.ID); err != nil {
			return err
		}
	}

	// Refresh the denormalized tag id array on the question.
	sql, args, _ = psql.
		Select("tag_ids").
		From("questions").
		Where(sq.Eq{"id": q.ID}).
		ToSql()
	return tx.QueryRow(ctx, sql, args...).Scan(&q.TagIDs)
}

// upsertTag resolves a tag name case-insensitively, creating the row if it
// doesn't exist. Creation and increment happen in one statement, so two
// concurrent first uses of the same name can't double count.
func upsertTag(ctx context.Context, tx DBTX, name string) (*models.Tag, error) {
	var t models.Tag
	row := tx.QueryRow(ctx,
		`INSERT INTO tags (name, question_count) VALUES ($1, 1)
		 ON CONFLICT (lower(name))
		 DO UPDATE SET question_count = tags.question_count + 1
		 RETURNING id, name`,
		name)
	if err := row.Scan(&t.ID, &t.Name); err != nil {
		return nil, err
	}
	return &t, nil
}

func attachTag(ctx context.Context, tx DBTX, tagID, questionID int) error {
	sql, args, _ := psql.
		Insert("tag_questions").
		Columns("tag_id", "question_id").
		Values(tagID, questionID).
		ToSql()
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return err
	}
	_, err := tx.Exec(ctx,
		"UPDATE questions SET tag_ids = array_append(tag_ids, $1) WHERE id = $2",
		tagID, questionID)
	return err
}

func detachTags(ctx context.Context, tx DBTX, tagIDs []int, questionID int) error {
	sql, args, _ := psql.
		Update("tags").
		Set("question_count", sq.Expr("question_count - 1")).
		Where(sq.Eq{"id": tagIDs}).
		ToSql()
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return err
	}

	sql, args, _ = psql.
		Delete("tag_questions").
		Where(sq.Eq{"tag_id": tagIDs, "question_id": questionID}).
		ToSql()
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return err
	}

	for _, id := range tagIDs {
		_, err := tx.Exec(ctx,
			"UPDATE questions SET tag_ids = array_remove(tag_ids, $1) WHERE id = $2",
			id, questionID)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetQuestion loads a question with its tag names resolved.
func (sdb *SharedDB) GetQuestion(ctx context.Context, questionID int) (*models.Question, error) {
	sql, args, _ := psql.
		Select("*").
		From("questions").
		Where(sq.Eq{"id": questionID}).
		ToSql()

	var q models.Question
	err := pgxscan.Get(ctx, sdb.db, &q, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, fmt.Errorf("%w: question %d", ErrNotFound, questionID)
	}
	if err != nil {
		return nil, err
	}

	sql, args, _ = psql.
		Select("t.name").
		From("tags t").
		Join("tag_questions tq ON t.id = tq.tag_id").
		Where(sq.Eq{"tq.question_id": questionID}).
		OrderBy("t.name").
		ToSql()
	err = pgxscan.Select(ctx, sdb.db, &q.Tags, sql, args...)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// IncrementViews bumps the view counter and returns the new value.
func (sdb *SharedDB) IncrementViews(ctx context.Context, questionID int) (int, error) {
	var views int
	err := sdb.db.QueryRow(ctx,
		"UPDATE questions SET views = views + 1 WHERE id = $1 RETURNING views",
		questionID).Scan(&views)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("%w: question %d", ErrNotFound, questionID)
	}
	if err != nil {
		return 0, err
	}
	return views, nil
}

// DeleteQuestion removes a question and everything hanging off it: tag join
// rows (decrementing each tag's question_count), votes on the question and
// its answers, bookmarks and the answers themselves. Owner only, one
// transaction.
func (sdb *SharedDB) DeleteQuestion(ctx context.Context, questionID, authorID int) error {
	if authorID == 0 {
		return ErrUnauthorized
	}
	return execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		var q models.Question
		sql, args, _ := psql.
			Select("*").
			From("questions").
			Where(sq.Eq{"id": questionID}).
			Suffix("FOR UPDATE").
			ToSql()
		err := pgxscan.Get(ctx, tx, &q, sql, args...)
		if pgxscan.NotFound(err) {
			return fmt.Errorf("%w: question %d", ErrNotFound, questionID)
		}
		if err != nil {
			return err
		}
		if q.AuthorID != authorID {
			return ErrForbidden
		}

		var tagIDs []int
		for _, id := range q.TagIDs {
			tagIDs = append(tagIDs, int(id))
		}
		if len(tagIDs) > 0 {
			if err := detachTags(ctx, tx, tagIDs, questionID); err != nil {
				return err
			}
		}

		stmts := []string{
			`DELETE FROM votes WHERE target_type = 'answer'
			   AND target_id IN (SELECT id FROM answers WHERE question_id = $1)`,
			`DELETE FROM votes WHERE target_type = 'question' AND target_id = $1`,
			`DELETE FROM collections WHERE question_id = $1`,
			`DELETE FROM answers WHERE question_id = $1`,
			`DELETE FROM questions WHERE id = $1`,
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt, questionID); err != nil {
				return err
			}
		}
		return nil
	})
}
