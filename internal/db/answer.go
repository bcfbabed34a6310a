package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"

	"github.com/devflowhq/devflow/internal/models"
)

// CreateAnswer inserts the answer and bumps the question's denormalized
// answer count in the same transaction. A missing question aborts the whole
// thing, including the already-written answer row.
func (sdb *SharedDB) CreateAnswer(ctx context.Context, authorID, questionID int, content string) (*models.Answer, error) {
	if authorID == 0 {
		return nil, ErrUnauthorized
	}

	a := &models.Answer{
		QuestionID: questionID,
		AuthorID:   authorID,
		Content:    content,
	}
	err := execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		// Bumping the counter first both rejects a missing question and
		// locks its row for the rest of the transaction.
		tag, err := tx.Exec(ctx,
			"UPDATE questions SET answers = answers + 1 WHERE id = $1",
			questionID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: question %d", ErrNotFound, questionID)
		}

		sql, args, _ := psql.
			Insert("answers").
			Columns("question_id", "author_id", "content").
			Values(questionID, authorID, content).
			Suffix("RETURNING id, created_at").
			ToSql()
		return tx.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAnswer reverses CreateAnswer, owner only. Votes on the answer go
// with it so the ledger never references a dead target.
func (sdb *SharedDB) DeleteAnswer(ctx context.Context, answerID, authorID int) error {
	if authorID == 0 {
		return ErrUnauthorized
	}
	return execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		var a models.Answer
		sql, args, _ := psql.
			Select("*").
			From("answers").
			Where(sq.Eq{"id": answerID}).
			Suffix("FOR UPDATE").
			ToSql()
		err := pgxscan.Get(ctx, tx, &a, sql, args...)
		if pgxscan.NotFound(err) {
			return fmt.Errorf("%w: answer %d", ErrNotFound, answerID)
		}
		if err != nil {
			return err
		}
		if a.AuthorID != authorID {
			return ErrForbidden
		}

		if _, err := tx.Exec(ctx,
			"DELETE FROM votes WHERE target_type = 'answer' AND target_id = $1",
			answerID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM answers WHERE id = $1", answerID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			"UPDATE questions SET answers = answers - 1 WHERE id = $1",
			a.QuestionID)
		return err
	})
}

func (sdb *SharedDB) ListAnswers(ctx context.Context, questionID int) ([]*models.Answer, error) {
	sql, args, _ := psql.
		Select("*").
		From("answers").
		Where(sq.Eq{"question_id": questionID}).
		OrderBy("created_at DESC").
		ToSql()

	var answers []*models.Answer
	err := pgxscan.Select(ctx, sdb.db, &answers, sql, args...)
	if err != nil {
		return nil, err
	}
	return answers, nil
}
