package db

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"

	"github.com/devflowhq/devflow/internal/models"
)

// UserStats aggregates the user's lifetime counts and maps them to badge
// tiers. The question-side and answer-side aggregates run inside one
// repeatable-read read-only transaction so both sums come from the same
// snapshot.
func (sdb *SharedDB) UserStats(ctx context.Context, userID int) (*models.UserStats, error) {
	var exists int
	err := sdb.db.QueryRow(ctx, "SELECT 1 FROM users WHERE id = $1", userID).Scan(&exists)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}

	tx, err := sdb.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var qSide struct {
		Count   int
		Upvotes int
		Views   int
	}
	err = pgxscan.Get(ctx, tx, &qSide,
		`SELECT COUNT(*) AS count,
		        COALESCE(SUM(upvotes), 0) AS upvotes,
		        COALESCE(SUM(views), 0) AS views
		   FROM questions WHERE author_id = $1`,
		userID)
	if err != nil {
		return nil, err
	}

	var aSide struct {
		Count   int
		Upvotes int
	}
	err = pgxscan.Get(ctx, tx, &aSide,
		`SELECT COUNT(*) AS count,
		        COALESCE(SUM(upvotes), 0) AS upvotes
		   FROM answers WHERE author_id = $1`,
		userID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	badges := models.AssignBadges([]models.CriterionCount{
		{Kind: models.CriterionQuestionCount, Count: qSide.Count},
		{Kind: models.CriterionAnswerCount, Count: aSide.Count},
		{Kind: models.CriterionQuestionUpvotes, Count: qSide.Upvotes + aSide.Upvotes},
		{Kind: models.CriterionTotalViews, Count: qSide.Views},
	})

	return &models.UserStats{
		TotalQuestions: qSide.Count,
		TotalAnswers:   aSide.Count,
		Badges:         badges,
	}, nil
}
