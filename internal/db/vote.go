package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"

	"github.com/devflowhq/devflow/internal/models"
)

// voteTargetTables maps a vote target to the table holding its counters.
// Dispatch is resolved here, explicitly, instead of through any runtime
// model lookup.
var voteTargetTables = map[models.TargetType]string{
	models.TargetQuestion: "questions",
	models.TargetAnswer:   "answers",
}

func voteColumn(voteType models.VoteType) string {
	if voteType == models.VoteTypeUpvote {
		return "upvotes"
	}
	return "downvotes"
}

// RecordVote reconciles one vote request against the ledger and adjusts the
// target's counters, all inside a single transaction:
//
//   - no previous vote: insert it, counter +1
//   - same direction again: remove it, counter -1 (un-vote)
//   - opposite direction: flip it, old counter -1, new counter +1
//
// The votes table carries a unique index on (author_id, target_id,
// target_type), so two concurrent first votes by the same user conflict and
// one of them aborts cleanly.
func (sdb *SharedDB) RecordVote(ctx context.Context, actorID int, targetID int, targetType models.TargetType, voteType models.VoteType) error {
	if actorID == 0 {
		return ErrUnauthorized
	}
	table, ok := voteTargetTables[targetType]
	if !ok {
		return fmt.Errorf("%w: unknown target type %q", ErrInvalidFormat, targetType)
	}

	return execTx(ctx, sdb.db, func(ctx context.Context, tx DBTX) error {
		sql, args, _ := psql.
			Select("*").
			From("votes").
			Where(sq.Eq{
				"author_id":   actorID,
				"target_id":   targetID,
				"target_type": targetType,
			}).
			ToSql()

		var existing models.Vote
		err := pgxscan.Get(ctx, tx, &existing, sql, args...)
		switch {
		case pgxscan.NotFound(err):
			sql, args, _ := psql.
				Insert("votes").
				Columns("author_id", "target_id", "target_type", "vote_type").
				Values(actorID, targetID, targetType, voteType).
				ToSql()
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return err
			}
			return updateVoteCount(ctx, tx, table, targetID, voteType, +1)
		case err != nil:
			return err
		case existing.VoteType == voteType:
			sql, args, _ := psql.
				Delete("votes").
				Where(sq.Eq{"id": existing.ID}).
				ToSql()
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return err
			}
			return updateVoteCount(ctx, tx, table, targetID, voteType, -1)
		default:
			sql, args, _ := psql.
				Update("votes").
				Set("vote_type", voteType).
				Where(sq.Eq{"id": existing.ID}).
				ToSql()
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return err
			}
			if err := updateVoteCount(ctx, tx, table, targetID, existing.VoteType, -1); err != nil {
				return err
			}
			return updateVoteCount(ctx, tx, table, targetID, voteType, +1)
		}
	})
}

// updateVoteCount applies a relative adjustment so concurrent transactions on
// the same target can't lose updates. A missing target surfaces as
// ErrNotFound and aborts the surrounding transaction.
func updateVoteCount(ctx context.Context, tx DBTX, table string, targetID int, voteType models.VoteType, change int) error {
	col := voteColumn(voteType)
	tag, err := tx.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET %s = %s + $1 WHERE id = $2", table, col, col),
		change, targetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, table, targetID)
	}
	return nil
}

// VoteState reports whether (and how) the actor has voted on a target.
func (sdb *SharedDB) VoteState(ctx context.Context, actorID int, targetID int, targetType models.TargetType) (models.VoteState, error) {
	if actorID == 0 {
		return "", ErrUnauthorized
	}
	sql, args, _ := psql.
		Select("vote_type").
		From("votes").
		Where(sq.Eq{
			"author_id":   actorID,
			"target_id":   targetID,
			"target_type": targetType,
		}).
		ToSql()

	var voteType string
	err := sdb.db.QueryRow(ctx, sql, args...).Scan(&voteType)
	if err == pgx.ErrNoRows {
		return models.VoteStateNone, nil
	}
	if err != nil {
		return "", err
	}
	if models.VoteType(voteType) == models.VoteTypeUpvote {
		return models.VoteStateUpvoted, nil
	}
	return models.VoteStateDownvoted, nil
}

// CountVotes recounts the ledger directly, bypassing the denormalized
// counters. Used by tests to check the counters never drift.
func (sdb *SharedDB) CountVotes(ctx context.Context, targetID int, targetType models.TargetType) (upvotes, downvotes int, err error) {
	sql, args, _ := psql.
		Select("vote_type", "COUNT(*)").
		From("votes").
		Where(sq.Eq{"target_id": targetID, "target_type": targetType}).
		GroupBy("vote_type").
		ToSql()

	rows, err := sdb.db.Query(ctx, sql, args...)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	for rows.Next() {
		var voteType string
		var count int
		if err := rows.Scan(&voteType, &count); err != nil {
			return 0, 0, err
		}
		if voteType == string(models.VoteTypeUpvote) {
			upvotes = count
		} else {
			downvotes = count
		}
	}
	return upvotes, downvotes, rows.Err()
}
