package models

import "time"

type TargetType string

const (
	TargetQuestion TargetType = "question"
	TargetAnswer   TargetType = "answer"
)

type VoteType string

const (
	VoteTypeUpvote   VoteType = "upvote"
	VoteTypeDownvote VoteType = "downvote"
)

type Vote struct {
	ID         int
	AuthorID   int        `db:"author_id"`
	TargetID   int        `db:"target_id"`
	TargetType TargetType `db:"target_type"`
	VoteType   VoteType   `db:"vote_type"`
	CreatedAt  time.Time  `db:"created_at"`
}

// VoteState is what a client needs to highlight its own vote buttons.
type VoteState string

const (
	VoteStateNone      VoteState = "notVoted"
	VoteStateUpvoted   VoteState = "upvoted"
	VoteStateDownvoted VoteState = "downvoted"
)
