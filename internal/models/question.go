package models

import "time"

type Question struct {
	ID        int
	Title     string
	Content   string
	AuthorID  int `db:"author_id"`
	Upvotes   int
	Downvotes int
	Answers   int
	Views     int
	TagIDs    []int32   `db:"tag_ids"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// Tag names resolved through the join table; not a column.
	Tags []string
}

type Answer struct {
	ID         int
	QuestionID int `db:"question_id"`
	AuthorID   int `db:"author_id"`
	Content    string
	Upvotes    int
	Downvotes  int
	CreatedAt  time.Time `db:"created_at"`
}

type Tag struct {
	ID            int
	Name          string
	QuestionCount int       `db:"question_count"`
	CreatedAt     time.Time `db:"created_at"`
}
