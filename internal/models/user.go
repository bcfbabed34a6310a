package models

import "time"

type User struct {
	ID        int
	Name      string
	Email     string
	CreatedAt time.Time `db:"created_at"`
}
