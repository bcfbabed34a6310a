package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"golang.org/x/crypto/bcrypt"

	"github.com/devflowhq/devflow/internal/models"
	"github.com/devflowhq/devflow/internal/utils"
)

// CreateUser registers a user with a bcrypt-hashed password.
func (sdb *SharedDB) CreateUser(ctx context.Context, user *models.User, passwd string) error {
	if !utils.ValidateEmail(user.Email) {
		return ErrInvalidFormat
	}

	var exists bool
	err := pgxscan.Get(ctx, sdb.db, &exists,
		"SELECT exists(SELECT 1 FROM users WHERE email = $1)", user.Email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyUsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passwd), sdb.bcryptCost)
	if err != nil {
		return err
	}

	sql, args, _ := psql.
		Insert("users").
		Columns("name", "email", "passwd_hash").
		Values(user.Name, user.Email, hash).
		Suffix("RETURNING id, created_at").
		ToSql()

	return sdb.db.QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt)
}

// Login verifies credentials and mints a session token.
func (sdb *SharedDB) Login(ctx context.Context, email, passwd string) (token string, err error) {
	sql, args, _ := psql.
		Select("id", "passwd_hash").
		From("users").
		Where(sq.Eq{"email": email}).
		ToSql()

	var data struct {
		ID         int
		PasswdHash string
	}
	err = pgxscan.Get(ctx, sdb.db, &data, sql, args...)
	if pgxscan.NotFound(err) {
		return "", ErrUnauthorized
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(data.PasswdHash), []byte(passwd)) != nil {
		return "", ErrUnauthorized
	}

	token = utils.GenToken(TokenLen)
	sql, args, _ = psql.
		Insert("tokens").
		Columns("user_id", "token").
		Values(data.ID, token).
		ToSql()
	if _, err := sdb.db.Exec(ctx, sql, args...); err != nil {
		return "", err
	}
	return token, nil
}

func (sdb *SharedDB) Signout(ctx context.Context, token string) error {
	_, err := sdb.db.Exec(ctx, "DELETE FROM tokens WHERE tokens.token = $1", token)
	return err
}

// UserByToken resolves the actor identity behind a session token.
func (sdb *SharedDB) UserByToken(ctx context.Context, token string) (*models.User, error) {
	sql, args, _ := psql.
		Select("users.id", "users.name", "users.email", "users.created_at").
		From("users").
		Join("tokens ON tokens.user_id = users.id").
		Where(sq.Eq{"tokens.token": token}).
		ToSql()

	var user models.User
	err := pgxscan.Get(ctx, sdb.db, &user, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, fmt.Errorf("%w: unknown token", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
