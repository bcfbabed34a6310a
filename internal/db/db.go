package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/devflowhq/devflow/internal/models"
)

const (
	LimitMaxTags   = 5
	LimitMaxTagLen = 30
	TokenLen       = 64 // bytes
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var (
	ErrNotFound         = errors.New("record not found")
	ErrUnauthorized     = errors.New("not authenticated")
	ErrForbidden        = errors.New("not allowed to perform this action")
	ErrEmailAlreadyUsed = errors.New("the email is already used")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrTooManyTags      = errors.New("too many tags")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every query in this
// package can run either standalone or inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SharedDB owns the connection pool. It is constructed once at process start
// and handed to whoever needs persistence; there is no package-level state.
type SharedDB struct {
	db         *pgxpool.Pool
	config     *models.EnvConfig
	bcryptCost int
}

func Connect(ctx context.Context, config *models.EnvConfig) (SharedDB, error) {
	db, err := pgxpool.Connect(ctx, config.DatabaseURL)
	if err != nil {
		return SharedDB{}, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	bcryptCost := bcrypt.DefaultCost + 2
	if config.Debug {
		bcryptCost = bcrypt.MinCost
	}

	return SharedDB{
		db:         db,
		config:     config,
		bcryptCost: bcryptCost,
	}, nil
}

func (sdb *SharedDB) Close() {
	sdb.db.Close()
}

func MigrateUp(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return fmt.Errorf("error reading migrations: %w", err)
	}
	defer m.Close()
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("while migrating up: %w", err)
	}
	return nil
}
func MigrateDown(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return fmt.Errorf("error reading migrations: %w", err)
	}
	defer m.Close()
	err = m.Down()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("while migrating down: %w", err)
	}
	return nil
}
func Drop(dbURL string) error {
	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		return fmt.Errorf("error reading migrations: %w", err)
	}
	defer m.Close()
	err = m.Drop()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("while dropping: %w", err)
	}
	return nil
}

// execTx is the transaction scope used by every multi-statement procedure:
// the body runs against the tx, which is committed on success and rolled
// back on any error, so partial writes are never visible.
func execTx(ctx context.Context, db DBTX, txFunc func(context.Context, DBTX) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	err = txFunc(ctx, tx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}
