package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/blogauth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// DBTX is the subset of database/sql used by Postgres. Both *sql.DB and
// *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Postgres struct {
	db DBTX
}

var _ blogauth.IdentityRepository = (*Postgres)(nil)

func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

const selectUser = `SELECT id, username, name, email, password_hash, role, created_at, updated_at FROM users`

func (r *Postgres) FindByEmail(ctx context.Context, email string) (*blogauth.User, error) {
	return r.scanOne(ctx, selectUser+` WHERE email = $1`, email)
}

// FindOneByUsernameOrEmail matches either column. Usernames never contain
// '@', so at most one row can match.
func (r *Postgres) FindOneByUsernameOrEmail(ctx context.Context, identifier string) (*blogauth.User, error) {
	return r.scanOne(ctx, selectUser+` WHERE username = $1 OR email = $1 LIMIT 1`, identifier)
}

func (r *Postgres) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *Postgres) Create(ctx context.Context, input blogauth.CreateUserInput) (*blogauth.User, error) {
	query :=
		`INSERT INTO users (id, username, name, email, password_hash, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at, updated_at
		 `

	user := &blogauth.User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Role:         input.Role,
	}

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.Name, user.Email, user.PasswordHash, user.Role,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", blogauth.ErrIdentityDuplicate, pgErr.ConstraintName)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *Postgres) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE email = $2`,
		passwordHash, email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return blogauth.ErrIdentityNotFound
	}
	return nil
}

func (r *Postgres) scanOne(ctx context.Context, query string, arg string) (*blogauth.User, error) {
	user := &blogauth.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Name, &user.Email,
		&user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, blogauth.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
