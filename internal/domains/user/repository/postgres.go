package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"elpa-backend/internal/domains/user"
	"elpa-backend/pkg/database"
)

// postgresRepository implement user.Repository
type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) user.Repository {
	return &postgresRepository{pool: pool}
}

const userColumns = `user_key, name, email, digest, salt, token, packages, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.Key, &u.Name, &u.Email, &u.Digest, &u.Salt, &u.Token, &u.Packages, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create insert user mới; trùng key → ErrUserAlreadyExists
func (r *postgresRepository) Create(ctx context.Context, u *user.User) error {
	if u.Packages == nil {
		u.Packages = []string{}
	}
	query := `
		INSERT INTO users (user_key, name, email, digest, salt, token, packages)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, u.Key, u.Name, u.Email, u.Digest, u.Salt, u.Token, u.Packages).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.ErrUserAlreadyExists
		}
		return fmt.Errorf("create user %s: %w", u.Key, err)
	}
	return nil
}

func (r *postgresRepository) FindByKey(ctx context.Context, key string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_key = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user %s: %w", key, err)
	}
	return u, nil
}

func (r *postgresRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET email = $2, digest = $3, salt = $4, token = $5, updated_at = NOW()
		WHERE user_key = $1
		RETURNING updated_at
	`
	err := r.pool.QueryRow(ctx, query, u.Key, u.Email, u.Digest, u.Salt, u.Token).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrUserNotFound
		}
		return fmt.Errorf("update user %s: %w", u.Key, err)
	}
	return nil
}

// ========================================
// OWNED PACKAGES
// ========================================

func (r *postgresRepository) AddPackage(ctx context.Context, userKey, packageKey string) error {
	query := `
		UPDATE users
		SET packages = CASE WHEN $2 = ANY(packages) THEN packages ELSE array_append(packages, $2) END,
		    updated_at = NOW()
		WHERE user_key = $1
	`
	return r.execOnUser(ctx, query, userKey, packageKey)
}

func (r *postgresRepository) RemovePackage(ctx context.Context, userKey, packageKey string) error {
	query := `
		UPDATE users
		SET packages = array_remove(packages, $2), updated_at = NOW()
		WHERE user_key = $1
	`
	return r.execOnUser(ctx, query, userKey, packageKey)
}

func (r *postgresRepository) execOnUser(ctx context.Context, query, userKey, packageKey string) error {
	tag, err := r.pool.Exec(ctx, query, userKey, packageKey)
	if err != nil {
		return fmt.Errorf("update packages of %s: %w", userKey, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}
	return nil
}

// StreamUsers đọc tuần tự theo user_key
func (r *postgresRepository) StreamUsers(ctx context.Context) iter.Seq2[*user.User, error] {
	return func(yield func(*user.User, error) bool) {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY user_key`)
		if err != nil {
			yield(nil, fmt.Errorf("stream users: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(u, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}
