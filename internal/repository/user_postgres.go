package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/docstack/knowledge-backend/internal/entity"
)

// UserRepository defines the interface for user lookups
type UserRepository interface {
	Get(ctx context.Context, id string) (*entity.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

var _ UserRepository = &UserPostgres{}

type UserPostgres struct {
	db DBTX
}

func NewUserPostgres(db DBTX) *UserPostgres {
	return &UserPostgres{db: db}
}

func (r *UserPostgres) Get(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.QueryRow(ctx,
		`SELECT id::text, username, created_at FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (r *UserPostgres) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return exists, nil
}
