package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/notekeep/apiserver/types"
)

// UserRepository handles persistence for users and their profiles.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (types.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1`
	return r.getOne(ctx, query, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (types.User, error) {
	var user types.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// CreateWithProfile inserts the user and its empty profile in one transaction.
// Either both rows exist afterwards or neither does.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user types.User) (types.User, error) {
	ts := now()
	user.CreatedAt = ts
	user.UpdatedAt = ts

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertUser = `
		INSERT INTO users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertUser,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return types.User{}, ErrConflict
		}
		return types.User{}, fmt.Errorf("insert user: %w", err)
	}

	const insertProfile = `
		INSERT INTO profiles (user_id, bio, updated_at)
		VALUES ($1, '', $2)`
	if _, err := tx.ExecContext(ctx, insertProfile, user.ID, ts); err != nil {
		return types.User{}, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, fmt.Errorf("commit registration: %w", err)
	}
	return user, nil
}
