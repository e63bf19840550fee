package store

import (
	"context"
	"database/sql"
	"errors"
)

// TokenRepository persists the active token id of each user.
type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// GetOrCreate returns the user's token id, storing candidate when the user has none.
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID int64, candidate string) (string, error) {
	const query = `
		INSERT INTO auth_tokens (user_id, token_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING token_id`
	var tokenID string
	if err := r.db.QueryRowContext(ctx, query, userID, candidate, now()).Scan(&tokenID); err != nil {
		return "", err
	}
	return tokenID, nil
}

func (r *TokenRepository) Get(ctx context.Context, userID int64) (string, error) {
	const query = `SELECT token_id FROM auth_tokens WHERE user_id = $1`
	var tokenID string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&tokenID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return tokenID, nil
}

// Delete revokes the user's token. Deleting a missing token is not an error.
func (r *TokenRepository) Delete(ctx context.Context, userID int64) error {
	const query = `DELETE FROM auth_tokens WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
