package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/notekeep/apiserver/types"
)

// ProfileRepository handles persistence for user profiles.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (types.Profile, error) {
	const query = `
		SELECT p.user_id, p.bio, p.updated_at, u.id, u.username, u.email
		FROM profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1`
	var profile types.Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Bio,
		&profile.UpdatedAt,
		&profile.User.ID,
		&profile.User.Username,
		&profile.User.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Profile{}, ErrNotFound
		}
		return types.Profile{}, err
	}
	return profile, nil
}

// Update saves the profile's bio and refreshes its timestamp.
func (r *ProfileRepository) Update(ctx context.Context, profile types.Profile) (types.Profile, error) {
	profile.UpdatedAt = now()

	const query = `
		UPDATE profiles
		SET bio = $1,
			updated_at = $2
		WHERE user_id = $3`
	result, err := r.db.ExecContext(ctx, query, profile.Bio, profile.UpdatedAt, profile.UserID)
	if err != nil {
		return types.Profile{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Profile{}, err
	}
	if affected == 0 {
		return types.Profile{}, ErrNotFound
	}
	return profile, nil
}
