package types

import "time"

// Profile extends a user with free-form details. Every user has exactly one,
// created together with the user.
type Profile struct {
	// UserID identifies the owning user; it is also the primary key.
	UserID int64 `json:"-" db:"user_id"`

	// Bio is free text written by the user.
	Bio string `json:"bio" db:"bio"`

	// UpdatedAt is refreshed every time the profile is saved.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// User is the owning account, loaded alongside the profile.
	User User `json:"-" db:"-"`
}

type ProfileResponse struct {
	User      UserResponse `json:"user"`
	Bio       string       `json:"bio"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func NewProfileResponse(p Profile) ProfileResponse {
	return ProfileResponse{
		User:      NewUserResponse(p.User),
		Bio:       p.Bio,
		UpdatedAt: p.UpdatedAt,
	}
}
