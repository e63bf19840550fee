package services

import (
	"context"

	"github.com/notekeep/apiserver/types"
)

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID int64) (types.Profile, error)
	Update(ctx context.Context, profile types.Profile) (types.Profile, error)
}

// ProfileService encapsulates profile use-cases.
type ProfileService struct {
	repo ProfileRepository
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

func (s *ProfileService) Get(ctx context.Context, userID int64) (types.Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Update applies a partial update. A nil bio leaves the bio unchanged but the
// profile is still saved, refreshing its timestamp.
func (s *ProfileService) Update(ctx context.Context, userID int64, bio *string) (types.Profile, error) {
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return types.Profile{}, err
	}
	if bio != nil {
		if hasNullCharacter(*bio) {
			return types.Profile{}, NewValidationError("bio", nullCharacterMessage)
		}
		profile.Bio = *bio
	}
	return s.repo.Update(ctx, profile)
}
