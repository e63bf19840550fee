package services

import (
	"context"
	"errors"

	"github.com/notekeep/apiserver/internal/store"
	"github.com/notekeep/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const duplicateUsernameMessage = "A user with that username already exists."

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	CreateWithProfile(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates registration and credential checks.
type UserService struct {
	repo       UserRepository
	events     *Events
	bcryptCost int
}

func NewUserService(repo UserRepository, events *Events, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, events: events, bcryptCost: bcryptCost}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// Register creates the user and its empty profile atomically. The username
// must be free; the caller has already validated field formats.
func (s *UserService) Register(ctx context.Context, username, email, password string) (types.User, error) {
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, NewValidationError("username", duplicateUsernameMessage)
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return types.User{}, NewValidationError("password", "Ensure this field has no more than 72 bytes.")
	}
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.CreateWithProfile(ctx, types.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
	})
	if err != nil {
		// Lost a race with a concurrent registration of the same name.
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, NewValidationError("username", duplicateUsernameMessage)
		}
		return types.User{}, err
	}

	s.events.Emit(ctx, types.EventUserRegistered, user.ID, user.ID, types.NewUserResponse(user))
	return user, nil
}

// Authenticate returns the user whose password matches, or ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	if hasNullCharacter(username) {
		return types.User{}, ErrInvalidCredentials
	}
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}
