package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/notekeep/apiserver/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	defaultTokenTTL = 24 * time.Hour

	// maxTokenCacheTTL bounds how long a cached token id can outlive a
	// revocation that raced with a cache fill.
	maxTokenCacheTTL = 5 * time.Minute
)

// TokenRepository persists the active token id of each user.
type TokenRepository interface {
	GetOrCreate(ctx context.Context, userID int64, candidate string) (string, error)
	Get(ctx context.Context, userID int64) (string, error)
	Delete(ctx context.Context, userID int64) error
}

// TokenCache is an optional read-through cache in front of TokenRepository.
type TokenCache interface {
	Get(ctx context.Context, userID int64) (string, bool, error)
	Set(ctx context.Context, userID int64, tokenID string, ttl time.Duration) error
	Delete(ctx context.Context, userID int64) error
}

// AuthService issues and verifies bearer tokens. Tokens are HS256 JWTs whose
// jti must match the id stored for the user; logging out deletes that id and
// so revokes every token issued for it.
type AuthService struct {
	tokens TokenRepository
	cache  TokenCache
	secret []byte
	ttl    time.Duration
	logger logrus.FieldLogger
}

func NewAuthService(tokens TokenRepository, cache TokenCache, jwtSecret string, ttl time.Duration, logger logrus.FieldLogger) *AuthService {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		tokens: tokens,
		cache:  cache,
		secret: []byte(jwtSecret),
		ttl:    ttl,
		logger: logger,
	}
}

// IssueToken returns a signed token for the user, reusing the user's active
// token id when one exists.
func (s *AuthService) IssueToken(ctx context.Context, userID int64) (string, error) {
	tokenID, err := s.tokens.GetOrCreate(ctx, userID, uuid.NewString())
	if err != nil {
		return "", err
	}
	s.cacheSet(ctx, userID, tokenID)

	now := time.Now()
	claims := jwt.RegisteredClaims{
		ID:        tokenID,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Authenticate verifies the token and returns the user id it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (int64, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrUnauthorized
	}

	userID, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || userID < 1 || claims.ID == "" {
		return 0, ErrUnauthorized
	}

	active, err := s.activeTokenID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrUnauthorized
		}
		return 0, err
	}
	if active != claims.ID {
		return 0, ErrUnauthorized
	}
	return userID, nil
}

// Revoke deletes the user's active token id. The cache is evicted on both
// sides of the delete; a failed eviction fails the revocation, since a
// cached id would keep authenticating.
func (s *AuthService) Revoke(ctx context.Context, userID int64) error {
	if err := s.cacheEvict(ctx, userID); err != nil {
		return err
	}
	if err := s.tokens.Delete(ctx, userID); err != nil {
		return err
	}
	return s.cacheEvict(ctx, userID)
}

func (s *AuthService) cacheEvict(ctx context.Context, userID int64) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		return fmt.Errorf("evict cached token: %w", err)
	}
	return nil
}

func (s *AuthService) activeTokenID(ctx context.Context, userID int64) (string, error) {
	if s.cache != nil {
		tokenID, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("token cache lookup failed")
		} else if ok {
			return tokenID, nil
		}
	}

	tokenID, err := s.tokens.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	s.cacheSet(ctx, userID, tokenID)
	return tokenID, nil
}

func (s *AuthService) cacheSet(ctx context.Context, userID int64, tokenID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, userID, tokenID, min(s.ttl, maxTokenCacheTTL)); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to cache token")
	}
}
