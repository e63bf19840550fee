package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/notekeep/apiserver/internal/services"
	"github.com/notekeep/apiserver/types"
	"github.com/sirupsen/logrus"
)

// Authenticator resolves a bearer token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// AuthHandler provides registration, login and logout.
type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
	log         logrus.FieldLogger
}

func NewAuthHandler(userService *services.UserService, authService *services.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{userService: userService, authService: authService, log: log}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, userService *services.UserService, authService *services.AuthService, log logrus.FieldLogger) {
	handler := NewAuthHandler(userService, authService, log)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(RequireAuth(authService, log)).Post("/logout", handler.Logout)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's user id in the request context. Only the Authorization header is read.
func RequireAuth(auth Authenticator, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				detail := "Invalid token header."
				if errors.Is(err, errNoCredentials) {
					detail = "Authentication credentials were not provided."
				}
				writeError(w, http.StatusUnauthorized, detail)
				return
			}

			userID, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				writeServiceError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
		})
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"omitempty,max=254,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string             `json:"token"`
	User  types.UserResponse `json:"user"`
}

// Register creates a user together with its empty profile.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if verr := validateStruct(req); verr != nil {
		writeJSON(w, http.StatusBadRequest, verr.Fields)
		return
	}

	user, err := h.userService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.NewUserResponse(user))
}

// Login verifies credentials and returns the user's bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required.")
		return
	}

	user, err := h.userService.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	token, err := h.authService.IssueToken(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: types.NewUserResponse(user)})
}

// Logout revokes the caller's token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	if err := h.authService.Revoke(r.Context(), userID); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeError(w, http.StatusOK, "Logged out")
}

var (
	errNoCredentials = errors.New("missing authorization header")
	errBadHeader     = errors.New("invalid authorization header")
)

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(auth, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		return "", errBadHeader
	}
	return token, nil
}
