package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/notekeep/apiserver/internal/services"
	"github.com/notekeep/apiserver/internal/store"
	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type contextKey string

const contextUserIDKey contextKey = "user_id"

func withUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextUserIDKey, userID)
}

// userIDFromContext returns the id stored by RequireAuth.
func userIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextUserIDKey).(int64)
	return id, ok && id > 0
}

// ErrorResponse is the payload of every non-field error.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Detail: message})
}

// writeServiceError maps service and store errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials.")
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid token.")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found.")
	default:
		log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
		}).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a JSON object into dst. An empty body decodes as {}.
// Type mismatches come back as a *services.ValidationError on the field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return services.NewValidationError(typeErr.Field, fmt.Sprintf("Not a valid %s.", jsonKind(typeErr.Type.Kind())))
	}
	return fmt.Errorf("JSON parse error - %w", err)
}

func jsonKind(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int64:
		return "integer"
	case reflect.Bool:
		return "boolean"
	default:
		return k.String()
	}
}

// optionalString is a JSON string field that remembers whether it was sent
// and whether it was null.
type optionalString struct {
	Value string
	Set   bool
	Null  bool
}

func (s *optionalString) UnmarshalJSON(data []byte) error {
	s.Set = true
	if string(data) == "null" {
		s.Null = true
		return nil
	}
	return json.Unmarshal(data, &s.Value)
}

// writeDecodeError answers a body that decodeJSON rejected.
func writeDecodeError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, verr.Fields)
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
