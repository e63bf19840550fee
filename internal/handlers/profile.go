package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/notekeep/apiserver/internal/services"
	"github.com/notekeep/apiserver/types"
	"github.com/sirupsen/logrus"
)

type ProfileHandler struct {
	profileService *services.ProfileService
	log            logrus.FieldLogger
}

// ProfileRouter registers the caller's profile routes. The router must
// already require authentication.
func ProfileRouter(r chi.Router, profileService *services.ProfileService, log logrus.FieldLogger) {
	handler := &ProfileHandler{profileService: profileService, log: log}

	r.Get("/", handler.Get)
	r.Put("/", handler.Update)
}

// ProfileUpdateRequest is a partial update; an absent bio is left unchanged.
type ProfileUpdateRequest struct {
	Bio optionalString `json:"bio"`
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFromContext(r.Context())
	profile, err := h.profileService.Get(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewProfileResponse(profile))
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ProfileUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	if req.Bio.Null {
		writeJSON(w, http.StatusBadRequest, services.NewValidationError("bio", "This field may not be null.").Fields)
		return
	}
	var bio *string
	if req.Bio.Set {
		bio = &req.Bio.Value
	}

	userID, _ := userIDFromContext(r.Context())
	profile, err := h.profileService.Update(r.Context(), userID, bio)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewProfileResponse(profile))
}
