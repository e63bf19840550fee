package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/notekeep/apiserver/internal/services"
	"github.com/sirupsen/logrus"
)

// Services bundles what the HTTP layer needs. Export may be nil.
type Services struct {
	Users    *services.UserService
	Auth     *services.AuthService
	Profiles *services.ProfileService
	Notes    *services.NoteService
	Export   *services.ExportService
}

// Register mounts every API route on r. Routes inside the RequireAuth group
// are RequireAuthenticated; the rest allow anonymous callers.
func Register(r chi.Router, svc Services, log logrus.FieldLogger) {
	r.Get("/health", Health)
	AuthRouter(r, svc.Users, svc.Auth, log)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(svc.Auth, log))
		r.Route("/profile", func(r chi.Router) {
			ProfileRouter(r, svc.Profiles, log)
		})
		r.Route("/notes", func(r chi.Router) {
			NoteRouter(r, svc.Notes, svc.Export, log)
		})
	})
}
