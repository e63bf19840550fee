package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/notekeep/apiserver/config"
	"github.com/notekeep/apiserver/internal/cache"
	"github.com/notekeep/apiserver/internal/db"
	"github.com/notekeep/apiserver/internal/handlers"
	"github.com/notekeep/apiserver/internal/logger"
	"github.com/notekeep/apiserver/internal/metrics"
	"github.com/notekeep/apiserver/internal/mq"
	"github.com/notekeep/apiserver/internal/services"
	"github.com/notekeep/apiserver/internal/storage"
	"github.com/notekeep/apiserver/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server, its router and the clients it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        logrus.FieldLogger

	db      *sql.DB
	redis   *redis.Client
	broker  *mq.MQ
	storage *storage.Storage
}

// New connects every configured dependency and builds the router.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	s := &Server{log: log}
	if err := s.connect(ctx, cfg); err != nil {
		s.closeClients()
		return nil, err
	}

	var publisher services.Publisher
	if s.broker != nil {
		publisher = s.broker
	}
	events := services.NewEvents(publisher, cfg.EventsChannel, log)

	var tokenCache services.TokenCache
	if s.redis != nil {
		tokenCache = cache.NewTokenCache(s.redis)
	}

	noteRepo := store.NewNoteRepository(s.db)
	svc := handlers.Services{
		Users:    services.NewUserService(store.NewUserRepository(s.db), events, cfg.BcryptCost),
		Auth:     services.NewAuthService(store.NewTokenRepository(s.db), tokenCache, cfg.JWTSecret, cfg.TokenTTL, log),
		Profiles: services.NewProfileService(store.NewProfileRepository(s.db)),
		Notes:    services.NewNoteService(noteRepo, events),
	}
	if s.storage != nil {
		svc.Export = services.NewExportService(noteRepo, s.storage, events)
	}

	m := metrics.New()
	m.WatchDB(s.db.Stats)
	s.router = newRouter(svc, m, log)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) connect(ctx context.Context, cfg config.Config) error {
	var err error
	if s.db, err = db.Open(ctx, cfg); err != nil {
		return err
	}

	if cfg.RedisURL != "" {
		if s.redis, err = cache.Connect(ctx, cfg.RedisURL); err != nil {
			return err
		}
		s.log.Info("token cache enabled")
	}

	if s.broker, err = mq.Open(ctx, cfg.MQ); err != nil {
		return err
	}
	if s.broker != nil {
		s.log.WithField("backend", cfg.MQ.Backend).Info("event publishing enabled")
	}

	if s.storage, err = storage.Open(ctx, cfg.Storage); err != nil {
		return err
	}
	if s.storage != nil {
		s.log.WithFields(logrus.Fields{
			"backend": s.storage.Name(),
			"bucket":  s.storage.Bucket(),
		}).Info("note export enabled")
	}
	return nil
}

func newRouter(svc handlers.Services, m *metrics.Metrics, log logrus.FieldLogger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logger.RequestLogger(log),
		middleware.Recoverer,
		m.Middleware,
		middleware.StripSlashes,
		middleware.Timeout(60*time.Second),
	)
	router.Method(http.MethodGet, "/metrics", m.Handler())
	handlers.Register(router, svc, log)
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done, then closes every client.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeClients()
	return err
}

func (s *Server) closeClients() {
	if err := s.broker.Close(); err != nil {
		s.log.WithError(err).Warn("failed to close broker")
	}
	if err := s.storage.Close(); err != nil {
		s.log.WithError(err).Warn("failed to close storage")
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
