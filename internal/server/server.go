package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/civiclens/webclient/config"
	"github.com/civiclens/webclient/internal/apiclient"
	"github.com/civiclens/webclient/internal/db"
	"github.com/civiclens/webclient/internal/events"
	"github.com/civiclens/webclient/internal/handlers"
	"github.com/civiclens/webclient/internal/identity"
	"github.com/civiclens/webclient/internal/services"
	"github.com/civiclens/webclient/internal/session"
	"github.com/civiclens/webclient/internal/sessionstore"
	"github.com/civiclens/webclient/internal/storage"
	"github.com/civiclens/webclient/internal/store"
	"github.com/civiclens/webclient/internal/views"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	reconcileTimeout = 5 * time.Second
	shutdownTimeout  = 15 * time.Second
)

// Server wraps the HTTP server, the router and the background workers
// that keep browser sessions in sync.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger

	db       *sql.DB
	sessions sessionstore.Store
	objects  storage.ObjectStorage
	bus      *events.Bus
	registry *session.Registry

	sweepInterval time.Duration
}

// New constructs a Server from configuration. Every external dependency
// is connected here; a failure closes what was already opened.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (srv *Server, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{logger: logger}
	defer func() {
		if err != nil {
			s.close()
		}
	}()

	instanceID := uuid.NewString()
	logger = logger.With(zap.String("instance_id", instanceID))
	s.logger = logger

	var profiles session.ProfileSource
	if strings.EqualFold(cfg.Database.ProfileSource, "postgres") {
		s.db, err = db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		profiles = services.NewProfileService(store.NewProfileRepository(s.db))
	}

	s.sessions, err = sessionstore.New(ctx, cfg.Sessions)
	if err != nil {
		return nil, err
	}

	provider, err := identity.NewProvider(cfg.Identity)
	if err != nil {
		return nil, err
	}

	s.objects, err = storage.NewBackend(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	if err := s.objects.EnsureBucket(ctx); err != nil {
		logger.Warn("object storage bucket check failed", zap.String("bucket", s.objects.Bucket()), zap.Error(err))
	}
	uploader := storage.NewStorage(s.objects, cfg.Storage.PublicBaseURL)

	eventBackend, err := events.NewBackend(ctx, cfg.Events, instanceID)
	if err != nil {
		return nil, err
	}
	s.bus = events.New(eventBackend, cfg.Events.Channel)

	s.registry = session.NewRegistry(s.sessions, profiles, logger, session.RegistryOptions{
		Origin:           instanceID,
		IdleTTL:          cfg.Sessions.IdleEvict,
		ReconcileTimeout: reconcileTimeout,
	})
	s.sweepInterval = cfg.Sessions.IdleEvict / 2
	manager := session.NewManager(provider, s.sessions, s.registry, s.bus, logger)

	client, err := apiclient.New(cfg.BackendURL, nil)
	if err != nil {
		return nil, err
	}

	renderer, err := views.New()
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(logger),
		middleware.Timeout(60*time.Second),
	)
	handlers.Mount(router, handlers.Deps{
		Registry: s.registry,
		Sessions: manager,
		Issues: handlers.IssueServices{
			Backend: func(sessionID string) services.IssueBackend {
				return client.WithTokenSource(manager.TokenSource(sessionID))
			},
			Uploader: uploader,
			Logger:   logger,
		},
		Cookie: handlers.CookieOptions{
			Name:   cfg.Sessions.CookieName,
			TTL:    cfg.Sessions.TTL,
			Secure: cfg.Sessions.SecureOnly,
		},
		Resp: handlers.NewResponder(renderer, manager, logger),
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Start serves HTTP and consumes auth events until ctx is done or one of
// them fails, then shuts everything down.
func (s *Server) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.registry.Run(gctx, s.sweepInterval)
	})
	g.Go(func() error {
		err := s.bus.Subscribe(gctx, s.registry.HandleEvent)
		if err != nil && gctx.Err() == nil {
			return fmt.Errorf("auth events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.close()
	return err
}

func (s *Server) close() {
	if s.registry != nil {
		s.registry.Close()
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			s.logger.Warn("close event bus", zap.Error(err))
		}
		s.bus = nil
	}
	if s.sessions != nil {
		_ = s.sessions.Close()
		s.sessions = nil
	}
	if closer, ok := s.objects.(io.Closer); ok {
		_ = closer.Close()
		s.objects = nil
	}
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
}
