// Package httpserver exposes the account service over HTTP/JSON. Routing is
// built on chi; request and response shapes live next to their handlers.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Ursa1337/account-service/internal/logging"
	"github.com/Ursa1337/account-service/internal/server/models"
	"github.com/Ursa1337/account-service/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// AccountManager is the slice of the account service the transport consumes.
type AccountManager interface {
	Register(ctx context.Context, username, email, password, confirmPassword string) (*models.Session, *models.Account, error)
	Authenticate(ctx context.Context, email, password string) (*models.Session, *models.Account, error)
	ValidateAccessToken(ctx context.Context, accessToken string, meta *services.RequestMeta) (*models.Account, error)
	Renew(ctx context.Context, refreshToken string) (*models.Session, *models.Account, error)
	Revoke(ctx context.Context, accessToken string) error
	RevokeOthers(ctx context.Context, accessToken string) error
	ListSessions(ctx context.Context, accessToken string) ([]*services.SessionSummary, error)
	UpdatePassword(ctx context.Context, accessToken, password, newPassword, confirmPassword string) error
	UpdateUsername(ctx context.Context, accessToken, username string) error
	UpdateEmail(ctx context.Context, accessToken, email string) error
	CheckUsernameAvailable(ctx context.Context, username string) error
	CheckEmailAvailable(ctx context.Context, email string) error
}

// AvatarManager is the slice of the avatar service the transport consumes.
type AvatarManager interface {
	Upload(ctx context.Context, userID int64, filename string, data []byte) (*models.Avatar, error)
	Remove(ctx context.Context, userID int64) error
	URL(ctx context.Context, userID int64) (*string, error)
}

// Server is the public HTTP endpoint of the service.
type Server struct {
	addr     string
	logger   logging.Logger
	accounts AccountManager
	avatars  AvatarManager
}

// NewServer constructs a Server listening on addr once Run is called.
func NewServer(addr string, logger logging.Logger, accounts AccountManager, avatars AvatarManager) *Server {
	return &Server{
		addr:     addr,
		logger:   logger.With("component", "httpserver"),
		accounts: accounts,
		avatars:  avatars,
	}
}

// Routes constructs the chi router containing all endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/account", func(r chi.Router) {
		r.Post("/", s.handleRegister)
		r.Post("/auth", s.handleAuthenticate)
		r.Post("/renew", s.handleRenew)
		r.Get("/username/available", s.handleUsernameAvailable)
		r.Get("/email/available", s.handleEmailAvailable)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth())
			r.Get("/", s.handleGetAccount)
			r.Delete("/session", s.handleRevoke)
			r.Delete("/sessions", s.handleRevokeOthers)
			r.Get("/sessions", s.handleListSessions)
			r.Put("/password", s.handleUpdatePassword)
			r.Put("/username", s.handleUpdateUsername)
			r.Put("/email", s.handleUpdateEmail)
			r.Put("/avatar", s.handleUploadAvatar)
			r.Delete("/avatar", s.handleRemoveAvatar)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
