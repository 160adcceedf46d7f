// Package httpapi exposes the user and contact services as a JSON API over
// gin. Sessions are signed tokens handed out at login, read back from the
// Authorization header or the session cookie.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	sessionCookie   = "session"
	shutdownTimeout = 5 * time.Second
)

// UserService is the part of services.UserService used by the API.
type UserService interface {
	Register(ctx context.Context, username, password string, email *string) (*models.Identity, error)
	Login(ctx context.Context, username, password string) (*models.Identity, error)
	ChangePassword(ctx context.Context, identity *models.Identity, oldPassword, newPassword string) error
	Identity(ctx context.Context, id int64) (*models.Identity, error)
}

// ContactService is the part of services.ContactService used by the API.
type ContactService interface {
	Add(ctx context.Context, ownerID int64, nome, telefone string, email *string) (*models.Contact, error)
	List(ctx context.Context, ownerID int64) ([]*models.Contact, error)
	Search(ctx context.Context, ownerID int64, term string) ([]*models.Contact, error)
	Get(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	UpdateByID(ctx context.Context, ownerID, id int64, nome, telefone string, email *string) (*models.Contact, error)
	RemoveByID(ctx context.Context, ownerID, id int64) error
}

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Address    string
	SecretKey  []byte
	SessionTTL time.Duration
	Registry   *prometheus.Registry
}

type Server struct {
	address    string
	users      UserService
	contacts   ContactService
	db         Pinger
	logger     logging.Logger
	jwtSecret  []byte
	sessionTTL time.Duration
	registry   *prometheus.Registry
	metrics    *Metrics
	engine     *gin.Engine
}

// NewServer builds the router. A nil Registry gets a fresh one.
func NewServer(opts Options, l logging.Logger, us UserService, cs ContactService, db Pinger) (*Server, error) {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		address:    opts.Address,
		users:      us,
		contacts:   cs,
		db:         db,
		logger:     l.With("module", "http_server"),
		jwtSecret:  opts.SecretKey,
		sessionTTL: opts.SessionTTL,
		registry:   reg,
		metrics:    m,
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), s.requestID, s.accessLog, s.metrics.Middleware())

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	r.POST("/register", s.register)
	r.POST("/login", s.login)
	r.POST("/logout", s.logout)
	r.GET("/logout", s.logout)
	r.GET("/check_status", s.checkStatus)

	api := r.Group("/api", s.requireSession)
	api.POST("/password", s.changePassword)
	api.GET("/contacts", s.listContacts)
	api.POST("/contacts", s.addContact)
	api.GET("/contacts/:id", s.getContact)
	api.PUT("/contacts/:id", s.updateContact)
	api.DELETE("/contacts/:id", s.deleteContact)

	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
