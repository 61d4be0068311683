// Package api is the reference backend: account registration, bearer
// token issuance and owner-scoped job CRUD over sqlite.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/store"
)

type Options struct {
	TokenTTL        time.Duration
	LoginRatePerMin int
	CORSOrigins     []string
	Logger          logrus.FieldLogger
	// Registerer receives the HTTP metrics. Nil means a private registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

type Server struct {
	store    *store.Store
	echo     *echo.Echo
	logger   logrus.FieldLogger
	tokenTTL time.Duration
	metrics  *HTTPMetrics
}

func New(st *store.Store, opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 30 * time.Minute
	}
	if opts.LoginRatePerMin <= 0 {
		opts.LoginRatePerMin = 10
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Registerer == nil {
		reg := prometheus.NewRegistry()
		opts.Registerer, opts.Gatherer = reg, reg
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler(opts.Logger)

	s := &Server{
		store:    st,
		echo:     e,
		logger:   opts.Logger,
		tokenTTL: opts.TokenTTL,
		metrics:  NewHTTPMetrics(opts.Registerer),
	}

	e.Use(middleware.Recover())
	e.Use(s.metrics.Middleware())
	e.Use(requestLogger(opts.Logger))
	if len(opts.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			AllowCredentials: false,
			MaxAge:           86400,
		}))
	}

	s.routes(opts)
	return s
}

func (s *Server) routes(opts Options) {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	s.echo.POST("/register", s.handleRegister)
	s.echo.POST("/token", s.handleToken, newLoginLimiter(opts.LoginRatePerMin))

	jobs := s.echo.Group("/jobs", s.requireAuth)
	jobs.GET("/", s.handleListJobs)
	jobs.POST("/", s.handleCreateJob)
	jobs.GET("/:id", s.handleGetJob)
	jobs.PUT("/:id", s.handleUpdateJob)
	jobs.DELETE("/:id", s.handleDeleteJob)
}

// ServeHTTP lets the server be mounted in httptest or another mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Listen(addr string) error {
	s.logger.WithFields(logrus.Fields{"addr": addr}).Info("server starting")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}
