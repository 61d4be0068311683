package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/temirrrr/job-tracker/internal/store"
)

const (
	ownerKey          = "ownerID"
	rateLimiterExpiry = 5 * time.Minute
	credentialsDetail = "Could not validate credentials"
)

// requireAuth resolves the bearer token to its owner.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}

		ownerID, err := s.store.UserForToken(c.Request().Context(), strings.TrimSpace(token))
		if errors.Is(err, store.ErrTokenInvalid) {
			return echo.NewHTTPError(http.StatusUnauthorized, credentialsDetail)
		}
		if err != nil {
			return err
		}
		c.Set(ownerKey, ownerID)
		return next(c)
	}
}

func ownerID(c echo.Context) int64 {
	id, _ := c.Get(ownerKey).(int64)
	return id
}

// newLoginLimiter throttles password attempts per client IP.
func newLoginLimiter(perMinute int) echo.MiddlewareFunc {
	limits := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(perMinute) / 60),
			Burst:     perMinute,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		Store: limits,
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts, try again later")
		},
	})
}

func requestLogger(logger logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.WithFields(logrus.Fields{
				"method":   c.Request().Method,
				"path":     c.Path(),
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
				"remote":   c.RealIP(),
			}).Info("request")
			return nil
		}
	}
}
