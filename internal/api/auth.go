package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/domain"
	"github.com/temirrrr/job-tracker/internal/store"
)

type registerRequest struct {
	Username string `json:"username" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginForm struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid JSON body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := domain.Validate(req, "invalid registration"); err != nil {
		return unprocessable(err)
	}

	user, err := s.store.CreateUser(c.Request().Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusBadRequest, "Username already registered")
	case errors.Is(err, store.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
	case err != nil:
		return err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return c.JSON(http.StatusOK, user)
}

func (s *Server) handleToken(c echo.Context) error {
	var form loginForm
	if err := (&echo.DefaultBinder{}).BindBody(c, &form); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid form body")
	}
	if err := domain.Validate(form, "invalid login form"); err != nil {
		return unprocessable(err)
	}

	ctx := c.Request().Context()
	user, err := s.store.Authenticate(ctx, form.Username, form.Password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		s.logger.WithFields(logrus.Fields{"username": form.Username, "remote": c.RealIP()}).Warn("login rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect username or password")
	}
	if err != nil {
		return err
	}

	token, err := s.store.IssueToken(ctx, user.ID, s.tokenTTL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}
