package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/domain"
)

// fieldError is one entry of a 422 detail list.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type detailResponse struct {
	Detail any `json:"detail"`
}

// unprocessable turns a field validation failure into a 422 whose detail
// lists each offending body field.
func unprocessable(err error) *echo.HTTPError {
	var derr *domain.Error
	if !errors.As(err, &derr) || len(derr.Fields) == 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	details := make([]fieldError, 0, len(derr.Fields))
	for _, name := range derr.FieldNames() {
		details = append(details, fieldError{
			Loc:  []string{"body", name},
			Msg:  derr.Fields[name],
			Type: "value_error",
		})
	}
	return echo.NewHTTPError(http.StatusUnprocessableEntity, details)
}

// httpErrorHandler renders every error as {"detail": ...}.
func httpErrorHandler(logger logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			status     = http.StatusInternalServerError
			detail any = "Internal server error"
		)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			detail = he.Message
			if s, ok := detail.(string); ok && s == "" {
				detail = http.StatusText(status)
			}
		} else {
			logger.WithFields(logrus.Fields{
				"method": c.Request().Method,
				"path":   c.Request().URL.Path,
				"error":  err.Error(),
			}).Error("request failed")
		}

		if status == http.StatusUnauthorized {
			c.Response().Header().Set("WWW-Authenticate", "Bearer")
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, detailResponse{Detail: detail})
		}
		if err != nil {
			logger.WithFields(logrus.Fields{"error": err.Error()}).Error("write error response")
		}
	}
}
