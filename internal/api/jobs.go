package api

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/domain"
	"github.com/temirrrr/job-tracker/internal/store"
)

const (
	defaultLimit  = 100
	jobNotFound   = "Job not found"
	maxQueryLimit = 1000
)

// jobRequest is the create/update payload. Status may be omitted.
type jobRequest struct {
	Title   string `json:"title"`
	Company string `json:"company"`
	Link    string `json:"link"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

func (r jobRequest) fields() domain.JobFields {
	return domain.JobFields{
		Title:   strings.TrimSpace(r.Title),
		Company: strings.TrimSpace(r.Company),
		Link:    strings.TrimSpace(r.Link),
		Status:  domain.Status(strings.TrimSpace(r.Status)),
		Notes:   r.Notes,
	}.WithDefaults()
}

func bindJob(c echo.Context) (domain.JobFields, error) {
	var req jobRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return domain.JobFields{}, echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid JSON body")
	}
	f := req.fields()
	if err := domain.ValidateFields(f); err != nil {
		return domain.JobFields{}, unprocessable(err)
	}
	return f, nil
}

func jobID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, unprocessable(domain.ValidationError("path", "invalid job id").WithField("job_id", "must be a positive integer"))
	}
	return id, nil
}

func queryInt(c echo.Context, name string, def, lo, hi int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, unprocessable(domain.ValidationError("query", "invalid "+name).WithField(name, "is invalid"))
	}
	return n, nil
}

func (s *Server) handleListJobs(c echo.Context) error {
	skip, err := queryInt(c, "skip", 0, 0, math.MaxInt32)
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit", defaultLimit, 0, maxQueryLimit)
	if err != nil {
		return err
	}

	jobs, err := s.store.ListJobs(c.Request().Context(), ownerID(c), skip, limit)
	if err != nil {
		return err
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return c.JSON(http.StatusOK, jobs)
}

func (s *Server) handleGetJob(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}
	job, err := s.store.GetJob(c.Request().Context(), ownerID(c), id)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, jobNotFound)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleCreateJob(c echo.Context) error {
	f, err := bindJob(c)
	if err != nil {
		return err
	}
	job, err := s.store.CreateJob(c.Request().Context(), ownerID(c), f)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"owner_id": ownerID(c), "job_id": job.ID}).Info("job created")
	return c.JSON(http.StatusOK, job)
}

func (s *Server) handleUpdateJob(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}
	f, err := bindJob(c)
	if err != nil {
		return err
	}
	job, err := s.store.UpdateJob(c.Request().Context(), ownerID(c), id, f)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, jobNotFound)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, job)
}

// handleDeleteJob answers with the removed record.
func (s *Server) handleDeleteJob(c echo.Context) error {
	id, err := jobID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	job, err := s.store.GetJob(ctx, ownerID(c), id)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, jobNotFound)
	}
	if err != nil {
		return err
	}
	if err := s.store.DeleteJob(ctx, ownerID(c), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, jobNotFound)
		}
		return err
	}
	s.logger.WithFields(logrus.Fields{"owner_id": ownerID(c), "job_id": id}).Info("job deleted")
	return c.JSON(http.StatusOK, job)
}
