// Package notion mirrors the job collection into a Notion database.
package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gnt "github.com/dstotijn/go-notion"
	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/domain"
	"github.com/temirrrr/job-tracker/internal/view"
)

type Client struct {
	api        *gnt.Client
	databaseID string
	logger     logrus.FieldLogger
}

// New builds a client for one database. httpClient may be nil.
func New(token, databaseID string, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	var opts []gnt.ClientOption
	if httpClient != nil {
		opts = append(opts, gnt.WithHTTPClient(httpClient))
	}
	return &Client{
		api:        gnt.NewClient(token, opts...),
		databaseID: databaseID,
		logger:     logger,
	}
}

// Ping runs a one-row query to check that the database is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.QueryDatabase(ctx, c.databaseID, &gnt.DatabaseQuery{
		PageSize: 1,
	})
	return err
}

func richText(s string) []gnt.RichText {
	if s == "" {
		return nil
	}
	return []gnt.RichText{
		{
			Text: &gnt.Text{
				Content: s,
			},
		},
	}
}

// stageName is the select option used for a status, e.g. "Interview".
func stageName(s domain.Status) string {
	if s == "" {
		s = domain.StatusNew
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

func buildJobPageProperties(job domain.Job) gnt.DatabasePageProperties {
	props := gnt.DatabasePageProperties{
		"Position": gnt.DatabasePageProperty{
			Title: richText(job.Title),
		},
		"Stage": gnt.DatabasePageProperty{
			Select: &gnt.SelectOptions{
				Name: stageName(job.Status),
			},
		},
	}

	if job.Company != "" {
		props["Company"] = gnt.DatabasePageProperty{
			RichText: richText(job.Company),
		}
	}

	// Notion rejects URLs without a scheme
	if href := view.NormalizeLink(job.Link); href != "" {
		props["Job Posting"] = gnt.DatabasePageProperty{
			URL: &href,
		}
	}

	if job.Notes != "" {
		props["Notes"] = gnt.DatabasePageProperty{
			RichText: richText(job.Notes),
		}
	}

	return props
}

// CreateJobPage adds one row and returns the new page id.
func (c *Client) CreateJobPage(ctx context.Context, job domain.Job) (string, error) {
	props := buildJobPageProperties(job)

	page, err := c.api.CreatePage(ctx, gnt.CreatePageParams{
		ParentType:             gnt.ParentTypeDatabase,
		ParentID:               c.databaseID,
		DatabasePageProperties: &props,
	})
	if err != nil {
		return "", err
	}
	return page.ID, nil
}

// ExportJobs creates a row per job. It keeps going after a failed row and
// returns how many rows were created along with the joined errors.
func (c *Client) ExportJobs(ctx context.Context, jobs []domain.Job) (int, error) {
	var (
		created int
		errs    []error
	)
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		pageID, err := c.CreateJobPage(ctx, job)
		if err != nil {
			c.logger.WithFields(logrus.Fields{"job_id": job.ID, "error": err.Error()}).Warn("notion export failed")
			errs = append(errs, fmt.Errorf("job %d: %w", job.ID, err))
			continue
		}
		created++
		c.logger.WithFields(logrus.Fields{"job_id": job.ID, "page_id": pageID}).Debug("notion page created")
	}
	return created, errors.Join(errs...)
}
