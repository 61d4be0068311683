// Package jobsapi is the HTTP gateway to the remote job collection and
// the auth exchange. Every call is a single attempt; retries are the
// caller's business.
package jobsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/domain"
)

// Attacher decorates outbound requests with the session credential.
type Attacher interface {
	Attach(req *http.Request)
}

type Client struct {
	baseURL    string
	session    Attacher
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// NewClient builds a client for baseURL. A nil httpClient means a client
// without a timeout.
func NewClient(baseURL string, session Attacher, httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		session:    session,
		httpClient: httpClient,
		logger:     logger,
	}
}

// List returns the collection in server order.
func (c *Client) List(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	if _, err := c.doJSON(ctx, "list jobs", http.MethodGet, "/jobs/", nil, &jobs); err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return jobs, nil
}

// Create submits a draft; the server assigns the id.
func (c *Client) Create(ctx context.Context, draft domain.JobFields) (domain.Job, error) {
	var job domain.Job
	if _, err := c.doJSON(ctx, "create job", http.MethodPost, "/jobs/", draft, &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

func (c *Client) Update(ctx context.Context, id int64, fields domain.JobFields) (domain.Job, error) {
	var job domain.Job
	if _, err := c.doJSON(ctx, "update job", http.MethodPut, jobPath(id), fields, &job); err != nil {
		return domain.Job{}, err
	}
	return job, nil
}

// Delete succeeds when the record is already gone.
func (c *Client) Delete(ctx context.Context, id int64) error {
	_, err := c.doJSON(ctx, "delete job", http.MethodDelete, jobPath(id), nil, nil)
	if domain.IsNotFound(err) {
		c.logger.WithFields(logrus.Fields{"job_id": id}).Debug("delete of missing job treated as success")
		return nil
	}
	return err
}

func jobPath(id int64) string {
	return "/jobs/" + strconv.FormatInt(id, 10)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, domain.NetworkError(op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.session.Attach(req)
	return c.send(op, req, out)
}

func (c *Client) send(op string, req *http.Request, out any) (int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"op":    op,
			"error": err.Error(),
		}).Warn("request failed")
		return 0, domain.NetworkError(op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, domain.NetworkError(op, fmt.Errorf("read response: %w", err))
	}

	c.logger.WithFields(logrus.Fields{
		"op":          op,
		"method":      req.Method,
		"path":        req.URL.Path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, mapStatus(op, resp.StatusCode, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return resp.StatusCode, domain.NetworkError(op, fmt.Errorf("decode response: %w", err))
	}
	return resp.StatusCode, nil
}
