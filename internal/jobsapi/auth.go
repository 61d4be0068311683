package jobsapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/temirrrr/job-tracker/internal/domain"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges a username and password for a bearer token. The caller
// stores the token in the session.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "login"
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.NetworkError(op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var parsed tokenResponse
	if _, err := c.send(op, req, &parsed); err != nil {
		return "", err
	}
	if parsed.AccessToken == "" {
		return "", domain.AuthError(op, "no access token in response")
	}
	return parsed.AccessToken, nil
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	payload := registerRequest{Username: username, Email: email, Password: password}
	_, err := c.doJSONUnauthenticated(ctx, "register", http.MethodPost, "/register", payload)
	return err
}

func (c *Client) doJSONUnauthenticated(ctx context.Context, op, method, path string, in any) (int, error) {
	return c.withoutSession().doJSON(ctx, op, method, path, in, nil)
}

func (c *Client) withoutSession() *Client {
	cp := *c
	cp.session = noSession{}
	return &cp
}

type noSession struct{}

func (noSession) Attach(*http.Request) {}
