// Package session holds the bearer credential of the signed-in user and
// attaches it to outbound requests. It knows nothing about job records.
package session

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultKey is the fixed name the credential is stored under.
const DefaultKey = "token"

// Store is a durable home for at most one credential. Load returns ""
// when nothing is stored.
type Store interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Session reads the durable store before every attachment so a login or
// logout done by another process is picked up. A failing store read falls
// back to the last value seen; reads never fail.
type Session struct {
	store  Store
	logger logrus.FieldLogger

	mu     sync.RWMutex
	cached string
}

func New(store Store, logger logrus.FieldLogger) *Session {
	return &Session{store: store, logger: logger}
}

// SetCredential persists token. An empty token clears the session.
func (s *Session) SetCredential(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return s.ClearCredential(ctx)
	}
	if err := s.store.Save(ctx, token); err != nil {
		return err
	}
	s.mu.Lock()
	s.cached = token
	s.mu.Unlock()
	return nil
}

// Credential returns the stored token, if any.
func (s *Session) Credential(ctx context.Context) (string, bool) {
	token, err := s.store.Load(ctx)
	if err != nil {
		s.logger.WithFields(logrus.Fields{"error": err.Error()}).Warn("credential store read failed, using cached credential")
		s.mu.RLock()
		token = s.cached
		s.mu.RUnlock()
		return token, token != ""
	}
	s.mu.Lock()
	s.cached = token
	s.mu.Unlock()
	return token, token != ""
}

// ClearCredential removes the stored token (logout, or a rejected token).
func (s *Session) ClearCredential(ctx context.Context) error {
	s.mu.Lock()
	s.cached = ""
	s.mu.Unlock()
	return s.store.Delete(ctx)
}

// Authenticated reports whether a credential is present.
func (s *Session) Authenticated(ctx context.Context) bool {
	_, ok := s.Credential(ctx)
	return ok
}

// Attach sets "Authorization: Bearer <token>" when a credential is present
// and leaves the request untouched otherwise.
func (s *Session) Attach(req *http.Request) {
	token, ok := s.Credential(req.Context())
	if !ok {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
