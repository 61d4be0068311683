// Package controller keeps the displayed job collection in step with the
// server and tracks the single record being edited.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/temirrrr/job-tracker/internal/domain"
)

var (
	// ErrBusy rejects an intent while a write is outstanding.
	ErrBusy = errors.New("a write is already in progress")
	// ErrUnknownRecord rejects editing a record absent from the collection.
	ErrUnknownRecord = errors.New("record is not in the current collection")
	// ErrClosed rejects intents after Close.
	ErrClosed = errors.New("controller closed")
)

// Repository is the remote job collection.
type Repository interface {
	List(ctx context.Context) ([]domain.Job, error)
	Create(ctx context.Context, draft domain.JobFields) (domain.Job, error)
	Update(ctx context.Context, id int64, fields domain.JobFields) (domain.Job, error)
	Delete(ctx context.Context, id int64) error
}

// CredentialClearer is told to drop the credential when the server
// rejects it.
type CredentialClearer interface {
	ClearCredential(ctx context.Context) error
}

type Option func(*EditController)

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *EditController) { c.logger = l }
}

func WithCredentialClearer(cc CredentialClearer) Option {
	return func(c *EditController) { c.session = cc }
}

// EditController is the create/edit/delete state machine. Remote failures
// never come back as errors: they move the controller into PhaseError.
// Returned errors are local rejections (ErrBusy, ErrUnknownRecord,
// ErrClosed) that leave the state untouched.
type EditController struct {
	repo    Repository
	session CredentialClearer
	logger  logrus.FieldLogger

	mu         sync.Mutex
	phase      Phase
	collection []domain.Job
	target     EditTarget
	pending    Op
	committed  Op
	lastErr    error
	writes     uint64
	closed     bool
}

func New(repo Repository, opts ...Option) *EditController {
	c := &EditController{
		repo:       repo,
		logger:     logrus.StandardLogger(),
		collection: []domain.Job{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *EditController) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	jobs := make([]domain.Job, len(c.collection))
	copy(jobs, c.collection)
	return Snapshot{
		Phase:      c.phase,
		Collection: jobs,
		Target:     c.target,
		Pending:    c.pending,
		Committed:  c.committed,
		Err:        c.lastErr,
	}
}

// Close marks the controller as no longer displayed. Responses that
// arrive afterwards are dropped.
func (c *EditController) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// acceptLocked checks that a new intent may start.
func (c *EditController) acceptLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.phase == PhaseSubmitting {
		return ErrBusy
	}
	return nil
}

// Refresh replaces the collection with the server's. A refresh that
// completes after a write has started is discarded.
func (c *EditController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if err := c.acceptLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	epoch := c.writes
	c.mu.Unlock()

	jobs, err := c.repo.List(ctx)

	c.mu.Lock()
	if c.closed || c.writes != epoch || c.phase == PhaseSubmitting {
		c.mu.Unlock()
		c.logger.WithFields(logrus.Fields{"op": "refresh"}).Debug("discarding stale refresh")
		return nil
	}
	if err != nil {
		c.failLocked("refresh", err)
	} else {
		c.viewLocked(jobs, reconcile(c.target, jobs))
	}
	c.mu.Unlock()

	c.dropCredentialOnAuth(ctx, err)
	return nil
}

// BeginEdit switches to edit mode for a record of the current collection.
func (c *EditController) BeginEdit(job domain.Job) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptLocked(); err != nil {
		return err
	}
	if _, ok := domain.FindJob(c.collection, job.ID); !ok {
		return ErrUnknownRecord
	}
	c.target = Target(job.ID)
	c.phase = PhaseViewing
	c.lastErr = nil
	return nil
}

// CancelEdit returns to create mode.
func (c *EditController) CancelEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.acceptLocked(); err != nil {
		return err
	}
	c.target = NoTarget()
	c.phase = PhaseViewing
	c.lastErr = nil
	return nil
}

// Submit creates a record in create mode or updates the edit target in
// edit mode, then refreshes from the server. An empty status means new
// for a draft and the record's current status for an update.
func (c *EditController) Submit(ctx context.Context, fields domain.JobFields) error {
	c.mu.Lock()
	if err := c.acceptLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.committed = OpNone
	id, editing := c.target.ID()
	op := OpCreate
	if editing {
		op = OpUpdate
		if current, ok := domain.FindJob(c.collection, id); ok && fields.Status == "" {
			fields.Status = current.Status
		}
	} else {
		fields = fields.WithDefaults()
	}
	if err := domain.ValidateFields(fields); err != nil {
		c.failLocked("submit", err)
		c.mu.Unlock()
		return nil
	}
	c.beginWriteLocked(op)
	c.mu.Unlock()

	var err error
	if editing {
		_, err = c.repo.Update(ctx, id, fields)
	} else {
		_, err = c.repo.Create(ctx, fields)
	}
	if err != nil {
		c.finishFailedWrite(ctx, op, err)
		return nil
	}
	c.finishWrite(ctx, op, func(EditTarget, []domain.Job) EditTarget { return NoTarget() })
	return nil
}

// DeleteRecord removes a record. Deleting a record that is already gone
// is not an error.
func (c *EditController) DeleteRecord(ctx context.Context, id int64) error {
	c.mu.Lock()
	if err := c.acceptLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.beginWriteLocked(OpDelete)
	c.mu.Unlock()

	if err := c.repo.Delete(ctx, id); err != nil {
		c.finishFailedWrite(ctx, OpDelete, err)
		return nil
	}
	c.finishWrite(ctx, OpDelete, func(target EditTarget, jobs []domain.Job) EditTarget {
		if tid, ok := target.ID(); ok && tid == id {
			return NoTarget()
		}
		if jobs == nil {
			return target
		}
		return reconcile(target, jobs)
	})
	return nil
}

func (c *EditController) beginWriteLocked(op Op) {
	c.phase = PhaseSubmitting
	c.pending = op
	c.committed = OpNone
	c.lastErr = nil
	c.writes++
}

// finishWrite runs the authoritative refresh while still Submitting.
// nextTarget receives nil jobs when that refresh failed.
func (c *EditController) finishWrite(ctx context.Context, op Op, nextTarget func(EditTarget, []domain.Job) EditTarget) {
	if c.isClosed() {
		return
	}
	jobs, err := c.repo.List(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.logger.WithFields(logrus.Fields{"op": string(op)}).Debug("write committed")
	if err != nil {
		c.target = nextTarget(c.target, nil)
		c.failLocked(string(op)+" refresh", err)
	} else {
		c.viewLocked(jobs, nextTarget(c.target, jobs))
	}
	c.committed = op
	c.mu.Unlock()

	c.dropCredentialOnAuth(ctx, err)
}

// finishFailedWrite keeps the collection and target for a retry, except
// for a vanished record, which triggers an immediate reconcile.
func (c *EditController) finishFailedWrite(ctx context.Context, op Op, err error) {
	if c.isClosed() {
		return
	}

	var (
		jobs    []domain.Job
		listErr error
	)
	reload := domain.IsNotFound(err)
	if reload {
		jobs, listErr = c.repo.List(ctx)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if reload && listErr == nil {
		c.collection = jobs
		c.target = reconcile(c.target, jobs)
	}
	c.failLocked(string(op), err)
	c.mu.Unlock()

	c.dropCredentialOnAuth(ctx, err)
	c.dropCredentialOnAuth(ctx, listErr)
}

func (c *EditController) viewLocked(jobs []domain.Job, target EditTarget) {
	if jobs == nil {
		jobs = []domain.Job{}
	}
	c.collection = jobs
	c.target = target
	c.phase = PhaseViewing
	c.pending = OpNone
	c.lastErr = nil
}

func (c *EditController) failLocked(op string, err error) {
	c.phase = PhaseError
	c.pending = OpNone
	c.lastErr = err
	c.logger.WithFields(logrus.Fields{
		"op":    op,
		"kind":  string(domain.KindOf(err)),
		"error": err.Error(),
	}).Warn("operation failed")
}

func (c *EditController) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// dropCredentialOnAuth is only called for responses that were applied;
// a discarded response never logs the user out.
func (c *EditController) dropCredentialOnAuth(ctx context.Context, err error) {
	if c.session == nil || !domain.IsAuth(err) {
		return
	}
	if cerr := c.session.ClearCredential(ctx); cerr != nil {
		c.logger.WithFields(logrus.Fields{"error": cerr.Error()}).Error("failed to clear rejected credential")
	}
}
