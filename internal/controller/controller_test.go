package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirrrr/job-tracker/internal/domain"
	"github.com/temirrrr/job-tracker/internal/logging"
)

// fakeRepo behaves like the server (assigns ids, trims titles) unless a
// hook overrides a call.
type fakeRepo struct {
	mu     sync.Mutex
	jobs   []domain.Job
	nextID int64

	listCalls, createCalls, updateCalls, deleteCalls int

	listHook   func(ctx context.Context, call int) ([]domain.Job, error)
	createHook func(ctx context.Context, f domain.JobFields) (domain.Job, error)
	updateHook func(ctx context.Context, id int64, f domain.JobFields) (domain.Job, error)
	deleteHook func(ctx context.Context, id int64) error
}

func newFakeRepo(jobs ...domain.Job) *fakeRepo {
	r := &fakeRepo{nextID: 100}
	r.jobs = append(r.jobs, jobs...)
	return r
}

func (r *fakeRepo) List(ctx context.Context) ([]domain.Job, error) {
	r.mu.Lock()
	r.listCalls++
	call := r.listCalls
	hook := r.listHook
	r.mu.Unlock()
	if hook != nil {
		if jobs, err := hook(ctx, call); jobs != nil || err != nil {
			return jobs, err
		}
	}
	return r.snapshot(), nil
}

func (r *fakeRepo) snapshot() []domain.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

func (r *fakeRepo) Create(ctx context.Context, f domain.JobFields) (domain.Job, error) {
	r.mu.Lock()
	r.createCalls++
	hook := r.createHook
	r.mu.Unlock()
	if hook != nil {
		return hook(ctx, f)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	j := domain.Job{ID: r.nextID, Title: strings.TrimSpace(f.Title), Company: f.Company, Link: f.Link, Status: f.Status, Notes: f.Notes}
	r.jobs = append(r.jobs, j)
	return j, nil
}

func (r *fakeRepo) Update(ctx context.Context, id int64, f domain.JobFields) (domain.Job, error) {
	r.mu.Lock()
	r.updateCalls++
	hook := r.updateHook
	r.mu.Unlock()
	if hook != nil {
		return hook(ctx, id, f)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, j := range r.jobs {
		if j.ID == id {
			r.jobs[i] = domain.Job{ID: id, Title: strings.TrimSpace(f.Title), Company: f.Company, Link: f.Link, Status: f.Status, Notes: f.Notes}
			return r.jobs[i], nil
		}
	}
	return domain.Job{}, domain.NotFoundError("update job", "Job not found")
}

func (r *fakeRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	r.deleteCalls++
	hook := r.deleteHook
	r.mu.Unlock()
	if hook != nil {
		return hook(ctx, id)
	}
	r.remove(id)
	return nil
}

func (r *fakeRepo) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.jobs[:0]
	for _, j := range r.jobs {
		if j.ID != id {
			kept = append(kept, j)
		}
	}
	r.jobs = kept
}

func (r *fakeRepo) counts() (list, create, update, del int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls, r.createCalls, r.updateCalls, r.deleteCalls
}

type fakeSession struct {
	mu      sync.Mutex
	cleared int
}

func (s *fakeSession) ClearCredential(context.Context) error {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()
	return nil
}

func newController(repo *fakeRepo) (*EditController, *fakeSession) {
	sess := &fakeSession{}
	return New(repo, WithLogger(logging.Discard()), WithCredentialClearer(sess)), sess
}

var (
	job7 = domain.Job{ID: 7, Title: "Backend", Company: "Acme", Status: domain.StatusApplied}
	job8 = domain.Job{ID: 8, Title: "SRE", Company: "Globex", Status: domain.StatusNew, Link: "globex.com/sre"}
)

func TestNew_InitialState(t *testing.T) {
	c, _ := newController(newFakeRepo())
	snap := c.Snapshot()

	assert.Equal(t, PhaseViewing, snap.Phase)
	assert.Empty(t, snap.Collection)
	assert.True(t, snap.Target.IsNone())
	assert.NoError(t, snap.Err)
}

func TestRefresh_ReplacesCollection(t *testing.T) {
	c, _ := newController(newFakeRepo(job7, job8))
	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, PhaseViewing, snap.Phase)
	assert.Equal(t, []domain.Job{job7, job8}, snap.Collection)
}

func TestSubmit_CreateModeCreatesThenRefreshes(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(repo)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, domain.JobFields{Title: " Eng ", Company: "Acme", Status: domain.StatusNew}))

	list, create, update, _ := repo.counts()
	assert.Equal(t, 1, create)
	assert.Equal(t, 0, update)
	assert.Equal(t, 1, list)

	snap := c.Snapshot()
	assert.Equal(t, PhaseViewing, snap.Phase)
	assert.True(t, snap.Target.IsNone())
	require.Len(t, snap.Collection, 1)
	assert.Equal(t, "Eng", snap.Collection[0].Title, "collection shows the server's normalized value")
}

func TestSubmit_DefaultsStatus(t *testing.T) {
	repo := newFakeRepo()
	var got domain.JobFields
	repo.createHook = func(_ context.Context, f domain.JobFields) (domain.Job, error) {
		got = f
		return domain.Job{ID: 1}, nil
	}
	c, _ := newController(repo)

	require.NoError(t, c.Submit(context.Background(), domain.JobFields{Title: "Eng", Company: "Acme"}))
	assert.Equal(t, domain.StatusNew, got.Status)
}

func TestSubmit_EditModeUpdatesTarget(t *testing.T) {
	repo := newFakeRepo(job7, job8)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(job7))

	fields := job7.Fields()
	fields.Status = domain.StatusInterview
	require.NoError(t, c.Submit(ctx, fields))

	_, create, update, _ := repo.counts()
	assert.Equal(t, 0, create)
	assert.Equal(t, 1, update)

	snap := c.Snapshot()
	assert.True(t, snap.Target.IsNone())
	j, ok := domain.FindJob(snap.Collection, 7)
	require.True(t, ok)
	assert.Equal(t, domain.StatusInterview, j.Status)
}

func TestBeginEdit_IsLocalAndResolvesByID(t *testing.T) {
	repo := newFakeRepo(job7)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	require.NoError(t, c.BeginEdit(domain.Job{ID: 7, Title: "detached copy"}))
	list, _, _, _ := repo.counts()
	assert.Equal(t, 1, list, "beginEdit makes no network call")

	editing, ok := c.Snapshot().Editing()
	require.True(t, ok)
	assert.Equal(t, "Backend", editing.Title, "fields come from the collection, not the passed copy")
}

func TestBeginEdit_UnknownRecordRejected(t *testing.T) {
	c, _ := newController(newFakeRepo(job7))
	require.NoError(t, c.Refresh(context.Background()))

	assert.ErrorIs(t, c.BeginEdit(job8), ErrUnknownRecord)
	assert.True(t, c.Snapshot().Target.IsNone())
}

func TestCancelEdit(t *testing.T) {
	c, _ := newController(newFakeRepo(job7))
	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.BeginEdit(job7))

	require.NoError(t, c.CancelEdit())
	assert.True(t, c.Snapshot().Target.IsNone())
}

func TestRefresh_DropsVanishedTarget(t *testing.T) {
	repo := newFakeRepo(job7, job8)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(job7))

	repo.remove(7) // deleted by another agent
	require.NoError(t, c.Refresh(ctx))

	snap := c.Snapshot()
	assert.True(t, snap.Target.IsNone())
	assert.Equal(t, []domain.Job{job8}, snap.Collection)
}

func TestRefresh_KeepsTargetWithUpdatedFields(t *testing.T) {
	repo := newFakeRepo(job7)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(job7))

	_, err := repo.Update(ctx, 7, domain.JobFields{Title: "Staff", Company: "Acme", Status: domain.StatusOffer})
	require.NoError(t, err)
	require.NoError(t, c.Refresh(ctx))

	editing, ok := c.Snapshot().Editing()
	require.True(t, ok)
	assert.Equal(t, "Staff", editing.Title)
}

func TestRefresh_FailurePreservesCollection(t *testing.T) {
	repo := newFakeRepo(job7)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(job7))

	repo.listHook = func(context.Context, int) ([]domain.Job, error) {
		return nil, domain.NetworkError("list jobs", errors.New("connection refused"))
	}
	require.NoError(t, c.Refresh(ctx))

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.True(t, domain.IsNetwork(snap.Err))
	assert.Equal(t, []domain.Job{job7}, snap.Collection)
	id, ok := snap.Target.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestSubmit_ServerValidationKeepsState(t *testing.T) {
	repo := newFakeRepo(job7)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(job7))

	repo.updateHook = func(context.Context, int64, domain.JobFields) (domain.Job, error) {
		return domain.Job{}, domain.ValidationError("update job", "title too long")
	}
	require.NoError(t, c.Submit(ctx, job7.Fields()))

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.True(t, domain.IsValidation(snap.Err))
	assert.Equal(t, []domain.Job{job7}, snap.Collection)
	id, _ := snap.Target.ID()
	assert.Equal(t, int64(7), id)

	list, _, _, _ := repo.counts()
	assert.Equal(t, 1, list, "no refresh after a validation failure")
}

func TestSubmit_LocalValidationSkipsNetwork(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(repo)

	require.NoError(t, c.Submit(context.Background(), domain.JobFields{Title: "", Company: "Acme"}))

	_, create, _, _ := repo.counts()
	assert.Equal(t, 0, create)
	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.True(t, domain.IsValidation(snap.Err))
}

func TestSubmit_RetryFromErrorPhase(t *testing.T) {
	repo := newFakeRepo()
	failures := 1
	repo.createHook = func(ctx context.Context, f domain.JobFields) (domain.Job, error) {
		if failures > 0 {
			failures--
			return domain.Job{}, domain.NetworkError("create job", errors.New("timeout"))
		}
		return domain.Job{ID: 1, Title: f.Title, Company: f.Company, Status: f.Status}, nil
	}
	c, _ := newController(repo)
	ctx := context.Background()
	draft := domain.JobFields{Title: "Eng", Company: "Acme", Status: domain.StatusNew}

	require.NoError(t, c.Submit(ctx, draft))
	assert.Equal(t, PhaseError, c.Snapshot().Phase)

	require.NoError(t, c.Submit(ctx, draft))
	assert.Equal(t, PhaseViewing, c.Snapshot().Phase)
	assert.NoError(t, c.Snapshot().Err)
}

func TestSubmit_AtMostOneOutstandingWrite(t *testing.T) {
	repo := newFakeRepo()
	started := make(chan struct{})
	release := make(chan struct{})
	repo.createHook = func(ctx context.Context, f domain.JobFields) (domain.Job, error) {
		close(started)
		<-release
		return domain.Job{ID: 1, Title: f.Title, Company: f.Company, Status: f.Status}, nil
	}
	c, _ := newController(repo)
	ctx := context.Background()
	draft := domain.JobFields{Title: "Eng", Company: "Acme", Status: domain.StatusNew}

	done := make(chan error, 1)
	go func() { done <- c.Submit(ctx, draft) }()
	<-started

	snap := c.Snapshot()
	assert.Equal(t, PhaseSubmitting, snap.Phase)
	assert.Equal(t, OpCreate, snap.Pending)

	assert.ErrorIs(t, c.Submit(ctx, draft), ErrBusy)
	assert.ErrorIs(t, c.Refresh(ctx), ErrBusy)
	assert.ErrorIs(t, c.DeleteRecord(ctx, 1), ErrBusy)
	assert.ErrorIs(t, c.CancelEdit(), ErrBusy)

	close(release)
	require.NoError(t, <-done)

	_, create, _, del := repo.counts()
	assert.Equal(t, 1, create)
	assert.Equal(t, 0, del)
	assert.Equal(t, PhaseViewing, c.Snapshot().Phase)
}

func TestRefresh_StaleResultDiscardedAfterWrite(t *testing.T) {
	repo := newFakeRepo(job7)
	listStarted := make(chan struct{})
	releaseList := make(chan struct{})
	repo.listHook = func(_ context.Context, call int) ([]domain.Job, error) {
		if call == 1 {
			close(listStarted)
			<-releaseList
			return []domain.Job{job7}, nil
		}
		return nil, nil
	}
	c, _ := newController(repo)
	ctx := context.Background()

	refreshed := make(chan error, 1)
	go func() { refreshed <- c.Refresh(ctx) }()
	<-listStarted

	require.NoError(t, c.Submit(ctx, domain.JobFields{Title: "Eng", Company: "Acme", Status: domain.StatusNew}))
	assert.Len(t, c.Snapshot().Collection, 2)

	close(releaseList)
	require.NoError(t, <-refreshed)

	assert.Len(t, c.Snapshot().Collection, 2, "the older list response must not overwrite the write's refresh")
}

func TestDeleteRecord_Twice(t *testing.T) {
	repo := newFakeRepo(job7, job8)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	require.NoError(t, c.DeleteRecord(ctx, 7))
	require.NoError(t, c.DeleteRecord(ctx, 7))

	snap := c.Snapshot()
	assert.Equal(t, PhaseViewing, snap.Phase)
	assert.NoError(t, snap.Err)
	assert.Equal(t, []domain.Job{job8}, snap.Collection)
}

func TestDeleteRecord_OfEditTargetResetsIt(t *testing.T) {
	repo := newFakeRepo(job7, job8)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(job7))

	require.NoError(t, c.DeleteRecord(ctx, 7))
	assert.True(t, c.Snapshot().Target.IsNone())
}

func TestDeleteRecord_OtherRecordKeepsTarget(t *testing.T) {
	repo := newFakeRepo(job7, job8)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(job7))

	require.NoError(t, c.DeleteRecord(ctx, 8))
	id, ok := c.Snapshot().Target.ID()
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestDeleteRecord_FailureLeavesCollection(t *testing.T) {
	repo := newFakeRepo(job7)
	repo.deleteHook = func(context.Context, int64) error {
		return domain.NetworkError("delete job", errors.New("no route to host"))
	}
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))

	require.NoError(t, c.DeleteRecord(ctx, 7))

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, []domain.Job{job7}, snap.Collection)
	list, _, _, _ := repo.counts()
	assert.Equal(t, 1, list)
}

func TestSubmit_UpdateOfVanishedRecordReconciles(t *testing.T) {
	repo := newFakeRepo(job7, job8)
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(job7))
	repo.remove(7)

	require.NoError(t, c.Submit(ctx, job7.Fields()))

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.True(t, domain.IsNotFound(snap.Err))
	assert.True(t, snap.Target.IsNone())
	assert.Equal(t, []domain.Job{job8}, snap.Collection)
}

func TestSubmit_RefreshAfterWriteFails(t *testing.T) {
	repo := newFakeRepo()
	repo.listHook = func(context.Context, int) ([]domain.Job, error) {
		return nil, domain.NetworkError("list jobs", errors.New("reset by peer"))
	}
	c, _ := newController(repo)

	require.NoError(t, c.Submit(context.Background(), domain.JobFields{Title: "Eng", Company: "Acme", Status: domain.StatusNew}))

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.True(t, snap.Target.IsNone(), "the write succeeded so the form is done")
	assert.Equal(t, OpCreate, snap.Committed)
	assert.Empty(t, snap.Collection)
}

func TestSubmit_CommittedClearedByFailedWrite(t *testing.T) {
	repo := newFakeRepo()
	c, _ := newController(repo)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, domain.JobFields{Title: "Eng", Company: "Acme"}))
	assert.Equal(t, OpCreate, c.Snapshot().Committed)

	repo.createHook = func(context.Context, domain.JobFields) (domain.Job, error) {
		return domain.Job{}, domain.NetworkError("create job", errors.New("timeout"))
	}
	require.NoError(t, c.Submit(ctx, domain.JobFields{Title: "Ops", Company: "Acme"}))
	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.Equal(t, OpNone, snap.Committed)

	repo.createHook = nil
	require.NoError(t, c.Submit(ctx, domain.JobFields{Title: "Ops", Company: "Acme"}))
	require.Equal(t, OpCreate, c.Snapshot().Committed)
	require.NoError(t, c.Submit(ctx, domain.JobFields{Company: "Acme"}))
	assert.Equal(t, OpNone, c.Snapshot().Committed, "a locally rejected submit commits nothing")
}

func TestSubmit_UpdateWithoutStatusKeepsCurrent(t *testing.T) {
	offer := domain.Job{ID: 9, Title: "Staff", Company: "Initech", Status: domain.StatusOffer}
	repo := newFakeRepo(offer)
	var got domain.JobFields
	repo.updateHook = func(_ context.Context, id int64, f domain.JobFields) (domain.Job, error) {
		got = f
		return domain.Job{ID: id}, nil
	}
	c, _ := newController(repo)
	ctx := context.Background()
	require.NoError(t, c.Refresh(ctx))
	require.NoError(t, c.BeginEdit(offer))

	require.NoError(t, c.Submit(ctx, domain.JobFields{Title: "Staff Engineer", Company: "Initech"}))
	assert.Equal(t, domain.StatusOffer, got.Status)
	assert.Equal(t, OpUpdate, c.Snapshot().Committed)
}

func TestAuthErrorClearsCredential(t *testing.T) {
	repo := newFakeRepo()
	repo.listHook = func(context.Context, int) ([]domain.Job, error) {
		return nil, domain.AuthError("list jobs", "Could not validate credentials")
	}
	c, sess := newController(repo)

	require.NoError(t, c.Refresh(context.Background()))

	snap := c.Snapshot()
	assert.Equal(t, PhaseError, snap.Phase)
	assert.True(t, domain.IsAuth(snap.Err))
	assert.Equal(t, 1, sess.cleared)
}

func TestClose_DropsLateResponses(t *testing.T) {
	repo := newFakeRepo(job7)
	started := make(chan struct{})
	release := make(chan struct{})
	repo.listHook = func(context.Context, int) ([]domain.Job, error) {
		close(started)
		<-release
		return []domain.Job{job7}, nil
	}
	c, _ := newController(repo)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-started
	c.Close()
	close(release)
	require.NoError(t, <-done)

	assert.Empty(t, c.Snapshot().Collection)
	assert.ErrorIs(t, c.Refresh(context.Background()), ErrClosed)
}

func TestRefresh_StaleAuthFailureKeepsCredential(t *testing.T) {
	repo := newFakeRepo(job7)
	listStarted := make(chan struct{})
	releaseList := make(chan struct{})
	repo.listHook = func(_ context.Context, call int) ([]domain.Job, error) {
		if call == 1 {
			close(listStarted)
			<-releaseList
			return nil, domain.AuthError("list jobs", "Could not validate credentials")
		}
		return nil, nil
	}
	c, sess := newController(repo)
	ctx := context.Background()

	refreshed := make(chan error, 1)
	go func() { refreshed <- c.Refresh(ctx) }()
	<-listStarted

	require.NoError(t, c.Submit(ctx, domain.JobFields{Title: "Eng", Company: "Acme"}))
	close(releaseList)
	require.NoError(t, <-refreshed)

	assert.Equal(t, PhaseViewing, c.Snapshot().Phase)
	assert.Equal(t, 0, sess.cleared, "a discarded response must not log the user out")
}

func TestClose_LateAuthFailureKeepsCredential(t *testing.T) {
	repo := newFakeRepo()
	started := make(chan struct{})
	release := make(chan struct{})
	repo.listHook = func(context.Context, int) ([]domain.Job, error) {
		close(started)
		<-release
		return nil, domain.AuthError("list jobs", "Could not validate credentials")
	}
	c, sess := newController(repo)

	done := make(chan error, 1)
	go func() { done <- c.Refresh(context.Background()) }()
	<-started
	c.Close()
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, sess.cleared)
}
