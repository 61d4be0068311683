package controller

import (
	"fmt"

	"github.com/temirrrr/job-tracker/internal/domain"
)

// Phase is the state of the controller.
type Phase int

const (
	// PhaseViewing accepts every intent.
	PhaseViewing Phase = iota
	// PhaseSubmitting means a write (and its follow-up refresh) is
	// outstanding; every other intent is rejected.
	PhaseSubmitting
	// PhaseError behaves like PhaseViewing but carries the last failure.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseViewing:
		return "viewing"
	case PhaseSubmitting:
		return "submitting"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Op names the outstanding write.
type Op string

const (
	OpNone   Op = ""
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// EditTarget is either none (create mode) or the id of the record being
// edited. Field values are always looked up in the current collection.
type EditTarget struct {
	id  int64
	set bool
}

func NoTarget() EditTarget { return EditTarget{} }

func Target(id int64) EditTarget { return EditTarget{id: id, set: true} }

func (t EditTarget) ID() (int64, bool) { return t.id, t.set }

func (t EditTarget) IsNone() bool { return !t.set }

func (t EditTarget) String() string {
	if !t.set {
		return "none"
	}
	return fmt.Sprintf("job %d", t.id)
}

// Snapshot is an immutable copy of the controller state handed to views.
type Snapshot struct {
	Phase      Phase
	Collection []domain.Job
	Target     EditTarget
	Pending    Op
	// Committed is the write the last Submit or DeleteRecord got accepted
	// by the server, or OpNone if it was rejected locally or failed. It is
	// set even when the refresh after the write failed.
	Committed Op
	Err       error
}

// Editing resolves the edit target against the collection.
func (s Snapshot) Editing() (domain.Job, bool) {
	id, ok := s.Target.ID()
	if !ok {
		return domain.Job{}, false
	}
	return domain.FindJob(s.Collection, id)
}

// reconcile drops a target whose record is absent from jobs.
func reconcile(target EditTarget, jobs []domain.Job) EditTarget {
	id, ok := target.ID()
	if !ok {
		return target
	}
	if _, found := domain.FindJob(jobs, id); !found {
		return NoTarget()
	}
	return target
}
