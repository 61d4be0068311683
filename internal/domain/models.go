package domain

import "strings"

// Status is the application stage of a job record, transmitted as a
// lowercase string literal.
type Status string

const (
	StatusNew       Status = "new"
	StatusApplied   Status = "applied"
	StatusInterview Status = "interview"
	StatusOffer     Status = "offer"
	StatusRejected  Status = "rejected"
)

// Statuses lists the enumeration in display order.
var Statuses = []Status{StatusNew, StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Statuses {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// Valid reports whether s is exactly one of the wire literals.
func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Job is a server-owned job application record. ID is assigned by the
// server and never generated client side.
type Job struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Company string `json:"company"`
	Link    string `json:"link,omitempty"`
	Status  Status `json:"status"`
	Notes   string `json:"notes,omitempty"`
}

// Fields returns the mutable part of the record, e.g. to pre-fill an edit form.
func (j Job) Fields() JobFields {
	return JobFields{
		Title:   j.Title,
		Company: j.Company,
		Link:    j.Link,
		Status:  j.Status,
		Notes:   j.Notes,
	}
}

// JobFields is the payload of a create (a draft) or an update.
type JobFields struct {
	Title   string `json:"title" validate:"notblank"`
	Company string `json:"company" validate:"notblank"`
	Link    string `json:"link,omitempty"`
	Status  Status `json:"status" validate:"required,status"`
	Notes   string `json:"notes,omitempty"`
}

// WithDefaults fills the status of a fresh draft.
func (f JobFields) WithDefaults() JobFields {
	if f.Status == "" {
		f.Status = StatusNew
	}
	return f
}

// FindJob returns the record with the given id from a collection.
func FindJob(jobs []Job, id int64) (Job, bool) {
	for _, j := range jobs {
		if j.ID == id {
			return j, true
		}
	}
	return Job{}, false
}
