package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/temirrrr/job-tracker/internal/domain"
)

const jobColumns = `id, title, company, COALESCE(link, ''), status, COALESCE(notes, '')`

func scanJob(row interface{ Scan(...any) error }) (domain.Job, error) {
	var (
		j      domain.Job
		status string
	)
	if err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Link, &status, &j.Notes); err != nil {
		return domain.Job{}, err
	}
	j.Status = domain.Status(status)
	return j, nil
}

// ListJobs returns the owner's jobs in id order.
func (s *Store) ListJobs(ctx context.Context, ownerID int64, skip, limit int) ([]domain.Job, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE owner_id = ? ORDER BY id LIMIT ? OFFSET ?`,
		ownerID, limit, skip,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]domain.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// GetJob returns ErrNotFound for missing ids and for jobs of other owners.
func (s *Store) GetJob(ctx context.Context, ownerID, id int64) (domain.Job, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ? AND owner_id = ?`, id, ownerID)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, ErrNotFound
	}
	return j, err
}

func (s *Store) CreateJob(ctx context.Context, ownerID int64, f domain.JobFields) (domain.Job, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO jobs (owner_id, title, company, link, status, notes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ownerID, f.Title, f.Company, f.Link, string(f.Status), f.Notes,
	)
	if err != nil {
		return domain.Job{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Job{}, err
	}
	return s.GetJob(ctx, ownerID, id)
}

// UpdateJob replaces the mutable fields of an existing job.
func (s *Store) UpdateJob(ctx context.Context, ownerID, id int64, f domain.JobFields) (domain.Job, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Job{}, err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET title = ?, company = ?, link = ?, status = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND owner_id = ?`,
		f.Title, f.Company, f.Link, string(f.Status), f.Notes, id, ownerID,
	)
	if err != nil {
		return domain.Job{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Job{}, err
	}
	if n == 0 {
		return domain.Job{}, ErrNotFound
	}

	j, err := scanJob(tx.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err != nil {
		return domain.Job{}, err
	}

	committed = true
	return j, tx.Commit()
}

func (s *Store) DeleteJob(ctx context.Context, ownerID, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM jobs WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
