package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/youfeed/internal/models"
	"github.com/desertthunder/youfeed/internal/shared"
)

// JobRepository persists [models.Job] records.
type JobRepository struct {
	q Querier
}

// NewJobRepository creates a new [JobRepository] bound to q.
func NewJobRepository(q Querier) *JobRepository {
	return &JobRepository{q: q}
}

const jobColumns = `name, type, playlist_id, target, profile, quality, export, index_range, status`

// Create inserts a new job. The referenced playlist must already exist.
func (r *JobRepository) Create(ctx context.Context, j *models.Job) error {
	if err := j.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `INSERT INTO jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query, r.args(j)...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", shared.ErrJobExists, j.Name)
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// Get retrieves a job by name.
func (r *JobRepository) Get(ctx context.Context, name string) (*models.Job, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE name = ?`, name)
	j, err := r.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}
	return j, nil
}

// Update stores every field of an existing job.
func (r *JobRepository) Update(ctx context.Context, j *models.Job) error {
	if err := j.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		UPDATE jobs
		SET type = ?, playlist_id = ?, target = ?, profile = ?, quality = ?, export = ?, index_range = ?, status = ?
		WHERE name = ?
	`
	args := append(r.args(j)[1:], j.Name)
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%w: %s", shared.ErrJobNotFound, j.Name))
}

// SetStatus replaces the status flags of a job.
func (r *JobRepository) SetStatus(ctx context.Context, name string, status models.JobStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE jobs SET status = ? WHERE name = ?`, status, name)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%w: %s", shared.ErrJobNotFound, name))
}

// Delete removes a job. The playlist it pointed at is kept.
func (r *JobRepository) Delete(ctx context.Context, name string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM jobs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return checkAffected(res, fmt.Errorf("%w: %s", shared.ErrJobNotFound, name))
}

// List returns jobs ordered by name, optionally only those without [models.JobDisabled].
func (r *JobRepository) List(ctx context.Context, enabledOnly bool) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	if enabledOnly {
		query += ` WHERE status & ? = 0`
		args = append(args, models.JobDisabled)
	}
	query += ` ORDER BY name ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := r.scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

func (r *JobRepository) args(j *models.Job) []any {
	return []any{
		j.Name,
		string(j.Type),
		j.PlaylistID,
		j.Target,
		nullString(j.Profile),
		nullInt(j.Quality),
		nullString(j.Export),
		nullString(j.Range.String()),
		j.Status,
	}
}

func (r *JobRepository) scanRow(s scanner) (*models.Job, error) {
	var (
		j       models.Job
		typ     string
		profile sql.NullString
		quality sql.NullInt64
		export  sql.NullString
		rng     sql.NullString
	)

	err := s.Scan(&j.Name, &typ, &j.PlaylistID, &j.Target, &profile, &quality, &export, &rng, &j.Status)
	if err != nil {
		return nil, err
	}

	j.Type = models.SourceType(typ)
	j.Profile = profile.String
	j.Export = export.String
	if quality.Valid {
		q := int(quality.Int64)
		j.Quality = &q
	}
	if j.Range, err = models.ParseIndexRange(rng.String); err != nil {
		return nil, fmt.Errorf("job %s: %w", j.Name, err)
	}
	return &j, nil
}
