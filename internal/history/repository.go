package history

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateJob(ctx context.Context, job *StageJob) error
	FinishJob(ctx context.Context, id, status, errorMsg string, duration time.Duration) error
	GetJob(ctx context.Context, id string) (*StageJob, error)
	ListJobs(ctx context.Context, limit int) ([]*StageJob, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *StageJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stage_jobs (id, project_id, stage, status, error, duration_ms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.ProjectID, j.Stage, j.Status, nullString(j.Error), j.DurationMs,
		j.CreatedAt.Format(time.RFC3339), j.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) FinishJob(ctx context.Context, id, status, errorMsg string, duration time.Duration) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE stage_jobs SET status = ?, error = ?, duration_ms = ?, updated_at = ?
		WHERE id = ?
	`, status, nullString(errorMsg), duration.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*StageJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, stage, status, error, duration_ms, created_at, updated_at
		FROM stage_jobs WHERE id = ?
	`, id)
	return scanJob(row)
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*StageJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, stage, status, error, duration_ms, created_at, updated_at
		FROM stage_jobs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*StageJob
	for rows.Next() {
		var j StageJob
		var errMsg sql.NullString
		var createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.ProjectID, &j.Stage, &j.Status, &errMsg, &j.DurationMs, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		j.Error = errMsg.String
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func scanJob(row *sql.Row) (*StageJob, error) {
	var j StageJob
	var errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.ProjectID, &j.Stage, &j.Status, &errMsg, &j.DurationMs, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.Error = errMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
