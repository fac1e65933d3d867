package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/data/pgxutil"
	"github.com/target/filetrack-api/internal/domain/model"
)

// jobWriter executes job mutations against a pooled connection or an open transaction.
type jobWriter struct {
	q     pgxutil.Querier
	clock Clock
}

var _ core.JobWriter = (*jobWriter)(nil)

func (w *jobWriter) InsertJob(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return ErrJobIDRequired
	}
	now := w.clock.Now()
	_, err := w.q.Exec(ctx, `
		INSERT INTO jobs (id, description, author_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		job.ID, job.Description, job.AuthorID, string(job.State), now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrJobExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

func (w *jobWriter) UpdateJob(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return ErrJobIDRequired
	}
	now := w.clock.Now()
	ct, err := w.q.Exec(ctx, `
		UPDATE jobs SET description = $2, state = $3, updated_at = $4
		WHERE id = $1`,
		job.ID, job.Description, string(job.State), now)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	job.UpdatedAt = now
	return nil
}

func (w *jobWriter) DeleteJob(ctx context.Context, id string) error {
	ct, err := w.q.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (w *jobWriter) UpsertAttributes(ctx context.Context, jobID string, attrs []model.AttributeValue) error {
	if len(attrs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(attrs))
	values := make([]string, 0, len(attrs))
	for _, a := range attrs {
		ids = append(ids, a.ID)
		values = append(values, a.Value)
	}
	_, err := w.q.Exec(ctx, `
		INSERT INTO job_attributes (job_id, attribute_id, value)
		SELECT $1, a.attribute_id, a.value
		FROM unnest($2::text[], $3::text[]) AS a(attribute_id, value)
		ON CONFLICT (job_id, attribute_id) DO UPDATE SET value = EXCLUDED.value`,
		jobID, ids, values)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrJobNotFound
		}
		return fmt.Errorf("upsert job attributes: %w", err)
	}
	return nil
}

func (w *jobWriter) DeleteAttributes(ctx context.Context, jobID string) error {
	if _, err := w.q.Exec(ctx, `DELETE FROM job_attributes WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("delete job attributes: %w", err)
	}
	return nil
}

func (w *jobWriter) InsertFiles(ctx context.Context, files []model.JobFile) error {
	if len(files) == 0 {
		return nil
	}
	cols := make([][]string, 6)
	for _, f := range files {
		cols[0] = append(cols[0], f.ID)
		cols[1] = append(cols[1], f.JobID)
		cols[2] = append(cols[2], f.FileName)
		cols[3] = append(cols[3], f.ContentType)
		cols[4] = append(cols[4], f.BlobURL)
		cols[5] = append(cols[5], f.BlobPath)
	}
	_, err := w.q.Exec(ctx, `
		INSERT INTO job_files (id, job_id, file_name, content_type, blob_url, blob_path, created_at)
		SELECT f.id, f.job_id, f.file_name, f.content_type, f.blob_url, f.blob_path,
			$7::timestamptz + f.n * interval '1 microsecond'
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[], $6::text[])
			WITH ORDINALITY AS f(id, job_id, file_name, content_type, blob_url, blob_path, n)`,
		cols[0], cols[1], cols[2], cols[3], cols[4], cols[5], w.clock.Now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrJobNotFound
		}
		return fmt.Errorf("insert job files: %w", err)
	}
	return nil
}

func (w *jobWriter) UpdateFile(ctx context.Context, file *model.JobFile) error {
	if file == nil {
		return errors.New("file is required")
	}
	ct, err := w.q.Exec(ctx, `
		UPDATE job_files SET blob_path = $3, blob_url = $4
		WHERE id = $1 AND job_id = $2`,
		file.ID, file.JobID, file.BlobPath, file.BlobURL)
	if err != nil {
		return fmt.Errorf("update job file: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrJobFileNotFound
	}
	return nil
}

func (w *jobWriter) DeleteFiles(ctx context.Context, jobID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := w.q.Exec(ctx, `DELETE FROM job_files WHERE job_id = $1 AND id = ANY($2)`, jobID, ids); err != nil {
		return fmt.Errorf("delete job files: %w", err)
	}
	return nil
}

func (w *jobWriter) DeleteJobFiles(ctx context.Context, jobID string) error {
	if _, err := w.q.Exec(ctx, `DELETE FROM job_files WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("delete all job files: %w", err)
	}
	return nil
}

func (w *jobWriter) UpsertReport(ctx context.Context, report *model.JobReport) (*model.JobReport, error) {
	if report == nil || report.JobID == "" {
		return nil, ErrJobIDRequired
	}
	rows, err := w.q.Query(ctx, `
		INSERT INTO job_reports (id, job_id, report) VALUES ($1, $2, $3)
		ON CONFLICT (job_id) DO UPDATE SET report = EXCLUDED.report
		RETURNING `+reportColumns,
		report.ID, report.JobID, report.Report)
	if err != nil {
		return nil, fmt.Errorf("upsert job report: %w", err)
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[model.JobReport])
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("upsert job report: %w", err)
	}
	return &out, nil
}

func (w *jobWriter) DeleteReport(ctx context.Context, jobID string) error {
	if _, err := w.q.Exec(ctx, `DELETE FROM job_reports WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("delete job report: %w", err)
	}
	return nil
}
