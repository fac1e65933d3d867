package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/data/pgxutil"
	"github.com/target/filetrack-api/internal/domain/model"
)

const (
	jobColumns    = `id, description, author_id, state, created_at, updated_at`
	attrColumns   = `job_id, attribute_id, value`
	fileColumns   = `id, job_id, file_name, content_type, blob_url, blob_path`
	reportColumns = `id, job_id, report`
)

// JobRepo provides database operations for jobs, their attributes, files and reports.
type JobRepo struct {
	DB    *sql.DB
	clock Clock
}

var _ core.JobRepository = (*JobRepo)(nil)

// NewJobRepo creates a JobRepo stamping rows with the system clock.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{DB: db, clock: systemClock{}}
}

// NewJobRepoWithClock creates a JobRepo stamping rows with clock.
func NewJobRepoWithClock(db *sql.DB, clock Clock) *JobRepo {
	return &JobRepo{DB: db, clock: clock}
}

// WithTx runs fn inside a single transaction. Every write made through tx commits together.
func (r *JobRepo) WithTx(ctx context.Context, fn func(tx core.JobWriter) error) error {
	return pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			return fn(&jobWriter{q: tx, clock: r.clock})
		},
	})
}

func (r *JobRepo) write(ctx context.Context, fn func(w *jobWriter) error) error {
	return pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		return fn(&jobWriter{q: q, clock: r.clock})
	})
}

// GetJob returns the job with id or ErrJobNotFound.
func (r *JobRepo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
		if err != nil {
			return err
		}
		job, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// ListJobsInStates returns jobs whose state is one of states, oldest first.
func (r *JobRepo) ListJobsInStates(ctx context.Context, states []model.JobState) ([]model.Job, error) {
	if len(states) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(states))
	for _, s := range states {
		names = append(names, string(s))
	}

	var jobs []model.Job
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE state = ANY($1) ORDER BY created_at, id`, names)
		if err != nil {
			return err
		}
		jobs, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Job])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list jobs in states: %w", err)
	}
	return jobs, nil
}

// GetJobAttributes returns the attributes of a job ordered by tag id.
func (r *JobRepo) GetJobAttributes(ctx context.Context, jobID string) ([]model.JobAttribute, error) {
	var attrs []model.JobAttribute
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx,
			`SELECT `+attrColumns+` FROM job_attributes WHERE job_id = $1 ORDER BY attribute_id`, jobID)
		if err != nil {
			return err
		}
		attrs, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.JobAttribute])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get job attributes: %w", err)
	}
	return attrs, nil
}

// ListAttributesForJobs returns the attributes of several jobs keyed by job id.
func (r *JobRepo) ListAttributesForJobs(
	ctx context.Context,
	jobIDs []string,
) (map[string][]model.JobAttribute, error) {
	out := make(map[string][]model.JobAttribute, len(jobIDs))
	if len(jobIDs) == 0 {
		return out, nil
	}
	var attrs []model.JobAttribute
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx,
			`SELECT `+attrColumns+` FROM job_attributes WHERE job_id = ANY($1) ORDER BY job_id, attribute_id`, jobIDs)
		if err != nil {
			return err
		}
		attrs, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.JobAttribute])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list attributes for jobs: %w", err)
	}
	for _, a := range attrs {
		out[a.JobID] = append(out[a.JobID], a)
	}
	return out, nil
}

// GetJobFiles returns the files of a job in upload order.
func (r *JobRepo) GetJobFiles(ctx context.Context, jobID string) ([]model.JobFile, error) {
	var files []model.JobFile
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx,
			`SELECT `+fileColumns+` FROM job_files WHERE job_id = $1 ORDER BY created_at, id`, jobID)
		if err != nil {
			return err
		}
		files, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.JobFile])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get job files: %w", err)
	}
	return files, nil
}

// GetJobReport returns the job's report, or nil when none was attached.
func (r *JobRepo) GetJobReport(ctx context.Context, jobID string) (*model.JobReport, error) {
	var report model.JobReport
	err := pgxutil.WithQuerier(ctx, r.DB, func(q pgxutil.Querier) error {
		rows, err := q.Query(ctx, `SELECT `+reportColumns+` FROM job_reports WHERE job_id = $1`, jobID)
		if err != nil {
			return err
		}
		report, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.JobReport])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get job report: %w", err)
	}
	return &report, nil
}

// InsertJob inserts a job row.
func (r *JobRepo) InsertJob(ctx context.Context, job *model.Job) error {
	return r.write(ctx, func(w *jobWriter) error { return w.InsertJob(ctx, job) })
}

// UpdateJob rewrites the description and state of a job.
func (r *JobRepo) UpdateJob(ctx context.Context, job *model.Job) error {
	return r.write(ctx, func(w *jobWriter) error { return w.UpdateJob(ctx, job) })
}

// DeleteJob removes a job row.
func (r *JobRepo) DeleteJob(ctx context.Context, id string) error {
	return r.write(ctx, func(w *jobWriter) error { return w.DeleteJob(ctx, id) })
}

// UpsertAttributes inserts or replaces attribute values of a job.
func (r *JobRepo) UpsertAttributes(ctx context.Context, jobID string, attrs []model.AttributeValue) error {
	return r.write(ctx, func(w *jobWriter) error { return w.UpsertAttributes(ctx, jobID, attrs) })
}

// DeleteAttributes removes all attributes of a job.
func (r *JobRepo) DeleteAttributes(ctx context.Context, jobID string) error {
	return r.write(ctx, func(w *jobWriter) error { return w.DeleteAttributes(ctx, jobID) })
}

// InsertFiles inserts file rows.
func (r *JobRepo) InsertFiles(ctx context.Context, files []model.JobFile) error {
	return r.write(ctx, func(w *jobWriter) error { return w.InsertFiles(ctx, files) })
}

// UpdateFile rewrites the blob location of a file row.
func (r *JobRepo) UpdateFile(ctx context.Context, file *model.JobFile) error {
	return r.write(ctx, func(w *jobWriter) error { return w.UpdateFile(ctx, file) })
}

// DeleteFiles removes the given file rows of a job.
func (r *JobRepo) DeleteFiles(ctx context.Context, jobID string, ids []string) error {
	return r.write(ctx, func(w *jobWriter) error { return w.DeleteFiles(ctx, jobID, ids) })
}

// DeleteJobFiles removes all file rows of a job.
func (r *JobRepo) DeleteJobFiles(ctx context.Context, jobID string) error {
	return r.write(ctx, func(w *jobWriter) error { return w.DeleteJobFiles(ctx, jobID) })
}

// UpsertReport inserts or updates the report of a job.
func (r *JobRepo) UpsertReport(ctx context.Context, report *model.JobReport) (*model.JobReport, error) {
	var out *model.JobReport
	err := r.write(ctx, func(w *jobWriter) error {
		var e error
		out, e = w.UpsertReport(ctx, report)
		return e
	})
	return out, err
}

// DeleteReport removes the report of a job.
func (r *JobRepo) DeleteReport(ctx context.Context, jobID string) error {
	return r.write(ctx, func(w *jobWriter) error { return w.DeleteReport(ctx, jobID) })
}
