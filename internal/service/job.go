package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/sync/errgroup"

	"github.com/target/filetrack-api/internal/core"
	domainjob "github.com/target/filetrack-api/internal/domain/job"
	"github.com/target/filetrack-api/internal/domain/model"
	apperrors "github.com/target/filetrack-api/internal/errors"
	"github.com/target/filetrack-api/internal/observability/metrics"
	"github.com/target/filetrack-api/internal/observability/statsd"
)

const defaultDownloadConcurrency = 4

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo                core.JobRepository  // Required: job record store
	Blobs               core.BlobStore      // Required: file content store
	Scratch             core.ScratchStore   // Required: download archive area
	Settings            core.SettingsReader // Required: tags and path schema
	Locker              core.JobLocker      // Optional: per-job mutation lock, no-op when nil
	Logger              *slog.Logger        // Optional: structured logger
	Metrics             statsd.Sink         // Optional: metrics sink
	DownloadConcurrency int                 // Optional: parallel blob downloads per archive, defaults to 4
	NewID               func() string       // Optional: id generator, defaults to uuid.NewString
}

// JobService implements the job lifecycle: creating, updating, deleting, promoting and reverting jobs,
// keeping blob locations in step with attribute values, and packaging job files for download.
type JobService struct {
	repo        core.JobRepository
	blobs       core.BlobStore
	scratch     core.ScratchStore
	settings    core.SettingsReader
	locker      core.JobLocker
	logger      *slog.Logger
	metrics     statsd.Sink
	concurrency int
	newID       func() string
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	switch {
	case opts.Repo == nil:
		return nil, errors.New("JobRepository is required")
	case opts.Blobs == nil:
		return nil, errors.New("BlobStore is required")
	case opts.Scratch == nil:
		return nil, errors.New("ScratchStore is required")
	case opts.Settings == nil:
		return nil, errors.New("SettingsReader is required")
	}

	locker := opts.Locker
	if locker == nil {
		locker = core.NoopLocker{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	concurrency := opts.DownloadConcurrency
	if concurrency <= 0 {
		concurrency = defaultDownloadConcurrency
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &JobService{
		repo:        opts.Repo,
		blobs:       opts.Blobs,
		scratch:     opts.Scratch,
		settings:    opts.Settings,
		locker:      locker,
		logger:      logger.With("component", "job_service"),
		metrics:     opts.Metrics,
		concurrency: concurrency,
		newID:       newID,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// CreateJob validates req, uploads its files under their derived paths and records the job.
// Blobs uploaded by this call are removed again when the records cannot be written.
func (s *JobService) CreateJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	start := time.Now()
	job, err := s.createJob(ctx, req)
	files := 0
	if req != nil {
		files = len(req.Files)
	}
	s.observe(ctx, "create", start, err, files)
	return job, err
}

func (s *JobService) createJob(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validationf("job request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job")
	}
	tags, err := s.settings.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if err := domainjob.ValidateAttributes(tags, req.Attributes, true); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job attributes")
	}
	schema, err := s.settings.GetPathSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	job := &model.Job{
		ID:          req.ID,
		Description: req.Description,
		AuthorID:    req.AuthorID,
		State:       req.State,
	}
	if job.ID == "" {
		job.ID = s.newID()
	}

	attrs := make(map[string]string, len(req.Attributes))
	for _, a := range req.Attributes {
		attrs[a.ID] = a.Value
	}
	s.warnUnsafePath(ctx, job.ID, schema, attrs)

	files, uploaded, err := s.uploadFiles(ctx, job.ID, schema, attrs, req.Files)
	if err != nil {
		s.removeUploaded(ctx, job.ID, uploaded)
		return nil, fmt.Errorf("create job: %w", err)
	}

	err = s.repo.WithTx(ctx, func(tx core.JobWriter) error {
		if err := tx.InsertJob(ctx, job); err != nil {
			return err
		}
		if err := tx.UpsertAttributes(ctx, job.ID, req.Attributes); err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		return tx.InsertFiles(ctx, files)
	})
	if err != nil {
		s.removeUploaded(ctx, job.ID, uploaded)
		return nil, fmt.Errorf("create job: %w", err)
	}

	s.logger.InfoContext(ctx, "job created",
		"job_id", job.ID,
		"state", job.State,
		"files", len(files),
	)
	return job, nil
}

// uploadFiles stores each new file at its derived path. It returns the file rows to insert and the
// keys this call actually created, which the caller removes if it later fails.
func (s *JobService) uploadFiles(
	ctx context.Context,
	jobID string,
	schema []model.PathMember,
	attrs map[string]string,
	in []model.NewFile,
) ([]model.JobFile, []string, error) {
	files := make([]model.JobFile, 0, len(in))
	var created []string
	for _, f := range in {
		key := domainjob.DerivePath(schema, attrs, f.FileName)
		url, isNew, err := s.blobs.Upload(ctx, key, f.Content, f.ContentType)
		if err != nil {
			return nil, created, fmt.Errorf("upload %q: %w", f.FileName, err)
		}
		if isNew {
			created = append(created, key)
		} else {
			s.logger.DebugContext(ctx, "blob already present, reusing", "job_id", jobID, "key", key)
		}
		files = append(files, model.JobFile{
			ID:          s.newID(),
			JobID:       jobID,
			FileName:    f.FileName,
			ContentType: f.ContentType,
			BlobURL:     url,
			BlobPath:    key,
		})
	}
	return files, created, nil
}

func (s *JobService) removeUploaded(ctx context.Context, jobID string, keys []string) {
	if len(keys) == 0 {
		return
	}
	cleanupCtx := context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.blobs.Delete(cleanupCtx, key); err != nil {
			s.logger.ErrorContext(ctx, "failed to remove uploaded blob after error",
				"job_id", jobID, "key", key, "error", err)
		}
	}
}

// AttributesChanged reports whether incoming differs from the stored attributes of jobID.
func (s *JobService) AttributesChanged(
	ctx context.Context,
	jobID string,
	incoming []model.AttributeValue,
) (bool, error) {
	stored, err := s.repo.GetJobAttributes(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("get job attributes: %w", err)
	}
	return domainjob.AttributesChanged(stored, incoming), nil
}

// UpdateJob applies req to an existing job. Files not listed in req.KeepFileIDs are deleted, retained
// files are moved when their derived path changes, and added files are uploaded.
func (s *JobService) UpdateJob(ctx context.Context, req *model.UpdateJobRequest) (*model.Job, error) {
	start := time.Now()
	job, err := s.updateJob(ctx, req)
	files := 0
	if req != nil {
		files = len(req.AddedFiles)
	}
	s.observe(ctx, "update", start, err, files)
	return job, err
}

func (s *JobService) updateJob(ctx context.Context, req *model.UpdateJobRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validationf("job update is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job update")
	}
	unlock, err := s.lock(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	job, err := s.repo.GetJob(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if req.State != nil && !job.State.CanTransitionTo(*req.State) {
		return nil, apperrors.Wrapf(model.ErrInvalidStateTransition, apperrors.ErrCodeConflict,
			"cannot move job from %s to %s", job.State, *req.State)
	}

	tags, err := s.settings.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	if err := domainjob.ValidateAttributes(tags, req.Attributes, false); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid job attributes")
	}

	stored, err := s.repo.GetJobAttributes(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	changed := domainjob.AttributesChanged(stored, req.Attributes)

	current, err := s.repo.GetJobFiles(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("update job: %w", err)
	}
	plan := domainjob.ReconcileFiles(current, req.KeepFileIDs)
	if err := checkAddedNames(plan.ToRetain, req.AddedFiles); err != nil {
		return nil, err
	}

	var schema []model.PathMember
	if changed || len(req.AddedFiles) > 0 {
		if schema, err = s.settings.GetPathSchema(ctx); err != nil {
			return nil, fmt.Errorf("update job: %w", err)
		}
	}
	merged := domainjob.MergeAttributes(stored, req.Attributes)

	var moves []domainjob.FileMove
	if changed {
		s.warnUnsafePath(ctx, job.ID, schema, merged)
		moves = domainjob.PlanMoves(schema, merged, plan.ToRetain)
	}

	// Old keys stay in place until the records commit, so every row resolves to content whatever fails.
	moved, staged, err := s.copyFiles(ctx, moves)
	if err != nil {
		s.removeUploaded(ctx, job.ID, staged)
		return nil, fmt.Errorf("update job: %w", err)
	}

	// A dropped file whose key an added file derives again is cleared so the upload writes fresh content.
	replaced := replacedKeys(schema, merged, plan.ToDelete, req.AddedFiles)
	for _, key := range replaced {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.removeUploaded(ctx, job.ID, staged)
			return nil, fmt.Errorf("replace blob %q: %w", key, err)
		}
	}

	added, uploaded, err := s.uploadFiles(ctx, job.ID, schema, merged, req.AddedFiles)
	if err != nil {
		s.removeUploaded(ctx, job.ID, append(staged, without(uploaded, replaced)...))
		return nil, fmt.Errorf("update job: %w", err)
	}

	if req.Description != nil {
		job.Description = *req.Description
	}
	if req.State != nil {
		job.State = *req.State
	}

	err = s.repo.WithTx(ctx, func(tx core.JobWriter) error {
		if changed {
			if err := tx.UpsertAttributes(ctx, job.ID, changedAttributes(stored, req.Attributes)); err != nil {
				return err
			}
		}
		if len(plan.ToDelete) > 0 {
			if err := tx.DeleteFiles(ctx, job.ID, fileIDs(plan.ToDelete)); err != nil {
				return err
			}
		}
		for i := range moved {
			if err := tx.UpdateFile(ctx, &moved[i]); err != nil {
				return err
			}
		}
		if len(added) > 0 {
			if err := tx.InsertFiles(ctx, added); err != nil {
				return err
			}
		}
		return tx.UpdateJob(ctx, job)
	})
	if err != nil {
		// Replaced keys keep the new content: the dropped row still points at them.
		s.removeUploaded(ctx, job.ID, append(staged, without(uploaded, replaced)...))
		return nil, fmt.Errorf("update job: %w", err)
	}

	s.removeObsolete(ctx, job.ID, plan, moves, moved, added)

	s.logger.InfoContext(ctx, "job updated",
		"job_id", job.ID,
		"attributes_changed", changed,
		"deleted_files", len(plan.ToDelete),
		"moved_files", len(moved),
		"added_files", len(added),
	)
	return job, nil
}

// checkAddedNames rejects added files whose name is already used by a retained file. Files of one job
// with the same name derive the same key.
func checkAddedNames(retained []model.JobFile, added []model.NewFile) error {
	names := make(map[string]struct{}, len(retained))
	for _, f := range retained {
		names[f.FileName] = struct{}{}
	}
	for _, f := range added {
		if _, dup := names[f.FileName]; dup {
			return apperrors.Wrapf(model.ErrDuplicateFileName, apperrors.ErrCodeValidation,
				"job already has a file named %q", f.FileName)
		}
	}
	return nil
}

// replacedKeys returns the keys of dropped files that an added file derives again.
func replacedKeys(schema []model.PathMember, attrs map[string]string, dropped []model.JobFile, added []model.NewFile) []string {
	if len(dropped) == 0 || len(added) == 0 {
		return nil
	}
	next := make([]string, 0, len(added))
	for _, f := range added {
		next = append(next, domainjob.DerivePath(schema, attrs, f.FileName))
	}
	var out []string
	for _, key := range domainjob.UnreferencedKeys(fileKeys(dropped), nil) {
		if slices.Contains(next, key) {
			out = append(out, key)
		}
	}
	return out
}

// copyFiles copies each moving file to its new key and returns the updated rows together with the keys
// it created. Files sharing a destination are copied once.
func (s *JobService) copyFiles(ctx context.Context, moves []domainjob.FileMove) ([]model.JobFile, []string, error) {
	out := make([]model.JobFile, 0, len(moves))
	urls := make(map[string]string, len(moves))
	var created []string
	for _, m := range moves {
		url, done := urls[m.NewPath]
		if !done {
			existed, err := s.blobs.Exists(ctx, m.NewPath)
			if err != nil {
				return nil, created, fmt.Errorf("move file %s: %w", m.File.ID, err)
			}
			if url, err = s.blobs.Copy(ctx, m.File.BlobPath, m.NewPath); err != nil {
				return nil, created, fmt.Errorf("move file %s: %w", m.File.ID, err)
			}
			if !existed {
				created = append(created, m.NewPath)
			}
			urls[m.NewPath] = url
		}
		f := m.File
		f.BlobPath = m.NewPath
		f.BlobURL = url
		out = append(out, f)
	}
	return out, created, nil
}

// removeObsolete deletes the keys of dropped and moved files that no surviving file refers to.
// A failed delete leaves the old blob orphaned; it is logged and the update stands.
func (s *JobService) removeObsolete(
	ctx context.Context,
	jobID string,
	plan domainjob.FileSetPlan,
	moves []domainjob.FileMove,
	moved, added []model.JobFile,
) {
	released := fileKeys(plan.ToDelete)
	for _, m := range moves {
		released = append(released, m.File.BlobPath)
	}
	movedIDs := make(map[string]struct{}, len(moved))
	for _, f := range moved {
		movedIDs[f.ID] = struct{}{}
	}
	kept := fileKeys(moved)
	kept = append(kept, fileKeys(added)...)
	for _, f := range plan.ToRetain {
		if _, ok := movedIDs[f.ID]; !ok {
			kept = append(kept, f.BlobPath)
		}
	}

	cleanupCtx := context.WithoutCancel(ctx)
	for _, key := range domainjob.UnreferencedKeys(released, kept) {
		if err := s.blobs.Delete(cleanupCtx, key); err != nil {
			s.logger.WarnContext(ctx, "old blob left behind after update",
				"job_id", jobID,
				"key", key,
				"error", err,
			)
		}
	}
}

func fileKeys(files []model.JobFile) []string {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		keys = append(keys, f.BlobPath)
	}
	return keys
}

func without(keys, drop []string) []string {
	if len(drop) == 0 {
		return keys
	}
	var out []string
	for _, k := range keys {
		if !slices.Contains(drop, k) {
			out = append(out, k)
		}
	}
	return out
}

func changedAttributes(stored []model.JobAttribute, incoming []model.AttributeValue) []model.AttributeValue {
	current := model.AttributeMap(stored)
	var out []model.AttributeValue
	for _, a := range incoming {
		if v, ok := current[a.ID]; !ok || v != a.Value {
			out = append(out, a)
		}
	}
	return out
}

func fileIDs(files []model.JobFile) []string {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.ID)
	}
	return ids
}

// DeleteJob removes a job's blobs and then all of its records.
// Blob failures are logged and skipped so a job can always be removed.
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	start := time.Now()
	err := s.deleteJob(ctx, id)
	s.observe(ctx, "delete", start, err, 0)
	return err
}

func (s *JobService) deleteJob(ctx context.Context, id string) error {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.repo.GetJob(ctx, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	files, err := s.repo.GetJobFiles(ctx, id)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	for _, f := range files {
		if err := s.blobs.Delete(ctx, f.BlobPath); err != nil {
			s.logger.WarnContext(ctx, "failed to delete blob, continuing",
				"job_id", id, "file_id", f.ID, "key", f.BlobPath, "error", err)
		}
	}

	err = s.repo.WithTx(ctx, func(tx core.JobWriter) error {
		if err := tx.DeleteReport(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteJobFiles(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteAttributes(ctx, id); err != nil {
			return err
		}
		return tx.DeleteJob(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	s.logger.InfoContext(ctx, "job deleted", "job_id", id, "files", len(files))
	return nil
}

// GetCompleteJob returns a job with its attributes (annotated with tag names) and files.
func (s *JobService) GetCompleteJob(ctx context.Context, id string) (*model.CompleteJob, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	attrs, err := s.repo.GetJobAttributes(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	files, err := s.repo.GetJobFiles(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	tags, err := s.settings.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	names := domainjob.TagNames(tags)
	views := make([]model.AttributeView, 0, len(attrs))
	for _, a := range attrs {
		name, ok := names[a.AttributeID]
		if !ok {
			name = a.AttributeID
		}
		views = append(views, model.AttributeView{AttributeID: a.AttributeID, Name: name, Value: a.Value})
	}
	if files == nil {
		files = []model.JobFile{}
	}
	return &model.CompleteJob{
		ID:          job.ID,
		Description: job.Description,
		AuthorID:    job.AuthorID,
		State:       job.State,
		Attributes:  views,
		Files:       files,
	}, nil
}

// GetJobsInState lists job summaries in state. Listing saved jobs also includes reported ones.
// A non-empty filter is a JMESPath expression evaluated against each summary; summaries for which it
// is not true are dropped.
func (s *JobService) GetJobsInState(ctx context.Context, state model.JobState, filter string) ([]model.JobSummary, error) {
	if !state.Valid() {
		return nil, apperrors.ValidationField("state", fmt.Sprintf("unknown job state %q", state))
	}
	if filter != "" {
		if _, err := jmespath.Compile(filter); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid filter expression")
		}
	}

	jobs, err := s.repo.ListJobsInStates(ctx, state.ListingStates())
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	attrs, err := s.repo.ListAttributesForJobs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	out := make([]model.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		summary := model.JobSummary(model.AttributeMap(attrs[j.ID]))
		summary["id"] = j.ID
		summary["state"] = string(j.State)
		if filter != "" {
			keep, matchErr := matchSummary(filter, summary)
			if matchErr != nil {
				return nil, matchErr
			}
			if !keep {
				continue
			}
		}
		out = append(out, summary)
	}
	return out, nil
}

func matchSummary(filter string, summary model.JobSummary) (bool, error) {
	data := make(map[string]any, len(summary))
	for k, v := range summary {
		data[k] = v
	}
	res, err := jmespath.Search(filter, data)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeValidation, "filter evaluation failed")
	}
	switch v := res.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, apperrors.Validationf("filter must evaluate to a boolean, got %T", res)
	}
}

// PromoteToProduction moves a job to in_production. Promoting a job that is already in production
// succeeds without changes.
func (s *JobService) PromoteToProduction(ctx context.Context, id string) (*model.Job, error) {
	start := time.Now()
	job, noop, err := s.promote(ctx, id)
	if noop {
		metrics.EmitJobOperation(s.metrics, metrics.JobOperation{
			Operation: "promote",
			Result:    metrics.ResultNoop,
			Duration:  time.Since(start),
		})
		return job, nil
	}
	s.observe(ctx, "promote", start, err, 0)
	return job, err
}

func (s *JobService) promote(ctx context.Context, id string) (*model.Job, bool, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("promote job: %w", err)
	}
	if job.State == model.JobStateInProduction {
		return job, true, nil
	}
	if !job.State.CanTransitionTo(model.JobStateInProduction) {
		return nil, false, apperrors.Wrapf(model.ErrInvalidStateTransition, apperrors.ErrCodeConflict,
			"cannot promote job in state %s", job.State)
	}
	job.State = model.JobStateInProduction
	if err := s.repo.UpdateJob(ctx, job); err != nil {
		return nil, false, fmt.Errorf("promote job: %w", err)
	}
	s.logger.InfoContext(ctx, "job promoted to production", "job_id", id)
	return job, false, nil
}

// RevertJob marks a job as reported and attaches reportText, replacing any earlier report text.
// Jobs in production cannot be reverted.
func (s *JobService) RevertJob(ctx context.Context, id, reportText string) (*model.JobReport, error) {
	start := time.Now()
	report, err := s.revert(ctx, id, reportText)
	s.observe(ctx, "revert", start, err, 0)
	return report, err
}

func (s *JobService) revert(ctx context.Context, id, reportText string) (*model.JobReport, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("revert job: %w", err)
	}
	if !job.State.CanTransitionTo(model.JobStateReported) {
		return nil, apperrors.Wrapf(model.ErrInvalidStateTransition, apperrors.ErrCodeConflict,
			"cannot revert job in state %s", job.State)
	}

	var report *model.JobReport
	err = s.repo.WithTx(ctx, func(tx core.JobWriter) error {
		job.State = model.JobStateReported
		if err := tx.UpdateJob(ctx, job); err != nil {
			return err
		}
		var upsertErr error
		report, upsertErr = tx.UpsertReport(ctx, &model.JobReport{ID: s.newID(), JobID: id, Report: reportText})
		return upsertErr
	})
	if err != nil {
		return nil, fmt.Errorf("revert job: %w", err)
	}
	s.logger.InfoContext(ctx, "job reverted", "job_id", id, "report_id", report.ID)
	return report, nil
}

// GetJobReport returns the report text of a job, or "" when it has none.
func (s *JobService) GetJobReport(ctx context.Context, id string) (string, error) {
	if _, err := s.repo.GetJob(ctx, id); err != nil {
		return "", fmt.Errorf("get job report: %w", err)
	}
	report, err := s.repo.GetJobReport(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get job report: %w", err)
	}
	if report == nil {
		return "", nil
	}
	return report.Report, nil
}

// DownloadJob downloads every file of a job into a scratch directory of its own and zips the directory
// once all downloads have finished. It returns the archive path. No archive is written if any download
// fails. Concurrent downloads of one job never share a directory or an archive.
func (s *JobService) DownloadJob(ctx context.Context, id string) (string, error) {
	start := time.Now()
	path, n, err := s.downloadJob(ctx, id)
	s.observe(ctx, "download", start, err, n)
	return path, err
}

func (s *JobService) downloadJob(ctx context.Context, id string) (string, int, error) {
	if _, err := s.repo.GetJob(ctx, id); err != nil {
		return "", 0, fmt.Errorf("download job: %w", err)
	}
	files, err := s.repo.GetJobFiles(ctx, id)
	if err != nil {
		return "", 0, fmt.Errorf("download job: %w", err)
	}
	dir, err := s.scratch.PrepareDirectory(id)
	if err != nil {
		return "", 0, fmt.Errorf("download job: %w", err)
	}
	defer func() {
		if rmErr := s.scratch.RemoveDirectory(dir); rmErr != nil {
			s.logger.WarnContext(ctx, "failed to remove download dir", "job_id", id, "dir", dir, "error", rmErr)
		}
	}()

	names := archiveNames(files)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range files {
		target := filepath.Join(dir, names[i])
		g.Go(func() error {
			return s.downloadFile(gctx, f, target)
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, fmt.Errorf("download job: %w", err)
	}

	zipPath := s.scratch.ArchivePath(dir)
	if err := s.scratch.ArchiveDirectory(ctx, zipPath, dir); err != nil {
		return "", 0, fmt.Errorf("archive job: %w", err)
	}
	s.logger.DebugContext(ctx, "job archive ready", "job_id", id, "files", len(files), "path", zipPath)
	return zipPath, len(files), nil
}

func (s *JobService) downloadFile(ctx context.Context, f model.JobFile, target string) error {
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(target), err)
	}
	if err := s.blobs.Download(ctx, f.BlobPath, out); err != nil {
		_ = out.Close()
		return fmt.Errorf("download file %s: %w", f.ID, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(target), err)
	}
	return nil
}

// archiveNames returns a distinct entry name for each file. A name that is already taken is prefixed
// with the file id, repeatedly, until it is free.
func archiveNames(files []model.JobFile) []string {
	used := make(map[string]struct{}, len(files))
	for _, f := range files {
		used[f.FileName] = struct{}{}
	}
	taken := make(map[string]struct{}, len(files))
	out := make([]string, len(files))
	for i, f := range files {
		name := f.FileName
		if _, dup := taken[name]; dup {
			name = f.ID + "_" + name
			for {
				_, clash := used[name]
				if _, dup := taken[name]; !clash && !dup {
					break
				}
				name = f.ID + "_" + name
			}
		}
		taken[name] = struct{}{}
		out[i] = name
	}
	return out
}

func (s *JobService) lock(ctx context.Context, jobID string) (func(), error) {
	release, err := s.locker.Lock(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("lock job %s: %w", jobID, err)
	}
	return func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "failed to release job lock", "job_id", jobID, "error", err)
		}
	}, nil
}

func (s *JobService) warnUnsafePath(ctx context.Context, jobID string, schema []model.PathMember, attrs map[string]string) {
	if ids := domainjob.UnsafeAttributes(schema, attrs); len(ids) > 0 {
		s.logger.WarnContext(ctx, "attribute values add or escape path segments",
			"job_id", jobID, "attributes", ids)
	}
}

func (s *JobService) observe(ctx context.Context, op string, start time.Time, err error, files int) {
	if err != nil {
		s.logger.DebugContext(ctx, "job operation failed", "operation", op, "error", err)
	}
	metrics.EmitJobOperation(s.metrics, metrics.JobOperation{
		Operation: op,
		Result:    metrics.ResultFor(err),
		Duration:  time.Since(start),
		Err:       err,
		Files:     files,
	})
}
