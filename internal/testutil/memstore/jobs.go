// Package memstore provides in-memory implementations of the core ports for service and handler tests.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/data"
	"github.com/target/filetrack-api/internal/domain/model"
)

// Jobs is an in-memory core.JobRepository. WithTx restores the previous state when fn fails.
type Jobs struct {
	mu      sync.Mutex
	state   jobState
	now     func() time.Time
	failOn  map[string]error
	TxCount int
}

type jobState struct {
	jobs    map[string]model.Job
	order   []string
	attrs   map[string]map[string]string
	files   map[string][]model.JobFile
	reports map[string]model.JobReport
}

var _ core.JobRepository = (*Jobs)(nil)

// NewJobs returns an empty store.
func NewJobs() *Jobs {
	return &Jobs{
		state: jobState{
			jobs:    map[string]model.Job{},
			attrs:   map[string]map[string]string{},
			files:   map[string][]model.JobFile{},
			reports: map[string]model.JobReport{},
		},
		now:    time.Now,
		failOn: map[string]error{},
	}
}

// FailOn makes the named writer method (for example "InsertFiles") return err until cleared with nil.
func (s *Jobs) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, method)
		return
	}
	s.failOn[method] = err
}

func (s *Jobs) fail(method string) error {
	return s.failOn[method]
}

func (st jobState) clone() jobState {
	out := jobState{
		jobs:    maps.Clone(st.jobs),
		order:   slices.Clone(st.order),
		attrs:   make(map[string]map[string]string, len(st.attrs)),
		files:   make(map[string][]model.JobFile, len(st.files)),
		reports: maps.Clone(st.reports),
	}
	for k, v := range st.attrs {
		out.attrs[k] = maps.Clone(v)
	}
	for k, v := range st.files {
		out.files[k] = slices.Clone(v)
	}
	return out
}

// WithTx runs fn against the store and rolls back every change if fn returns an error.
func (s *Jobs) WithTx(_ context.Context, fn func(tx core.JobWriter) error) error {
	s.mu.Lock()
	snapshot := s.state.clone()
	s.TxCount++
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// GetJob implements core.JobReader.
func (s *Jobs) GetJob(_ context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.state.jobs[id]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	return &j, nil
}

// ListJobsInStates implements core.JobReader.
func (s *Jobs) ListJobsInStates(_ context.Context, states []model.JobState) ([]model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Job
	for _, id := range s.state.order {
		j := s.state.jobs[id]
		if slices.Contains(states, j.State) {
			out = append(out, j)
		}
	}
	return out, nil
}

// GetJobAttributes implements core.JobReader.
func (s *Jobs) GetJobAttributes(_ context.Context, jobID string) ([]model.JobAttribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attributesLocked(jobID), nil
}

func (s *Jobs) attributesLocked(jobID string) []model.JobAttribute {
	values := s.state.attrs[jobID]
	out := make([]model.JobAttribute, 0, len(values))
	for _, id := range slices.Sorted(maps.Keys(values)) {
		out = append(out, model.JobAttribute{JobID: jobID, AttributeID: id, Value: values[id]})
	}
	return out
}

// ListAttributesForJobs implements core.JobReader.
func (s *Jobs) ListAttributesForJobs(_ context.Context, jobIDs []string) (map[string][]model.JobAttribute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]model.JobAttribute, len(jobIDs))
	for _, id := range jobIDs {
		if attrs := s.attributesLocked(id); len(attrs) > 0 {
			out[id] = attrs
		}
	}
	return out, nil
}

// GetJobFiles implements core.JobReader.
func (s *Jobs) GetJobFiles(_ context.Context, jobID string) ([]model.JobFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.files[jobID]), nil
}

// GetJobReport implements core.JobReader.
func (s *Jobs) GetJobReport(_ context.Context, jobID string) (*model.JobReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.reports[jobID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// InsertJob implements core.JobWriter.
func (s *Jobs) InsertJob(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertJob"); err != nil {
		return err
	}
	if job.ID == "" {
		return data.ErrJobIDRequired
	}
	if _, ok := s.state.jobs[job.ID]; ok {
		return data.ErrJobExists
	}
	now := s.now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	s.state.jobs[job.ID] = *job
	s.state.order = append(s.state.order, job.ID)
	return nil
}

// UpdateJob implements core.JobWriter.
func (s *Jobs) UpdateJob(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateJob"); err != nil {
		return err
	}
	cur, ok := s.state.jobs[job.ID]
	if !ok {
		return data.ErrJobNotFound
	}
	cur.Description = job.Description
	cur.State = job.State
	cur.UpdatedAt = s.now().UTC()
	job.UpdatedAt = cur.UpdatedAt
	s.state.jobs[job.ID] = cur
	return nil
}

// DeleteJob implements core.JobWriter.
func (s *Jobs) DeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteJob"); err != nil {
		return err
	}
	if _, ok := s.state.jobs[id]; !ok {
		return data.ErrJobNotFound
	}
	delete(s.state.jobs, id)
	s.state.order = slices.DeleteFunc(s.state.order, func(v string) bool { return v == id })
	return nil
}

// UpsertAttributes implements core.JobWriter.
func (s *Jobs) UpsertAttributes(_ context.Context, jobID string, attrs []model.AttributeValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertAttributes"); err != nil {
		return err
	}
	if len(attrs) == 0 {
		return nil
	}
	if _, ok := s.state.jobs[jobID]; !ok {
		return data.ErrJobNotFound
	}
	if s.state.attrs[jobID] == nil {
		s.state.attrs[jobID] = map[string]string{}
	}
	for _, a := range attrs {
		s.state.attrs[jobID][a.ID] = a.Value
	}
	return nil
}

// DeleteAttributes implements core.JobWriter.
func (s *Jobs) DeleteAttributes(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteAttributes"); err != nil {
		return err
	}
	delete(s.state.attrs, jobID)
	return nil
}

// InsertFiles implements core.JobWriter.
func (s *Jobs) InsertFiles(_ context.Context, files []model.JobFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertFiles"); err != nil {
		return err
	}
	for _, f := range files {
		if _, ok := s.state.jobs[f.JobID]; !ok {
			return data.ErrJobNotFound
		}
		s.state.files[f.JobID] = append(s.state.files[f.JobID], f)
	}
	return nil
}

// UpdateFile implements core.JobWriter.
func (s *Jobs) UpdateFile(_ context.Context, file *model.JobFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateFile"); err != nil {
		return err
	}
	files := s.state.files[file.JobID]
	for i := range files {
		if files[i].ID == file.ID {
			files[i].BlobPath = file.BlobPath
			files[i].BlobURL = file.BlobURL
			return nil
		}
	}
	return data.ErrJobFileNotFound
}

// DeleteFiles implements core.JobWriter.
func (s *Jobs) DeleteFiles(_ context.Context, jobID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteFiles"); err != nil {
		return err
	}
	s.state.files[jobID] = slices.DeleteFunc(s.state.files[jobID], func(f model.JobFile) bool {
		return slices.Contains(ids, f.ID)
	})
	return nil
}

// DeleteJobFiles implements core.JobWriter.
func (s *Jobs) DeleteJobFiles(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteJobFiles"); err != nil {
		return err
	}
	delete(s.state.files, jobID)
	return nil
}

// UpsertReport implements core.JobWriter.
func (s *Jobs) UpsertReport(_ context.Context, report *model.JobReport) (*model.JobReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertReport"); err != nil {
		return nil, err
	}
	if _, ok := s.state.jobs[report.JobID]; !ok {
		return nil, data.ErrJobNotFound
	}
	stored, ok := s.state.reports[report.JobID]
	if ok {
		stored.Report = report.Report
	} else {
		stored = *report
	}
	s.state.reports[report.JobID] = stored
	return &stored, nil
}

// DeleteReport implements core.JobWriter.
func (s *Jobs) DeleteReport(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteReport"); err != nil {
		return err
	}
	delete(s.state.reports, jobID)
	return nil
}
