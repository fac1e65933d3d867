// Package core defines the ports between the filetrack services and their adapters.
package core

import (
	"context"

	"github.com/target/filetrack-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobReader defines read access to jobs and their dependent rows.
// GetJob returns data.ErrJobNotFound when the job does not exist.
type JobReader interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)
	ListJobsInStates(ctx context.Context, states []model.JobState) ([]model.Job, error)
	GetJobAttributes(ctx context.Context, jobID string) ([]model.JobAttribute, error)
	ListAttributesForJobs(ctx context.Context, jobIDs []string) (map[string][]model.JobAttribute, error)
	GetJobFiles(ctx context.Context, jobID string) ([]model.JobFile, error)
	// GetJobReport returns nil without error when the job has no report.
	GetJobReport(ctx context.Context, jobID string) (*model.JobReport, error)
}

// JobWriter defines mutations of jobs and their dependent rows.
type JobWriter interface {
	InsertJob(ctx context.Context, job *model.Job) error
	UpdateJob(ctx context.Context, job *model.Job) error
	DeleteJob(ctx context.Context, id string) error
	UpsertAttributes(ctx context.Context, jobID string, attrs []model.AttributeValue) error
	DeleteAttributes(ctx context.Context, jobID string) error
	InsertFiles(ctx context.Context, files []model.JobFile) error
	UpdateFile(ctx context.Context, file *model.JobFile) error
	DeleteFiles(ctx context.Context, jobID string, ids []string) error
	DeleteJobFiles(ctx context.Context, jobID string) error
	// UpsertReport inserts report when the job has none, otherwise updates the existing row's text.
	// The stored report (with its preserved id) is returned.
	UpsertReport(ctx context.Context, report *model.JobReport) (*model.JobReport, error)
	DeleteReport(ctx context.Context, jobID string) error
}

// JobRepository combines job reads and writes with a scoped transaction.
// Writes performed through the JobWriter passed to fn commit together or not at all.
type JobRepository interface {
	JobReader
	JobWriter
	WithTx(ctx context.Context, fn func(tx JobWriter) error) error
}

// SettingsReader exposes the attribute vocabulary and path schema to the job lifecycle.
type SettingsReader interface {
	ListTags(ctx context.Context) ([]model.Tag, error)
	GetPathSchema(ctx context.Context) ([]model.PathMember, error)
}

// SettingsRepository defines persistence for tags and the path schema.
type SettingsRepository interface {
	SettingsReader
	GetTag(ctx context.Context, id string) (*model.Tag, error)
	ApplyTagChanges(ctx context.Context, changes model.TagChanges) error
	ReplacePathSchema(ctx context.Context, members []model.PathMember) error
}
