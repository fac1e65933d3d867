// Package model defines the core data types shared by the filetrack services.
package model

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxJobDescriptionLen = 4000
	maxFileNameLen       = 255
)

// JobState represents where a job is in its lifecycle.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobState string

const (
	// JobStateCreated is the initial state of a job that has not been saved yet.
	JobStateCreated JobState = "created"
	// JobStateSaved indicates a job was submitted and persisted.
	JobStateSaved JobState = "saved"
	// JobStateReported indicates a report was attached to a saved job.
	JobStateReported JobState = "reported"
	// JobStateInProduction is terminal.
	JobStateInProduction JobState = "in_production"
)

// Valid returns true if the JobState is known.
func (s JobState) Valid() bool {
	switch s {
	case JobStateCreated, JobStateSaved, JobStateReported, JobStateInProduction:
		return true
	default:
		return false
	}
}

// UnmarshalText implements encoding.TextUnmarshaler so states can be decoded from JSON and query strings.
func (s *JobState) UnmarshalText(text []byte) error {
	st, ok := ParseJobState(string(text))
	if !ok {
		return fmt.Errorf("invalid JobState: %q", string(text))
	}
	*s = st
	return nil
}

// ParseJobState normalizes a state string and reports whether it is supported.
func ParseJobState(value string) (JobState, bool) {
	st := JobState(strings.ToLower(strings.TrimSpace(value)))
	if st.Valid() {
		return st, true
	}
	return "", false
}

// rank orders states; transitions only move forward.
func (s JobState) rank() int {
	switch s {
	case JobStateCreated:
		return 0
	case JobStateSaved:
		return 1
	case JobStateReported:
		return 2
	case JobStateInProduction:
		return 3
	default:
		return -1
	}
}

// CanTransitionTo reports whether a job in state s may move to next.
// Staying in the same state is allowed except for InProduction, which is terminal.
func (s JobState) CanTransitionTo(next JobState) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s == JobStateInProduction {
		return next == JobStateInProduction
	}
	return next.rank() >= s.rank()
}

// ListingStates returns the stored states that match a listing query for s.
// Reported is a sub-state of Saved for listing purposes.
func (s JobState) ListingStates() []JobState {
	if s == JobStateSaved {
		return []JobState{JobStateSaved, JobStateReported}
	}
	return []JobState{s}
}

// ErrInvalidStateTransition is returned when a lifecycle operation would move a job backwards.
var ErrInvalidStateTransition = errors.New("invalid job state transition")

// ErrDuplicateFileName is returned when two files of one job would carry the same name.
var ErrDuplicateFileName = errors.New("duplicate file name")

// Job is the persisted job record.
type Job struct {
	ID          string    `json:"id"          db:"id"`
	Description string    `json:"description" db:"description"`
	AuthorID    string    `json:"author_id"   db:"author_id"`
	State       JobState  `json:"state"       db:"state"`
	CreatedAt   time.Time `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"  db:"updated_at"`
}

// JobAttribute classifies a job with a value for one tag.
type JobAttribute struct {
	JobID       string `json:"job_id"       db:"job_id"`
	AttributeID string `json:"attribute_id" db:"attribute_id"`
	Value       string `json:"value"        db:"value"`
}

// AttributeValue is an incoming (tag id, value) pair.
type AttributeValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// JobFile is a file attached to a job and stored in the blob store under BlobPath.
type JobFile struct {
	ID          string `json:"id"           db:"id"`
	JobID       string `json:"job_id"       db:"job_id"`
	FileName    string `json:"file_name"    db:"file_name"`
	ContentType string `json:"content_type" db:"content_type"`
	BlobURL     string `json:"blob_url"     db:"blob_url"`
	BlobPath    string `json:"blob_path"    db:"blob_path"`
}

// JobReport is the single report attached to a job.
type JobReport struct {
	ID     string `json:"id"     db:"id"`
	JobID  string `json:"job_id" db:"job_id"`
	Report string `json:"report" db:"report"`
}

// NewFile is an upload received with a create or update request.
type NewFile struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// AttributeView is a job attribute annotated with its tag display name.
type AttributeView struct {
	AttributeID string `json:"attribute_id"`
	Name        string `json:"name"`
	Value       string `json:"value"`
}

// CompleteJob is the full read model of a job.
type CompleteJob struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	AuthorID    string          `json:"author_id"`
	State       JobState        `json:"state"`
	Attributes  []AttributeView `json:"attributes"`
	Files       []JobFile       `json:"files"`
}

// JobSummary is a flattened listing entry: "id", "state" and one key per attribute id.
type JobSummary map[string]string

// AttributeMap indexes attribute values by tag id.
func AttributeMap(attrs []JobAttribute) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[a.AttributeID] = a.Value
	}
	return out
}

// CreateJobRequest carries everything needed to create a job.
type CreateJobRequest struct {
	ID          string           `json:"id,omitempty"`
	Description string           `json:"description"`
	AuthorID    string           `json:"-"`
	State       JobState         `json:"state,omitempty"`
	Attributes  []AttributeValue `json:"-"`
	Files       []NewFile        `json:"-"`
}

// Validate validates CreateJobRequest and applies the default state.
func (r *CreateJobRequest) Validate() error {
	if err := validateDescription(r.Description); err != nil {
		return err
	}
	if strings.TrimSpace(r.AuthorID) == "" {
		return errors.New("author_id is required")
	}
	if r.State == "" {
		r.State = JobStateSaved
	}
	if r.State != JobStateCreated && r.State != JobStateSaved {
		return fmt.Errorf("initial state must be %q or %q", JobStateCreated, JobStateSaved)
	}
	if err := validateAttributes(r.Attributes); err != nil {
		return err
	}
	return validateFiles(r.Files)
}

// UpdateJobRequest carries an update for an existing job.
// KeepFileIDs lists the stored files that survive; every other stored file is deleted.
type UpdateJobRequest struct {
	ID          string           `json:"id"`
	Description *string          `json:"description,omitempty"`
	State       *JobState        `json:"state,omitempty"`
	Attributes  []AttributeValue `json:"-"`
	KeepFileIDs []string         `json:"-"`
	AddedFiles  []NewFile        `json:"-"`
}

// Validate validates UpdateJobRequest.
func (r *UpdateJobRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("id is required")
	}
	if r.Description != nil {
		if err := validateDescription(*r.Description); err != nil {
			return err
		}
	}
	if r.State != nil && !r.State.Valid() {
		return errors.New("invalid state")
	}
	if err := validateAttributes(r.Attributes); err != nil {
		return err
	}
	return validateFiles(r.AddedFiles)
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > maxJobDescriptionLen {
		return fmt.Errorf("description cannot exceed %d characters", maxJobDescriptionLen)
	}
	return nil
}

func validateAttributes(attrs []AttributeValue) error {
	seen := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return errors.New("attribute id is required")
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate attribute %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// validateFiles rejects file names used twice, since files of one job with the same name share a blob key.
func validateFiles(files []NewFile) error {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		name := strings.TrimSpace(f.FileName)
		if name == "" {
			return errors.New("file name is required")
		}
		if utf8.RuneCountInString(name) > maxFileNameLen {
			return fmt.Errorf("file name cannot exceed %d characters", maxFileNameLen)
		}
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("file name %q must not contain path separators", name)
		}
		if f.Content == nil {
			return fmt.Errorf("file %q has no content", name)
		}
		if _, dup := seen[f.FileName]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateFileName, f.FileName)
		}
		seen[f.FileName] = struct{}{}
	}
	return nil
}
