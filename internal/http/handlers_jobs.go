// Package httpx provides the HTTP API of the filetrack service.
package httpx

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"os"

	"github.com/target/filetrack-api/internal/domain/model"
	"github.com/target/filetrack-api/internal/service"
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc            *service.JobService
	MaxUploadBytes int64
	Logger         *slog.Logger
}

type createJobInfo struct {
	ID          string         `json:"id,omitempty"`
	Description string         `json:"description"`
	State       model.JobState `json:"state,omitempty"`
}

// updateJobInfo tolerates the id the original client echoes back; the path id wins.
type updateJobInfo struct {
	ID          string          `json:"id,omitempty"`
	Description *string         `json:"description,omitempty"`
	State       *model.JobState `json:"state,omitempty"`
}

func (h *JobHandlers) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Create handles multipart job submissions.
func (h *JobHandlers) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}
	form, err := parseJobForm(w, r, h.MaxUploadBytes)
	if err != nil {
		writeFormError(w, err)
		return
	}
	defer form.Close()

	var info createJobInfo
	if err := form.info(&info); err != nil {
		writeFormError(w, err)
		return
	}
	attrs, err := form.attributes()
	if err != nil {
		writeFormError(w, err)
		return
	}
	files, err := form.files(fieldJobFiles)
	if err != nil {
		writeFormError(w, err)
		return
	}

	job, err := h.Svc.CreateJob(r.Context(), &model.CreateJobRequest{
		ID:          info.ID,
		Description: info.Description,
		AuthorID:    id.AuthorID,
		State:       info.State,
		Attributes:  attrs,
		Files:       files,
	})
	if err != nil {
		WriteServiceError(w, r, h.logger(), "create_job", err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// Update handles multipart job updates. Stored files missing from jobCurrentFiles are deleted.
func (h *JobHandlers) Update(w http.ResponseWriter, r *http.Request) {
	form, err := parseJobForm(w, r, h.MaxUploadBytes)
	if err != nil {
		writeFormError(w, err)
		return
	}
	defer form.Close()

	var info updateJobInfo
	if err := form.info(&info); err != nil {
		writeFormError(w, err)
		return
	}
	jobID := r.PathValue("id")
	if info.ID != "" && info.ID != jobID {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_form",
			Err:     errors.New("jobInfo id does not match the job in the path"),
		})
		return
	}
	attrs, err := form.attributes()
	if err != nil {
		writeFormError(w, err)
		return
	}
	keep, err := form.fileIDs(fieldJobCurrentFiles)
	if err != nil {
		writeFormError(w, err)
		return
	}
	added, err := form.files(fieldJobAddedFiles)
	if err != nil {
		writeFormError(w, err)
		return
	}

	job, err := h.Svc.UpdateJob(r.Context(), &model.UpdateJobRequest{
		ID:          jobID,
		Description: info.Description,
		State:       info.State,
		Attributes:  attrs,
		KeepFileIDs: keep,
		AddedFiles:  added,
	})
	if err != nil {
		WriteServiceError(w, r, h.logger(), "update_job", err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// List returns summaries of jobs in ?state=, optionally narrowed by a JMESPath ?filter=.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summaries, err := h.Svc.GetJobsInState(r.Context(), model.JobState(q.Get("state")), q.Get("filter"))
	if err != nil {
		WriteServiceError(w, r, h.logger(), "list_jobs", err)
		return
	}
	WriteJSON(w, http.StatusOK, summaries)
}

// Get returns the complete job with attribute names and files.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.GetCompleteJob(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.logger(), "get_job", err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Delete removes a job, its files and its report.
func (h *JobHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteJob(r.Context(), r.PathValue("id")); err != nil {
		WriteServiceError(w, r, h.logger(), "delete_job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Promote moves a job to production.
func (h *JobHandlers) Promote(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.PromoteToProduction(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteServiceError(w, r, h.logger(), "promote_job", err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

type revertRequest struct {
	Report string `json:"report"`
}

// Revert attaches a report to a job and marks it reported.
func (h *JobHandlers) Revert(w http.ResponseWriter, r *http.Request) {
	var req revertRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	report, err := h.Svc.RevertJob(r.Context(), r.PathValue("id"), req.Report)
	if err != nil {
		WriteServiceError(w, r, h.logger(), "revert_job", err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// Report returns the job's report text, empty when none was attached.
func (h *JobHandlers) Report(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	text, err := h.Svc.GetJobReport(r.Context(), jobID)
	if err != nil {
		WriteServiceError(w, r, h.logger(), "get_report", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "report": text})
}

// Download assembles the job's files into a zip archive and streams it.
func (h *JobHandlers) Download(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	zipPath, err := h.Svc.DownloadJob(r.Context(), jobID)
	if err != nil {
		WriteServiceError(w, r, h.logger(), "download_job", err)
		return
	}
	f, err := os.Open(zipPath)
	if err != nil {
		WriteServiceError(w, r, h.logger(), "download_job", err)
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		WriteServiceError(w, r, h.logger(), "download_job", err)
		return
	}

	name := jobID + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
