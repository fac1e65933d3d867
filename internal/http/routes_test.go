package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/filetrack-api/internal/adapters/devauth"
	"github.com/target/filetrack-api/internal/adapters/scratch"
	"github.com/target/filetrack-api/internal/domain/model"
	"github.com/target/filetrack-api/internal/service"
	"github.com/target/filetrack-api/internal/testutil/memstore"
)

const testToken = "test-token"

type apiFixture struct {
	server *httptest.Server
	jobs   *memstore.Jobs
	blobs  *memstore.Blobs
}

func newAPIFixture(t *testing.T, maxUpload int64) *apiFixture {
	t.Helper()
	sc, err := scratch.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, sc.Reset())

	settingsRepo := memstore.NewSettings(
		[]model.Tag{
			{ID: "customer", Name: "Customer", Mandatory: true},
			{ID: "year", Name: "Year", Mandatory: true},
		},
		[]model.PathMember{{ID: "customer", Order: 0}, {ID: "year", Order: 1}},
	)
	settings := service.MustNewSettingsService(service.SettingsServiceOptions{Repo: settingsRepo})

	f := &apiFixture{jobs: memstore.NewJobs(), blobs: memstore.NewBlobs()}
	seq := 0
	jobs := service.MustNewJobService(service.JobServiceOptions{
		Repo:     f.jobs,
		Blobs:    f.blobs,
		Scratch:  sc,
		Settings: settings,
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	auth, err := devauth.NewProvider(devauth.Config{AuthorID: "alice", Token: testToken})
	require.NoError(t, err)

	f.server = httptest.NewServer(NewRouter(RouterServices{
		Jobs:           jobs,
		Settings:       settings,
		Auth:           auth,
		MaxUploadBytes: maxUpload,
	}))
	t.Cleanup(f.server.Close)
	return f
}

type part struct {
	field, fileName, content string
}

func multipartBody(t *testing.T, parts ...part) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		if p.fileName == "" {
			require.NoError(t, mw.WriteField(p.field, p.content))
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.fileName))
		h.Set("Content-Type", "text/plain")
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.WriteString(w, p.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *apiFixture) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f *apiFixture) createJob(t *testing.T) model.Job {
	t.Helper()
	body, ct := multipartBody(t,
		part{field: "jobInfo", content: `{"description":"quarterly numbers"}`},
		part{field: "jobAttributes", content: `{"id":"customer","value":"acme"}`},
		part{field: "jobAttributes", content: `[{"id":"year","value":"2024"}]`},
		part{field: "jobFiles", fileName: "a.txt", content: "alpha"},
		part{field: "jobFiles", fileName: "b.txt", content: "bravo"},
	)
	resp := f.do(t, http.MethodPost, "/api/jobs", body, ct)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[model.Job](t, resp)
}

func TestRouter_HealthIsPublicAndAPIRequiresAuth(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)

	resp, err := f.server.Client().Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = f.server.Client().Get(f.server.URL + "/api/jobs?state=saved")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, `Bearer realm="filetrack"`, resp.Header.Get("WWW-Authenticate"))
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "authentication_required", body["error"])
}

func TestRouter_CreateAndGetJob(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)
	job := f.createJob(t)

	assert.Equal(t, "id-1", job.ID)
	assert.Equal(t, "alice", job.AuthorID)
	assert.Equal(t, model.JobStateSaved, job.State)
	assert.Equal(t, []string{"acme/2024/a.txt", "acme/2024/b.txt"}, f.blobs.Keys())

	resp := f.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	complete := decode[model.CompleteJob](t, resp)
	assert.Equal(t, "quarterly numbers", complete.Description)
	assert.ElementsMatch(t, []model.AttributeView{
		{AttributeID: "customer", Name: "Customer", Value: "acme"},
		{AttributeID: "year", Name: "Year", Value: "2024"},
	}, complete.Attributes)
	require.Len(t, complete.Files, 2)
	assert.Equal(t, "text/plain", complete.Files[0].ContentType)
}

func TestRouter_CreateJobValidation(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)

	body, ct := multipartBody(t,
		part{field: "jobInfo", content: `{"description":"missing year"}`},
		part{field: "jobAttributes", content: `{"id":"customer","value":"acme"}`},
	)
	resp := f.do(t, http.MethodPost, "/api/jobs", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", decode[map[string]string](t, resp)["error"])

	body, ct = multipartBody(t, part{field: "jobAttributes", content: `{not json`})
	resp = f.do(t, http.MethodPost, "/api/jobs", body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_form", decode[map[string]string](t, resp)["error"])

	resp = f.do(t, http.MethodPost, "/api/jobs", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, f.blobs.Keys())
}

func TestRouter_CreateJobTooLarge(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 512)

	body, ct := multipartBody(t,
		part{field: "jobInfo", content: `{"description":"big"}`},
		part{field: "jobFiles", fileName: "big.bin", content: strings.Repeat("x", 4096)},
	)
	resp := f.do(t, http.MethodPost, "/api/jobs", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Empty(t, f.blobs.Keys())
}

func TestRouter_UpdateJobMovesAndDeletesFiles(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)
	job := f.createJob(t)

	files, err := f.jobs.GetJobFiles(t.Context(), job.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)

	body, ct := multipartBody(t,
		part{field: "jobInfo", content: `{"id":"id-1","description":"revised"}`},
		part{field: "jobAttributes", content: `[{"id":"customer","value":"acme"},{"id":"year","value":"2025"}]`},
		part{field: "jobCurrentFiles", content: files[0].ID},
		part{field: "jobAddedFiles", fileName: "c.txt", content: "charlie"},
	)
	resp := f.do(t, http.MethodPut, "/api/jobs/"+job.ID, body, ct)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.Job](t, resp)
	assert.Equal(t, "revised", updated.Description)

	assert.Equal(t, []string{"acme/2025/a.txt", "acme/2025/c.txt"}, f.blobs.Keys())
}

func TestRouter_UpdateJobIDMismatch(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)
	job := f.createJob(t)

	body, ct := multipartBody(t, part{field: "jobInfo", content: `{"id":"someone-else"}`})
	resp := f.do(t, http.MethodPut, "/api/jobs/"+job.ID, body, ct)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_ListJobsWithFilter(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)
	f.createJob(t)

	resp := f.do(t, http.MethodGet, "/api/jobs?state=saved&filter="+
		"customer%20%3D%3D%20'acme'", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summaries := decode[[]model.JobSummary](t, resp)
	require.Len(t, summaries, 1)
	assert.Equal(t, "2024", summaries[0]["year"])

	resp = f.do(t, http.MethodGet, "/api/jobs?state=bogus", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_RevertReportAndPromote(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)
	job := f.createJob(t)

	resp := f.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/report", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "", decode[map[string]string](t, resp)["report"])

	resp = f.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/revert", strings.NewReader(`{"report":"totals wrong"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/report", nil, "")
	assert.Equal(t, "totals wrong", decode[map[string]string](t, resp)["report"])

	resp = f.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/promote", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.JobStateInProduction, decode[model.Job](t, resp).State)

	resp = f.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/revert", strings.NewReader(`{"report":"too late"}`), "application/json")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRouter_DownloadJob(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)
	job := f.createJob(t)

	resp := f.do(t, http.MethodGet, "/api/jobs/"+job.ID+"/download", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=id-1.zip`, resp.Header.Get("Content-Disposition"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	var names []string
	for _, zf := range zr.File {
		names = append(names, zf.Name)
	}
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)
}

func TestRouter_DeleteAndNotFound(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)
	job := f.createJob(t)

	resp := f.do(t, http.MethodDelete, "/api/jobs/"+job.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, f.blobs.Keys())

	resp = f.do(t, http.MethodGet, "/api/jobs/"+job.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode[map[string]string](t, resp)["error"])
}

func TestRouter_Settings(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t, 0)

	resp := f.do(t, http.MethodPut, "/api/settings/tags",
		strings.NewReader(`[{"id":"customer","name":"Client","mandatory":true},{"id":"year","name":"Year","mandatory":true},{"id":"region","name":"Region"}]`),
		"application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	changes := decode[model.TagChanges](t, resp)
	assert.Equal(t, []model.Tag{{ID: "region", Name: "Region"}}, changes.Add)
	assert.Equal(t, []model.Tag{{ID: "customer", Name: "Client", Mandatory: true}}, changes.Update)

	resp = f.do(t, http.MethodPut, "/api/settings/path",
		strings.NewReader(`[{"id":"region","order":0},{"id":"customer","order":1}]`), "application/json")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/settings/path", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []model.PathMember{{ID: "region", Order: 0}, {ID: "customer", Order: 1}},
		decode[[]model.PathMember](t, resp))

	resp = f.do(t, http.MethodPut, "/api/settings/tags", strings.NewReader(`[{"id":"customer","name":"Client"}]`), "application/json")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "region is still in the path schema")

	resp = f.do(t, http.MethodPut, "/api/settings/path", strings.NewReader(`[{"id":"region","order":1}]`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
