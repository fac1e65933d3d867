package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tagBody struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func decodeBody(t *testing.T, body string) (*httptest.ResponseRecorder, tagBody, bool) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/settings/tags", strings.NewReader(body))
	var dst tagBody
	ok := DecodeJSON(rec, req, &dst)
	return rec, dst, ok
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	rec, got, ok := decodeBody(t, `{"id":"customer","name":"Customer"}`)
	require.True(t, ok)
	assert.Equal(t, tagBody{ID: "customer", Name: "Customer"}, got)
	assert.Equal(t, http.StatusOK, rec.Code)

	for name, body := range map[string]string{
		"unknown field": `{"id":"customer","color":"red"}`,
		"trailing data": `{"id":"customer"} {"id":"year"}`,
		"malformed":     `{"id":`,
	} {
		rec, _, ok := decodeBody(t, body)
		assert.False(t, ok, name)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Contains(t, rec.Body.String(), `"invalid_json"`, name)
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	t.Parallel()

	body := `{"id":"` + strings.Repeat("x", maxJSONBody) + `"}`
	rec, _, ok := decodeBody(t, body)
	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "body_too_large")
}

func TestWriteJSONAndError(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "job-1"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"id":"job-1"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	WriteError(rec, ErrorParams{Code: http.StatusConflict, ErrCode: "job_locked", Err: errors.New("job is locked")})
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"error": "job_locked", "message": "job is locked"}, body)

	rec = httptest.NewRecorder()
	WriteError(rec, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found"})
	assert.Contains(t, rec.Body.String(), "Not Found")
}
