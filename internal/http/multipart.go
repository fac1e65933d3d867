package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/target/filetrack-api/internal/domain/model"
)

// Form field names of job submissions. Lookups ignore case.
const (
	fieldJobInfo         = "jobInfo"
	fieldJobAttributes   = "jobAttributes"
	fieldJobFiles        = "jobFiles"
	fieldJobAddedFiles   = "jobAddedFiles"
	fieldJobCurrentFiles = "jobCurrentFiles"

	multipartMemory = 32 << 20
)

// jobForm is a parsed job submission. Close releases opened uploads and temporary files.
type jobForm struct {
	form   *multipart.Form
	opened []multipart.File
}

func parseJobForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*jobForm, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: upload exceeds %d bytes", errPayloadTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %w", errMalformedForm, err)
	}
	return &jobForm{form: r.MultipartForm}, nil
}

var (
	errMalformedForm   = errors.New("malformed multipart form")
	errPayloadTooLarge = errors.New("payload too large")
)

func (f *jobForm) Close() {
	for _, file := range f.opened {
		_ = file.Close()
	}
	_ = f.form.RemoveAll()
}

func (f *jobForm) values(name string) []string {
	var out []string
	for k, v := range f.form.Value {
		if strings.EqualFold(k, name) {
			out = append(out, v...)
		}
	}
	return out
}

func (f *jobForm) fileHeaders(name string) []*multipart.FileHeader {
	var out []*multipart.FileHeader
	for k, v := range f.form.File {
		if strings.EqualFold(k, name) {
			out = append(out, v...)
		}
	}
	return out
}

// info decodes the single jobInfo JSON value into dst. A missing field leaves dst untouched.
func (f *jobForm) info(dst any) error {
	vals := f.values(fieldJobInfo)
	switch len(vals) {
	case 0:
		return nil
	case 1:
	default:
		return fmt.Errorf("%w: %s given more than once", errMalformedForm, fieldJobInfo)
	}
	dec := json.NewDecoder(strings.NewReader(vals[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %s: %w", errMalformedForm, fieldJobInfo, err)
	}
	return nil
}

// attributes accepts repeated {"id","value"} objects, JSON arrays of them, or a mix.
func (f *jobForm) attributes() ([]model.AttributeValue, error) {
	var out []model.AttributeValue
	for _, raw := range f.values(fieldJobAttributes) {
		trimmed := bytes.TrimSpace([]byte(raw))
		if len(trimmed) == 0 {
			continue
		}
		if trimmed[0] == '[' {
			var list []model.AttributeValue
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", errMalformedForm, fieldJobAttributes, err)
			}
			out = append(out, list...)
			continue
		}
		var one model.AttributeValue
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errMalformedForm, fieldJobAttributes, err)
		}
		out = append(out, one)
	}
	return out, nil
}

// fileIDs accepts repeated ids or JSON arrays of ids.
func (f *jobForm) fileIDs(name string) ([]string, error) {
	var out []string
	for _, raw := range f.values(name) {
		raw = strings.TrimSpace(raw)
		switch {
		case raw == "":
		case strings.HasPrefix(raw, "["):
			var ids []string
			if err := json.Unmarshal([]byte(raw), &ids); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", errMalformedForm, name, err)
			}
			out = append(out, ids...)
		default:
			out = append(out, raw)
		}
	}
	return out, nil
}

func (f *jobForm) files(name string) ([]model.NewFile, error) {
	headers := f.fileHeaders(name)
	out := make([]model.NewFile, 0, len(headers))
	for _, fh := range headers {
		file, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		f.opened = append(f.opened, file)
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		out = append(out, model.NewFile{FileName: fh.Filename, ContentType: contentType, Content: file})
	}
	return out, nil
}

func writeFormError(w http.ResponseWriter, err error) {
	code := http.StatusBadRequest
	if errors.Is(err, errPayloadTooLarge) {
		code = http.StatusRequestEntityTooLarge
	}
	WriteError(w, ErrorParams{Code: code, ErrCode: "invalid_form", Err: err})
}
