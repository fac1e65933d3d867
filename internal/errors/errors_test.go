package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "job not found"},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to move blob",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to move blob: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeInternal, "wrapped error")
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(Wrap(cause), cause) = false")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		wantCode ErrorCode
		wantMsg  string
	}{
		{"NotFound", NotFound("job not found"), ErrCodeNotFound, "job not found"},
		{"NotFoundf", NotFoundf("job %s not found", "j1"), ErrCodeNotFound, "job j1 not found"},
		{"Conflict", Conflict("job is locked"), ErrCodeConflict, "job is locked"},
		{"Conflictf", Conflictf("tag %q in use", "customer"), ErrCodeConflict, `tag "customer" in use`},
		{"Validation", Validation("bad input"), ErrCodeValidation, "bad input"},
		{"Validationf", Validationf("unknown tag %s", "x"), ErrCodeValidation, "unknown tag x"},
		{"Validation keeps percent", Validation("100% wrong"), ErrCodeValidation, "100% wrong"},
		{"Internal", Internal("boom"), ErrCodeInternal, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("jobInfo", "description is too long")
	if err.Field != "jobInfo" || !IsValidation(err) {
		t.Errorf("ValidationField() = %+v", err)
	}
}

func TestWrap_NilError(t *testing.T) {
	if err := Wrap(nil, ErrCodeInternal, "x"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
	if err := Wrapf(nil, ErrCodeInternal, "x %d", 1); err != nil {
		t.Errorf("Wrapf(nil) = %v, want nil", err)
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", fmt.Errorf("get: %w", NotFound("x")), IsNotFound},
		{"conflict", fmt.Errorf("lock: %w", Conflict("x")), IsConflict},
		{"validation", fmt.Errorf("create: %w", Validation("x")), IsValidation},
		{"timeout", Wrap(errors.New("slow"), ErrCodeTimeout, "x"), IsTimeout},
		{"canceled", Wrap(errors.New("stop"), ErrCodeCanceled, "x"), IsCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("predicate returned false for %v", tt.err)
			}
			if tt.check(errors.New("plain")) {
				t.Error("predicate returned true for a plain error")
			}
		})
	}
}

func TestGetCodeAndField(t *testing.T) {
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %q, want empty", got)
	}
	err := fmt.Errorf("wrap: %w", ValidationField("state", "bad state"))
	if got := GetCode(err); got != ErrCodeValidation {
		t.Errorf("GetCode() = %q", got)
	}
	if got := GetField(err); got != "state" {
		t.Errorf("GetField() = %q", got)
	}
}
