// Package errors derives low-cardinality error classes for metric tags.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/domain/model"
	apperrors "github.com/target/filetrack-api/internal/errors"
)

var sentinelClasses = []struct {
	err   error
	class string
}{
	{context.DeadlineExceeded, "timeout"},
	{context.Canceled, "canceled"},
	{core.ErrBlobNotFound, "blob_not_found"},
	{model.ErrInvalidStateTransition, "invalid_transition"},
}

// Classify returns a normalized error class suitable for tagging metrics.
// Application errors map to their code, known sentinels to a fixed name, and anything
// else to the snake_cased type of the innermost wrapped error.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinelClasses {
		if goerrors.Is(err, s.err) {
			return s.class
		}
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}
	return typeName(innermost(err))
}

func innermost(err error) error {
	for {
		next := goerrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
