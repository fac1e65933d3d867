package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/target/filetrack-api/internal/core"
	"github.com/target/filetrack-api/internal/domain/model"
	apperrors "github.com/target/filetrack-api/internal/errors"
)

type storageErr struct{}

func (*storageErr) Error() string { return "storage" }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("download: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"blob missing", fmt.Errorf("copy: %w", core.ErrBlobNotFound), "blob_not_found"},
		{"transition", fmt.Errorf("update: %w", model.ErrInvalidStateTransition), "invalid_transition"},
		{"app not found", apperrors.NotFound("job not found"), "not_found"},
		{"wrapped conflict", fmt.Errorf("lock: %w", apperrors.Conflict("job locked")), "conflict"},
		{"plain", goerrors.New("boom"), "errors_errorstring"},
		{"typed", fmt.Errorf("outer: %w", &storageErr{}), "errors_storageerr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
