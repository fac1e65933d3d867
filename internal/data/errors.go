package data

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Shared sentinel errors for data-layer repositories.
var (
	// ErrJobNotFound is returned when a job row does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFileNotFound is returned when a file row targeted by an update does not exist.
	ErrJobFileNotFound = errors.New("job file not found")
	// ErrJobExists is returned when inserting a job whose id is already taken.
	ErrJobExists = errors.New("job already exists")
	// ErrJobLocked is returned when another request holds the job's lock.
	ErrJobLocked = errors.New("job is locked by another operation")

	// ErrTagNotFound is returned when a tag does not exist.
	ErrTagNotFound = errors.New("tag not found")
	// ErrTagInUse is returned when deleting a tag still referenced by the path schema.
	ErrTagInUse = errors.New("tag is referenced by the path schema")
	// ErrUnknownPathTag is returned when the path schema references a tag that does not exist.
	ErrUnknownPathTag = errors.New("path schema references an unknown tag")

	// ErrJobIDRequired is returned by operations called without a job id.
	ErrJobIDRequired = errors.New("job_id is required")
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == pgerrcode.ForeignKeyViolation
}
