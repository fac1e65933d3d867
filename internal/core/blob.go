package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// BlobStore stores job file content by key.
type BlobStore interface {
	// Upload writes r under key unless the key already exists, in which case existing content is kept.
	// It returns the blob URL and whether this call created the blob.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (url string, created bool, err error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Copy duplicates the blob at from to to and returns the URL of the copy.
	Copy(ctx context.Context, from, to string) (string, error)
	// Download streams the content of key into w.
	Download(ctx context.Context, key string, w io.Writer) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ScratchStore manages per-request scratch directories and the archives built from them.
type ScratchStore interface {
	// PrepareDirectory creates a new, empty scratch directory for one download of jobID.
	PrepareDirectory(jobID string) (string, error)
	// ArchivePath is where the archive of a prepared directory is written.
	ArchivePath(dir string) string
	// ArchiveDirectory zips the regular files of sourceDir into zipPath, replacing any previous archive.
	ArchiveDirectory(ctx context.Context, zipPath, sourceDir string) error
	// RemoveDirectory deletes a directory returned by PrepareDirectory.
	RemoveDirectory(dir string) error
}

// ErrBlobNotFound is returned by BlobStore reads of a missing key.
var ErrBlobNotFound = errors.New("blob not found")

// ScratchCleaner removes scratch entries that have outlived their usefulness.
type ScratchCleaner interface {
	// Sweep removes entries last modified before cutoff and reports how many it removed.
	Sweep(cutoff time.Time) (int, error)
}
