// Package scratch manages the on-disk scratch area used to assemble job download archives.
package scratch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/target/filetrack-api/internal/core"
)

const archiveExt = ".zip"

// Store is a scratch directory holding one sub-directory and one archive per download request.
type Store struct {
	root string
}

var _ core.ScratchStore = (*Store)(nil)

// New returns a Store rooted at root. The directory is created by Reset.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("scratch root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve scratch root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute scratch directory.
func (s *Store) Root() string { return s.root }

// Reset removes everything under the scratch root and recreates it empty.
// It runs once during process bootstrap, before any archive is requested.
func (s *Store) Reset() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("clear scratch dir: %w", err)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	return nil
}

func validJobID(jobID string) error {
	if jobID == "" || jobID != filepath.Base(jobID) || jobID == "." || jobID == ".." {
		return fmt.Errorf("invalid job id for scratch dir: %q", jobID)
	}
	return nil
}

// PrepareDirectory creates a fresh scratch directory for one download of jobID.
// Every call gets its own directory, so concurrent downloads of the same job never share files.
func (s *Store) PrepareDirectory(jobID string) (string, error) {
	if err := validJobID(jobID); err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp(s.root, jobID+"-*")
	if err != nil {
		return "", fmt.Errorf("create job scratch dir: %w", err)
	}
	return dir, nil
}

// ArchivePath returns where the archive built from dir is written.
func (s *Store) ArchivePath(dir string) string {
	return filepath.Join(s.root, filepath.Base(dir)+archiveExt)
}

// RemoveDirectory deletes a directory returned by PrepareDirectory.
func (s *Store) RemoveDirectory(dir string) error {
	if filepath.Dir(filepath.Clean(dir)) != s.root {
		return fmt.Errorf("not a scratch directory: %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove job scratch dir: %w", err)
	}
	return nil
}

// ArchiveDirectory zips the regular files directly inside sourceDir into zipPath.
// The archive is written to a temporary file and renamed into place on success.
func (s *Store) ArchiveDirectory(ctx context.Context, zipPath, sourceDir string) error {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return fmt.Errorf("read scratch dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	tmp, err := os.CreateTemp(filepath.Dir(zipPath), ".archive-*")
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	zw := zip.NewWriter(tmp)
	for _, e := range entries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			_ = zw.Close()
			_ = tmp.Close()
			return ctxErr
		}
		if !e.Type().IsRegular() {
			continue
		}
		if addErr := addFile(zw, filepath.Join(sourceDir, e.Name()), e); addErr != nil {
			_ = zw.Close()
			_ = tmp.Close()
			return addErr
		}
	}
	if err := zw.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), zipPath); err != nil {
		return fmt.Errorf("move archive into place: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, path string, entry fs.DirEntry) error {
	info, err := entry.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", entry.Name(), err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header %s: %w", entry.Name(), err)
	}
	hdr.Name = entry.Name()
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("zip entry %s: %w", entry.Name(), err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.Name(), err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("compress %s: %w", entry.Name(), err)
	}
	return nil
}

// Sweep removes job directories and archives last modified before cutoff and returns how many entries it removed.
func (s *Store) Sweep(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}
	removed := 0
	var errs []error
	for _, e := range entries {
		info, infoErr := e.Info()
		if infoErr != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if rmErr := os.RemoveAll(filepath.Join(s.root, e.Name())); rmErr != nil {
			errs = append(errs, rmErr)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
