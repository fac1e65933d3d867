package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/target/filetrack-api/internal/core"
)

// emptySegment stands in for an empty key segment on disk. url.PathEscape never produces a bare "%".
const emptySegment = "%"

// ErrInvalidKey is returned for keys containing "." or ".." segments.
var ErrInvalidKey = errors.New("invalid blob key")

// LocalStore keeps blobs as files under Root. Each key segment is path-escaped so distinct keys never
// share a file and no key can leave Root.
type LocalStore struct {
	Root string
	// BaseURL prefixes returned blob URLs; file:// URLs are returned when empty.
	BaseURL string
}

var _ core.BlobStore = (*LocalStore)(nil)

// NewLocalStore creates root if needed and returns a store rooted there.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("local blob root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &LocalStore{Root: abs, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *LocalStore) resolve(key string) (string, error) {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		switch p {
		case ".", "..":
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		case "":
			parts[i] = emptySegment
		default:
			parts[i] = url.PathEscape(p)
		}
	}
	return filepath.Join(append([]string{l.Root}, parts...)...), nil
}

func (l *LocalStore) url(key string) string {
	if l.BaseURL == "" {
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(l.Root, key))}).String()
	}
	return l.BaseURL + "/" + key
}

// writeTemp writes r into a temporary file next to abs and returns its path.
func writeTemp(abs string, r io.Reader) (string, error) {
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(abs), ".upload-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Upload writes r under key unless the key already exists. The content is linked into place so a
// concurrent upload of the same key cannot replace it.
func (l *LocalStore) Upload(ctx context.Context, key string, r io.Reader, _ string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	abs, err := l.resolve(key)
	if err != nil {
		return "", false, err
	}
	if _, statErr := os.Stat(abs); statErr == nil {
		return l.url(key), false, nil
	}

	tmp, err := writeTemp(abs, r)
	if err != nil {
		return "", false, fmt.Errorf("upload blob %q: %w", key, err)
	}
	defer func() { _ = os.Remove(tmp) }()

	if err := os.Link(tmp, abs); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return l.url(key), false, nil
		}
		return "", false, fmt.Errorf("upload blob %q: %w", key, err)
	}
	return l.url(key), true, nil
}

// Delete removes key; a missing file is ignored.
func (l *LocalStore) Delete(_ context.Context, key string) error {
	abs, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

// Copy duplicates fromKey to toKey, replacing any existing content at toKey.
func (l *LocalStore) Copy(ctx context.Context, fromKey, toKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	src, err := l.resolve(fromKey)
	if err != nil {
		return "", err
	}
	dst, err := l.resolve(toKey)
	if err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("copy blob %q: %w", fromKey, core.ErrBlobNotFound)
		}
		return "", fmt.Errorf("copy blob %q: %w", fromKey, err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := writeTemp(dst, in)
	if err != nil {
		return "", fmt.Errorf("copy blob %q to %q: %w", fromKey, toKey, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("copy blob %q to %q: %w", fromKey, toKey, err)
	}
	return l.url(toKey), nil
}

// Download streams key into w.
func (l *LocalStore) Download(ctx context.Context, key string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	abs, err := l.resolve(key)
	if err != nil {
		return err
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("download blob %q: %w", key, core.ErrBlobNotFound)
		}
		return fmt.Errorf("download blob %q: %w", key, err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("read blob %q: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (l *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	abs, err := l.resolve(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat blob %q: %w", key, err)
	}
}

// Health checks that the root directory is still accessible.
func (l *LocalStore) Health(context.Context) error {
	_, err := os.Stat(l.Root)
	return err
}
