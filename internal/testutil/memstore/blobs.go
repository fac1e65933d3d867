package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/target/filetrack-api/internal/core"
)

// Blobs is an in-memory core.BlobStore that records every mutating call in Ops.
type Blobs struct {
	mu       sync.Mutex
	content  map[string][]byte
	ops      []string
	failures map[string]error
}

var _ core.BlobStore = (*Blobs)(nil)

// NewBlobs returns an empty blob store.
func NewBlobs() *Blobs {
	return &Blobs{content: map[string][]byte{}, failures: map[string]error{}}
}

// URL is the URL reported for key.
func URL(key string) string { return "mem://" + key }

// FailOn makes op ("upload", "copy", "delete" or "download") fail for key.
func (b *Blobs) FailOn(op, key string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[op+":"+key] = err
}

// Put seeds key with content.
func (b *Blobs) Put(key, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content[key] = []byte(content)
}

// Get returns the content of key.
func (b *Blobs) Get(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.content[key]
	return string(v), ok
}

// Keys returns all stored keys, sorted.
func (b *Blobs) Keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Sorted(maps.Keys(b.content))
}

// Ops returns the mutating calls made so far, e.g. "copy:a->b".
func (b *Blobs) Ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.ops)
}

func (b *Blobs) failure(op, key string) error {
	return b.failures[op+":"+key]
}

// Upload implements core.BlobStore.
func (b *Blobs) Upload(_ context.Context, key string, r io.Reader, _ string) (string, bool, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", false, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure("upload", key); err != nil {
		return "", false, err
	}
	b.ops = append(b.ops, "upload:"+key)
	if _, ok := b.content[key]; ok {
		return URL(key), false, nil
	}
	b.content[key] = body
	return URL(key), true, nil
}

// Delete implements core.BlobStore.
func (b *Blobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure("delete", key); err != nil {
		return err
	}
	b.ops = append(b.ops, "delete:"+key)
	delete(b.content, key)
	return nil
}

// Copy implements core.BlobStore.
func (b *Blobs) Copy(_ context.Context, from, to string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.failure("copy", from); err != nil {
		return "", err
	}
	v, ok := b.content[from]
	if !ok {
		return "", fmt.Errorf("copy %q: %w", from, core.ErrBlobNotFound)
	}
	b.ops = append(b.ops, "copy:"+from+"->"+to)
	b.content[to] = bytes.Clone(v)
	return URL(to), nil
}

// Download implements core.BlobStore.
func (b *Blobs) Download(_ context.Context, key string, w io.Writer) error {
	b.mu.Lock()
	v, ok := b.content[key]
	err := b.failure("download", key)
	b.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("download %q: %w", key, core.ErrBlobNotFound)
	}
	_, err = w.Write(v)
	return err
}

// Exists implements core.BlobStore.
func (b *Blobs) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.content[key]
	return ok, nil
}
