// Package blobstore provides core.BlobStore implementations backed by Azure Blob Storage and the local filesystem.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/target/filetrack-api/internal/core"
)

const defaultCopyPollInterval = 500 * time.Millisecond

// AzureStoreOptions configures an AzureStore.
// CreateContainer creates the container on startup when it does not exist.
type AzureStoreOptions struct {
	ConnectionString string
	Container        string
	CreateContainer  bool
	CopyPollInterval time.Duration
	Logger           *slog.Logger
}

// AzureStore stores blobs in one Azure Blob Storage container.
type AzureStore struct {
	container    *container.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

var _ core.BlobStore = (*AzureStore)(nil)

// NewAzureStore builds a container client from a storage account connection string.
func NewAzureStore(ctx context.Context, opts AzureStoreOptions) (*AzureStore, error) {
	if opts.ConnectionString == "" {
		return nil, errors.New("azure blob connection string is required")
	}
	if opts.Container == "" {
		return nil, errors.New("azure blob container is required")
	}
	cc, err := container.NewClientFromConnectionString(opts.ConnectionString, opts.Container, nil)
	if err != nil {
		return nil, fmt.Errorf("azure container client: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &AzureStore{
		container:    cc,
		pollInterval: opts.CopyPollInterval,
		logger:       logger.With("component", "azure_blob_store", "container", opts.Container),
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultCopyPollInterval
	}

	if opts.CreateContainer {
		if _, createErr := cc.Create(ctx, nil); createErr != nil &&
			!bloberror.HasCode(createErr, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("create container: %w", createErr)
		}
	}
	return s, nil
}

// Upload writes r under key with an If-None-Match: * condition so existing content is never replaced.
func (s *AzureStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, bool, error) {
	bb := s.container.NewBlockBlobClient(key)
	_, err := bb.UploadStream(ctx, r, &blockblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists, bloberror.ConditionNotMet) {
			s.logger.DebugContext(ctx, "blob already exists, keeping existing content", "key", key)
			return bb.URL(), false, nil
		}
		return "", false, fmt.Errorf("upload blob %q: %w", key, err)
	}
	return bb.URL(), true, nil
}

// Delete removes key and its snapshots; a missing blob is ignored.
func (s *AzureStore) Delete(ctx context.Context, key string) error {
	_, err := s.container.NewBlobClient(key).Delete(ctx, &blob.DeleteOptions{
		DeleteSnapshots: to.Ptr(blob.DeleteSnapshotsOptionTypeInclude),
	})
	if err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("delete blob %q: %w", key, err)
	}
	return nil
}

// Copy starts a server-side copy of fromKey to toKey and waits for it to finish.
func (s *AzureStore) Copy(ctx context.Context, fromKey, toKey string) (string, error) {
	src := s.container.NewBlobClient(fromKey)
	dst := s.container.NewBlobClient(toKey)

	resp, err := dst.StartCopyFromURL(ctx, src.URL(), nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.CannotVerifyCopySource, bloberror.BlobNotFound) {
			return "", fmt.Errorf("copy blob %q: %w", fromKey, core.ErrBlobNotFound)
		}
		return "", fmt.Errorf("copy blob %q to %q: %w", fromKey, toKey, err)
	}

	status := resp.CopyStatus
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for status != nil && *status == blob.CopyStatusTypePending {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
		props, propErr := dst.GetProperties(ctx, nil)
		if propErr != nil {
			return "", fmt.Errorf("poll copy of %q: %w", toKey, propErr)
		}
		status = props.CopyStatus
	}
	if status != nil && *status != blob.CopyStatusTypeSuccess {
		return "", fmt.Errorf("copy blob %q to %q finished with status %s", fromKey, toKey, *status)
	}
	return dst.URL(), nil
}

// Download streams key into w.
func (s *AzureStore) Download(ctx context.Context, key string, w io.Writer) error {
	resp, err := s.container.NewBlobClient(key).DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return fmt.Errorf("download blob %q: %w", key, core.ErrBlobNotFound)
		}
		return fmt.Errorf("download blob %q: %w", key, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.WarnContext(ctx, "close download body", "key", key, "error", cerr)
		}
	}()
	if _, err = io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read blob %q: %w", key, err)
	}
	return nil
}

// Exists reports whether key is present.
func (s *AzureStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.container.NewBlobClient(key).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob %q: %w", key, err)
	}
	return true, nil
}

// Health checks that the container is reachable.
func (s *AzureStore) Health(ctx context.Context) error {
	_, err := s.container.GetProperties(ctx, nil)
	return err
}
