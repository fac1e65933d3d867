// Package mocks provides mock implementations of the filetrack core ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for the port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	blobs := mocks.NewMockBlobStore(ctrl)
//	blobs.EXPECT().Delete(gomock.Any(), "acme/2024/report.pdf").Return(nil)
//
// In-memory implementations of the record and blob stores live in internal/testutil/memstore.
package mocks

// BlobStore: Upload, Delete, Copy, Download, Exists
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=blob_store_mock.go github.com/target/filetrack-api/internal/core BlobStore

// CacheRepository: Set, Get, Delete, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/target/filetrack-api/internal/core CacheRepository

// JobLocker: Lock
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_locker_mock.go github.com/target/filetrack-api/internal/core JobLocker

// SettingsReader: ListTags, GetPathSchema
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=settings_reader_mock.go github.com/target/filetrack-api/internal/core SettingsReader

// Authenticator: Authenticate
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=authenticator_mock.go github.com/target/filetrack-api/internal/ports Authenticator
