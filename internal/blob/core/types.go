// Package core defines the blob storage contract shared by the media vault and
// the concrete drivers under internal/infra/blob.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem stores media under a local directory (default).
	DriverFilesystem Driver = "fs"
	// DriverS3 stores media in an S3 compatible bucket, typically a local MinIO.
	DriverS3 Driver = "s3"
	// DriverMemory keeps media in process memory (tests).
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // small flat key-value pairs
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a create-only key/value blob store.
type Store interface {
	// Put stores a new blob. It returns ErrExists if the key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns the blob metadata and contents. It returns ErrNotFound if missing.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only. It returns ErrNotFound if missing.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes a blob and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

var (
	// ErrNotFound is returned for missing keys.
	ErrNotFound = errors.New("blob: not found")
	// ErrExists is returned when Put targets an existing key.
	ErrExists = errors.New("blob: already exists")
)
