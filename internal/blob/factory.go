package blob

import (
	"context"
	"fmt"
	"path/filepath"

	"specimencore/internal/infra/blob/fs"
	memorystore "specimencore/internal/infra/blob/memory"
	infraS3 "specimencore/internal/infra/blob/s3"
)

// S3Config re-exports the infra S3 configuration type.
type S3Config = infraS3.Config

// Config selects and parameterises a blob driver.
type Config struct {
	Driver Driver
	// FSRoot is the media directory when Driver is fs.
	FSRoot string
	S3     S3Config
}

// Open constructs the configured blob.Store. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewFilesystem constructs a filesystem-backed store rooted at root.
func NewFilesystem(root string) (Store, error) {
	if root == "" {
		root = filepath.Join(".", "media")
	}
	return fs.New(root)
}

// NewMemory returns an in-memory store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return infraS3.New(ctx, cfg)
}
