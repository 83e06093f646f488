// Package fs implements the blob store on a local directory tree.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"specimencore/internal/blob/core"
)

const metaSuffix = ".meta"

// Store implements core.Store using the local filesystem.
// Keys map to relative paths under the root; a JSON sidecar (path + ".meta")
// keeps content type, checksum and user metadata.
type Store struct {
	root string
}

// New returns a filesystem-backed blob store rooted at path, creating it if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory backing the store.
func (s *Store) Root() string { return s.root }

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// sanitizeKey forbids empty keys, absolute paths and traversal outside the root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty key")
	}
	if strings.HasPrefix(key, "/") || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid absolute key %q", key)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if clean == ".." || strings.HasPrefix(clean, "../") || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key traversal %q", key)
	}
	if strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("key %q uses reserved suffix", key)
	}
	return clean, nil
}

func (s *Store) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, filepath.FromSlash(k))
	return dataPath, dataPath + metaSuffix, nil
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Put streams r into a temp file, then renames it into place.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if err := ctx.Err(); err != nil {
		return core.Info{}, err
	}
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o750); err != nil {
		return core.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return core.Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return core.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return core.Info{}, err
	}
	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    cloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return core.Info{}, err
	}
	if err := os.WriteFile(metaPath, b, 0o640); err != nil {
		return core.Info{}, err
	}
	return infoFromMeta(key, mf), nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	if err != nil {
		return core.Info{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return core.Info{}, nil, err
	}
	return infoFromMeta(key, mf), file, nil
}

func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	_, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.Info{}, err
	}
	mf, err := readMeta(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	if err != nil {
		return core.Info{}, err
	}
	return infoFromMeta(key, mf), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

// List walks the root collecting sidecars whose key has prefix.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		mf, err := readMeta(path)
		if err != nil {
			return err
		}
		infos = append(infos, infoFromMeta(key, mf))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func infoFromMeta(key string, mf metaFile) core.Info {
	return core.Info{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		ETag:         mf.ETag,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: mf.CreatedAt,
	}
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return mf, nil
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
