// Package memory implements an in-memory blob Store for tests.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"specimencore/internal/blob/core"
	"strings"
	"sync"
	"time"
)

type blobEntry struct {
	info core.Info
	data []byte
}

// Store implements core.Store backed by process memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]blobEntry
}

// New returns an in-memory blob store.
func New() *Store { return &Store{objs: make(map[string]blobEntry)} }

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a new blob; errors if key exists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	sum := sha256.Sum256(b)
	info := core.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = blobEntry{info: info, data: b}
	return info, nil
}

// Get returns blob metadata and a reader over a private copy of its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	data := append([]byte(nil), obj.data...)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

// Head returns blob metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

// Delete removes the blob returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

// List returns all blobs matching prefix.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			inf := v.info
			inf.Metadata = cloneMetadata(inf.Metadata)
			out = append(out, inf)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
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
