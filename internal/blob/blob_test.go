package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	infraS3 "specimencore/internal/infra/blob/s3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drivers(t *testing.T) map[string]Store {
	t.Helper()
	fsStore, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"fs":     fsStore,
		"memory": NewMemory(),
		"s3":     infraS3.NewMockForTests(),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range drivers(t) {
		t.Run(name, func(t *testing.T) {
			payload := []byte("stromatolite photo bytes")
			info, err := store.Put(ctx, "media/abc", bytes.NewReader(payload), PutOptions{ContentType: "image/jpeg"})
			require.NoError(t, err)
			assert.Equal(t, "media/abc", info.Key)
			assert.EqualValues(t, len(payload), info.Size)

			_, err = store.Put(ctx, "media/abc", bytes.NewReader(payload), PutOptions{})
			assert.True(t, errors.Is(err, ErrExists), "second put: %v", err)

			got, rc, err := store.Get(ctx, "media/abc")
			require.NoError(t, err)
			body, err := io.ReadAll(rc)
			require.NoError(t, rc.Close())
			require.NoError(t, err)
			assert.Equal(t, payload, body)
			assert.Equal(t, "image/jpeg", got.ContentType)

			_, err = store.Put(ctx, "media/def", bytes.NewReader([]byte("x")), PutOptions{})
			require.NoError(t, err)
			_, err = store.Put(ctx, "other/zzz", bytes.NewReader([]byte("y")), PutOptions{})
			require.NoError(t, err)
			list, err := store.List(ctx, "media/")
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "media/abc", list[0].Key)
			assert.Equal(t, "media/def", list[1].Key)

			existed, err := store.Delete(ctx, "media/abc")
			require.NoError(t, err)
			assert.True(t, existed)
			existed, err = store.Delete(ctx, "media/abc")
			require.NoError(t, err)
			assert.False(t, existed)

			_, err = store.Head(ctx, "media/abc")
			assert.True(t, errors.Is(err, ErrNotFound), "head after delete: %v", err)
			_, _, err = store.Get(ctx, "media/abc")
			assert.True(t, errors.Is(err, ErrNotFound), "get after delete: %v", err)
		})
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, s.Driver())

	s, err = Open(ctx, Config{Driver: DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, s.Driver())

	_, err = Open(ctx, Config{Driver: "tape"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Driver: DriverS3})
	assert.Error(t, err, "bucket is required")
}

func TestFilesystemRejectsTraversal(t *testing.T) {
	s, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	for _, key := range []string{"", "/abs", "../escape", "a/../../b", "x.meta"} {
		_, err := s.Put(ctx, key, bytes.NewReader([]byte("x")), PutOptions{})
		assert.Error(t, err, key)
	}
}
