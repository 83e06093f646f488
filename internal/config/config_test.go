package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"specimencore/internal/blob"
	"specimencore/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "./specimen-data", cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, "./exports", cfg.Export.Root)
	assert.Equal(t, 128, cfg.Search.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	st := cfg.StorageSettings()
	assert.Equal(t, core.StorageSQLite, st.Driver)
	assert.Equal(t, "./specimen-data", st.DataDir)
	bs := cfg.BlobSettings()
	assert.Equal(t, blob.DriverFilesystem, bs.Driver)
	assert.Equal(t, filepath.Join("specimen-data", "media"), bs.FSRoot)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Same(t, time.Local, loc)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "specimen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /srv/specimens
storage:
  driver: postgres
  postgres_dsn: postgres://field@localhost/specimens
blob:
  driver: s3
  s3:
    bucket: specimens
    endpoint: http://nas.local:9000
export:
  timezone: Australia/Perth
  continue_on_error: true
`), 0o600))
	t.Setenv("SPECIMEN_LOG_LEVEL", "debug")
	t.Setenv("SPECIMEN_SEARCH_CACHE_SIZE", "16")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/specimens", cfg.DataDir)
	assert.Equal(t, core.StoragePostgres, cfg.StorageSettings().Driver)
	assert.Equal(t, "specimens", cfg.BlobSettings().S3.Bucket)
	assert.Equal(t, "http://nas.local:9000", cfg.Blob.S3.Endpoint)
	assert.True(t, cfg.Blob.S3.PathStyle)
	assert.True(t, cfg.Export.ContinueOnError)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 16, cfg.Search.CacheSize)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Australia/Perth", loc.String())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cfg := Config{
		Storage: StorageConfig{Driver: "mongo"},
		Blob:    BlobConfig{Driver: "s3"},
		Export:  ExportConfig{Timezone: "Mars/Olympus"},
		Search:  SearchConfig{CacheSize: -1},
		Log:     LogConfig{Level: "loud", Format: "xml"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"storage.driver", "blob.s3.bucket", "log.level", "log.format", "export.timezone", "cache_size"} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = Config{Storage: StorageConfig{Driver: "postgres"}, Blob: BlobConfig{Driver: "fs"}, Log: LogConfig{Level: "info", Format: "json"}}
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_dsn")
}
