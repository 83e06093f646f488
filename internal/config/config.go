// Package config loads specimencore settings from an optional YAML file,
// SPECIMEN_ prefixed environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"specimencore/internal/blob"
	"specimencore/internal/core"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SPECIMEN_STORAGE_DRIVER.
const EnvPrefix = "SPECIMEN"

// Config is the root settings tree.
type Config struct {
	DataDir string        `mapstructure:"data_dir"`
	Storage StorageConfig `mapstructure:"storage"`
	Blob    BlobConfig    `mapstructure:"blob"`
	Export  ExportConfig  `mapstructure:"export"`
	Search  SearchConfig  `mapstructure:"search"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StorageConfig selects the persistent store backend.
type StorageConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// BlobConfig selects where media bytes are kept.
type BlobConfig struct {
	Driver string        `mapstructure:"driver"`
	FSRoot string        `mapstructure:"fs_root"`
	S3     blob.S3Config `mapstructure:"s3"`
}

// ExportConfig controls the export pipeline.
type ExportConfig struct {
	Root            string `mapstructure:"root"`
	Timezone        string `mapstructure:"timezone"`
	ContinueOnError bool   `mapstructure:"continue_on_error"`
}

// SearchConfig sizes the search result cache.
type SearchConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

// LogConfig sets the log level and handler format (text or json).
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls prometheus output.
type MetricsConfig struct {
	// Textfile is a node-exporter textfile path written after each command.
	Textfile string `mapstructure:"textfile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./specimen-data")
	v.SetDefault("storage.driver", string(core.StorageSQLite))
	v.SetDefault("storage.sqlite_path", "")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("blob.driver", string(blob.DriverFilesystem))
	v.SetDefault("blob.fs_root", "")
	v.SetDefault("blob.s3.region", "us-east-1")
	v.SetDefault("blob.s3.bucket", "")
	v.SetDefault("blob.s3.endpoint", "")
	v.SetDefault("blob.s3.access_key_id", "")
	v.SetDefault("blob.s3.secret_access_key", "")
	v.SetDefault("blob.s3.path_style", true)
	v.SetDefault("export.root", "./exports")
	v.SetDefault("export.timezone", "Local")
	v.SetDefault("export.continue_on_error", false)
	v.SetDefault("search.cache_size", 128)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.textfile", "")
}

// Load reads settings. An explicit path must exist; otherwise specimen.yaml
// is looked up in the working directory and $HOME/.specimencore and may be
// absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("specimen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.specimencore")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unknown drivers, levels and formats.
func (c *Config) Validate() error {
	var errs []error
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite:
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn required for postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch blob.Driver(c.Blob.Driver) {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket required for s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob.driver %q", c.Blob.Driver))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log.level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if c.Search.CacheSize < 0 {
		errs = append(errs, errors.New("search.cache_size must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// StorageSettings maps the storage section onto the registry store config.
func (c *Config) StorageSettings() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		DataDir:     c.DataDir,
	}
}

// BlobSettings maps the blob section onto the media store config. The fs
// root defaults to <data_dir>/media.
func (c *Config) BlobSettings() blob.Config {
	root := c.Blob.FSRoot
	if root == "" {
		root = filepath.Join(c.DataDir, "media")
	}
	return blob.Config{Driver: blob.Driver(c.Blob.Driver), FSRoot: root, S3: c.Blob.S3}
}

// Location resolves export.timezone ("Local", "UTC" or an IANA name).
func (c *Config) Location() (*time.Location, error) {
	switch c.Export.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Export.Timezone)
	if err != nil {
		return nil, fmt.Errorf("export.timezone: %w", err)
	}
	return loc, nil
}
