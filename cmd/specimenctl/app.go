package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"specimencore/internal/blob"
	"specimencore/internal/config"
	"specimencore/internal/core"
	"specimencore/internal/export"
	"specimencore/internal/logging"
	"specimencore/internal/media"
	"specimencore/internal/search"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const workerStopTimeout = 10 * time.Second

// app holds the services a command runs against.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    core.PersistentStore
	registry *core.Registry
	exporter *export.Exporter
	worker   *export.Worker
	index    *search.Index
	metrics  *prometheus.Registry
	detach   func()
}

func openApp(ctx context.Context, cfgPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, metrics: prometheus.NewRegistry()}

	var vault *media.Vault
	if cfg.StorageSettings().Driver != core.StorageMemory {
		bs, err := blob.Open(ctx, cfg.BlobSettings())
		if err != nil {
			return nil, fmt.Errorf("open media store: %w", err)
		}
		vault = media.NewVault(bs, logging.Module(logger, "media"))
	}
	a.store, err = core.OpenPersistentStore(ctx, cfg.StorageSettings(), core.NewDefaultRulesEngine(), vault)
	if err != nil {
		return nil, err
	}
	a.registry = core.NewRegistry(a.store, core.WithLogger(logging.Module(logger, "registry")))
	if err := a.registry.Reload(ctx); err != nil {
		_ = a.close()
		return nil, err
	}

	loc, _ := cfg.Location()
	a.exporter = export.NewExporter(cfg.Export.Root,
		export.WithLocation(loc),
		export.WithLogger(logging.Module(logger, "export")),
		export.WithMetrics(export.NewMetrics(a.metrics)),
		export.WithContinueOnError(cfg.Export.ContinueOnError),
	)
	a.worker = export.NewWorker(a.exporter, a.registry, export.SlogAudit{Logger: logging.Module(logger, "audit")})
	a.worker.Start()
	a.index, err = search.NewIndex(a.registry, cfg.Search.CacheSize,
		search.WithLogger(logging.Module(logger, "search")),
		search.WithMetrics(a.metrics),
	)
	if err != nil {
		_ = a.close()
		return nil, err
	}
	a.detach = a.index.Attach(a.registry)
	return a, nil
}

func (a *app) close() error {
	var errs []error
	if a.detach != nil {
		a.detach()
	}
	if a.worker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), workerStopTimeout)
		errs = append(errs, a.worker.Stop(ctx))
		cancel()
	}
	if c, ok := a.store.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(path, a.metrics); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// withApp opens the services around fn and closes them afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	a, err := openApp(cmd.Context(), cfgPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(cmd.Context(), a)
}

// resolveCollection accepts a 1-based list position or an ID prefix.
func (a *app) resolveCollection(arg string) (core.Collection, error) {
	cols := a.registry.Collections()
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(cols) {
			return core.Collection{}, fmt.Errorf("no collection at position %d", n)
		}
		return cols[n-1], nil
	}
	var match []core.Collection
	for _, c := range cols {
		if strings.HasPrefix(c.ID, arg) {
			match = append(match, c)
		}
	}
	switch len(match) {
	case 0:
		return core.Collection{}, fmt.Errorf("no collection matches %q", arg)
	case 1:
		return match[0], nil
	default:
		return core.Collection{}, fmt.Errorf("%q matches %d collections", arg, len(match))
	}
}

func (a *app) current() (core.Collection, error) {
	c, ok := a.registry.Current()
	if !ok {
		return core.Collection{}, errors.New("no current collection; create or select one")
	}
	return c, nil
}

func (a *app) active() (core.Specimen, error) {
	sp, ok := a.registry.ActiveSpecimen()
	if !ok {
		return core.Specimen{}, errors.New("no active specimen; add or select one")
	}
	return sp, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
