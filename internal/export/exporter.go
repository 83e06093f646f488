// Package export writes collections to self-contained directory trees for
// offline processing: media files named by identifier, a JSON manifest and
// plain-text documentation.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"specimencore/pkg/domain"
	"time"

	"golang.org/x/sync/singleflight"
)

// Result reports the outcome of an export. Failures are values, never panics
// or returned errors.
type Result struct {
	Success    bool
	Path       string
	Error      string
	FileCount  int
	TotalBytes int64
	// Skipped lists collections left out of an aggregate export when
	// continue-on-error is enabled.
	Skipped []string
}

// ProgressFunc receives a non-decreasing fraction in [0,1].
type ProgressFunc func(fraction float64)

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock sets the clock used for export dates and aggregate names.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the zone used to format directory timestamps.
func WithLocation(loc *time.Location) Option {
	return func(e *Exporter) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records export outcomes.
func WithMetrics(m *Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// WithContinueOnError makes aggregate exports skip failing collections instead
// of aborting on the first failure.
func WithContinueOnError(enabled bool) Option {
	return func(e *Exporter) { e.continueOnError = enabled }
}

// Exporter writes collections beneath a root directory.
type Exporter struct {
	root            string
	now             func() time.Time
	loc             *time.Location
	logger          *slog.Logger
	metrics         *Metrics
	continueOnError bool
	flight          singleflight.Group
}

// NewExporter returns an exporter writing under root.
func NewExporter(root string, opts ...Option) *Exporter {
	e := &Exporter{
		root:   root,
		now:    func() time.Time { return time.Now().UTC() },
		loc:    time.Local,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the export root directory.
func (e *Exporter) Root() string { return e.root }

// ExportCollection writes c to <root>/<locality>_<timestamp>, replacing any
// existing directory of that name. ctx is only checked before the export
// starts.
//
// Concurrent calls for the same collection ID share one run. A caller that
// joins a run already in flight receives the result of the snapshot the
// first caller passed, and its progress func sees only the final 1.0.
func (e *Exporter) ExportCollection(ctx context.Context, c domain.Collection, progress ProgressFunc) Result {
	if err := ctx.Err(); err != nil {
		return failure(err)
	}
	tr := newTracker(progress)
	v, _, shared := e.flight.Do(c.ID, func() (any, error) {
		start := time.Now()
		res := e.exportInto(e.root, c, tr)
		e.metrics.observe("collection", res, time.Since(start))
		e.log("collection export", c, res)
		return res, nil
	})
	res := v.(Result)
	if shared && res.Success {
		tr.report(1)
	}
	return res
}

// ExportAll writes every collection, in the given order, beneath one
// SpecimenExport_<timestamp> directory together with EXPORT_INDEX.txt.
func (e *Exporter) ExportAll(ctx context.Context, collections []domain.Collection, progress ProgressFunc) Result {
	if len(collections) == 0 {
		return Result{Error: "no collections to export"}
	}
	if err := ctx.Err(); err != nil {
		return failure(err)
	}
	start := time.Now()
	res := e.exportAll(collections, newTracker(progress))
	e.metrics.observe("all", res, time.Since(start))
	if res.Success {
		e.logger.Info("aggregate export finished", "path", res.Path, "collections", len(collections), "files", res.FileCount, "bytes", res.TotalBytes, "skipped", len(res.Skipped))
	} else {
		e.logger.Error("aggregate export failed", "error", res.Error)
	}
	return res
}

func (e *Exporter) log(msg string, c domain.Collection, res Result) {
	if res.Success {
		e.logger.Info(msg, "collection_id", c.ID, "path", res.Path, "files", res.FileCount, "bytes", res.TotalBytes)
		return
	}
	e.logger.Error(msg, "collection_id", c.ID, "error", res.Error)
}

func failure(err error) Result { return Result{Error: err.Error()} }

func (e *Exporter) exportAll(collections []domain.Collection, tr *tracker) Result {
	if err := os.MkdirAll(e.root, 0o755); err != nil {
		return failure(fmt.Errorf("create export root: %w", err))
	}
	top := filepath.Join(e.root, AggregatePrefix+Timestamp(e.now(), e.loc))
	if err := replaceDir(top); err != nil {
		return failure(err)
	}
	staging, err := os.MkdirTemp(e.root, ".staging-")
	if err != nil {
		return failure(fmt.Errorf("create staging directory: %w", err))
	}
	defer func() { _ = os.RemoveAll(staging) }()

	out := Result{Path: top}
	used := make(map[string]bool)
	entries := make([]indexEntry, 0, len(collections))
	for i, c := range collections {
		res := e.exportInto(staging, c, nil)
		entry := indexEntry{collection: c}
		if res.Success {
			name := uniqueName(filepath.Base(res.Path), used)
			if err := os.Rename(res.Path, filepath.Join(top, name)); err != nil {
				res = failure(fmt.Errorf("move %s: %w", name, err))
			} else {
				entry.dir = name
				out.FileCount += res.FileCount
				out.TotalBytes += res.TotalBytes
			}
		}
		if !res.Success {
			if !e.continueOnError {
				return Result{Error: fmt.Sprintf("export %q: %s", c.Locality, res.Error)}
			}
			entry.err = res.Error
			out.Skipped = append(out.Skipped, c.ID)
			e.logger.Warn("skipping collection in aggregate export", "collection_id", c.ID, "error", res.Error)
		}
		entries = append(entries, entry)
		tr.report(float64(i+1) / float64(len(collections)) * 0.95)
	}
	if len(out.Skipped) == len(collections) {
		return Result{Error: "every collection failed to export", Skipped: out.Skipped}
	}
	index := buildIndex(entries, e.now(), out.FileCount, out.TotalBytes)
	if err := writeFile(filepath.Join(top, IndexFilename), index, &out); err != nil {
		return failure(err)
	}
	out.Success = true
	tr.report(1)
	return out
}

// exportInto writes one collection directory beneath parent. I/O failures
// abort immediately and leave partial output on disk.
func (e *Exporter) exportInto(parent string, c domain.Collection, tr *tracker) Result {
	dest := filepath.Join(parent, DirectoryName(c.Locality, c.CollectionDate, e.loc))
	if err := replaceDir(dest); err != nil {
		return failure(err)
	}
	images := filepath.Join(dest, ImagesDir)
	audio := filepath.Join(dest, AudioDir)
	for _, dir := range []string{images, audio} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return failure(fmt.Errorf("create %s: %w", filepath.Base(dir), err))
		}
	}
	tr.report(0.1)

	res := Result{Path: dest}
	var overview *string
	if c.HasOverviewImage() {
		name := OverviewFilename(c.ID)
		if err := writeFile(filepath.Join(images, name), c.OverviewImage, &res); err != nil {
			return failure(err)
		}
		overview = &name
	}

	files := make(map[string]specimenFiles, len(c.Specimens))
	for i, sp := range c.Specimens {
		f, err := writeSpecimen(images, audio, sp, &res)
		if err != nil {
			return failure(err)
		}
		files[sp.ID] = f
		tr.report(0.1 + 0.7*float64(i+1)/float64(len(c.Specimens)))
	}

	manifest, err := buildManifest(c, overview, files, e.now()).encode()
	if err != nil {
		return failure(fmt.Errorf("encode manifest: %w", err))
	}
	if err := writeFile(filepath.Join(dest, ManifestFilename), manifest, &res); err != nil {
		return failure(err)
	}
	tr.report(0.9)
	if err := writeFile(filepath.Join(dest, ReadmeFilename), buildReadme(c, e.now()), &res); err != nil {
		return failure(err)
	}
	tr.report(0.95)
	res.Success = true
	tr.report(1)
	return res
}

func writeSpecimen(images, audio string, sp domain.Specimen, res *Result) (specimenFiles, error) {
	var f specimenFiles
	// the photo sequence wins; the legacy single photo is used only when it is empty
	if len(sp.Photos) > 0 {
		for i, photo := range sp.Photos {
			name := SpecimenPhotoFilename(sp.ID, i+1)
			if err := writeFile(filepath.Join(images, name), photo, res); err != nil {
				return f, err
			}
			f.photos = append(f.photos, name)
		}
	} else if len(sp.LegacyPhoto) > 0 {
		name := LegacySpecimenPhotoFilename(sp.ID)
		if err := writeFile(filepath.Join(images, name), sp.LegacyPhoto, res); err != nil {
			return f, err
		}
		f.photos = append(f.photos, name)
	}

	if len(sp.FieldBookPages) > 0 {
		for i, page := range sp.FieldBookPages {
			name := FieldBookFilename(sp.ID, i+1)
			if err := writeFile(filepath.Join(images, name), page, res); err != nil {
				return f, err
			}
			f.pages = append(f.pages, name)
		}
	} else if len(sp.LegacyFieldBookPage) > 0 {
		name := LegacyFieldBookFilename(sp.ID)
		if err := writeFile(filepath.Join(images, name), sp.LegacyFieldBookPage, res); err != nil {
			return f, err
		}
		f.legacyPage = &name
	}

	if sp.HasVoiceNote() {
		name := VoiceFilename(sp.ID)
		if err := writeFile(filepath.Join(audio, name), sp.VoiceNote.Audio, res); err != nil {
			return f, err
		}
		f.voice = &name
	}
	return f, nil
}

func writeFile(path string, data []byte, res *Result) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	res.FileCount++
	res.TotalBytes += int64(len(data))
	return nil
}

// replaceDir deletes dir when present and recreates it empty.
func replaceDir(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove existing %s: %w", filepath.Base(dir), err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", filepath.Base(dir), err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dir), err)
	}
	return nil
}

// uniqueName suffixes _2, _3 ... onto names already used in the aggregate.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 1; ; n++ {
		if n > 1 {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
