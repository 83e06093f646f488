package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"specimencore/pkg/domain"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status describes the lifecycle stage of an export job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Request asks for one collection, or every collection when All is set.
type Request struct {
	CollectionID string
	All          bool
	RequestedBy  string
}

// Job tracks a queued export and its result.
type Job struct {
	ID           string     `json:"id"`
	CollectionID string     `json:"collection_id,omitempty"`
	All          bool       `json:"all"`
	RequestedBy  string     `json:"requested_by,omitempty"`
	Status       Status     `json:"status"`
	Progress     float64    `json:"progress"`
	Result       Result     `json:"result"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Source supplies collections at processing time.
type Source interface {
	Collections() []domain.Collection
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures one job state transition.
type AuditEntry struct {
	JobID        string
	Actor        string
	CollectionID string
	Status       Status
	Note         string
	OccurredAt   time.Time
}

// SlogAudit writes audit entries to a structured logger.
type SlogAudit struct {
	Logger *slog.Logger
}

// Record implements AuditLogger.
func (a SlogAudit) Record(ctx context.Context, e AuditEntry) {
	if a.Logger == nil {
		return
	}
	a.Logger.InfoContext(ctx, "export audit",
		"job_id", e.JobID,
		"actor", e.Actor,
		"collection_id", e.CollectionID,
		"status", string(e.Status),
		"note", e.Note,
		"occurred_at", e.OccurredAt,
	)
}

// ErrQueueFull is returned by Enqueue when the worker is saturated.
var ErrQueueFull = errors.New("export queue full")

// Worker runs exports off the caller's goroutine so a front end stays
// responsive and can poll job progress.
type Worker struct {
	exporter *Exporter
	source   Source
	audit    AuditLogger

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*Job
	done  map[string]chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs a worker; audit may be nil.
func NewWorker(exporter *Exporter, source Source, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		exporter: exporter,
		source:   source,
		audit:    audit,
		queue:    make(chan string, 32),
		jobs:     make(map[string]*Job),
		done:     make(map[string]chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing queued jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the worker after the job in flight and waits for it.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// Enqueue schedules an export and returns the queued job.
func (w *Worker) Enqueue(ctx context.Context, req Request) (Job, error) {
	if !req.All && req.CollectionID == "" {
		return Job{}, fmt.Errorf("collection id required")
	}
	now := time.Now().UTC()
	job := &Job{
		ID:           uuid.NewString(),
		CollectionID: req.CollectionID,
		All:          req.All,
		RequestedBy:  req.RequestedBy,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	w.mu.Lock()
	w.jobs[job.ID] = job
	w.done[job.ID] = make(chan struct{})
	snapshot := *job
	w.mu.Unlock()

	select {
	case w.queue <- job.ID:
	default:
		w.finish(job.ID, Result{Error: ErrQueueFull.Error()})
		return Job{}, ErrQueueFull
	}
	w.record(ctx, job.ID, StatusQueued, "")
	return snapshot, nil
}

// Get returns a snapshot of the job.
func (w *Worker) Get(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Wait blocks until the job finishes or ctx ends.
func (w *Worker) Wait(ctx context.Context, id string) (Job, error) {
	w.mu.RLock()
	ch, ok := w.done[id]
	w.mu.RUnlock()
	if !ok {
		return Job{}, fmt.Errorf("export job %s not found", id)
	}
	select {
	case <-ch:
		job, _ := w.Get(id)
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

func (w *Worker) process(id string) {
	job, ok := w.Get(id)
	if !ok {
		return
	}
	w.update(id, func(j *Job) { j.Status = StatusRunning })
	w.record(w.ctx, id, StatusRunning, "")

	progress := func(f float64) { w.update(id, func(j *Job) { j.Progress = f }) }
	var res Result
	if job.All {
		res = w.exporter.ExportAll(w.ctx, w.source.Collections(), progress)
	} else {
		res = Result{Error: fmt.Sprintf("collection %s not found", job.CollectionID)}
		for _, c := range w.source.Collections() {
			if c.ID == job.CollectionID {
				res = w.exporter.ExportCollection(w.ctx, c, progress)
				break
			}
		}
	}
	w.finish(id, res)
}

func (w *Worker) finish(id string, res Result) {
	now := time.Now().UTC()
	status := StatusFailed
	if res.Success {
		status = StatusSucceeded
	}
	w.update(id, func(j *Job) {
		j.Status = status
		j.Result = res
		j.CompletedAt = &now
		if res.Success {
			j.Progress = 1
		}
	})
	w.record(w.ctx, id, status, res.Error)
	w.mu.Lock()
	if ch, ok := w.done[id]; ok {
		close(ch)
	}
	w.mu.Unlock()
}

func (w *Worker) update(id string, fn func(*Job)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if job, ok := w.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now().UTC()
	}
}

func (w *Worker) record(ctx context.Context, id string, status Status, note string) {
	if w.audit == nil {
		return
	}
	job, _ := w.Get(id)
	w.audit.Record(ctx, AuditEntry{
		JobID:        id,
		Actor:        job.RequestedBy,
		CollectionID: job.CollectionID,
		Status:       status,
		Note:         note,
		OccurredAt:   time.Now().UTC(),
	})
}
