package core

import (
	"context"
	"fmt"
	"specimencore/internal/workflow"
	"specimencore/pkg/domain"
	"sync"
)

// Registry owns the set of collections, tracks the current collection and
// active specimen, and publishes committed changes to subscribers. The
// navigation state lives in the store's session so it survives restarts.
type Registry struct {
	store  PersistentStore
	clock  Clock
	logger Logger

	subMu   sync.RWMutex
	subs    map[int]func([]Change)
	nextSub int
}

// NewRegistry constructs a registry over store.
func NewRegistry(store PersistentStore, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		clock:  systemClock(),
		logger: defaultLogger(),
		subs:   make(map[int]func([]Change)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the backing store.
func (r *Registry) Store() PersistentStore { return r.store }

// Subscribe registers fn for committed changes and returns an unsubscribe func.
func (r *Registry) Subscribe(fn func([]Change)) func() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Registry) publish(changes []Change) {
	if len(changes) == 0 {
		return
	}
	r.subMu.RLock()
	fns := make([]func([]Change), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subMu.RUnlock()
	for _, fn := range fns {
		fn(changes)
	}
}

func (r *Registry) run(ctx context.Context, op string, fn func(Transaction) error) (Result, error) {
	res, err := r.store.RunInTransaction(ctx, fn)
	for _, v := range res.Violations {
		if v.Severity != SeverityBlock {
			r.logger.Warn("rule violation", "op", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	if err != nil {
		r.logger.Error("registry operation failed", "op", op, "error", err)
		return res, fmt.Errorf("%s: %w", op, err)
	}
	r.logger.Debug("registry operation committed", "op", op, "changes", len(res.Changes))
	r.publish(res.Changes)
	return res, nil
}

// Create stores a new collection dated now and makes it current.
func (r *Registry) Create(ctx context.Context, locality, collectorName string) (Collection, error) {
	var created Collection
	_, err := r.run(ctx, "create collection", func(tx Transaction) error {
		var err error
		created, err = tx.CreateCollection(Collection{
			Locality:       locality,
			CollectorName:  collectorName,
			CollectionDate: r.clock.Now(),
		})
		if err != nil {
			return err
		}
		tx.SetSession(Session{CurrentCollectionID: created.ID, Step: workflow.StepSetup.String()})
		return nil
	})
	if err != nil {
		return Collection{}, err
	}
	r.logger.Info("collection created", "collection_id", created.ID, "locality", created.Locality)
	return created, nil
}

// Select makes c current without validation. Switching collections restarts
// the workflow at setup and clears the active specimen.
func (r *Registry) Select(ctx context.Context, c Collection) error {
	_, err := r.run(ctx, "select collection", func(tx Transaction) error {
		session := tx.Snapshot().Session()
		if session.CurrentCollectionID == c.ID {
			return nil
		}
		tx.SetSession(Session{CurrentCollectionID: c.ID, Step: workflow.StepSetup.String()})
		return nil
	})
	return err
}

// Delete removes c with all of its specimens and media. The current selection
// is cleared when it pointed at c.
func (r *Registry) Delete(ctx context.Context, c Collection) error {
	_, err := r.run(ctx, "delete collection", func(tx Transaction) error {
		return tx.DeleteCollection(c.ID)
	})
	if err == nil {
		r.logger.Info("collection deleted", "collection_id", c.ID, "specimens", len(c.Specimens))
	}
	return err
}

// MarkComplete sets the completion flag. It is never cleared again.
func (r *Registry) MarkComplete(ctx context.Context, c Collection) error {
	_, err := r.run(ctx, "complete collection", func(tx Transaction) error {
		_, err := tx.UpdateCollection(c.ID, func(col *Collection) error {
			col.IsComplete = true
			return nil
		})
		return err
	})
	return err
}

// UpdateCollection applies mutator to collection-level fields.
func (r *Registry) UpdateCollection(ctx context.Context, id string, mutator func(*Collection) error) (Collection, error) {
	var updated Collection
	_, err := r.run(ctx, "update collection", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateCollection(id, mutator)
		return err
	})
	return updated, err
}

// Reload re-reads the collections and restores the selection. A dangling
// current pointer is cleared; with no current collection the most recent
// incomplete one is selected.
func (r *Registry) Reload(ctx context.Context) error {
	_, err := r.run(ctx, "reload", func(tx Transaction) error {
		view := tx.Snapshot()
		session := view.Session()
		if session.CurrentCollectionID != "" {
			if _, ok := view.FindCollection(session.CurrentCollectionID); ok {
				return nil
			}
		}
		next := Session{Step: workflow.StepSetup.String()}
		for _, c := range view.ListCollections() {
			if !c.IsComplete {
				next.CurrentCollectionID = c.ID
				break
			}
		}
		if next.CurrentCollectionID == "" && session == (Session{}) {
			return nil
		}
		if next.CurrentCollectionID == "" {
			next.Step = ""
		}
		tx.SetSession(next)
		return nil
	})
	return err
}

// Collections lists every collection, newest collection date first.
func (r *Registry) Collections() []Collection { return r.store.ListCollections() }

// Current returns the selected collection.
func (r *Registry) Current() (Collection, bool) {
	id := r.store.Session().CurrentCollectionID
	if id == "" {
		return Collection{}, false
	}
	return r.store.GetCollection(id)
}

// HasActive reports whether a current, incomplete collection exists.
func (r *Registry) HasActive() bool {
	c, ok := r.Current()
	return ok && !c.IsComplete
}

// NeedsNewCollection reports whether the front end must show collection
// selection: no collections at all, or none active.
func (r *Registry) NeedsNewCollection() bool {
	if len(r.store.ListCollections()) == 0 {
		return true
	}
	return !r.HasActive()
}

// AddSpecimen appends an empty specimen to the collection and makes it active.
func (r *Registry) AddSpecimen(ctx context.Context, collectionID string) (Specimen, error) {
	var created Specimen
	_, err := r.run(ctx, "add specimen", func(tx Transaction) error {
		var err error
		created, err = tx.AddSpecimen(collectionID, domain.NewSpecimen(""))
		if err != nil {
			return err
		}
		session := tx.Snapshot().Session()
		if session.CurrentCollectionID == collectionID {
			session.ActiveSpecimenID = created.ID
			tx.SetSession(session)
		}
		return nil
	})
	return created, err
}

// UpdateSpecimen applies mutator to the specimen with id.
func (r *Registry) UpdateSpecimen(ctx context.Context, id string, mutator func(*Specimen) error) (Specimen, error) {
	var updated Specimen
	_, err := r.run(ctx, "update specimen", func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateSpecimen(id, mutator)
		return err
	})
	return updated, err
}

// SelectSpecimen activates the specimen at index of the current collection.
// Out of range indexes are ignored; the return value reports whether the
// selection changed.
func (r *Registry) SelectSpecimen(ctx context.Context, index int) (bool, error) {
	c, ok := r.Current()
	if !ok || index < 0 || index >= len(c.Specimens) {
		return false, nil
	}
	session := r.store.Session()
	session.ActiveSpecimenID = c.Specimens[index].ID
	if _, err := r.run(ctx, "select specimen", func(tx Transaction) error {
		tx.SetSession(session)
		return nil
	}); err != nil {
		return false, err
	}
	return true, nil
}

// ActiveSpecimen returns the active specimen of the current collection.
func (r *Registry) ActiveSpecimen() (Specimen, bool) {
	c, ok := r.Current()
	if !ok {
		return Specimen{}, false
	}
	idx := c.FindSpecimen(r.store.Session().ActiveSpecimenID)
	if idx < 0 {
		return Specimen{}, false
	}
	return c.Specimens[idx], true
}

// Step returns the persisted workflow step, StepSetup when unset.
func (r *Registry) Step() workflow.Step {
	step, _ := workflow.ParseStep(r.store.Session().Step)
	return step
}

// SetStep persists the workflow step.
func (r *Registry) SetStep(ctx context.Context, step workflow.Step) error {
	if !step.Valid() {
		return nil
	}
	_, err := r.run(ctx, "set step", func(tx Transaction) error {
		session := tx.Snapshot().Session()
		session.Step = step.String()
		tx.SetSession(session)
		return nil
	})
	return err
}

// Subject bundles the current collection and active specimen for the
// workflow gates.
func (r *Registry) Subject() workflow.Subject {
	var subject workflow.Subject
	if c, ok := r.Current(); ok {
		subject.Collection = &c
		if idx := c.FindSpecimen(r.store.Session().ActiveSpecimenID); idx >= 0 {
			sp := c.Specimens[idx]
			subject.ActiveSpecimen = &sp
		}
	}
	return subject
}
