// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments. The durable stores embed it
// and snapshot its state after every committed transaction.
package memory

import (
	"context"
	"fmt"
	"sort"
	"specimencore/pkg/domain"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Collection aliases domain.Collection for in-memory persistence operations.
	Collection = domain.Collection
	// Specimen aliases domain.Specimen.
	Specimen = domain.Specimen
	// Session aliases domain.Session.
	Session = domain.Session
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	collections map[string]Collection
	// specimen id -> owning collection id
	owners  map[string]string
	session Session
	nextSeq int64
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Collections map[string]Collection `json:"collections"`
	Session     Session               `json:"session"`
}

func newMemoryState() memoryState {
	return memoryState{
		collections: make(map[string]Collection),
		owners:      make(map[string]string),
		nextSeq:     1,
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.collections {
		cloned.collections[k] = v.Clone()
	}
	for k, v := range s.owners {
		cloned.owners[k] = v
	}
	cloned.session = s.session
	cloned.nextSeq = s.nextSeq
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	out := Snapshot{Collections: make(map[string]Collection, len(state.collections)), Session: state.session}
	for k, v := range state.collections {
		out.Collections[k] = v.Clone()
	}
	return out
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for id, c := range s.Collections {
		c = c.Clone()
		c.ID = id
		for i := range c.Specimens {
			c.Specimens[i].StructureType = domain.ParseStructureType(string(c.Specimens[i].StructureType))
			c.Specimens[i].MineralType = domain.ParseMineralType(string(c.Specimens[i].MineralType))
			state.owners[c.Specimens[i].ID] = id
		}
		if c.Seq >= state.nextSeq {
			state.nextSeq = c.Seq + 1
		}
		state.collections[id] = c
	}
	state.session = s.Session
	return state
}

// sortCollections orders by collection date, newest first; equal dates keep
// creation order.
func sortCollections(list []Collection) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CollectionDate.Equal(list[j].CollectionDate) {
			return list[i].CollectionDate.After(list[j].CollectionDate)
		}
		return list[i].Seq < list[j].Seq
	})
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the clock; intended for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// GetCollection returns a collection by id.
func (s *Store) GetCollection(id string) (Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.collections[id]
	if !ok {
		return Collection{}, false
	}
	return c.Clone(), true
}

// ListCollections returns all collections, newest collection date first.
func (s *Store) ListCollections() []Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listCollections(&s.state)
}

// Session returns the persisted navigation state.
func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.session
}

func listCollections(state *memoryState) []Collection {
	out := make([]Collection, 0, len(state.collections))
	for _, c := range state.collections {
		out = append(out, c.Clone())
	}
	sortCollections(out)
	return out
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListCollections returns all collections within the snapshot.
func (v transactionView) ListCollections() []Collection { return listCollections(v.state) }

// FindCollection retrieves a collection by id from the snapshot.
func (v transactionView) FindCollection(id string) (Collection, bool) {
	c, ok := v.state.collections[id]
	if !ok {
		return Collection{}, false
	}
	return c.Clone(), true
}

// FindSpecimen returns the specimen and its owning collection id.
func (v transactionView) FindSpecimen(id string) (Specimen, string, bool) {
	owner, ok := v.state.owners[id]
	if !ok {
		return Specimen{}, "", false
	}
	c := v.state.collections[owner]
	idx := c.FindSpecimen(id)
	if idx < 0 {
		return Specimen{}, "", false
	}
	return c.Specimens[idx].Clone(), owner, true
}

func (v transactionView) Session() Session { return v.state.session }

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	result.Changes = tx.changes
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindCollection exposes collection lookup within the transaction scope.
func (tx *transaction) FindCollection(id string) (Collection, bool) {
	return newTransactionView(&tx.state).FindCollection(id)
}

// CreateCollection stores a new collection.
func (tx *transaction) CreateCollection(c Collection) (Collection, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := tx.state.collections[c.ID]; exists {
		return Collection{}, fmt.Errorf("collection %q already exists", c.ID)
	}
	if c.CollectionDate.IsZero() {
		c.CollectionDate = tx.now
	}
	c.Seq = tx.state.nextSeq
	tx.state.nextSeq++
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	c = c.Clone()
	for i := range c.Specimens {
		if _, taken := tx.state.owners[c.Specimens[i].ID]; taken || c.Specimens[i].ID == "" {
			c.Specimens[i].ID = uuid.NewString()
		}
		c.Specimens[i].QualityScore = c.Specimens[i].Score()
		tx.state.owners[c.Specimens[i].ID] = c.ID
	}
	tx.state.collections[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityCollection, Action: domain.ActionCreate, After: c.Clone()})
	return c.Clone(), nil
}

// UpdateCollection mutates collection-level fields. Specimen membership is
// owned by AddSpecimen and cascade deletes, so the specimen slice is restored
// after the mutator runs.
func (tx *transaction) UpdateCollection(id string, mutator func(*Collection) error) (Collection, error) {
	current, ok := tx.state.collections[id]
	if !ok {
		return Collection{}, domain.ErrNotFound{Entity: domain.EntityCollection, ID: id}
	}
	before := current.Clone()
	working := current.Clone()
	if err := mutator(&working); err != nil {
		return Collection{}, err
	}
	working.ID = id
	working.Seq = before.Seq
	working.CreatedAt = before.CreatedAt
	working.Specimens = before.Specimens
	working.UpdatedAt = tx.now
	tx.state.collections[id] = working.Clone()
	tx.recordChange(Change{Entity: domain.EntityCollection, Action: domain.ActionUpdate, Before: before, After: working.Clone()})
	return working.Clone(), nil
}

// DeleteCollection removes a collection together with every specimen it owns.
func (tx *transaction) DeleteCollection(id string) error {
	current, ok := tx.state.collections[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityCollection, ID: id}
	}
	for _, sp := range current.Specimens {
		delete(tx.state.owners, sp.ID)
		tx.recordChange(Change{Entity: domain.EntitySpecimen, Action: domain.ActionDelete, Before: sp.Clone()})
	}
	delete(tx.state.collections, id)
	if tx.state.session.CurrentCollectionID == id {
		tx.state.session = Session{}
	}
	tx.recordChange(Change{Entity: domain.EntityCollection, Action: domain.ActionDelete, Before: current})
	return nil
}

// AddSpecimen appends a specimen to the owning collection's sequence.
func (tx *transaction) AddSpecimen(collectionID string, sp Specimen) (Specimen, error) {
	c, ok := tx.state.collections[collectionID]
	if !ok {
		return Specimen{}, domain.ErrNotFound{Entity: domain.EntityCollection, ID: collectionID}
	}
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	if _, exists := tx.state.owners[sp.ID]; exists {
		return Specimen{}, fmt.Errorf("specimen %q already exists", sp.ID)
	}
	sp = sp.Clone()
	sp.StructureType = domain.ParseStructureType(string(sp.StructureType))
	sp.MineralType = domain.ParseMineralType(string(sp.MineralType))
	sp.QualityScore = sp.Score()
	sp.CreatedAt = tx.now
	sp.UpdatedAt = tx.now
	c.Specimens = append(c.Specimens, sp)
	c.UpdatedAt = tx.now
	tx.state.collections[collectionID] = c
	tx.state.owners[sp.ID] = collectionID
	tx.recordChange(Change{Entity: domain.EntitySpecimen, Action: domain.ActionCreate, After: sp.Clone()})
	return sp.Clone(), nil
}

// UpdateSpecimen mutates a specimen and recomputes its derived quality score.
func (tx *transaction) UpdateSpecimen(id string, mutator func(*Specimen) error) (Specimen, error) {
	owner, ok := tx.state.owners[id]
	if !ok {
		return Specimen{}, domain.ErrNotFound{Entity: domain.EntitySpecimen, ID: id}
	}
	c := tx.state.collections[owner]
	idx := c.FindSpecimen(id)
	if idx < 0 {
		return Specimen{}, domain.ErrNotFound{Entity: domain.EntitySpecimen, ID: id}
	}
	before := c.Specimens[idx].Clone()
	working := before.Clone()
	if err := mutator(&working); err != nil {
		return Specimen{}, err
	}
	working.ID = id
	working.CreatedAt = before.CreatedAt
	working.StructureType = domain.ParseStructureType(string(working.StructureType))
	working.MineralType = domain.ParseMineralType(string(working.MineralType))
	working.OCRConfidence = clampUnit(working.OCRConfidence)
	working.QualityScore = working.Score()
	working.UpdatedAt = tx.now
	c.Specimens[idx] = working.Clone()
	c.UpdatedAt = tx.now
	tx.state.collections[owner] = c
	tx.recordChange(Change{Entity: domain.EntitySpecimen, Action: domain.ActionUpdate, Before: before, After: working.Clone()})
	return working.Clone(), nil
}

// SetSession replaces the persisted navigation state.
func (tx *transaction) SetSession(session Session) {
	before := tx.state.session
	tx.state.session = session
	tx.recordChange(Change{Entity: domain.EntitySession, Action: domain.ActionUpdate, Before: before, After: session})
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
