package domain

import (
	"context"
	"fmt"
)

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateCollection(Collection) (Collection, error)
	UpdateCollection(id string, mutator func(*Collection) error) (Collection, error)
	DeleteCollection(id string) error
	AddSpecimen(collectionID string, specimen Specimen) (Specimen, error)
	UpdateSpecimen(id string, mutator func(*Specimen) error) (Specimen, error)
	FindCollection(id string) (Collection, bool)
	SetSession(Session)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	FindSpecimen(id string) (Specimen, string, bool)
	Session() Session
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetCollection(id string) (Collection, bool)
	ListCollections() []Collection
	Session() Session
}

// ErrNotFound is returned when a referenced entity does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
