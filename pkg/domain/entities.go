// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by specimencore.
package domain

import (
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCollection identifies a field collection session.
	EntityCollection EntityType = "collection"
	// EntitySpecimen identifies a specimen record owned by a collection.
	EntitySpecimen EntityType = "specimen"
	// EntitySession identifies the persisted navigation state (current collection, step).
	EntitySession EntityType = "session"
)

// Collection groups the specimens gathered during one field session.
type Collection struct {
	ID             string     `json:"id"`
	Seq            int64      `json:"seq"`
	Locality       string     `json:"locality"`
	CollectionDate time.Time  `json:"collection_date"`
	CollectorName  string     `json:"collector_name"`
	OverviewImage  []byte     `json:"overview_image,omitempty"`
	IsComplete     bool       `json:"is_complete"`
	Specimens      []Specimen `json:"specimens"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasOverviewImage reports whether the drawer overview photograph was captured.
func (c Collection) HasOverviewImage() bool { return len(c.OverviewImage) > 0 }

// FindSpecimen returns the index of the specimen with id, or -1.
func (c Collection) FindSpecimen(id string) int {
	for i := range c.Specimens {
		if c.Specimens[i].ID == id {
			return i
		}
	}
	return -1
}

// SetupComplete reports whether the identifying fields required to start a
// session are filled in.
func (c Collection) SetupComplete() bool {
	return strings.TrimSpace(c.Locality) != "" && strings.TrimSpace(c.CollectorName) != ""
}

// Clone returns a deep copy so callers never share media buffers with the store.
func (c Collection) Clone() Collection {
	cp := c
	cp.OverviewImage = cloneBytes(c.OverviewImage)
	if c.Specimens != nil {
		cp.Specimens = make([]Specimen, len(c.Specimens))
		for i, s := range c.Specimens {
			cp.Specimens[i] = s.Clone()
		}
	}
	return cp
}

// Session captures the navigation state the front end restores between runs.
type Session struct {
	CurrentCollectionID string `json:"current_collection_id,omitempty"`
	ActiveSpecimenID    string `json:"active_specimen_id,omitempty"`
	Step                string `json:"step,omitempty"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func cloneBlobs(in [][]byte) [][]byte {
	if in == nil {
		return nil
	}
	out := make([][]byte, len(in))
	for i, b := range in {
		out[i] = cloneBytes(b)
	}
	return out
}
