// Package snapshot encodes the in-memory store state into the bucket payloads
// shared by the SQL-backed stores.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"specimencore/internal/infra/persistence/memory"
	"specimencore/internal/media"
)

// Bucket names stored in the state table.
const (
	BucketCollections = "collections"
	BucketSession     = "session"
)

// Buckets lists every bucket written on persist, in write order.
var Buckets = []string{BucketCollections, BucketSession}

// Codec converts between memory snapshots and bucket payloads. With a vault,
// media bytes are moved out of the payload into the blob store.
type Codec struct {
	vault *media.Vault
}

// NewCodec returns a codec; vault may be nil to keep media inline.
func NewCodec(vault *media.Vault) Codec { return Codec{vault: vault} }

// Vault returns the configured media vault, if any.
func (c Codec) Vault() *media.Vault { return c.vault }

// Encode returns the payload per bucket and the set of media references the
// state still uses.
func (c Codec) Encode(ctx context.Context, snap memory.Snapshot) (map[string][]byte, map[string]struct{}, error) {
	records := make(map[string]media.Record, len(snap.Collections))
	live := make(map[string]struct{})
	for id, col := range snap.Collections {
		rec, err := media.Dehydrate(ctx, c.vault, col)
		if err != nil {
			return nil, nil, fmt.Errorf("dehydrate %s: %w", id, err)
		}
		for _, ref := range rec.References() {
			live[ref] = struct{}{}
		}
		records[id] = rec
	}
	collections, err := json.Marshal(records)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", BucketCollections, err)
	}
	session, err := json.Marshal(snap.Session)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", BucketSession, err)
	}
	return map[string][]byte{BucketCollections: collections, BucketSession: session}, live, nil
}

// Decode rebuilds a snapshot from bucket payloads. Unknown buckets are ignored.
func (c Codec) Decode(ctx context.Context, payloads map[string][]byte) (memory.Snapshot, error) {
	snap := memory.Snapshot{Collections: make(map[string]memory.Collection)}
	if raw := payloads[BucketCollections]; len(raw) > 0 {
		var records map[string]media.Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode %s: %w", BucketCollections, err)
		}
		for id, rec := range records {
			col, err := media.Hydrate(ctx, c.vault, rec)
			if err != nil {
				return memory.Snapshot{}, fmt.Errorf("hydrate %s: %w", id, err)
			}
			snap.Collections[id] = col
		}
	}
	if raw := payloads[BucketSession]; len(raw) > 0 {
		if err := json.Unmarshal(raw, &snap.Session); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode %s: %w", BucketSession, err)
		}
	}
	return snap, nil
}

// Prune drops vault media no longer referenced. It is a no-op without a vault.
func (c Codec) Prune(ctx context.Context, live map[string]struct{}) error {
	if c.vault == nil {
		return nil
	}
	_, err := c.vault.Prune(ctx, live)
	return err
}
