// Package media keeps specimen photographs, field-book pages and voice notes in
// a content-addressed blob vault so durable stores only persist references.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"specimencore/internal/blob"
	"strings"
)

const keyPrefix = "media/"

// Vault stores media blobs keyed by the SHA-256 of their content.
type Vault struct {
	store  blob.Store
	logger *slog.Logger
}

// NewVault wraps store. A nil logger discards output.
func NewVault(store blob.Store, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Vault{store: store, logger: logger}
}

// Driver reports the backing blob driver.
func (v *Vault) Driver() blob.Driver { return v.store.Driver() }

// Ref returns the content reference for data without storing it.
func Ref(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func keyFor(ref string) string { return keyPrefix + ref }

// Stash stores data and returns its reference. Identical content is stored once.
func (v *Vault) Stash(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	ref := Ref(data)
	key := keyFor(ref)
	if _, err := v.store.Head(ctx, key); err == nil {
		return ref, nil
	} else if !errors.Is(err, blob.ErrNotFound) {
		return "", fmt.Errorf("stat media %s: %w", ref, err)
	}
	_, err := v.store.Put(ctx, key, bytes.NewReader(data), blob.PutOptions{ContentType: http.DetectContentType(data)})
	if err != nil && !errors.Is(err, blob.ErrExists) {
		return "", fmt.Errorf("store media %s: %w", ref, err)
	}
	return ref, nil
}

// Load returns the bytes behind ref. An empty ref yields nil.
func (v *Vault) Load(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, nil
	}
	_, rc, err := v.store.Get(ctx, keyFor(ref))
	if err != nil {
		return nil, fmt.Errorf("load media %s: %w", ref, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read media %s: %w", ref, err)
	}
	return data, nil
}

// Prune deletes every stored media blob whose reference is not in live and
// returns how many were removed.
func (v *Vault) Prune(ctx context.Context, live map[string]struct{}) (int, error) {
	infos, err := v.store.List(ctx, keyPrefix)
	if err != nil {
		return 0, fmt.Errorf("list media: %w", err)
	}
	removed := 0
	for _, info := range infos {
		ref := strings.TrimPrefix(info.Key, keyPrefix)
		if _, ok := live[ref]; ok {
			continue
		}
		existed, err := v.store.Delete(ctx, info.Key)
		if err != nil {
			return removed, fmt.Errorf("delete media %s: %w", ref, err)
		}
		if existed {
			removed++
		}
	}
	if removed > 0 {
		v.logger.Debug("pruned media", "removed", removed, "driver", string(v.store.Driver()))
	}
	return removed, nil
}
