package asset

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Library is an in-memory Fetcher and Storer. Scenarios and tests use it in
// place of the SQLite store.
type Library struct {
	mu     sync.RWMutex
	assets map[ir.ID]*wearable.Wearable
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{
		assets: make(map[ir.ID]*wearable.Wearable),
	}
}

// FetchWearable implements Fetcher.
func (l *Library) FetchWearable(ctx context.Context, assetID ir.ID) (*wearable.Wearable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	w, ok := l.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("fetch %s: %w", assetID, ErrNotFound)
	}
	return w.Clone(), nil
}

// PutWearable implements Storer.
func (l *Library) PutWearable(_ context.Context, w *wearable.Wearable) error {
	if w == nil {
		return fmt.Errorf("put wearable: nil payload")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.assets[w.AssetID] = w.Clone()
	return nil
}

// Remove deletes an asset so later fetches fail.
func (l *Library) Remove(assetID ir.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.assets, assetID)
}

// Len returns the number of stored assets.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.assets)
}

// All returns every stored payload.
func (l *Library) All() []*wearable.Wearable {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*wearable.Wearable, 0, len(l.assets))
	for _, w := range l.assets {
		out = append(out, w.Clone())
	}
	return out
}
