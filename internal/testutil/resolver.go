package testutil

import (
	"sync"

	"github.com/roach88/wardrobe/internal/asset"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Request is one RequestWearable call a ScriptedResolver is holding.
type Request struct {
	AssetID   ir.ID
	Name      string
	AssetType inventory.AssetType
	Callback  asset.Callback
}

// ScriptedResolver answers wearable requests only when the test says so.
//
// Requests queue up until Resolve, Fail or ResolveFrom is called; the
// callbacks then run on the caller's goroutine, which in tests is the
// loop's. Requests for assets registered with Auto are answered
// immediately instead.
type ScriptedResolver struct {
	mu       sync.Mutex
	pending  []Request
	auto     map[ir.ID]*wearable.Wearable
	ids      ir.IDGenerator
	created  []*wearable.Wearable
	requests int
}

// NewScriptedResolver creates a resolver whose new wearables take ids from
// ids (sequential ids from 1000 when nil).
func NewScriptedResolver(ids ir.IDGenerator) *ScriptedResolver {
	if ids == nil {
		seq := ir.NewSequentialIDs()
		for i := 0; i < 1000; i++ {
			seq.NewID()
		}
		ids = seq
	}
	return &ScriptedResolver{auto: make(map[ir.ID]*wearable.Wearable), ids: ids}
}

// Auto makes requests for w's asset resolve as soon as they are made.
func (r *ScriptedResolver) Auto(w *wearable.Wearable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auto[w.AssetID] = w
}

// RequestWearable implements appearance.AssetResolver.
func (r *ScriptedResolver) RequestWearable(assetID ir.ID, name string, at inventory.AssetType, cb asset.Callback) {
	r.mu.Lock()
	r.requests++
	w, ok := r.auto[assetID]
	if !ok {
		r.pending = append(r.pending, Request{AssetID: assetID, Name: name, AssetType: at, Callback: cb})
	}
	r.mu.Unlock()
	if ok {
		cb(w.Clone())
	}
}

// CreateNewWearable implements appearance.AssetResolver.
func (r *ScriptedResolver) CreateNewWearable(wt wearable.Type) *wearable.Wearable {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := wearable.NewDefault(wt, r.ids.NewID())
	r.created = append(r.created, w)
	return w.Clone()
}

// Resolve answers every held request for w's asset with w.
func (r *ScriptedResolver) Resolve(w *wearable.Wearable) int {
	return r.answer(func(req Request) (*wearable.Wearable, bool) {
		if req.AssetID != w.AssetID {
			return nil, false
		}
		return w.Clone(), true
	})
}

// Fail answers every held request for assetID with nil.
func (r *ScriptedResolver) Fail(assetID ir.ID) int {
	return r.answer(func(req Request) (*wearable.Wearable, bool) {
		return nil, req.AssetID == assetID
	})
}

// ResolveFrom answers every held request from lookup; a nil result fails
// the request.
func (r *ScriptedResolver) ResolveFrom(lookup func(assetID ir.ID) *wearable.Wearable) int {
	return r.answer(func(req Request) (*wearable.Wearable, bool) {
		w := lookup(req.AssetID)
		if w != nil {
			w = w.Clone()
		}
		return w, true
	})
}

func (r *ScriptedResolver) answer(match func(Request) (*wearable.Wearable, bool)) int {
	r.mu.Lock()
	var fire []func()
	kept := r.pending[:0]
	for _, req := range r.pending {
		w, ok := match(req)
		if !ok {
			kept = append(kept, req)
			continue
		}
		cb := req.Callback
		fire = append(fire, func() { cb(w) })
	}
	r.pending = kept
	r.mu.Unlock()

	for _, f := range fire {
		f()
	}
	return len(fire)
}

// Pending returns the requests still held.
func (r *ScriptedResolver) Pending() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.pending...)
}

// Requests returns how many requests were made in total.
func (r *ScriptedResolver) Requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}

// Created returns the default wearables synthesised so far.
func (r *ScriptedResolver) Created() []*wearable.Wearable {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*wearable.Wearable(nil), r.created...)
}
