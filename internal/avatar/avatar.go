// Package avatar is the appearance sink: it records what the avatar is
// wearing, which objects are attached and which gestures are active, and
// logs every instruction it receives as an event stamped with a logical seq.
package avatar

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Event kinds.
const (
	EventWorn               = "worn"
	EventAttachments        = "attachments"
	EventAttach             = "attach"
	EventGesturesActivated  = "gestures_activated"
	EventGestureDeactivated = "gesture_deactivated"
)

// Event is one instruction the sink received.
type Event struct {
	Seq  int64
	Kind string
	Data ir.Object
}

// Hook observes events as they are recorded.
type Hook func(Event)

// Avatar implements the appearance sink, the gesture manager and the
// wearables-loaded query. Safe for concurrent use.
type Avatar struct {
	mu          sync.Mutex
	clock       *engine.Clock
	logger      *slog.Logger
	hook        Hook
	loaded      bool
	worn        map[wearable.Type][]wearable.Worn
	attachments []attachment
	gestures    []attachment
	events      []Event
}

type attachment struct {
	id   ir.ID
	name string
}

// Option configures an Avatar.
type Option func(*Avatar)

// WithClock stamps events from c. Share the clock with other event sources
// to get one total order.
func WithClock(c *engine.Clock) Option {
	return func(a *Avatar) { a.clock = c }
}

// WithHook calls h for every recorded event.
func WithHook(h Hook) Option {
	return func(a *Avatar) { a.hook = h }
}

// WithLoaded marks initial wearables as already loaded.
func WithLoaded(loaded bool) Option {
	return func(a *Avatar) { a.loaded = loaded }
}

// WithLogger sets the avatar's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Avatar) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an avatar wearing nothing.
func New(opts ...Option) *Avatar {
	a := &Avatar{
		clock:  engine.NewClock(),
		logger: slog.Default(),
		worn:   make(map[wearable.Type][]wearable.Worn),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetWornWearables applies a worn set. With fullReplace every slot not named
// in worn is cleared; otherwise only the named slots change. Entries keep the
// order given, which is their layering order within a slot.
func (a *Avatar) SetWornWearables(worn []wearable.Worn, fullReplace bool) {
	a.mu.Lock()
	next := make(map[wearable.Type][]wearable.Worn)
	for _, w := range worn {
		if w.Wearable == nil {
			continue
		}
		next[w.Wearable.Type] = append(next[w.Wearable.Type], w)
	}
	if fullReplace {
		a.worn = next
	} else {
		for t, ws := range next {
			a.worn[t] = ws
		}
	}
	a.loaded = true

	entries := make(ir.Array, 0, len(worn))
	for _, w := range a.wornLocked() {
		entries = append(entries, ir.Object{
			"type":  ir.String(w.Wearable.Type.String()),
			"item":  ir.String(w.ItemID.String()),
			"name":  ir.String(w.Name),
			"asset": ir.String(w.Wearable.AssetID.String()),
		})
	}
	ev := a.recordLocked(EventWorn, ir.Object{
		"replace":   ir.Bool(fullReplace),
		"wearables": entries,
	})
	a.mu.Unlock()

	a.logger.Info("worn wearables updated", "count", len(worn), "replace", fullReplace)
	a.emit(ev)
}

// SetAttachments makes the attached set exactly items.
func (a *Avatar) SetAttachments(items []inventory.Item) {
	a.mu.Lock()
	next := make([]attachment, 0, len(items))
	for _, it := range items {
		next = appendUnique(next, attachment{id: it.LinkedID(), name: it.Name()})
	}
	var added, removed []string
	for _, at := range next {
		if !containsID(a.attachments, at.id) {
			added = append(added, at.name)
		}
	}
	for _, at := range a.attachments {
		if !containsID(next, at.id) {
			removed = append(removed, at.name)
		}
	}
	a.attachments = next
	ev := a.recordLocked(EventAttachments, ir.Object{
		"items":   names(next),
		"added":   ir.Strings(added),
		"removed": ir.Strings(removed),
	})
	a.mu.Unlock()

	a.logger.Info("attachments updated", "count", len(next), "added", len(added), "removed", len(removed))
	a.emit(ev)
}

// Attach attaches a single object, keeping the rest unless replace is set.
func (a *Avatar) Attach(item inventory.Item, replace bool) {
	a.mu.Lock()
	at := attachment{id: item.LinkedID(), name: item.Name()}
	if replace {
		a.attachments = []attachment{at}
	} else {
		a.attachments = appendUnique(a.attachments, at)
	}
	ev := a.recordLocked(EventAttach, ir.Object{
		"item":    ir.String(at.name),
		"replace": ir.Bool(replace),
	})
	a.mu.Unlock()
	a.emit(ev)
}

// ActivateGestures activates every gesture in items.
func (a *Avatar) ActivateGestures(items []inventory.Item) {
	a.mu.Lock()
	var activated []string
	for _, it := range items {
		g := attachment{id: it.LinkedID(), name: it.Name()}
		if !containsID(a.gestures, g.id) {
			a.gestures = append(a.gestures, g)
			activated = append(activated, g.name)
		}
	}
	ev := a.recordLocked(EventGesturesActivated, ir.Object{
		"items": ir.Strings(activated),
	})
	a.mu.Unlock()
	a.emit(ev)
}

// IsGestureActive reports whether the gesture item is active.
func (a *Avatar) IsGestureActive(itemID ir.ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return containsID(a.gestures, itemID)
}

// DeactivateGesture deactivates a gesture item.
func (a *Avatar) DeactivateGesture(itemID ir.ID) {
	a.mu.Lock()
	idx := slices.IndexFunc(a.gestures, func(g attachment) bool { return g.id == itemID })
	if idx < 0 {
		a.mu.Unlock()
		return
	}
	name := a.gestures[idx].name
	a.gestures = slices.Delete(a.gestures, idx, idx+1)
	ev := a.recordLocked(EventGestureDeactivated, ir.Object{"item": ir.String(name)})
	a.mu.Unlock()
	a.emit(ev)
}

// AreWearablesLoaded reports whether an initial worn set has been applied.
func (a *Avatar) AreWearablesLoaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loaded
}

// IsWearingItem reports whether a wearable resolved from itemID is worn.
func (a *Avatar) IsWearingItem(itemID ir.ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ws := range a.worn {
		for _, w := range ws {
			if w.ItemID == itemID {
				return true
			}
		}
	}
	return false
}

// IsWearingAttachment reports whether itemID is attached.
func (a *Avatar) IsWearingAttachment(itemID ir.ID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return containsID(a.attachments, itemID)
}

// Worn returns worn wearables in slot order, layers in apply order.
func (a *Avatar) Worn() []wearable.Worn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.wornLocked()
}

// WornOfType returns the layers worn in slot t.
func (a *Avatar) WornOfType(t wearable.Type) []wearable.Worn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.worn[t])
}

// Attachments returns the names of attached objects in attach order.
func (a *Avatar) Attachments() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.attachments))
	for i, at := range a.attachments {
		out[i] = at.name
	}
	return out
}

// ActiveGestures returns the names of active gestures in activation order.
func (a *Avatar) ActiveGestures() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.gestures))
	for i, g := range a.gestures {
		out[i] = g.name
	}
	return out
}

// Events returns every recorded event in seq order.
func (a *Avatar) Events() []Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.events)
}

func (a *Avatar) wornLocked() []wearable.Worn {
	var out []wearable.Worn
	for _, t := range wearable.Types() {
		out = append(out, a.worn[t]...)
	}
	return out
}

func (a *Avatar) recordLocked(kind string, data ir.Object) Event {
	ev := Event{Seq: a.clock.Next(), Kind: kind, Data: data}
	a.events = append(a.events, ev)
	return ev
}

func (a *Avatar) emit(ev Event) {
	if a.hook != nil {
		a.hook(ev)
	}
}

func appendUnique(list []attachment, at attachment) []attachment {
	if containsID(list, at.id) {
		return list
	}
	return append(list, at)
}

func containsID(list []attachment, id ir.ID) bool {
	return slices.ContainsFunc(list, func(at attachment) bool { return at.id == id })
}

func names(list []attachment) ir.Array {
	out := make(ir.Array, len(list))
	for i, at := range list {
		out[i] = ir.String(at.name)
	}
	return out
}
