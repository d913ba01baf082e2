package appearance

import (
	"log/slog"
	"time"

	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Default policy values.
const (
	DefaultFetchTimeout      = 60 * time.Second
	DefaultMissingTimeout    = 60 * time.Second
	DefaultMaxClothingLayers = 1
)

// Manager owns the Current Outfit folder and the runs that resolve it.
// It is not safe for concurrent use; call it from the Scheduler's goroutine.
type Manager struct {
	inv       Inventory
	assets    AssetResolver
	sched     Scheduler
	sink      Sink
	gestures  GestureManager
	wearables WearableState
	notifier  Notifier
	logger    *slog.Logger
	wall      engine.WallClock
	ids       ir.IDGenerator

	fetchTimeout    time.Duration
	missingTimeout  time.Duration
	maxClothing     int
	forceAssetFail  wearable.Type
	attachmentLinks bool
	outfitName      func(name string)
	onRunDone       func(r *Run)

	dirty      bool
	locked     bool
	registered []ir.ID
	active     []*Run
	nextRun    int
	busy       int
	lastErr    error
	shutdown   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithFetchTimeout sets the ceiling on the asset fetch phase.
func WithFetchTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.fetchTimeout = d
		}
	}
}

// WithMissingTimeout sets the ceiling on the missing-wearable recovery phase.
func WithMissingTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.missingTimeout = d
		}
	}
}

// WithMaxClothingLayers caps how many clothing items of one slot a
// reconciliation keeps.
func WithMaxClothingLayers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxClothing = n
		}
	}
}

// WithForceAssetFail makes every fetch for wearables of slot t fail, which
// exercises recovery.
func WithForceAssetFail(t wearable.Type) Option {
	return func(m *Manager) { m.forceAssetFail = t }
}

// WithAttachmentLinks sets whether registered attachments are linked into
// the COF immediately.
func WithAttachmentLinks(enabled bool) Option {
	return func(m *Manager) { m.attachmentLinks = enabled }
}

// WithGestureManager overrides the gesture manager. By default the Sink is
// used when it implements GestureManager.
func WithGestureManager(g GestureManager) Option {
	return func(m *Manager) { m.gestures = g }
}

// WithWearableState overrides the loaded-state source. By default the Sink
// is used when it implements WearableState.
func WithWearableState(w WearableState) Option {
	return func(m *Manager) { m.wearables = w }
}

// WithNotifier sets where user notices go. The default logs them.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithOutfitNameListener is called with the base outfit's name whenever
// the base outfit link changes, or "" when there is none.
func WithOutfitNameListener(f func(name string)) Option {
	return func(m *Manager) { m.outfitName = f }
}

// WithRunObserver is called once per run, after it finalizes.
func WithRunObserver(f func(r *Run)) Option {
	return func(m *Manager) { m.onRunDone = f }
}

// WithWallClock sets the clock timeouts are measured against.
func WithWallClock(c engine.WallClock) Option {
	return func(m *Manager) { m.wall = c }
}

// WithIDGenerator sets the generator used for forced-failure asset ids.
func WithIDGenerator(g ir.IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over inv that resolves assets through assets,
// schedules on sched, and reports to sink.
func NewManager(inv Inventory, assets AssetResolver, sched Scheduler, sink Sink, opts ...Option) *Manager {
	m := &Manager{
		inv:             inv,
		assets:          assets,
		sched:           sched,
		sink:            sink,
		logger:          slog.Default(),
		wall:            engine.SystemClock{},
		ids:             ir.UUIDv7Generator{},
		fetchTimeout:    DefaultFetchTimeout,
		missingTimeout:  DefaultMissingTimeout,
		maxClothing:     DefaultMaxClothingLayers,
		forceAssetFail:  wearable.Invalid,
		attachmentLinks: true,
	}
	if g, ok := sink.(GestureManager); ok {
		m.gestures = g
	}
	if w, ok := sink.(WearableState); ok {
		m.wearables = w
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = logNotifier{logger: m.logger}
	}
	return m
}

// COF returns the Current Outfit folder, creating it if needed.
func (m *Manager) COF() ir.ID {
	return m.inv.FindCategoryForType(inventory.FolderCurrentOutfit)
}

// IsInCOF reports whether id lives beneath the Current Outfit folder.
func (m *Manager) IsInCOF(id ir.ID) bool {
	return m.inv.IsDescendentOf(id, m.COF())
}

// IsProtectedCOFItem reports whether id is a COF link that users should
// take off rather than delete. Stray non-links in the COF are not
// protected.
func (m *Manager) IsProtectedCOFItem(id ir.ID) bool {
	if !m.IsInCOF(id) {
		return false
	}
	n, ok := m.inv.Get(id)
	if ok && !n.IsLink() {
		return false
	}
	return true
}

// BaseOutfitLink returns the COF's folder link to an outfit folder. A base
// outfit that has been moved to the trash does not count.
func (m *Manager) BaseOutfitLink() (inventory.Item, bool) {
	_, items := m.inv.CollectDescendants(m.COF(), inventory.IsActualType(inventory.AssetLinkFolder), false)
	for _, it := range items {
		cat := it.LinkedCategory()
		if cat == nil || cat.PreferredType != inventory.FolderOutfit {
			continue
		}
		if parent, ok := m.inv.Category(cat.ParentID); ok && parent.PreferredType == inventory.FolderTrash {
			return inventory.Item{}, false
		}
		return it, true
	}
	return inventory.Item{}, false
}

// BaseOutfitID returns the base outfit folder, or ir.NilID.
func (m *Manager) BaseOutfitID() ir.ID {
	link, ok := m.BaseOutfitLink()
	if !ok {
		return ir.NilID
	}
	return link.LinkedCategory().ID
}

// BaseOutfitName returns the base outfit folder's name, or "".
func (m *Manager) BaseOutfitName() string {
	link, ok := m.BaseOutfitLink()
	if !ok {
		return ""
	}
	return link.LinkedCategory().Name
}

// IsOutfitDirty reports whether the COF differs from its base outfit, as of
// the last recomputation.
func (m *Manager) IsOutfitDirty() bool { return m.dirty }

// SetOutfitDirty overrides the dirty flag until the next recomputation.
func (m *Manager) SetOutfitDirty(dirty bool) { m.dirty = dirty }

// IsOutfitLocked reports whether a save into the base outfit is in flight.
func (m *Manager) IsOutfitLocked() bool { return m.locked }

// Busy reports whether reconciliation, resolution or a save is in flight.
func (m *Manager) Busy() bool {
	return m.busy > 0 || len(m.active) > 0
}

// LastError returns the most recent error raised by work started from a
// completion, such as the resolution that follows Reconcile.
func (m *Manager) LastError() error { return m.lastErr }

// Shutdown makes in-flight runs and completions drop their work silently.
func (m *Manager) Shutdown() {
	m.shutdown = true
	m.logger.Debug("appearance manager shut down", "active_runs", len(m.active))
}

func (m *Manager) notify(name string, args ...string) {
	n := Notice{Name: name}
	if len(args) > 0 {
		n.Args = make(map[string]string, len(args)/2)
		for i := 0; i+1 < len(args); i += 2 {
			n.Args[args[i]] = args[i+1]
		}
	}
	m.notifier.Notify(n)
}

// track returns a Pending whose continuation also ends a busy span.
func (m *Manager) track(cont func()) *engine.Pending {
	m.busy++
	return engine.NewPending(func() {
		m.busy--
		if m.shutdown {
			return
		}
		if cont != nil {
			cont()
		}
	})
}

// waiter adapts a Pending to an inventory callback that logs failures.
func (m *Manager) waiter(p *engine.Pending, what string) inventory.Callback {
	p.Add()
	return func(id ir.ID, err error) {
		if err != nil {
			m.logger.Warn("inventory operation failed", "op", what, "error", err)
		}
		p.Done()
	}
}

func (m *Manager) updateOutfitName(name string) {
	if m.outfitName != nil {
		m.outfitName(name)
	}
}
