package appearance

import (
	"encoding/binary"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/avatar"
	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/testutil"
	"github.com/roach88/wardrobe/internal/wearable"
)

// quiet drops log output in tests.
var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var (
	_ Sink           = (*avatar.Avatar)(nil)
	_ GestureManager = (*avatar.Avatar)(nil)
	_ WearableState  = (*avatar.Avatar)(nil)
	_ AssetResolver  = (*testutil.ScriptedResolver)(nil)
)

type fixture struct {
	t         *testing.T
	loop      *engine.Loop
	clock     *testutil.FakeClock
	ids       *ir.SequentialIDs
	inv       *inventory.Model
	res       *testutil.ScriptedResolver
	av        *avatar.Avatar
	m         *Manager
	assetIDs  *ir.SequentialIDs
	catalogue map[ir.ID]*wearable.Wearable
	notices   []Notice
	runs      []*Run
	names     []string
}

type fixtureConfig struct {
	avatarOpts []avatar.Option
	opts       []Option
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	return newFixtureWith(t, fixtureConfig{avatarOpts: []avatar.Option{avatar.WithLoaded(true)}, opts: opts})
}

func newFixtureWith(t *testing.T, cfg fixtureConfig) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		loop:      engine.NewLoop(engine.WithLogger(quiet)),
		clock:     testutil.NewFakeClock(),
		ids:       ir.NewSequentialIDs(),
		res:       testutil.NewScriptedResolver(nil),
		assetIDs:  ir.NewSequentialIDs(),
		catalogue: make(map[ir.ID]*wearable.Wearable),
	}
	f.inv = inventory.NewModel(inventory.WithIDGenerator(f.ids), inventory.WithDispatcher(f.loop), inventory.WithLogger(quiet))
	f.inv.Bootstrap()
	f.av = avatar.New(append([]avatar.Option{avatar.WithLogger(quiet)}, cfg.avatarOpts...)...)

	opts := []Option{
		WithLogger(quiet),
		WithWallClock(f.clock),
		WithNotifier(NotifierFunc(func(n Notice) { f.notices = append(f.notices, n) })),
		WithRunObserver(func(r *Run) { f.runs = append(f.runs, r) }),
		WithOutfitNameListener(func(name string) { f.names = append(f.names, name) }),
	}
	opts = append(opts, cfg.opts...)
	f.m = NewManager(f.inv, f.res, f.loop, f.av, opts...)
	return f
}

func (f *fixture) folder(ft inventory.FolderType) ir.ID {
	return f.inv.FindCategoryForType(ft)
}

func (f *fixture) category(parent ir.ID, ft inventory.FolderType, name string) ir.ID {
	f.t.Helper()
	id, err := f.inv.CreateCategory(parent, ft, name)
	require.NoError(f.t, err)
	return id
}

func (f *fixture) create(parent ir.ID, proto inventory.Node) ir.ID {
	f.t.Helper()
	var id ir.ID
	f.inv.CreateItem(parent, proto, func(got ir.ID, err error) {
		require.NoError(f.t, err)
		id = got
	})
	f.loop.RunPending()
	require.NotEqual(f.t, ir.NilID, id)
	return id
}

// item creates a wearable item backed by a catalogue asset.
func (f *fixture) item(parent ir.ID, t wearable.Type, name string) ir.ID {
	f.t.Helper()
	w := &wearable.Wearable{AssetID: f.assetIDs.NewID(), Type: t, Name: name, Params: map[string]int{}}
	f.catalogue[w.AssetID] = w
	return f.create(parent, inventory.Node{
		Name:         name,
		AssetType:    inventory.AssetTypeFor(t),
		AssetID:      w.AssetID,
		WearableType: t,
	})
}

func (f *fixture) object(parent ir.ID, name string) ir.ID {
	return f.create(parent, inventory.Node{Name: name, AssetType: inventory.AssetObject})
}

func (f *fixture) gesture(parent ir.ID, name string) ir.ID {
	return f.create(parent, inventory.Node{Name: name, AssetType: inventory.AssetGesture})
}

func (f *fixture) link(target, parent ir.ID, description string) ir.ID {
	f.t.Helper()
	var id ir.ID
	f.inv.LinkItem(target, parent, description, func(got ir.ID, err error) {
		require.NoError(f.t, err)
		id = got
	})
	f.loop.RunPending()
	require.NotEqual(f.t, ir.NilID, id)
	return id
}

func (f *fixture) body() map[wearable.Type]ir.ID {
	parts := make(map[wearable.Type]ir.ID)
	folder := f.folder(inventory.FolderBodyParts)
	for _, t := range wearable.BodyParts() {
		parts[t] = f.item(folder, t, "My "+t.Label())
	}
	return parts
}

// outfit creates an outfit folder of links, numbering clothing the way a
// saved outfit would.
func (f *fixture) outfit(name string, items ...ir.ID) ir.ID {
	f.t.Helper()
	folder := f.category(f.folder(inventory.FolderMyOutfits), inventory.FolderOutfit, name)
	layers := make(map[wearable.Type]int)
	for _, id := range items {
		it, ok := f.inv.Item(id)
		require.True(f.t, ok)
		desc := ""
		if it.Type() == inventory.AssetClothing {
			t := it.WearableType()
			desc = BuildOrderString(t, layers[t])
			layers[t]++
		}
		f.link(id, folder, desc)
	}
	return folder
}

func (f *fixture) lookup(assetID ir.ID) *wearable.Wearable {
	return f.catalogue[assetID]
}

// settle runs the loop, answering every asset request from the catalogue,
// until nothing is in flight.
func (f *fixture) settle() {
	f.t.Helper()
	for i := 0; i < 50; i++ {
		f.loop.Tick()
		f.res.ResolveFrom(f.lookup)
		if !f.m.Busy() && f.loop.Idle() && len(f.res.Pending()) == 0 {
			return
		}
	}
	f.t.Fatal("appearance did not settle")
}

// tick runs the loop without answering asset requests.
func (f *fixture) tick(n int) {
	for i := 0; i < n; i++ {
		f.loop.Tick()
	}
}

func (f *fixture) wear(folder ir.ID, appendMode bool) {
	f.t.Helper()
	require.NoError(f.t, f.m.Reconcile(folder, appendMode))
	f.settle()
}

func (f *fixture) cofLinks() []inventory.Item {
	_, items := f.inv.CollectDescendants(f.m.COF(), inventory.IsLinkType, false)
	return items
}

func (f *fixture) cofLinked() []ir.ID {
	var ids []ir.ID
	for _, it := range f.cofLinks() {
		ids = append(ids, it.LinkedID())
	}
	return ids
}

func (f *fixture) cofLinkTo(target ir.ID) (inventory.Item, bool) {
	for _, it := range f.cofLinks() {
		if it.LinkedID() == target {
			return it, true
		}
	}
	return inventory.Item{}, false
}

func (f *fixture) wornNames() []string {
	var names []string
	for _, w := range f.av.Worn() {
		names = append(names, w.Name)
	}
	return names
}

func (f *fixture) noticeCount(name string) int {
	n := 0
	for _, no := range f.notices {
		if no.Name == name {
			n++
		}
	}
	return n
}

func (f *fixture) lastRun() *Run {
	f.t.Helper()
	require.NotEmpty(f.t, f.runs)
	return f.runs[len(f.runs)-1]
}

func issueCodes(r *Run) []ErrorCode {
	var codes []ErrorCode
	for _, e := range r.Issues() {
		codes = append(codes, e.Code)
	}
	return codes
}

// nextSeq returns the sequential id after id.
func nextSeq(id ir.ID) ir.ID {
	return ir.SequentialID(binary.BigEndian.Uint64(id[8:]) + 1)
}
