package appearance

import (
	"time"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Phase is a run's position in the holding pattern.
type Phase int

const (
	PhaseFetching Phase = iota
	PhaseRecovering
	PhaseFinalized
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseRecovering:
		return "recovering"
	case PhaseFinalized:
		return "finalized"
	}
	return "unknown"
}

// FoundData is one wearable a run is waiting on.
type FoundData struct {
	// ItemID is the concrete item the COF link points at.
	ItemID ir.ID
	// LinkID is the COF link itself.
	LinkID      ir.ID
	AssetID     ir.ID
	Name        string
	AssetType   inventory.AssetType
	Type        wearable.Type
	Description string
	// Wearable is nil until the asset resolves.
	Wearable *wearable.Wearable
	// Recovered marks a default synthesised for a slot that never resolved.
	Recovered bool
}

// Run is one pass of the holding pattern: it waits for every wearable link in
// the COF to resolve, bounded by a timeout, replaces missing slots with
// defaults, and then pushes the result to the Sink.
//
// A run finalizes once; callbacks that arrive afterwards are counted and
// otherwise ignored. It is released only when both its asset fetches and its
// recoveries have completed, which may be after finalization.
type Run struct {
	m       *Manager
	id      int
	append  bool
	started time.Time

	found     []*FoundData
	objects   []inventory.Item
	gestures  []inventory.Item
	requested int
	resolved  int

	typesToRecover map[wearable.Type]bool
	typesToLink    map[wearable.Type]bool
	recovered      []wearable.Type

	phase    Phase
	fired    bool
	timedOut bool
	released bool
	issues   []*Error
}

// ID is the run's sequence number within its Manager.
func (r *Run) ID() int { return r.id }

// Append reports whether the run adds to the worn set rather than
// replacing it.
func (r *Run) Append() bool { return r.append }

// Phase returns the run's current phase.
func (r *Run) Phase() Phase { return r.phase }

// Finalized reports whether the result has been pushed to the Sink.
func (r *Run) Finalized() bool { return r.phase == PhaseFinalized }

// Released reports whether every callback the run was waiting on arrived.
func (r *Run) Released() bool { return r.released }

// TimedOut reports whether the fetch phase hit its timeout.
func (r *Run) TimedOut() bool { return r.timedOut }

// Requested returns the number of asset requests issued.
func (r *Run) Requested() int { return r.requested }

// Resolved returns the number of asset callbacks received, successful or
// not.
func (r *Run) Resolved() int { return r.resolved }

// Recovered returns the slots replaced by defaults, in slot order.
func (r *Run) Recovered() []wearable.Type {
	return append([]wearable.Type(nil), r.recovered...)
}

// Issues returns the problems handled during the run.
func (r *Run) Issues() []*Error {
	return append([]*Error(nil), r.issues...)
}

// Found returns a snapshot of the run's wearables.
func (r *Run) Found() []FoundData {
	out := make([]FoundData, len(r.found))
	for i, fd := range r.found {
		out[i] = *fd
	}
	return out
}

// UpdateAppearanceFromCOF resolves the wearables linked from the Current
// Outfit folder and pushes them, with the COF's attachments and gestures,
// to the Sink. It returns once the asset requests are issued; the returned
// Run finalizes later on the Scheduler.
//
// A COF with no usable wearable links raises CouldNotPutOnOutfit and returns
// an EMPTY_RESOLUTION_SET error without touching the Sink.
func (m *Manager) UpdateAppearanceFromCOF(appendMode bool) (*Run, error) {
	if m.shutdown {
		return nil, nil
	}
	cof := m.COF()
	m.UpdateClothingOrderingInfo(cof)
	m.RecomputeDirty()

	_, wear := m.inv.CollectDescendants(cof, inventory.Or(inventory.FindWearables, brokenLink), true)
	_, objects := m.inv.CollectDescendants(cof, inventory.IsType(inventory.AssetObject), true)
	_, gestures := m.inv.CollectDescendants(cof, inventory.IsType(inventory.AssetGesture), true)
	wear = removeNonLinkItems(wear)
	objects = removeNonLinkItems(objects)
	gestures = removeNonLinkItems(gestures)
	sortItemsByActualDescription(wear)

	m.nextRun++
	r := &Run{
		m:              m,
		id:             m.nextRun,
		append:         appendMode,
		objects:        objects,
		gestures:       gestures,
		typesToRecover: make(map[wearable.Type]bool),
		typesToLink:    make(map[wearable.Type]bool),
	}
	for _, it := range wear {
		li := it.LinkedItem()
		if li == nil {
			m.logger.Warn("attempt to wear a broken link", "run", r.id, "link", it.ID(), "name", it.Name())
			r.issues = append(r.issues, newError(ErrCodeBrokenReference, it.ID(), "link %q has no target", it.Name()))
			continue
		}
		fd := &FoundData{
			ItemID:      li.ID,
			LinkID:      it.ID(),
			AssetID:     li.AssetID,
			Name:        li.Name,
			AssetType:   li.AssetType,
			Type:        it.WearableType(),
			Description: it.Description(),
		}
		if m.forceAssetFail.Valid() && fd.Type == m.forceAssetFail {
			fd.AssetID = m.ids.NewID()
		}
		r.found = append(r.found, fd)
	}

	if len(r.found) == 0 {
		m.notify(NoticeCouldNotPutOnOutfit)
		m.logger.Warn("no wearables in current outfit", "run", r.id)
		return nil, newError(ErrCodeEmptyResolutionSet, cof, "current outfit has no wearable links")
	}

	m.logger.Info("resolving current outfit", "run", r.id, "wearables", len(r.found),
		"objects", len(objects), "gestures", len(gestures), "append", appendMode)
	r.started = m.wall.Now()
	m.active = append(m.active, r)

	r.requested = len(r.found)
	for _, fd := range r.found {
		m.assets.RequestWearable(fd.AssetID, fd.Name, fd.AssetType, r.onWearableAssetFetch)
	}
	if !r.pollFetchCompletion() {
		m.sched.DoOnIdleRepeating(r.pollFetchCompletion)
	}
	return r, nil
}

func brokenLink(_ *inventory.Node, item *inventory.Item) bool {
	return item != nil && item.IsBrokenLink()
}

func (r *Run) elapsed() time.Duration {
	return r.m.wall.Now().Sub(r.started)
}

func (r *Run) isFetchCompleted() bool {
	return r.resolved >= r.requested
}

func (r *Run) isMissingCompleted() bool {
	return len(r.typesToRecover) == 0 && len(r.typesToLink) == 0
}

func (r *Run) onWearableAssetFetch(w *wearable.Wearable) {
	if r.m.shutdown {
		return
	}
	// Counted even when late: release waits for every callback.
	r.resolved++
	r.m.logger.Debug("wearable resolved", "run", r.id, "resolved", r.resolved, "requested", r.requested)
	if r.fired {
		r.m.logger.Warn("wearable arrived after holding pattern fired", "run", r.id)
		r.maybeRelease()
		return
	}
	if w == nil {
		return
	}
	for _, fd := range r.found {
		if fd.Wearable != nil || fd.AssetID != w.AssetID {
			continue
		}
		if w.Type != fd.Type {
			r.m.logger.Error("wearable type does not match its link",
				"run", r.id, "item", fd.ItemID, "declared", fd.Type, "asset", w.Type)
			r.issues = append(r.issues, newError(ErrCodeTypeMismatch, fd.ItemID,
				"asset is %s but link declares %s", w.Type, fd.Type).with("asset", w.AssetID.String()))
			r.m.notify(NoticeCorruptWearable, "item", fd.Name, "type", fd.Type.String())
			w = w.Clone()
			w.Type = fd.Type
		}
		fd.Wearable = w
		return
	}
}

func (r *Run) pollFetchCompletion() bool {
	if r.m.shutdown {
		return true
	}
	completed := r.isFetchCompleted()
	timedOut := r.elapsed() > r.m.fetchTimeout
	if !completed && !timedOut {
		return false
	}
	r.fired = true
	r.m.logger.Info("wearable fetch done", "run", r.id, "completed", completed,
		"timed_out", timedOut, "elapsed", r.elapsed())
	if !completed {
		r.timedOut = true
		r.m.logger.Warn("exceeded max wait for wearables, updating appearance with what has arrived",
			"run", r.id, "resolved", r.resolved, "requested", r.requested)
		r.issues = append(r.issues, newError(ErrCodeAssetTimeout, ir.NilID,
			"%d of %d wearables arrived", r.resolved, r.requested).with("phase", "fetch"))
	}
	r.checkMissingWearables()
	return true
}

// checkMissingWearables starts recovery for every slot that was asked for
// but never resolved, and for every body part, which must always be worn.
func (r *Run) checkMissingWearables() {
	r.phase = PhaseRecovering
	requested := make(map[wearable.Type]int)
	found := make(map[wearable.Type]int)
	for _, fd := range r.found {
		if !fd.Type.Valid() {
			continue
		}
		requested[fd.Type]++
		if fd.Wearable != nil {
			found[fd.Type]++
		}
	}

	for _, t := range wearable.Types() {
		if requested[t] > found[t] {
			r.m.logger.Warn("got fewer wearables than requested",
				"run", r.id, "type", t, "requested", requested[t], "found", found[t])
		}
		if found[t] > 0 {
			continue
		}
		if requested[t] == 0 && !t.IsBodyPart() {
			continue
		}
		if t.IsBodyPart() {
			r.issues = append(r.issues, newError(ErrCodeMissingMandatorySlot, ir.NilID,
				"no %s resolved", t.Label()).with("type", t.String()))
		}
		r.typesToRecover[t] = true
		r.typesToLink[t] = true
		r.recovered = append(r.recovered, t)
		r.m.logger.Warn("replacing missing wearable", "run", r.id, "type", t)
		r.recoverMissingWearable(t)
	}

	r.started = r.m.wall.Now()
	if !r.pollMissingWearables() {
		r.m.sched.DoOnIdleRepeating(r.pollMissingWearables)
	}
}

func (r *Run) recoverMissingWearable(t wearable.Type) {
	m := r.m
	m.notify(NoticeReplacedMissingWearable, "type", t.Label())
	w := m.assets.CreateNewWearable(t)
	lostAndFound := m.inv.FindCategoryForType(inventory.FolderLostAndFound)
	proto := inventory.Node{
		Name:         w.Name,
		Description:  w.Description,
		AssetType:    inventory.AssetTypeFor(t),
		AssetID:      w.AssetID,
		WearableType: t,
	}
	m.inv.CreateItem(lostAndFound, proto, func(id ir.ID, err error) {
		r.recoveredItem(t, w, id, err)
	})
}

func (r *Run) recoveredItem(t wearable.Type, w *wearable.Wearable, itemID ir.ID, err error) {
	m := r.m
	if m.shutdown {
		return
	}
	delete(r.typesToRecover, t)
	if err != nil {
		m.logger.Warn("failed to create recovered wearable", "run", r.id, "type", t, "error", err)
		delete(r.typesToLink, t)
		r.maybeRelease()
		return
	}
	item, ok := m.inv.Item(itemID)
	if !ok {
		m.logger.Warn("recovered wearable vanished before linking", "run", r.id, "item", itemID)
		delete(r.typesToLink, t)
		r.maybeRelease()
		return
	}
	m.inv.LinkItem(itemID, m.COF(), item.Description(), func(linkID ir.ID, err error) {
		r.recoveredLink(t, w, linkID, err)
	})
}

func (r *Run) recoveredLink(t wearable.Type, w *wearable.Wearable, linkID ir.ID, err error) {
	m := r.m
	if m.shutdown {
		return
	}
	defer r.maybeRelease()
	defer delete(r.typesToLink, t)
	if err != nil {
		m.logger.Warn("failed to link recovered wearable", "run", r.id, "type", t, "error", err)
		return
	}
	link, ok := m.inv.Item(linkID)
	if !ok || link.LinkedItem() == nil {
		m.logger.Warn("inventory item not found for recovered wearable", "run", r.id, "link", linkID)
		return
	}
	li := link.LinkedItem()
	fd := &FoundData{
		ItemID:      li.ID,
		LinkID:      linkID,
		AssetID:     li.AssetID,
		Name:        li.Name,
		AssetType:   li.AssetType,
		Type:        t,
		Description: link.Description(),
		Wearable:    w,
		Recovered:   true,
	}
	r.found = append([]*FoundData{fd}, r.found...)
}

func (r *Run) pollMissingWearables() bool {
	if r.m.shutdown {
		return true
	}
	completed := r.isMissingCompleted()
	timedOut := r.elapsed() > r.m.missingTimeout
	if !completed && !timedOut {
		return false
	}
	if !completed {
		r.m.logger.Warn("exceeded max wait for recovered wearables", "run", r.id,
			"to_recover", len(r.typesToRecover), "to_link", len(r.typesToLink))
		r.issues = append(r.issues, newError(ErrCodeAssetTimeout, ir.NilID,
			"%d recoveries outstanding", len(r.typesToLink)).with("phase", "missing"))
	}
	r.clearCOFLinksForMissingWearables()
	r.onAllComplete()
	return true
}

func (r *Run) clearCOFLinksForMissingWearables() {
	for _, fd := range r.found {
		if fd.Type.Valid() && fd.Wearable == nil {
			r.m.logger.Info("removing link for unresolved item", "run", r.id, "item", fd.ItemID)
			r.m.RemoveItemLinks(fd.ItemID, false)
		}
	}
}

func (r *Run) onAllComplete() {
	m := r.m
	if len(r.gestures) > 0 {
		m.sink.ActivateGestures(r.gestures)
	}
	m.updateAgentWearables(r)
	m.sink.SetAttachments(r.objects)

	r.phase = PhaseFinalized
	m.RecomputeDirty()
	m.finishRun(r)
	r.maybeRelease()
}

// updateAgentWearables hands the resolved wearables to the Sink grouped by
// slot, in found order within each slot. Entries whose item no longer
// carries the resolved asset are skipped.
func (m *Manager) updateAgentWearables(r *Run) {
	var worn []wearable.Worn
	for _, t := range wearable.Types() {
		for _, fd := range r.found {
			if fd.Wearable == nil || fd.Type != t {
				continue
			}
			item, ok := m.inv.Item(fd.ItemID)
			if !ok || item.AssetID() != fd.Wearable.AssetID {
				continue
			}
			worn = append(worn, wearable.Worn{ItemID: fd.ItemID, Name: item.Name(), Wearable: fd.Wearable})
		}
	}
	if len(worn) > 0 {
		m.sink.SetWornWearables(worn, !r.append)
	}
	m.logger.Info("appearance updated", "run", r.id, "worn", len(worn),
		"attachments", len(r.objects), "recovered", len(r.recovered))
}

func (r *Run) maybeRelease() {
	if r.released || r.phase != PhaseFinalized {
		return
	}
	if !r.isFetchCompleted() || !r.isMissingCompleted() {
		return
	}
	r.released = true
	r.m.logger.Debug("holding pattern released", "run", r.id)
}

func (m *Manager) finishRun(r *Run) {
	for i, a := range m.active {
		if a == r {
			m.active = append(m.active[:i], m.active[i+1:]...)
			break
		}
	}
	if m.onRunDone != nil {
		m.onRunDone(r)
	}
}
