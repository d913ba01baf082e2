package appearance

import (
	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Reconcile rebuilds the Current Outfit folder from target and then
// resolves the result onto the avatar.
//
// Body parts always merge: the COF's body parts stand in for any slot the
// target leaves empty, and each slot keeps exactly one. Clothing, objects
// and gestures already in the COF are kept only when appendMode is set.
// Without appendMode active gestures from the old COF are deactivated and
// the base outfit link is replaced by one to target (if target is an
// outfit folder).
//
// The COF links are created asynchronously. Once every link has landed,
// UpdateAppearanceFromCOF runs with the same appendMode.
func (m *Manager) Reconcile(target ir.ID, appendMode bool) error {
	cat, ok := m.inv.Category(target)
	if !ok {
		return newError(ErrCodeInvalidItem, target, "reconcile target is not a folder")
	}
	cof := m.COF()
	if target == cof {
		return newError(ErrCodeInvalidItem, target, "cannot reconcile the current outfit folder with itself")
	}
	m.lastErr = nil
	m.logger.Info("reconciling current outfit", "target", cat.Name, "append", appendMode)

	if !appendMode && m.gestures != nil {
		for _, g := range m.descendantsOfType(cof, inventory.AssetGesture) {
			if m.gestures.IsGestureActive(g.LinkedID()) {
				m.gestures.DeactivateGesture(g.LinkedID())
			}
		}
	}

	body := m.descendantsOfType(cof, inventory.AssetBodyPart)
	body = append(body, m.descendantsOfType(target, inventory.AssetBodyPart)...)
	body = filterWearableItems(removeDuplicateItems(body), 1)

	var clothing []inventory.Item
	if appendMode {
		clothing = m.descendantsOfType(cof, inventory.AssetClothing)
	}
	clothing = append(clothing, m.descendantsOfType(target, inventory.AssetClothing)...)
	clothing = filterWearableItems(removeDuplicateItems(clothing), m.maxClothing)

	var objects []inventory.Item
	if appendMode {
		objects = m.descendantsOfType(cof, inventory.AssetObject)
	}
	objects = append(objects, m.descendantsOfType(target, inventory.AssetObject)...)
	objects = removeDuplicateItems(objects)

	var gestures []inventory.Item
	if appendMode {
		gestures = m.descendantsOfType(cof, inventory.AssetGesture)
	}
	gestures = append(gestures, m.descendantsOfType(target, inventory.AssetGesture)...)
	gestures = removeDuplicateItems(gestures)

	purged := m.inv.PurgeDescendantLinks(cof, appendMode)
	m.logger.Debug("purged current outfit links", "count", purged,
		"body_parts", len(body), "clothing", len(clothing), "objects", len(objects), "gestures", len(gestures))

	p := m.track(func() {
		if _, err := m.UpdateAppearanceFromCOF(appendMode); err != nil {
			m.lastErr = err
			m.logger.Warn("appearance update after reconcile failed", "error", err)
		}
	})
	for _, group := range [][]inventory.Item{body, clothing, objects, gestures} {
		for _, it := range group {
			m.inv.LinkItem(it.LinkedID(), cof, it.Description(), m.waiter(p, "link"))
		}
	}
	if !appendMode {
		m.createBaseOutfitLink(target, p)
	}
	p.Seal()
	return nil
}

// WearBaseOutfit reloads the base outfit, replacing the current look.
func (m *Manager) WearBaseOutfit() error {
	base := m.BaseOutfitID()
	if base == ir.NilID {
		return newError(ErrCodeNoBaseOutfit, ir.NilID, "no base outfit to wear")
	}
	return m.Reconcile(base, false)
}

// createBaseOutfitLink replaces the COF's base outfit link with one to
// folder when folder is an outfit, and reports the new outfit name.
func (m *Manager) createBaseOutfitLink(folder ir.ID, p *engine.Pending) {
	cof := m.COF()
	m.purgeBaseOutfitLink(cof)

	name := ""
	if cat, ok := m.inv.Category(folder); ok && cat.PreferredType == inventory.FolderOutfit {
		p.Add()
		m.inv.LinkItem(folder, cof, "", func(_ ir.ID, err error) {
			if err != nil {
				m.logger.Warn("failed to link base outfit", "folder", folder, "error", err)
			}
			p.Done()
		})
		name = cat.Name
	}
	m.updateOutfitName(name)
}

func (m *Manager) purgeBaseOutfitLink(folder ir.ID) {
	_, items := m.inv.CollectDescendants(folder, inventory.IsActualType(inventory.AssetLinkFolder), false)
	for _, it := range items {
		cat := it.LinkedCategory()
		if cat == nil || cat.PreferredType != inventory.FolderOutfit {
			continue
		}
		if err := m.inv.PurgeObject(it.ID()); err != nil {
			m.logger.Warn("failed to purge base outfit link", "link", it.ID(), "error", err)
		}
	}
}

// AddItemLink links itemID into the COF. A link to the same target already
// present is reused. Body parts replace the existing link of their slot
// and clothing beyond the layer cap is dropped. With doUpdate the avatar is
// re-resolved once the link lands.
//
// If itemID has not arrived in inventory yet, the link is made as soon as it
// does.
func (m *Manager) AddItemLink(itemID ir.ID, doUpdate bool) {
	item, ok := m.inv.Item(itemID)
	if !ok {
		m.deferItemLink(itemID, doUpdate)
		return
	}
	m.addItemLink(item, doUpdate)
}

func (m *Manager) deferItemLink(itemID ir.ID, doUpdate bool) {
	m.logger.Debug("deferring current outfit link until item arrives", "item", itemID)
	var handle int
	handle = m.inv.AddObserver(func(mask inventory.ChangeMask, _ []ir.ID) {
		if mask&inventory.ChangeAdd == 0 {
			return
		}
		item, ok := m.inv.Item(itemID)
		if !ok {
			return
		}
		m.inv.RemoveObserver(handle)
		if m.shutdown {
			return
		}
		m.addItemLink(item, doUpdate)
	})
}

func (m *Manager) addItemLink(item inventory.Item, doUpdate bool) {
	cof := m.COF()
	wt := item.WearableType()
	_, existing := m.inv.CollectDescendants(cof, inventory.All, false)

	linkedAlready := false
	count := 0
	for _, it := range existing {
		if it.LinkedID() == item.LinkedID() {
			linkedAlready = true
			continue
		}
		if !wt.Valid() || it.WearableType() != wt {
			continue
		}
		count++
		if wt.IsBodyPart() && it.IsLink() {
			m.purge(it.ID())
		} else if count >= m.maxClothing {
			m.purge(it.ID())
		}
	}

	if linkedAlready {
		if doUpdate {
			m.updateFromCompletion()
		}
		return
	}

	description := ""
	if item.IsLink() {
		description = item.Description()
	}
	var cont func()
	if doUpdate {
		cont = m.updateFromCompletion
	}
	p := m.track(cont)
	m.inv.LinkItem(item.LinkedID(), cof, description, m.waiter(p, "link"))
	p.Seal()
}

// RemoveItemLinks removes every COF link to itemID.
func (m *Manager) RemoveItemLinks(itemID ir.ID, doUpdate bool) {
	_, items := m.inv.CollectDescendants(m.COF(), inventory.LinkedItemIDMatches(itemID), false)
	for _, it := range items {
		if it.IsLink() {
			m.purge(it.ID())
		}
	}
	if doUpdate {
		m.updateFromCompletion()
	}
}

// RemoveLinksOfType removes every COF link to a wearable of slot t.
func (m *Manager) RemoveLinksOfType(t wearable.Type, doUpdate bool) {
	_, items := m.inv.CollectDescendants(m.COF(), inventory.IsWearableType(t), false)
	for _, it := range items {
		if it.IsLink() {
			m.purge(it.ID())
		}
	}
	if doUpdate {
		m.updateFromCompletion()
	}
}

func (m *Manager) purge(id ir.ID) {
	if err := m.inv.PurgeObject(id); err != nil {
		m.logger.Warn("failed to purge current outfit link", "link", id, "error", err)
	}
}

// updateFromCompletion re-resolves the COF from a context that cannot
// return an error.
func (m *Manager) updateFromCompletion() {
	if _, err := m.UpdateAppearanceFromCOF(false); err != nil {
		m.lastErr = err
		m.logger.Warn("appearance update failed", "error", err)
	}
}
