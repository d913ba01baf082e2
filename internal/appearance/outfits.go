package appearance

import (
	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// UpdateBaseOutfit saves the COF into its base outfit: the base outfit's
// links are purged and the COF's links copied in. Dirty state is recomputed
// once the copies land.
func (m *Manager) UpdateBaseOutfit() error {
	if m.locked {
		return newError(ErrCodeInvalidItem, ir.NilID, "base outfit save already in progress")
	}
	base := m.BaseOutfitID()
	if base == ir.NilID {
		return newError(ErrCodeNoBaseOutfit, ir.NilID, "no base outfit to save into")
	}
	m.locked = true
	m.UpdateClothingOrderingInfo(ir.NilID)

	purged := m.inv.PurgeDescendantLinks(base, false)
	m.logger.Info("saving current outfit into base outfit", "outfit", m.BaseOutfitName(), "purged", purged)

	p := m.track(m.outfitSaved)
	m.ShallowCopyCategoryContents(m.COF(), base, p)
	p.Seal()
	return nil
}

func (m *Manager) outfitSaved() {
	m.locked = false
	m.RecomputeDirty()
	m.logger.Debug("outfit saved", "dirty", m.dirty)
}

// MakeNewOutfitLinks creates an outfit folder called name under My Outfits,
// copies the COF's links into it and makes it the base outfit. It returns
// the new folder.
func (m *Manager) MakeNewOutfitLinks(name string) (ir.ID, error) {
	parent := m.inv.FindCategoryForType(inventory.FolderMyOutfits)
	folder, err := m.inv.CreateCategory(parent, inventory.FolderOutfit, name)
	if err != nil {
		return ir.NilID, err
	}
	m.locked = true
	m.UpdateClothingOrderingInfo(ir.NilID)
	m.logger.Info("saving current outfit as new outfit", "name", name, "folder", folder)

	p := m.track(m.outfitSaved)
	m.ShallowCopyCategoryContents(m.COF(), folder, p)
	m.createBaseOutfitLink(folder, p)
	p.Seal()
	return folder, nil
}

// ShallowCopyCategory creates a plain folder under parent (the inventory
// root when parent is ir.NilID) named after src and copies src's direct
// contents into it. cont runs once every copy has landed.
func (m *Manager) ShallowCopyCategory(src, parent ir.ID, cont func(folder ir.ID)) (ir.ID, error) {
	cat, ok := m.inv.Category(src)
	if !ok {
		return ir.NilID, newError(ErrCodeInvalidItem, src, "copy source is not a folder")
	}
	if parent == ir.NilID {
		parent = m.inv.Root()
	}
	folder, err := m.inv.CreateCategory(parent, inventory.FolderNone, cat.Name)
	if err != nil {
		return ir.NilID, err
	}
	p := m.track(func() {
		if cont != nil {
			cont(folder)
		}
	})
	m.ShallowCopyCategoryContents(src, folder, p)
	p.Seal()
	return folder, nil
}

// ShallowCopyCategoryContents copies src's direct children into dst. Item
// links are re-linked keeping their own description, so clothing order
// survives. Folder links are re-linked unless they point at an outfit.
// Wearables, objects and gestures are copied. Anything else is skipped.
// Every issued operation is counted on p; the caller seals it.
func (m *Manager) ShallowCopyCategoryContents(src, dst ir.ID, p *engine.Pending) {
	_, items := m.inv.DirectDescendants(src)
	for _, it := range items {
		switch it.ActualType() {
		case inventory.AssetLink:
			m.inv.LinkItem(it.LinkedID(), dst, it.Description(), m.waiter(p, "link"))
		case inventory.AssetLinkFolder:
			cat := it.LinkedCategory()
			if cat != nil && cat.PreferredType != inventory.FolderOutfit {
				m.inv.LinkItem(it.LinkedID(), dst, it.Description(), m.waiter(p, "link"))
			}
		case inventory.AssetClothing, inventory.AssetObject, inventory.AssetBodyPart, inventory.AssetGesture:
			m.logger.Debug("copying inventory item", "name", it.Name())
			m.inv.CopyItem(it.ID(), dst, "", m.waiter(p, "copy"))
		}
	}
}

// CanMakeFolderIntoOutfit reports whether folder directly holds every body
// part: shape, skin, hair and eyes.
func (m *Manager) CanMakeFolderIntoOutfit(folder ir.ID) bool {
	_, items := m.inv.DirectDescendants(folder)
	have := make(map[wearable.Type]bool)
	for _, it := range items {
		if t := it.WearableType(); t.Valid() {
			have[t] = true
		}
	}
	for _, t := range wearable.BodyParts() {
		if !have[t] {
			return false
		}
	}
	return true
}

// WearInventoryCategory puts on folder. With copyItems the folder's contents
// are first copied into a fresh folder under Clothing (or Gestures, when the
// first item is a gesture) and that copy is worn instead.
func (m *Manager) WearInventoryCategory(folder ir.ID, copyItems, appendMode bool) error {
	cat, ok := m.inv.Category(folder)
	if !ok {
		return newError(ErrCodeInvalidItem, folder, "not a folder")
	}
	m.logger.Info("wearing inventory category", "name", cat.Name, "copy", copyItems, "append", appendMode)
	if !copyItems {
		return m.Reconcile(folder, appendMode)
	}

	parent := m.inv.Root()
	if _, items := m.inv.DirectDescendants(folder); len(items) > 0 {
		if items[0].Type() == inventory.AssetGesture {
			parent = m.inv.FindCategoryForType(inventory.FolderGestures)
		} else {
			parent = m.inv.FindCategoryForType(inventory.FolderClothing)
		}
	}
	_, err := m.ShallowCopyCategory(folder, parent, func(copied ir.ID) {
		if err := m.Reconcile(copied, appendMode); err != nil {
			m.lastErr = err
			m.logger.Warn("failed to wear copied category", "folder", copied, "error", err)
		}
	})
	return err
}

// WearOutfitByName wears the first folder under the inventory root whose
// name matches, ignoring case. Failing that the library is searched and the
// match is copied before wearing.
func (m *Manager) WearOutfitByName(name string) error {
	m.logger.Info("wearing outfit by name", "name", name)
	match := inventory.NameCategory(name)
	cats, _ := m.inv.CollectDescendants(m.inv.Root(), match, false)
	if len(cats) > 0 {
		return m.WearInventoryCategory(cats[0].ID, false, false)
	}
	if lib := m.inv.LibraryRoot(); lib != ir.NilID {
		cats, _ = m.inv.CollectDescendants(lib, match, false)
		if len(cats) > 0 {
			return m.WearInventoryCategory(cats[0].ID, true, false)
		}
	}
	m.logger.Warn("could not find outfit", "name", name)
	m.notify(NoticeOutfitNotFound, "name", name)
	return newError(ErrCodeInvalidItem, ir.NilID, "no outfit named %q", name)
}

// WearItemOnAvatar puts on a single item. Clothing and body parts are linked
// into the COF; with replace, clothing takes the place of the outermost
// layer of its slot. Objects are attached. Library items are copied into the
// user's inventory first and worn once the copy lands.
func (m *Manager) WearItemOnAvatar(itemID ir.ID, doUpdate, replace bool) error {
	item, ok := m.inv.Item(itemID)
	if !ok {
		return newError(ErrCodeInvalidItem, itemID, "item not found")
	}
	switch {
	case m.inv.IsDescendentOf(itemID, m.inv.LibraryRoot()):
		parent := m.inv.FindCategoryForType(folderFor(item.Type()))
		m.inv.CopyItem(itemID, parent, "", func(id ir.ID, err error) {
			if err != nil {
				m.logger.Warn("failed to copy library item", "item", itemID, "error", err)
				return
			}
			if err := m.WearItemOnAvatar(id, true, replace); err != nil {
				m.lastErr = err
				m.logger.Warn("failed to wear copied library item", "item", id, "error", err)
			}
		})
		return nil
	case !m.inv.IsDescendentOf(itemID, m.inv.Root()):
		return newError(ErrCodeInvalidItem, itemID, "item is not in the inventory")
	case m.inv.IsDescendentOf(itemID, m.inv.FindCategoryForType(inventory.FolderTrash)):
		m.notify(NoticeCannotWearTrash)
		return newError(ErrCodeInvalidItem, itemID, "item is in the trash")
	case m.IsInCOF(itemID):
		return newError(ErrCodeInvalidItem, itemID, "item is already in the current outfit")
	}

	switch item.Type() {
	case inventory.AssetClothing:
		if !m.wearablesLoaded() {
			m.notify(NoticeCannotChangeUntilLoaded)
			return newError(ErrCodeNotLoaded, itemID, "wearables are not loaded")
		}
		t := item.WearableType()
		_, worn := m.inv.CollectDescendants(m.COF(), inventory.IsWearableType(t), false)
		if n := len(worn); n > 0 && (replace || n >= m.maxClothing) {
			sortByOrder(t, worn)
			m.RemoveItemLinks(worn[n-1].LinkedID(), false)
		}
		m.AddItemLink(itemID, doUpdate)
	case inventory.AssetBodyPart:
		if !m.wearablesLoaded() {
			m.notify(NoticeCannotChangeUntilLoaded)
			return newError(ErrCodeNotLoaded, itemID, "wearables are not loaded")
		}
		m.RemoveLinksOfType(item.WearableType(), false)
		m.AddItemLink(itemID, doUpdate)
	case inventory.AssetObject:
		m.sink.Attach(item, replace)
		m.RegisterAttachment(itemID)
	default:
		return newError(ErrCodeInvalidItem, itemID, "%s items cannot be worn", item.Type())
	}
	return nil
}

func (m *Manager) wearablesLoaded() bool {
	return m.wearables == nil || m.wearables.AreWearablesLoaded()
}

func folderFor(at inventory.AssetType) inventory.FolderType {
	switch at {
	case inventory.AssetClothing:
		return inventory.FolderClothing
	case inventory.AssetBodyPart:
		return inventory.FolderBodyParts
	case inventory.AssetObject:
		return inventory.FolderObjects
	case inventory.AssetGesture:
		return inventory.FolderGestures
	}
	return inventory.FolderRoot
}

// RegisterAttachment records that itemID was attached. When attachment
// links are enabled it is linked into the COF straight away; otherwise it
// waits for LinkRegisteredAttachments.
func (m *Manager) RegisterAttachment(itemID ir.ID) {
	if m.attachmentLinks {
		m.AddItemLink(itemID, false)
		return
	}
	for _, id := range m.registered {
		if id == itemID {
			return
		}
	}
	m.registered = append(m.registered, itemID)
}

// UnregisterAttachment records that itemID was detached.
func (m *Manager) UnregisterAttachment(itemID ir.ID) {
	if m.attachmentLinks {
		m.RemoveItemLinks(itemID, false)
		return
	}
	for i, id := range m.registered {
		if id == itemID {
			m.registered = append(m.registered[:i], m.registered[i+1:]...)
			return
		}
	}
}

// LinkRegisteredAttachments links every attachment registered while links
// were disabled.
func (m *Manager) LinkRegisteredAttachments() {
	for _, id := range m.registered {
		m.AddItemLink(id, false)
	}
	m.registered = nil
}

// SetAttachmentLinksEnabled switches immediate attachment linking.
func (m *Manager) SetAttachmentLinksEnabled(enabled bool) {
	m.attachmentLinks = enabled
}

// RegisteredAttachments returns attachments waiting to be linked.
func (m *Manager) RegisteredAttachments() []ir.ID {
	return append([]ir.ID(nil), m.registered...)
}
