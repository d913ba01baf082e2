package inventory

import (
	"fmt"

	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// CreateCategory creates a folder under parent and returns its id.
// Folder creation is synchronous; only item-level operations are deferred.
func (m *Model) CreateCategory(parent ir.ID, ft FolderType, name string) (ir.ID, error) {
	if name == "" {
		name = DefaultFolderName(ft)
	}
	m.mu.Lock()
	if parent != ir.NilID {
		p, ok := m.nodes[parent]
		if !ok {
			m.mu.Unlock()
			return ir.NilID, fmt.Errorf("create category %q: parent %s: %w", name, parent, ErrNotFound)
		}
		if !p.IsCategory() {
			m.mu.Unlock()
			return ir.NilID, fmt.Errorf("create category %q: parent %s: %w", name, parent, ErrNotCategory)
		}
	}
	n := &Node{
		ID:            m.ids.NewID(),
		ParentID:      parent,
		Kind:          KindCategory,
		Name:          name,
		PreferredType: ft,
	}
	m.insertLocked(n)
	m.mu.Unlock()

	m.logger.Debug("created category", "id", n.ID, "name", name, "type", ft)
	m.notify(ChangeAdd|ChangeStructure, []ir.ID{n.ID})
	return n.ID, nil
}

// CreateItem creates a plain item under parent from proto. Only the content
// fields of proto are used; the id is assigned on completion.
func (m *Model) CreateItem(parent ir.ID, proto Node, cb Callback) {
	proto.Kind = KindItem
	proto.ParentID = parent
	proto.LinkedID = ir.NilID
	if !proto.AssetType.IsWearable() {
		proto.WearableType = wearable.Invalid
	}
	m.dispatch(OpCreate, proto, func() (ir.ID, error) {
		return m.insertChild(proto)
	}, cb)
}

// LinkItem creates a link under parent pointing at target, which may be an
// item or a folder. The link takes the target's name and the given
// description.
func (m *Model) LinkItem(target, parent ir.ID, description string, cb Callback) {
	proto := Node{
		ParentID:     parent,
		Kind:         KindLink,
		Description:  description,
		LinkedID:     target,
		WearableType: wearable.Invalid,
	}
	m.dispatch(OpLink, proto, func() (ir.ID, error) {
		m.mu.RLock()
		t, ok := m.nodes[target]
		var name string
		var kind Kind
		if ok {
			name = t.Name
			kind = KindLink
			if t.IsCategory() {
				kind = KindFolderLink
			} else if t.IsLink() {
				// Links to links are flattened onto the final target.
				proto.LinkedID = t.LinkedID
				kind = t.Kind
			}
		}
		m.mu.RUnlock()
		if !ok {
			return ir.NilID, fmt.Errorf("link to %s: %w", target, ErrNotFound)
		}
		proto.Name = name
		proto.Kind = kind
		return m.insertChild(proto)
	}, cb)
}

// CopyItem copies a plain item into parent. An empty newName keeps the
// original name.
func (m *Model) CopyItem(item, parent ir.ID, newName string, cb Callback) {
	src, ok := m.Get(item)
	proto := Node{ParentID: parent, Kind: KindItem, Name: newName}
	if ok {
		proto = src
		proto.ParentID = parent
		if newName != "" {
			proto.Name = newName
		}
	}
	m.dispatch(OpCopy, proto, func() (ir.ID, error) {
		if !ok {
			return ir.NilID, fmt.Errorf("copy %s: %w", item, ErrNotFound)
		}
		if proto.Kind != KindItem {
			return ir.NilID, fmt.Errorf("copy %s: %w", item, ErrNotItem)
		}
		return m.insertChild(proto)
	}, cb)
}

func (m *Model) insertChild(proto Node) (ir.ID, error) {
	m.mu.Lock()
	p, ok := m.nodes[proto.ParentID]
	if !ok {
		m.mu.Unlock()
		return ir.NilID, fmt.Errorf("insert %q: parent %s: %w", proto.Name, proto.ParentID, ErrNotFound)
	}
	if !p.IsCategory() {
		m.mu.Unlock()
		return ir.NilID, fmt.Errorf("insert %q: parent %s: %w", proto.Name, proto.ParentID, ErrNotCategory)
	}
	n := proto
	n.ID = m.ids.NewID()
	m.insertLocked(&n)
	m.mu.Unlock()

	m.notify(ChangeAdd, []ir.ID{n.ID})
	return n.ID, nil
}

func (m *Model) dispatch(op Op, proto Node, apply func() (ir.ID, error), cb Callback) {
	task := func() {
		if m.fault != nil {
			if err := m.fault(op, proto); err != nil {
				m.logger.Warn("inventory operation rejected", "op", op, "name", proto.Name, "error", err)
				if cb != nil {
					cb(ir.NilID, err)
				}
				return
			}
		}
		id, err := apply()
		if err != nil {
			m.logger.Warn("inventory operation failed", "op", op, "name", proto.Name, "error", err)
		}
		if cb != nil {
			cb(id, err)
		}
	}
	if m.dispatcher == nil {
		task()
		return
	}
	if !m.dispatcher.Post(task) {
		m.logger.Warn("inventory operation dropped: dispatcher stopped", "op", op, "name", proto.Name)
	}
}

// PurgeObject removes a node and, for folders, everything beneath it.
func (m *Model) PurgeObject(id ir.ID) error {
	m.mu.Lock()
	if _, ok := m.nodes[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("purge %s: %w", id, ErrNotFound)
	}
	removed := m.removeLocked(id)
	m.mu.Unlock()

	m.notify(ChangeRemove|ChangeStructure, removed)
	return nil
}

// PurgeDescendantLinks removes every link beneath folder. Plain items are
// left alone. With keepFolderLinks set, links to folders survive. Returns the
// number of links removed.
func (m *Model) PurgeDescendantLinks(folder ir.ID, keepFolderLinks bool) int {
	_, items := m.CollectDescendants(folder, IsLinkType, false)
	n := 0
	for _, it := range items {
		if keepFolderLinks && it.ActualType() == AssetLinkFolder {
			continue
		}
		if err := m.PurgeObject(it.ID()); err == nil {
			n++
		}
	}
	return n
}

// UpdateItemDescription rewrites a non-category node's description.
func (m *Model) UpdateItemDescription(id ir.ID, description string) error {
	m.mu.Lock()
	n, ok := m.nodes[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("update description %s: %w", id, ErrNotFound)
	}
	if n.IsCategory() {
		m.mu.Unlock()
		return fmt.Errorf("update description %s: %w", id, ErrNotItem)
	}
	if n.Description == description {
		m.mu.Unlock()
		return nil
	}
	n.Description = description
	m.mu.Unlock()

	m.notify(ChangeDescription, []ir.ID{id})
	return nil
}
