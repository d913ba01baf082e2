package inventory

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Dispatcher runs asynchronous completions. engine.Loop implements it.
type Dispatcher interface {
	Post(t engine.Task) bool
}

// Op names a server-backed mutation for fault injection.
type Op string

const (
	OpCreate Op = "create"
	OpLink   Op = "link"
	OpCopy   Op = "copy"
)

// FaultInjector may reject an asynchronous mutation before it is applied.
// proto is the node that would be created.
type FaultInjector func(op Op, proto Node) error

// Callback receives the id of the node an asynchronous mutation created, or
// the error that prevented it.
type Callback func(id ir.ID, err error)

// Model is the inventory tree. Safe for concurrent use; filters and
// observers are invoked without the lock held so they may query the model.
type Model struct {
	mu       sync.RWMutex
	nodes    map[ir.ID]*Node
	children map[ir.ID][]ir.ID
	tops     []ir.ID

	ids        ir.IDGenerator
	dispatcher Dispatcher
	fault      FaultInjector
	logger     *slog.Logger

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// Option configures a Model.
type Option func(*Model)

// WithIDGenerator sets the generator for new node ids.
func WithIDGenerator(g ir.IDGenerator) Option {
	return func(m *Model) { m.ids = g }
}

// WithDispatcher sets where asynchronous completions run. Without one they
// complete before the call returns.
func WithDispatcher(d Dispatcher) Option {
	return func(m *Model) { m.dispatcher = d }
}

// WithFaultInjector installs a hook that can fail asynchronous mutations.
func WithFaultInjector(f FaultInjector) Option {
	return func(m *Model) { m.fault = f }
}

// WithLogger sets the model's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel creates an empty tree. Call Bootstrap or Load before use.
func NewModel(opts ...Option) *Model {
	m := &Model{
		nodes:     make(map[ir.ID]*Node),
		children:  make(map[ir.ID][]ir.ID),
		ids:       ir.UUIDv7Generator{},
		logger:    slog.Default(),
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Bootstrap creates the root, the library root and the system folders that
// are missing. It is idempotent.
func (m *Model) Bootstrap() {
	m.mu.Lock()
	created := false
	for _, ft := range []FolderType{FolderRoot, FolderLibrary} {
		if m.topLocked(ft) == ir.NilID {
			m.insertLocked(&Node{
				ID:            m.ids.NewID(),
				Kind:          KindCategory,
				Name:          DefaultFolderName(ft),
				PreferredType: ft,
			})
			created = true
		}
	}
	root := m.topLocked(FolderRoot)
	for _, sf := range systemFolders {
		if m.childOfTypeLocked(root, sf.Type) == ir.NilID {
			m.insertLocked(&Node{
				ID:            m.ids.NewID(),
				ParentID:      root,
				Kind:          KindCategory,
				Name:          sf.Name,
				PreferredType: sf.Type,
			})
			created = true
		}
	}
	m.mu.Unlock()

	if created {
		m.notify(ChangeStructure, nil)
	}
}

// Root returns the inventory root folder.
func (m *Model) Root() ir.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topLocked(FolderRoot)
}

// LibraryRoot returns the shared library folder.
func (m *Model) LibraryRoot() ir.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topLocked(FolderLibrary)
}

// FindCategoryForType returns the system folder of type ft directly under
// the root, creating it if it does not exist yet.
func (m *Model) FindCategoryForType(ft FolderType) ir.ID {
	if ft == FolderRoot || ft == FolderLibrary {
		m.mu.RLock()
		id := m.topLocked(ft)
		m.mu.RUnlock()
		if id != ir.NilID {
			return id
		}
		m.Bootstrap()
		return m.FindCategoryForType(ft)
	}

	m.mu.RLock()
	root := m.topLocked(FolderRoot)
	id := m.childOfTypeLocked(root, ft)
	m.mu.RUnlock()
	if id != ir.NilID {
		return id
	}
	if root == ir.NilID {
		m.Bootstrap()
		return m.FindCategoryForType(ft)
	}

	id, err := m.CreateCategory(root, ft, DefaultFolderName(ft))
	if err != nil {
		m.logger.Warn("failed to create system folder", "type", ft, "error", err)
		return ir.NilID
	}
	return id
}

// Get returns a copy of the node.
func (m *Model) Get(id ir.ID) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Category returns the folder with the given id.
func (m *Model) Category(id ir.ID) (Node, bool) {
	n, ok := m.Get(id)
	if !ok || !n.IsCategory() {
		return Node{}, false
	}
	return n, true
}

// Item returns the resolved view of a non-category node.
func (m *Model) Item(id ir.ID) (Item, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok || n.IsCategory() {
		return Item{}, false
	}
	return m.itemLocked(n), true
}

// Len returns the number of nodes in the tree.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// IsDescendentOf reports whether id lies strictly beneath ancestor.
func (m *Model) IsDescendentOf(id, ancestor ir.ID) bool {
	if ancestor == ir.NilID {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	for ok && n.ParentID != ir.NilID {
		if n.ParentID == ancestor {
			return true
		}
		n, ok = m.nodes[n.ParentID]
	}
	return false
}

// DirectDescendants returns the immediate subfolders and items of folder in
// insertion order.
func (m *Model) DirectDescendants(folder ir.ID) ([]Node, []Item) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var cats []Node
	var items []Item
	for _, cid := range m.children[folder] {
		n := m.nodes[cid]
		if n.IsCategory() {
			cats = append(cats, *n)
		} else {
			items = append(items, m.itemLocked(n))
		}
	}
	return cats, items
}

// CollectDescendants walks folder depth-first, subfolders before items, in
// insertion order, and returns what filter accepts. The trash subtree is
// skipped unless folder is itself inside it. With followFolderLinks set, the
// contents of folders reached through folder links are collected too, one
// level deep, except for outfit folders.
func (m *Model) CollectDescendants(folder ir.ID, filter Filter, followFolderLinks bool) ([]Node, []Item) {
	if filter == nil {
		filter = All
	}

	m.mu.RLock()
	var candCats []Node
	var candItems []Item
	trash := m.childOfTypeLocked(m.topLocked(FolderRoot), FolderTrash)
	if m.isDescendentOrSelfLocked(folder, trash) {
		trash = ir.NilID
	}
	m.walkLocked(folder, trash, followFolderLinks, &candCats, &candItems)
	m.mu.RUnlock()

	var cats []Node
	var items []Item
	for i := range candCats {
		if filter(&candCats[i], nil) {
			cats = append(cats, candCats[i])
		}
	}
	for i := range candItems {
		if filter(nil, &candItems[i]) {
			items = append(items, candItems[i])
		}
	}
	return cats, items
}

func (m *Model) walkLocked(folder, trash ir.ID, follow bool, cats *[]Node, items *[]Item) {
	kids := m.children[folder]
	for _, cid := range kids {
		n := m.nodes[cid]
		if !n.IsCategory() || n.ID == trash {
			continue
		}
		*cats = append(*cats, *n)
		m.walkLocked(n.ID, trash, follow, cats, items)
	}
	for _, cid := range kids {
		n := m.nodes[cid]
		if n.IsCategory() {
			continue
		}
		*items = append(*items, m.itemLocked(n))
	}
	if !follow {
		return
	}
	for _, cid := range kids {
		n := m.nodes[cid]
		if n.Kind != KindFolderLink {
			continue
		}
		target, ok := m.nodes[n.LinkedID]
		if !ok || !target.IsCategory() || target.PreferredType == FolderOutfit {
			continue
		}
		*cats = append(*cats, *target)
		m.walkLocked(target.ID, trash, false, cats, items)
	}
}

func (m *Model) itemLocked(n *Node) Item {
	it := Item{Node: *n}
	if n.IsLink() {
		if t, ok := m.nodes[n.LinkedID]; ok {
			tc := *t
			it.Target = &tc
		}
	}
	return it
}

func (m *Model) isDescendentOrSelfLocked(id, ancestor ir.ID) bool {
	if ancestor == ir.NilID {
		return false
	}
	for id != ir.NilID {
		if id == ancestor {
			return true
		}
		n, ok := m.nodes[id]
		if !ok {
			return false
		}
		id = n.ParentID
	}
	return false
}

func (m *Model) topLocked(ft FolderType) ir.ID {
	for _, id := range m.tops {
		if m.nodes[id].PreferredType == ft {
			return id
		}
	}
	return ir.NilID
}

func (m *Model) childOfTypeLocked(parent ir.ID, ft FolderType) ir.ID {
	if parent == ir.NilID {
		return ir.NilID
	}
	for _, cid := range m.children[parent] {
		n := m.nodes[cid]
		if n.IsCategory() && n.PreferredType == ft {
			return cid
		}
	}
	return ir.NilID
}

func (m *Model) insertLocked(n *Node) {
	if n.Kind != KindItem || !n.AssetType.IsWearable() {
		n.WearableType = wearable.Invalid
	}
	m.nodes[n.ID] = n
	if n.ParentID == ir.NilID {
		m.tops = append(m.tops, n.ID)
		return
	}
	m.children[n.ParentID] = append(m.children[n.ParentID], n.ID)
}

func (m *Model) removeLocked(id ir.ID) []ir.ID {
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	var removed []ir.ID
	for _, cid := range append([]ir.ID(nil), m.children[id]...) {
		removed = append(removed, m.removeLocked(cid)...)
	}
	delete(m.children, id)
	delete(m.nodes, id)
	if n.ParentID == ir.NilID {
		m.tops = without(m.tops, id)
	} else {
		m.children[n.ParentID] = without(m.children[n.ParentID], id)
	}
	return append(removed, id)
}

func without(ids []ir.ID, id ir.ID) []ir.ID {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// Nodes returns every node with parents before children and siblings in
// insertion order, suitable for Load.
func (m *Model) Nodes() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Node, 0, len(m.nodes))
	var visit func(id ir.ID)
	visit = func(id ir.ID) {
		out = append(out, *m.nodes[id])
		for _, cid := range m.children[id] {
			visit(cid)
		}
	}
	for _, id := range m.tops {
		visit(id)
	}
	return out
}

// Load replaces the tree with nodes. Parents must precede their children.
func (m *Model) Load(nodes []Node) error {
	m.mu.Lock()
	m.nodes = make(map[ir.ID]*Node, len(nodes))
	m.children = make(map[ir.ID][]ir.ID)
	m.tops = nil
	for i := range nodes {
		n := nodes[i]
		if _, dup := m.nodes[n.ID]; dup {
			m.mu.Unlock()
			return fmt.Errorf("load inventory: duplicate node %s", n.ID)
		}
		if n.ParentID != ir.NilID {
			if _, ok := m.nodes[n.ParentID]; !ok {
				m.mu.Unlock()
				return fmt.Errorf("load inventory: node %s before its parent %s: %w", n.ID, n.ParentID, ErrNotFound)
			}
		}
		m.insertLocked(&n)
	}
	m.mu.Unlock()

	m.notify(ChangeStructure, nil)
	return nil
}
