package appearance

import (
	"github.com/roach88/wardrobe/internal/asset"
	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Inventory is the slice of the inventory model the Manager uses.
// *inventory.Model implements it.
type Inventory interface {
	Root() ir.ID
	LibraryRoot() ir.ID
	FindCategoryForType(ft inventory.FolderType) ir.ID
	Get(id ir.ID) (inventory.Node, bool)
	Category(id ir.ID) (inventory.Node, bool)
	Item(id ir.ID) (inventory.Item, bool)
	IsDescendentOf(id, ancestor ir.ID) bool
	DirectDescendants(folder ir.ID) ([]inventory.Node, []inventory.Item)
	CollectDescendants(folder ir.ID, filter inventory.Filter, followFolderLinks bool) ([]inventory.Node, []inventory.Item)
	FindCOFValidItems() inventory.Filter

	CreateCategory(parent ir.ID, ft inventory.FolderType, name string) (ir.ID, error)
	CreateItem(parent ir.ID, proto inventory.Node, cb inventory.Callback)
	LinkItem(target, parent ir.ID, description string, cb inventory.Callback)
	CopyItem(item, parent ir.ID, newName string, cb inventory.Callback)
	PurgeObject(id ir.ID) error
	PurgeDescendantLinks(folder ir.ID, keepFolderLinks bool) int
	UpdateItemDescription(id ir.ID, description string) error

	AddObserver(o inventory.Observer) int
	RemoveObserver(handle int)
}

// AssetResolver fetches wearable payloads. *asset.Service implements it.
// Callbacks must run on the Manager's loop.
type AssetResolver interface {
	RequestWearable(assetID ir.ID, name string, assetType inventory.AssetType, cb asset.Callback)
	CreateNewWearable(wt wearable.Type) *wearable.Wearable
}

// Sink receives the resolved appearance. *avatar.Avatar implements it.
type Sink interface {
	SetWornWearables(worn []wearable.Worn, fullReplace bool)
	SetAttachments(items []inventory.Item)
	ActivateGestures(items []inventory.Item)
	Attach(item inventory.Item, replace bool)
}

// GestureManager tracks active gestures.
type GestureManager interface {
	IsGestureActive(itemID ir.ID) bool
	DeactivateGesture(itemID ir.ID)
}

// WearableState reports whether the avatar's initial wearables arrived.
type WearableState interface {
	AreWearablesLoaded() bool
}

// Scheduler is the owner's event loop. *engine.Loop implements it.
type Scheduler interface {
	Post(t engine.Task) bool
	DoOnIdleRepeating(p engine.Poll)
}

var (
	_ Inventory     = (*inventory.Model)(nil)
	_ AssetResolver = (*asset.Service)(nil)
	_ Scheduler     = (*engine.Loop)(nil)
)
