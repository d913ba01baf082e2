package inventory

import (
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Item is a non-category node with its link target resolved. For a plain
// item Target is nil. For a broken link Target is nil as well and the
// effective type is the link's own actual type.
type Item struct {
	Node   Node
	Target *Node
}

// ID returns the node's own id.
func (i Item) ID() ir.ID { return i.Node.ID }

// ParentID returns the containing folder.
func (i Item) ParentID() ir.ID { return i.Node.ParentID }

// IsLink reports whether this entry is a link.
func (i Item) IsLink() bool { return i.Node.IsLink() }

// IsBrokenLink reports whether this is a link whose target is gone.
func (i Item) IsBrokenLink() bool { return i.Node.IsLink() && i.Target == nil }

// LinkedID is the link target for links and the item's own id otherwise.
func (i Item) LinkedID() ir.ID {
	if i.Node.IsLink() {
		return i.Node.LinkedID
	}
	return i.Node.ID
}

// ActualType is the type of the node itself: AssetLink and AssetLinkFolder
// for links.
func (i Item) ActualType() AssetType {
	switch i.Node.Kind {
	case KindLink:
		return AssetLink
	case KindFolderLink:
		return AssetLinkFolder
	}
	return i.Node.AssetType
}

// Type is the effective type, looking through resolved links.
func (i Item) Type() AssetType {
	switch i.Node.Kind {
	case KindLink:
		if i.Target != nil && i.Target.Kind == KindItem {
			return i.Target.AssetType
		}
	case KindFolderLink:
		if i.Target != nil && i.Target.IsCategory() {
			return AssetCategory
		}
	}
	return i.ActualType()
}

// LinkedItem returns the concrete item: the target for item links, the node
// itself for plain items, nil for folder links and broken links.
func (i Item) LinkedItem() *Node {
	switch i.Node.Kind {
	case KindItem:
		n := i.Node
		return &n
	case KindLink:
		if i.Target != nil && i.Target.Kind == KindItem {
			return i.Target
		}
	}
	return nil
}

// LinkedCategory returns the target folder of a folder link.
func (i Item) LinkedCategory() *Node {
	if i.Node.Kind == KindFolderLink && i.Target != nil && i.Target.IsCategory() {
		return i.Target
	}
	return nil
}

// WearableType is the slot of the underlying wearable, or wearable.Invalid.
func (i Item) WearableType() wearable.Type {
	li := i.LinkedItem()
	if li == nil || !li.AssetType.IsWearable() {
		return wearable.Invalid
	}
	return li.WearableType
}

// AssetID is the asset id of the underlying item, or ir.NilID.
func (i Item) AssetID() ir.ID {
	if li := i.LinkedItem(); li != nil {
		return li.AssetID
	}
	return ir.NilID
}

// Name is the display name, taken from the target when one resolves.
func (i Item) Name() string {
	if i.Target != nil {
		return i.Target.Name
	}
	return i.Node.Name
}

// Description is the node's own description. For clothing links inside the
// Current Outfit folder it holds the encoded layering order.
func (i Item) Description() string {
	return i.Node.Description
}
