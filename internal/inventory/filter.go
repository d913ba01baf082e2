package inventory

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Filter selects nodes during collection. Exactly one of cat and item is
// non-nil on each call.
type Filter func(cat *Node, item *Item) bool

// All accepts everything.
func All(*Node, *Item) bool { return true }

// And accepts what every filter accepts.
func And(filters ...Filter) Filter {
	return func(cat *Node, item *Item) bool {
		for _, f := range filters {
			if !f(cat, item) {
				return false
			}
		}
		return true
	}
}

// Or accepts what any filter accepts.
func Or(filters ...Filter) Filter {
	return func(cat *Node, item *Item) bool {
		for _, f := range filters {
			if f(cat, item) {
				return true
			}
		}
		return false
	}
}

// IsType matches items whose effective type is at. AssetCategory also
// matches folders.
func IsType(at AssetType) Filter {
	return func(cat *Node, item *Item) bool {
		if cat != nil {
			return at == AssetCategory
		}
		return item.Type() == at
	}
}

// IsActualType matches items by their own type, so AssetLink selects links.
func IsActualType(at AssetType) Filter {
	return func(_ *Node, item *Item) bool {
		return item != nil && item.ActualType() == at
	}
}

// FindWearables matches clothing and body parts.
func FindWearables(_ *Node, item *Item) bool {
	return item != nil && item.Type().IsWearable()
}

// IsWearableType matches wearables occupying slot wt.
func IsWearableType(wt wearable.Type) Filter {
	return func(_ *Node, item *Item) bool {
		return item != nil && item.Type().IsWearable() && item.WearableType() == wt
	}
}

// IsLinkType matches links of either flavour.
func IsLinkType(_ *Node, item *Item) bool {
	return item != nil && item.IsLink()
}

// LinkedItemIDMatches matches items and links whose linked id is id.
func LinkedItemIDMatches(id ir.ID) Filter {
	return func(_ *Node, item *Item) bool {
		return item != nil && item.LinkedID() == id
	}
}

// AssetIDMatches matches items and links whose underlying asset is assetID.
func AssetIDMatches(assetID ir.ID) Filter {
	return func(_ *Node, item *Item) bool {
		return item != nil && assetID != ir.NilID && item.AssetID() == assetID
	}
}

// NameCategory matches folders by name, case-insensitively after NFC
// normalisation.
func NameCategory(name string) Filter {
	want := norm.NFC.String(name)
	return func(cat *Node, _ *Item) bool {
		return cat != nil && strings.EqualFold(norm.NFC.String(cat.Name), want)
	}
}

// FindCOFValidItems matches entries that may be linked into the Current
// Outfit folder: clothing, body parts, objects and gestures that resolve and
// do not live in the trash.
func (m *Model) FindCOFValidItems() Filter {
	trash := m.FindCategoryForType(FolderTrash)
	return func(_ *Node, item *Item) bool {
		if item == nil || item.IsBrokenLink() {
			return false
		}
		switch item.Type() {
		case AssetClothing, AssetBodyPart, AssetObject, AssetGesture:
		default:
			return false
		}
		li := item.LinkedItem()
		if li == nil {
			return false
		}
		return !m.IsDescendentOf(li.ID, trash)
	}
}
