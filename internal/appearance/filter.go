package appearance

import (
	"slices"
	"strings"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// removeDuplicateItems keeps the last entry for each linked id, preserving
// relative order. Later entries take priority when merging into an outfit.
func removeDuplicateItems(items []inventory.Item) []inventory.Item {
	seen := make(map[ir.ID]bool, len(items))
	kept := make([]inventory.Item, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		id := items[i].LinkedID()
		if seen[id] {
			continue
		}
		seen[id] = true
		kept = append(kept, items[i])
	}
	slices.Reverse(kept)
	return kept
}

// divvyWearablesByType groups wearables by slot. Non-wearables are dropped.
func divvyWearablesByType(items []inventory.Item) map[wearable.Type][]inventory.Item {
	out := make(map[wearable.Type][]inventory.Item)
	for _, it := range items {
		t := it.WearableType()
		if !t.Valid() {
			continue
		}
		out[t] = append(out[t], it)
	}
	return out
}

// filterWearableItems keeps the last maxPerType entries of each slot. The
// result is grouped by slot in slot order.
func filterWearableItems(items []inventory.Item, maxPerType int) []inventory.Item {
	byType := divvyWearablesByType(items)
	out := make([]inventory.Item, 0, len(items))
	for _, t := range wearable.Types() {
		slot := byType[t]
		start := max(0, len(slot)-maxPerType)
		out = append(out, slot[start:]...)
	}
	return out
}

// removeNonLinkItems drops plain items that should never live in the COF.
func removeNonLinkItems(items []inventory.Item) []inventory.Item {
	return slices.DeleteFunc(items, func(it inventory.Item) bool { return !it.IsLink() })
}

// sortItemsByActualDescription orders links by their own description, so
// encoded layering numbers come out in wearing order.
func sortItemsByActualDescription(items []inventory.Item) {
	slices.SortStableFunc(items, func(a, b inventory.Item) int {
		return strings.Compare(a.Description(), b.Description())
	})
}

// descendantsOfType collects entries beneath folder whose effective type is
// at, without following folder links.
func (m *Manager) descendantsOfType(folder ir.ID, at inventory.AssetType) []inventory.Item {
	_, items := m.inv.CollectDescendants(folder, inventory.IsType(at), false)
	return items
}
