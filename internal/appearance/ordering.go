package appearance

import (
	"slices"
	"strconv"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// OrderSeparator prefixes every encoded layering description.
const OrderSeparator = '@'

// BuildOrderString encodes position i within slot t as a link description.
// Slot t owns the numbers t*100 through t*100+99.
func BuildOrderString(t wearable.Type, i int) string {
	return string(OrderSeparator) + strconv.Itoa(int(t)*100+i)
}

// ValidOrderString reports whether desc is shaped like an encoded order for
// slot t: the same length as position zero and led by the separator.
func ValidOrderString(t wearable.Type, desc string) bool {
	return len(desc) == len(BuildOrderString(t, 0)) && desc[0] == OrderSeparator
}

// sortByOrder sorts clothing of slot t by encoded order. Entries without a
// valid order sink to the end, keeping their relative order.
func sortByOrder(t wearable.Type, items []inventory.Item) {
	slices.SortStableFunc(items, func(a, b inventory.Item) int {
		av := ValidOrderString(t, a.Description())
		bv := ValidOrderString(t, b.Description())
		switch {
		case av && bv:
			switch {
			case a.Description() < b.Description():
				return -1
			case a.Description() > b.Description():
				return 1
			}
			return 0
		case av:
			return -1
		case bv:
			return 1
		}
		return 0
	})
}

// UpdateClothingOrderingInfo rewrites the descriptions of the clothing
// links in folder (the COF when folder is ir.NilID) so each slot is
// numbered densely from zero in its current order. It reports whether any
// description changed.
func (m *Manager) UpdateClothingOrderingInfo(folder ir.ID) bool {
	if folder == ir.NilID {
		folder = m.COF()
	}
	_, items := m.inv.CollectDescendants(folder, inventory.IsType(inventory.AssetClothing), false)
	byType := divvyWearablesByType(items)

	changed := false
	for _, t := range wearable.ClothingTypes() {
		slot := byType[t]
		sortByOrder(t, slot)
		for i, it := range slot {
			desc := BuildOrderString(t, i)
			if it.Description() == desc {
				continue
			}
			if err := m.inv.UpdateItemDescription(it.ID(), desc); err != nil {
				m.logger.Warn("failed to update clothing order", "item", it.ID(), "error", err)
				continue
			}
			changed = true
		}
	}
	if changed {
		m.logger.Debug("clothing ordering updated", "folder", folder)
	}
	return changed
}

// MoveWearable swaps a clothing link in the COF with its neighbour of the
// same slot, one step closer to or further from the body. It reports
// whether anything moved.
func (m *Manager) MoveWearable(itemID ir.ID, closerToBody bool) bool {
	item, ok := m.inv.Item(itemID)
	if !ok || item.Type() != inventory.AssetClothing {
		return false
	}
	if !m.IsInCOF(itemID) {
		return false
	}
	t := item.WearableType()
	_, items := m.inv.CollectDescendants(m.COF(), inventory.IsWearableType(t), false)
	if len(items) == 0 {
		return false
	}
	sortByOrder(t, items)

	pos := slices.IndexFunc(items, func(it inventory.Item) bool { return it.ID() == itemID })
	if pos < 0 {
		return false
	}
	other := pos + 1
	if closerToBody {
		other = pos - 1
	}
	if other < 0 || other >= len(items) {
		return false
	}
	swap := items[other]
	mine, theirs := item.Description(), swap.Description()
	if err := m.inv.UpdateItemDescription(swap.ID(), mine); err != nil {
		m.logger.Warn("failed to move wearable", "item", swap.ID(), "error", err)
		return false
	}
	if err := m.inv.UpdateItemDescription(itemID, theirs); err != nil {
		m.logger.Warn("failed to move wearable", "item", itemID, "error", err)
		return false
	}
	m.dirty = true
	m.logger.Debug("moved wearable", "item", itemID, "closer_to_body", closerToBody)
	return true
}
