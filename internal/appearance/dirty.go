package appearance

import (
	"slices"
	"strings"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
)

// RecomputeDirty compares the COF with its base outfit and stores the
// result. Without a base outfit the COF is always dirty. Otherwise it is
// dirty when the two hold different entries: compared by linked id, then
// by description, since descriptions carry clothing order.
func (m *Manager) RecomputeDirty() bool {
	m.dirty = m.computeDirty()
	return m.dirty
}

func (m *Manager) computeDirty() bool {
	link, ok := m.BaseOutfitLink()
	if !ok {
		return true
	}
	cof := m.outfitEntries(m.COF())
	base := m.outfitEntries(link.LinkedCategory().ID)
	return !slices.Equal(cof, base)
}

// OutfitDigest fingerprints folder's links in canonical order. The COF's
// base outfit link is left out, so a clean COF and its base outfit share a
// digest.
func (m *Manager) OutfitDigest(folder ir.ID) (string, error) {
	return ir.OutfitDigest(m.outfitEntries(folder))
}

// outfitEntries lists every item under folder, raw items included, so a
// stray item in the COF makes it differ from its base outfit.
func (m *Manager) outfitEntries(folder ir.ID) []ir.OutfitEntry {
	_, items := m.inv.CollectDescendants(folder, inventory.All, false)
	if link, ok := m.BaseOutfitLink(); ok && folder == m.COF() {
		items = slices.DeleteFunc(items, func(it inventory.Item) bool { return it.ID() == link.ID() })
	}

	entries := make([]ir.OutfitEntry, len(items))
	for i, it := range items {
		entries[i] = ir.OutfitEntry{LinkedID: it.LinkedID(), Description: it.Description()}
	}
	slices.SortFunc(entries, func(a, b ir.OutfitEntry) int {
		if c := ir.CompareIDs(a.LinkedID, b.LinkedID); c != 0 {
			return c
		}
		return strings.Compare(a.Description, b.Description)
	})
	return entries
}
