package appearance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/wearable"
)

func TestRecomputeDirty_NoBaseOutfitIsDirty(t *testing.T) {
	f := newFixture(t)
	body := f.body()
	f.link(body[wearable.Shape], f.m.COF(), "")

	assert.True(t, f.m.RecomputeDirty())
	assert.Equal(t, "", f.m.BaseOutfitName())
}

func TestRecomputeDirty_DescriptionChangeIsDirty(t *testing.T) {
	f := newFixture(t)
	body := f.body()
	clothing := f.folder(inventory.FolderClothing)
	a := f.item(clothing, wearable.Shirt, "A")
	b := f.item(clothing, wearable.Shirt, "B")
	outfit := f.outfit("Layers", body[wearable.Shape], body[wearable.Skin], body[wearable.Hair], body[wearable.Eyes], a, b)
	f.m = NewManager(f.inv, f.res, f.loop, f.av, WithLogger(quiet), WithWallClock(f.clock), WithMaxClothingLayers(2))
	f.wear(outfit, false)
	require.False(t, f.m.IsOutfitDirty())

	link, ok := f.cofLinkTo(b)
	require.True(t, ok)
	require.True(t, f.m.MoveWearable(link.ID(), true))

	assert.True(t, f.m.RecomputeDirty(), "same links in a different order")
}

func TestRecomputeDirty_TrashedBaseOutfitDoesNotCount(t *testing.T) {
	f := newFixture(t)
	body := f.body()
	casual := f.outfit("Casual", body[wearable.Shape], body[wearable.Skin], body[wearable.Hair], body[wearable.Eyes])
	f.wear(casual, false)
	require.Equal(t, "Casual", f.m.BaseOutfitName())

	// Move the outfit to the trash by rebuilding it there.
	trash := f.folder(inventory.FolderTrash)
	nodes := f.inv.Nodes()
	for i := range nodes {
		if nodes[i].ID == casual {
			nodes[i].ParentID = trash
		}
	}
	reordered := make([]inventory.Node, 0, len(nodes))
	var outfitNodes []inventory.Node
	for _, n := range nodes {
		if n.ID == casual || n.ParentID == casual {
			outfitNodes = append(outfitNodes, n)
			continue
		}
		reordered = append(reordered, n)
	}
	require.NoError(t, f.inv.Load(append(reordered, outfitNodes...)))

	_, ok := f.m.BaseOutfitLink()
	assert.False(t, ok)
	assert.True(t, f.m.RecomputeDirty())
}

func TestUpdateBaseOutfit_RoundTrip(t *testing.T) {
	f := newFixture(t)
	body := f.body()
	clothing := f.folder(inventory.FolderClothing)
	shirt := f.item(clothing, wearable.Shirt, "Tee")
	casual := f.outfit("Casual", body[wearable.Shape], body[wearable.Skin], body[wearable.Hair], body[wearable.Eyes], shirt)
	f.wear(casual, false)

	jacket := f.item(clothing, wearable.Jacket, "Blazer")
	f.m.AddItemLink(jacket, true)
	f.settle()
	require.True(t, f.m.IsOutfitDirty())

	require.NoError(t, f.m.UpdateBaseOutfit())
	assert.True(t, f.m.IsOutfitLocked())
	f.settle()

	assert.False(t, f.m.IsOutfitLocked())
	assert.False(t, f.m.IsOutfitDirty())
	assert.False(t, f.m.RecomputeDirty())

	_, saved := f.inv.CollectDescendants(casual, inventory.All, false)
	var linked []string
	for _, it := range saved {
		linked = append(linked, it.Name())
	}
	assert.ElementsMatch(t, []string{"My Shape", "My Skin", "My Hair", "My Eyes", "Tee", "Blazer"}, linked)
}

func TestUpdateBaseOutfit_Errors(t *testing.T) {
	f := newFixture(t)
	assert.True(t, IsNoBaseOutfit(f.m.UpdateBaseOutfit()))

	body := f.body()
	casual := f.outfit("Casual", body[wearable.Shape], body[wearable.Skin], body[wearable.Hair], body[wearable.Eyes])
	f.wear(casual, false)

	require.NoError(t, f.m.UpdateBaseOutfit())
	err := f.m.UpdateBaseOutfit()
	assert.Error(t, err, "a second save while the first is in flight is refused")
	f.settle()
	assert.NoError(t, f.m.UpdateBaseOutfit())
	f.settle()
}

func TestOutfitDigest_MatchesBaseOutfitUntilChanged(t *testing.T) {
	f := newFixture(t)
	body := f.body()
	clothing := f.folder(inventory.FolderClothing)
	shirt := f.item(clothing, wearable.Shirt, "Tee")
	casual := f.outfit("Casual", body[wearable.Shape], body[wearable.Skin], body[wearable.Hair], body[wearable.Eyes], shirt)
	f.wear(casual, false)

	cof, err := f.m.OutfitDigest(f.m.COF())
	require.NoError(t, err)
	base, err := f.m.OutfitDigest(casual)
	require.NoError(t, err)
	assert.Equal(t, base, cof)
	assert.Len(t, cof, 64)

	f.m.RemoveItemLinks(shirt, true)
	f.settle()

	changed, err := f.m.OutfitDigest(f.m.COF())
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)
	assert.True(t, f.m.IsOutfitDirty())
}

func TestRecomputeDirty_StrayRawItemInCOFIsDirty(t *testing.T) {
	f := newFixture(t)
	body := f.body()
	casual := f.outfit("Casual", body[wearable.Shape], body[wearable.Skin], body[wearable.Hair], body[wearable.Eyes])
	f.wear(casual, false)
	require.False(t, f.m.RecomputeDirty())

	f.item(f.m.COF(), wearable.Shirt, "Stray Shirt")

	assert.True(t, f.m.RecomputeDirty(), "a raw item in the COF is not part of the base outfit")
}
