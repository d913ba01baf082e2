package appearance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

func TestBuildOrderString(t *testing.T) {
	assert.Equal(t, "@0", BuildOrderString(wearable.Shape, 0))
	assert.Equal(t, "@3", BuildOrderString(wearable.Shape, 3))
	assert.Equal(t, "@400", BuildOrderString(wearable.Shirt, 0))
	assert.Equal(t, "@412", BuildOrderString(wearable.Shirt, 12))
	assert.Equal(t, "@1400", BuildOrderString(wearable.Tattoo, 0))
}

func TestValidOrderString(t *testing.T) {
	tests := []struct {
		name string
		t    wearable.Type
		desc string
		want bool
	}{
		{"first shirt layer", wearable.Shirt, "@400", true},
		{"later shirt layer", wearable.Shirt, "@417", true},
		{"too short", wearable.Shirt, "@40", false},
		{"too long", wearable.Shirt, "@4000", false},
		{"no separator", wearable.Shirt, "x400", false},
		{"empty", wearable.Shirt, "", false},
		{"single digit slot", wearable.Shape, "@1", true},
		{"free text", wearable.Jacket, "my favourite", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidOrderString(tt.t, tt.desc))
		})
	}
}

func TestUpdateClothingOrderingInfo_NormalisesOnce(t *testing.T) {
	f := newFixture(t)
	clothing := f.folder(inventory.FolderClothing)
	cof := f.m.COF()
	shirtA := f.link(f.item(clothing, wearable.Shirt, "A"), cof, "")
	shirtB := f.link(f.item(clothing, wearable.Shirt, "B"), cof, "@400")
	pants := f.link(f.item(clothing, wearable.Pants, "P"), cof, "junk")

	writes := 0
	f.inv.AddObserver(func(mask inventory.ChangeMask, _ []ir.ID) {
		if mask&inventory.ChangeDescription != 0 {
			writes++
		}
	})

	assert.True(t, f.m.UpdateClothingOrderingInfo(ir.NilID))
	assert.Equal(t, "@401", f.description(shirtA), "invalid descriptions sink below valid ones")
	assert.Equal(t, "@400", f.description(shirtB))
	assert.Equal(t, "@500", f.description(pants))
	assert.Equal(t, 2, writes)

	assert.False(t, f.m.UpdateClothingOrderingInfo(ir.NilID), "a second pass has nothing to do")
	assert.Equal(t, 2, writes)
}

func TestUpdateClothingOrderingInfo_CompactsGaps(t *testing.T) {
	f := newFixture(t)
	clothing := f.folder(inventory.FolderClothing)
	cof := f.m.COF()
	outer := f.link(f.item(clothing, wearable.Jacket, "Outer"), cof, "@809")
	inner := f.link(f.item(clothing, wearable.Jacket, "Inner"), cof, "@803")

	assert.True(t, f.m.UpdateClothingOrderingInfo(ir.NilID))
	assert.Equal(t, "@800", f.description(inner))
	assert.Equal(t, "@801", f.description(outer))
}

func TestMoveWearable(t *testing.T) {
	f := newFixture(t)
	clothing := f.folder(inventory.FolderClothing)
	cof := f.m.COF()
	a := f.link(f.item(clothing, wearable.Shirt, "A"), cof, "@400")
	b := f.link(f.item(clothing, wearable.Shirt, "B"), cof, "@401")
	f.m.SetOutfitDirty(false)

	require.True(t, f.m.MoveWearable(b, true))
	assert.Equal(t, "@401", f.description(a))
	assert.Equal(t, "@400", f.description(b))
	assert.True(t, f.m.IsOutfitDirty())

	assert.False(t, f.m.MoveWearable(b, true), "already closest to the body")
	assert.False(t, f.m.MoveWearable(a, false), "already outermost")
	assert.True(t, f.m.MoveWearable(a, true))
	assert.Equal(t, "@400", f.description(a))
}

func TestMoveWearable_Refusals(t *testing.T) {
	f := newFixture(t)
	clothing := f.folder(inventory.FolderClothing)
	loose := f.item(clothing, wearable.Shirt, "Loose")
	shape := f.item(f.folder(inventory.FolderBodyParts), wearable.Shape, "Shape")
	shapeLink := f.link(shape, f.m.COF(), "")

	assert.False(t, f.m.MoveWearable(loose, true), "not in the current outfit")
	assert.False(t, f.m.MoveWearable(shapeLink, true), "body parts have no layers")
	assert.False(t, f.m.MoveWearable(ir.SequentialID(9999), true))
}

func (f *fixture) description(id ir.ID) string {
	f.t.Helper()
	n, ok := f.inv.Get(id)
	require.True(f.t, ok)
	return n.Description
}
