package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/engine"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

func worn(n uint64, t wearable.Type, name string) wearable.Worn {
	return wearable.Worn{
		ItemID:   ir.SequentialID(n),
		Name:     name,
		Wearable: &wearable.Wearable{AssetID: ir.SequentialID(1000 + n), Type: t, Name: name},
	}
}

func object(n uint64, name string) inventory.Item {
	return inventory.Item{Node: inventory.Node{ID: ir.SequentialID(n), Kind: inventory.KindItem, Name: name, AssetType: inventory.AssetObject}}
}

func TestSetWornWearablesReplaceVersusAdditive(t *testing.T) {
	a := New()
	assert.False(t, a.AreWearablesLoaded())

	a.SetWornWearables([]wearable.Worn{
		worn(1, wearable.Shape, "Shape"),
		worn(2, wearable.Shirt, "Shirt"),
	}, true)
	assert.True(t, a.AreWearablesLoaded())
	assert.True(t, a.IsWearingItem(ir.SequentialID(2)))

	a.SetWornWearables([]wearable.Worn{worn(3, wearable.Pants, "Pants")}, false)
	assert.True(t, a.IsWearingItem(ir.SequentialID(2)), "additive update keeps other slots")
	assert.True(t, a.IsWearingItem(ir.SequentialID(3)))

	a.SetWornWearables([]wearable.Worn{worn(4, wearable.Shape, "Other Shape")}, true)
	assert.False(t, a.IsWearingItem(ir.SequentialID(2)))
	require.Len(t, a.Worn(), 1)
	assert.Equal(t, "Other Shape", a.Worn()[0].Name)
}

func TestWornIsInSlotOrderWithLayersPreserved(t *testing.T) {
	a := New()
	a.SetWornWearables([]wearable.Worn{
		worn(1, wearable.Shirt, "Inner"),
		worn(2, wearable.Shape, "Shape"),
		worn(3, wearable.Shirt, "Outer"),
	}, true)

	var got []string
	for _, w := range a.Worn() {
		got = append(got, w.Name)
	}
	assert.Equal(t, []string{"Shape", "Inner", "Outer"}, got)
	assert.Len(t, a.WornOfType(wearable.Shirt), 2)
}

func TestSetAttachmentsIsExactSet(t *testing.T) {
	a := New()
	a.SetAttachments([]inventory.Item{object(1, "A"), object(2, "B")})
	a.SetAttachments([]inventory.Item{object(2, "B"), object(3, "C")})

	assert.Equal(t, []string{"B", "C"}, a.Attachments())
	assert.False(t, a.IsWearingAttachment(ir.SequentialID(1)))

	events := a.Events()
	last := events[len(events)-1]
	assert.Equal(t, EventAttachments, last.Kind)
	assert.Equal(t, ir.Array{ir.String("C")}, last.Data["added"])
	assert.Equal(t, ir.Array{ir.String("A")}, last.Data["removed"])
}

func TestAttachAddsOrReplaces(t *testing.T) {
	a := New()
	a.Attach(object(1, "Hat"), false)
	a.Attach(object(2, "Cane"), false)
	assert.Equal(t, []string{"Hat", "Cane"}, a.Attachments())

	a.Attach(object(3, "Wings"), true)
	assert.Equal(t, []string{"Wings"}, a.Attachments())
}

func TestGestures(t *testing.T) {
	a := New()
	wave := inventory.Item{Node: inventory.Node{ID: ir.SequentialID(5), Kind: inventory.KindItem, Name: "Wave", AssetType: inventory.AssetGesture}}

	a.ActivateGestures([]inventory.Item{wave, wave})
	assert.True(t, a.IsGestureActive(ir.SequentialID(5)))
	assert.Equal(t, []string{"Wave"}, a.ActiveGestures())

	a.DeactivateGesture(ir.SequentialID(5))
	assert.False(t, a.IsGestureActive(ir.SequentialID(5)))

	n := len(a.Events())
	a.DeactivateGesture(ir.SequentialID(5))
	assert.Len(t, a.Events(), n, "deactivating an inactive gesture records nothing")
}

func TestEventsUseSharedClockAndHook(t *testing.T) {
	clock := engine.NewClockAt(10)
	var hooked []int64
	a := New(WithClock(clock), WithHook(func(ev Event) { hooked = append(hooked, ev.Seq) }), WithLoaded(true))
	assert.True(t, a.AreWearablesLoaded())

	a.SetAttachments(nil)
	a.SetWornWearables(nil, true)

	assert.Equal(t, []int64{11, 12}, hooked)
	assert.EqualValues(t, 12, clock.Current())
}
