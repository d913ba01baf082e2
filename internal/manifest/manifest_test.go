package manifest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/asset"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

func compile(t *testing.T, src string, mode LoadMode) (*Manifest, []error) {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("inline.cue"))
	require.NoError(t, v.Err())
	return Compile(v, mode)
}

func codes(errs []error) []string {
	var out []string
	for _, err := range errs {
		var le *LoadError
		if errors.As(err, &le) {
			out = append(out, le.Code)
		}
	}
	return out
}

func TestLoad_Basic(t *testing.T) {
	m, errs := Load("testdata/basic", LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, 2, m.FileCount)
	assert.Len(t, m.Items, 10)
	require.Len(t, m.Outfits, 2)
	assert.Equal(t, "Casual", m.Outfits[0].Name)
	assert.Equal(t, "Bare", m.Wear)

	hat, ok := m.Item("hat")
	require.True(t, ok)
	assert.Equal(t, "object", hat.Kind)
	tee, _ := m.Item("tee")
	assert.Equal(t, "wearable", tee.Kind, "kind defaults to wearable")
	assert.False(t, tee.Library)
}

func TestLoad_SchemaErrorsCarryPositions(t *testing.T) {
	_, errs := Load("testdata/broken", LoadModeCollectAll)
	require.NotEmpty(t, errs)

	var msgs []string
	positioned := false
	for _, err := range errs {
		var le *LoadError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, ErrCodeSchema, le.Code)
		positioned = positioned || le.Pos.IsValid()
		msgs = append(msgs, le.Error())
	}
	assert.True(t, positioned)
	assert.Contains(t, strings.Join(msgs, "\n"), "colour")
}

func TestLoad_NotFound(t *testing.T) {
	_, errs := Load("testdata/nope", LoadModeFailFast)
	assert.Equal(t, []string{ErrCodeNotFound}, codes(errs))

	_, errs = Load(t.TempDir(), LoadModeFailFast)
	assert.Equal(t, []string{ErrCodeNoFiles}, codes(errs))
}

func TestCompile_SemanticErrors(t *testing.T) {
	src := `
items: {
	blob: {name: "Blob"}
	tee: {name: "Tee", type: "shirt"}
}
outfits: Odd: items: ["tee", "ghost"]
`
	_, errs := compile(t, src, LoadModeCollectAll)
	assert.Equal(t, []string{ErrCodeMissingType, ErrCodeUnknownItem}, codes(errs))

	_, errs = compile(t, src, LoadModeFailFast)
	assert.Equal(t, []string{ErrCodeMissingType}, codes(errs))
}

func TestCompile_UnknownWear(t *testing.T) {
	_, errs := compile(t, `wear: "Gala"`, LoadModeCollectAll)
	assert.Equal(t, []string{ErrCodeUnknownWear}, codes(errs))
}

func TestBuild(t *testing.T) {
	m, errs := Load("testdata/basic", LoadModeCollectAll)
	require.Empty(t, errs)

	w, err := m.Build(ir.NewSequentialIDs())
	require.NoError(t, err)

	inv := inventory.NewModel()
	lib := asset.NewLibrary()
	require.NoError(t, w.Install(context.Background(), inv, lib))

	// Jeans are missing and hat, wave have no wearable payload.
	assert.Len(t, w.Assets, 7)

	vest, ok := inv.Item(w.Items["vest"])
	require.True(t, ok)
	summer, _ := inv.Category(vest.ParentID())
	assert.Equal(t, "Summer", summer.Name)
	assert.Equal(t, inv.FindCategoryForType(inventory.FolderClothing), summer.ParentID)

	starter, _ := inv.Item(w.Items["starter"])
	assert.Equal(t, inv.LibraryRoot(), starter.ParentID())

	shape, _ := inv.Item(w.Items["shape"])
	payload, err := lib.FetchWearable(context.Background(), shape.AssetID())
	require.NoError(t, err)
	assert.Equal(t, wearable.Shape, payload.Type)
	assert.Equal(t, 42, payload.Params["height"])

	jeans, _ := inv.Item(w.Items["jeans"])
	_, err = lib.FetchWearable(context.Background(), jeans.AssetID())
	assert.ErrorIs(t, err, asset.ErrNotFound)

	casual := w.Outfits["Casual"]
	cat, _ := inv.Category(casual)
	assert.Equal(t, inventory.FolderOutfit, cat.PreferredType)
	_, links := inv.DirectDescendants(casual)
	require.Len(t, links, 9)
	var shirtOrder []string
	for _, l := range links {
		require.True(t, l.IsLink())
		if l.WearableType() == wearable.Shirt {
			shirtOrder = append(shirtOrder, l.Description())
		}
	}
	assert.Equal(t, []string{"@400", "@401"}, shirtOrder)
}

func TestBuild_WornOutfitIsInCOF(t *testing.T) {
	m, errs := Load("testdata/basic", LoadModeCollectAll)
	require.Empty(t, errs)
	w, err := m.Build(ir.NewSequentialIDs())
	require.NoError(t, err)

	inv := inventory.NewModel()
	require.NoError(t, w.Install(context.Background(), inv, asset.NewLibrary()))

	_, cof := inv.DirectDescendants(inv.FindCategoryForType(inventory.FolderCurrentOutfit))
	require.Len(t, cof, 5)
	base := cof[4]
	assert.Equal(t, inventory.AssetLinkFolder, base.ActualType())
	assert.Equal(t, w.Outfits["Bare"], base.LinkedID())
}

func TestBuild_Deterministic(t *testing.T) {
	m, errs := Load("testdata/basic", LoadModeCollectAll)
	require.Empty(t, errs)

	a, err := m.Build(ir.NewSequentialIDs())
	require.NoError(t, err)
	b, err := m.Build(ir.NewSequentialIDs())
	require.NoError(t, err)
	assert.Equal(t, a.Nodes, b.Nodes)
}

func TestBuild_RejectsCOFFolder(t *testing.T) {
	m, errs := compile(t, `items: tee: {name: "Tee", type: "shirt", folder: "Current Outfit"}`, LoadModeCollectAll)
	require.Empty(t, errs)

	_, err := m.Build(nil)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeBadFolder, le.Code)
}
