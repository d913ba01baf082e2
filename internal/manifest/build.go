package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/wardrobe/internal/appearance"
	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Storer receives the wearable assets of a built wardrobe.
// asset.Library and store.Store implement it.
type Storer interface {
	PutWearable(ctx context.Context, w *wearable.Wearable) error
}

// Wardrobe is a built manifest: a bootstrapped inventory tree and the assets
// its wearables point at.
type Wardrobe struct {
	Nodes   []inventory.Node
	Assets  []*wearable.Wearable
	Items   map[string]ir.ID
	Outfits map[string]ir.ID
}

// Build lays the manifest out as an inventory. Items go into their folder
// (creating plain folders along the path), outfits become outfit folders of
// links under My Outfits with clothing numbered in list order, and the worn
// outfit is linked into the Current Outfit folder together with its base
// outfit link.
func (m *Manifest) Build(ids ir.IDGenerator) (*Wardrobe, error) {
	if ids == nil {
		ids = ir.UUIDv7Generator{}
	}
	inv := inventory.NewModel(inventory.WithIDGenerator(ids))
	inv.Bootstrap()

	w := &Wardrobe{
		Items:   make(map[string]ir.ID, len(m.Items)),
		Outfits: make(map[string]ir.ID, len(m.Outfits)),
	}
	for _, it := range m.Items {
		id, asset, err := buildItem(inv, ids, it)
		if err != nil {
			return nil, err
		}
		w.Items[it.Key] = id
		if asset != nil {
			w.Assets = append(w.Assets, asset)
		}
	}

	outfits := inv.FindCategoryForType(inventory.FolderMyOutfits)
	for _, o := range m.Outfits {
		folder, err := inv.CreateCategory(outfits, inventory.FolderOutfit, o.Name)
		if err != nil {
			return nil, err
		}
		if err := linkOutfit(inv, folder, o, w.Items); err != nil {
			return nil, err
		}
		w.Outfits[o.Name] = folder
	}

	if m.Wear != "" {
		cof := inv.FindCategoryForType(inventory.FolderCurrentOutfit)
		for _, o := range m.Outfits {
			if o.Name != m.Wear {
				continue
			}
			if err := linkOutfit(inv, cof, o, w.Items); err != nil {
				return nil, err
			}
			if _, err := link(inv, w.Outfits[o.Name], cof, ""); err != nil {
				return nil, err
			}
		}
	}

	w.Nodes = inv.Nodes()
	return w, nil
}

// Install loads the wardrobe into inv and stores its assets.
func (w *Wardrobe) Install(ctx context.Context, inv *inventory.Model, assets Storer) error {
	for _, a := range w.Assets {
		if err := assets.PutWearable(ctx, a); err != nil {
			return fmt.Errorf("install asset %q: %w", a.Name, err)
		}
	}
	if err := inv.Load(w.Nodes); err != nil {
		return fmt.Errorf("install inventory: %w", err)
	}
	return nil
}

func buildItem(inv *inventory.Model, ids ir.IDGenerator, it Item) (ir.ID, *wearable.Wearable, error) {
	proto := inventory.Node{
		Name:         it.Name,
		Description:  it.Description,
		AssetID:      ids.NewID(),
		WearableType: wearable.Invalid,
	}
	var asset *wearable.Wearable
	switch it.Kind {
	case "wearable":
		t, err := wearable.ParseType(it.Type)
		if err != nil {
			return ir.NilID, nil, &LoadError{Code: ErrCodeMissingType, Message: fmt.Sprintf("item %q: %v", it.Key, err), Pos: it.Pos}
		}
		proto.AssetType = inventory.AssetTypeFor(t)
		proto.WearableType = t
		if !it.Missing {
			claimed := t
			if it.Claims != "" {
				if claimed, err = wearable.ParseType(it.Claims); err != nil {
					return ir.NilID, nil, &LoadError{Code: ErrCodeSchema, Message: fmt.Sprintf("item %q: %v", it.Key, err), Pos: it.Pos}
				}
			}
			asset = &wearable.Wearable{
				AssetID:     proto.AssetID,
				Type:        claimed,
				Name:        it.Name,
				Description: it.Description,
				Params:      it.Params,
			}
			if asset.Params == nil {
				asset.Params = map[string]int{}
			}
		}
	case "object":
		proto.AssetType = inventory.AssetObject
	case "gesture":
		proto.AssetType = inventory.AssetGesture
	default:
		proto.AssetType = inventory.AssetNotecard
	}

	parent, err := folderFor(inv, it, proto.AssetType)
	if err != nil {
		return ir.NilID, nil, err
	}
	var id ir.ID
	inv.CreateItem(parent, proto, func(got ir.ID, cbErr error) {
		id, err = got, cbErr
	})
	if err != nil {
		return ir.NilID, nil, fmt.Errorf("create item %q: %w", it.Key, err)
	}
	return id, asset, nil
}

// folderFor resolves an item's folder path, creating missing folders.
func folderFor(inv *inventory.Model, it Item, at inventory.AssetType) (ir.ID, error) {
	base := inv.Root()
	if it.Library {
		base = inv.LibraryRoot()
	}
	if it.Folder == "" {
		if it.Library {
			return base, nil
		}
		switch at {
		case inventory.AssetClothing:
			return inv.FindCategoryForType(inventory.FolderClothing), nil
		case inventory.AssetBodyPart:
			return inv.FindCategoryForType(inventory.FolderBodyParts), nil
		case inventory.AssetObject:
			return inv.FindCategoryForType(inventory.FolderObjects), nil
		case inventory.AssetGesture:
			return inv.FindCategoryForType(inventory.FolderGestures), nil
		}
		return base, nil
	}

	parent := base
	for _, seg := range strings.Split(strings.Trim(it.Folder, "/"), "/") {
		if seg == "" {
			return ir.NilID, &LoadError{Code: ErrCodeBadFolder, Message: fmt.Sprintf("item %q: empty segment in folder %q", it.Key, it.Folder), Pos: it.Pos}
		}
		next := ir.NilID
		cats, _ := inv.DirectDescendants(parent)
		for _, c := range cats {
			if c.Name == seg {
				next = c.ID
				break
			}
		}
		if next == ir.NilID {
			id, err := inv.CreateCategory(parent, inventory.FolderNone, seg)
			if err != nil {
				return ir.NilID, err
			}
			next = id
		}
		if cat, _ := inv.Category(next); cat.PreferredType == inventory.FolderCurrentOutfit {
			return ir.NilID, &LoadError{Code: ErrCodeBadFolder, Message: fmt.Sprintf("item %q: items cannot live in the current outfit folder", it.Key), Pos: it.Pos}
		}
		parent = next
	}
	return parent, nil
}

// linkOutfit links the outfit's items into folder, numbering clothing
// layers per slot in list order.
func linkOutfit(inv *inventory.Model, folder ir.ID, o Outfit, items map[string]ir.ID) error {
	layers := make(map[wearable.Type]int)
	for _, key := range o.Items {
		target, ok := items[key]
		if !ok {
			return &LoadError{Code: ErrCodeUnknownItem, Message: fmt.Sprintf("outfit %q: unknown item %q", o.Name, key), Pos: o.Pos}
		}
		desc := ""
		if it, ok := inv.Item(target); ok && it.Type() == inventory.AssetClothing {
			t := it.WearableType()
			desc = appearance.BuildOrderString(t, layers[t])
			layers[t]++
		}
		if _, err := link(inv, target, folder, desc); err != nil {
			return fmt.Errorf("outfit %q: %w", o.Name, err)
		}
	}
	return nil
}

func link(inv *inventory.Model, target, parent ir.ID, desc string) (ir.ID, error) {
	var id ir.ID
	var err error
	inv.LinkItem(target, parent, desc, func(got ir.ID, cbErr error) {
		id, err = got, cbErr
	})
	return id, err
}
