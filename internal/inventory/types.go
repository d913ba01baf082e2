package inventory

import (
	"fmt"
	"strings"

	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// Kind discriminates inventory nodes.
type Kind int

const (
	KindCategory Kind = iota + 1
	KindItem
	KindLink       // link to an item
	KindFolderLink // link to a category
)

func (k Kind) String() string {
	switch k {
	case KindCategory:
		return "category"
	case KindItem:
		return "item"
	case KindLink:
		return "link"
	case KindFolderLink:
		return "folder_link"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindCategory; k <= KindFolderLink; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

// AssetType is the content type of an item. Links report AssetLink or
// AssetLinkFolder as their actual type and their target's type as the
// effective type.
type AssetType int

const (
	AssetNone AssetType = iota
	AssetClothing
	AssetBodyPart
	AssetObject
	AssetGesture
	AssetNotecard
	AssetLink
	AssetLinkFolder
	AssetCategory
)

var assetTypeNames = map[AssetType]string{
	AssetNone:       "none",
	AssetClothing:   "clothing",
	AssetBodyPart:   "bodypart",
	AssetObject:     "object",
	AssetGesture:    "gesture",
	AssetNotecard:   "notecard",
	AssetLink:       "link",
	AssetLinkFolder: "link_folder",
	AssetCategory:   "category",
}

func (a AssetType) String() string {
	if s, ok := assetTypeNames[a]; ok {
		return s
	}
	return fmt.Sprintf("asset(%d)", int(a))
}

// ParseAssetType maps a name such as "object" to its AssetType.
func ParseAssetType(s string) (AssetType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for at, name := range assetTypeNames {
		if name == s {
			return at, nil
		}
	}
	return AssetNone, fmt.Errorf("unknown asset type %q", s)
}

// IsWearable reports whether items of this type carry a wearable.Type.
func (a AssetType) IsWearable() bool {
	return a == AssetClothing || a == AssetBodyPart
}

// AssetTypeFor returns the asset type items of wearable type wt are stored as.
func AssetTypeFor(wt wearable.Type) AssetType {
	switch {
	case wt.IsBodyPart():
		return AssetBodyPart
	case wt.IsClothing():
		return AssetClothing
	}
	return AssetNone
}

// FolderType tags system folders and saved outfits.
type FolderType int

const (
	FolderNone FolderType = iota
	FolderRoot
	FolderCurrentOutfit
	FolderMyOutfits
	FolderOutfit
	FolderLostAndFound
	FolderClothing
	FolderBodyParts
	FolderObjects
	FolderGestures
	FolderTrash
	FolderLibrary
)

var folderTypeNames = map[FolderType]string{
	FolderNone:          "none",
	FolderRoot:          "root",
	FolderCurrentOutfit: "current_outfit",
	FolderMyOutfits:     "my_outfits",
	FolderOutfit:        "outfit",
	FolderLostAndFound:  "lost_and_found",
	FolderClothing:      "clothing",
	FolderBodyParts:     "bodyparts",
	FolderObjects:       "objects",
	FolderGestures:      "gestures",
	FolderTrash:         "trash",
	FolderLibrary:       "library",
}

func (f FolderType) String() string {
	if s, ok := folderTypeNames[f]; ok {
		return s
	}
	return fmt.Sprintf("folder(%d)", int(f))
}

// ParseFolderType maps a name such as "outfit" to its FolderType.
func ParseFolderType(s string) (FolderType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for ft, name := range folderTypeNames {
		if name == s {
			return ft, nil
		}
	}
	return FolderNone, fmt.Errorf("unknown folder type %q", s)
}

// systemFolders are created under the root by Bootstrap, in this order.
var systemFolders = []struct {
	Type FolderType
	Name string
}{
	{FolderCurrentOutfit, "Current Outfit"},
	{FolderMyOutfits, "My Outfits"},
	{FolderLostAndFound, "Lost And Found"},
	{FolderClothing, "Clothing"},
	{FolderBodyParts, "Body Parts"},
	{FolderObjects, "Objects"},
	{FolderGestures, "Gestures"},
	{FolderTrash, "Trash"},
}

// DefaultFolderName is the name used when a system folder has to be created.
func DefaultFolderName(ft FolderType) string {
	switch ft {
	case FolderRoot:
		return "My Inventory"
	case FolderLibrary:
		return "Library"
	case FolderOutfit:
		return "New Outfit"
	}
	for _, sf := range systemFolders {
		if sf.Type == ft {
			return sf.Name
		}
	}
	return "New Folder"
}

// Node is one entry in the tree. Which fields are meaningful depends on Kind:
// categories use PreferredType; items use AssetType, AssetID and WearableType;
// links use LinkedID.
type Node struct {
	ID            ir.ID
	ParentID      ir.ID
	Kind          Kind
	Name          string
	Description   string
	PreferredType FolderType
	AssetType     AssetType
	AssetID       ir.ID
	WearableType  wearable.Type
	LinkedID      ir.ID
}

// IsCategory reports whether the node is a folder.
func (n Node) IsCategory() bool {
	return n.Kind == KindCategory
}

// IsLink reports whether the node is a link of either flavour.
func (n Node) IsLink() bool {
	return n.Kind == KindLink || n.Kind == KindFolderLink
}
