package wearable

import "github.com/roach88/wardrobe/internal/ir"

// Wearable is a resolved wearable asset. Its Type is what the asset itself
// claims to be, which may disagree with the inventory link pointing at it.
type Wearable struct {
	AssetID     ir.ID
	Type        Type
	Name        string
	Description string
	// Params holds visual parameters (sliders, colours). Opaque to this module.
	Params map[string]int
}

// NewDefault synthesises the default payload for t under a fresh asset id.
// It is what recovery puts on an avatar that lost a mandatory body part.
func NewDefault(t Type, assetID ir.ID) *Wearable {
	return &Wearable{
		AssetID: assetID,
		Type:    t,
		Name:    t.DefaultNewName(),
		Params:  map[string]int{},
	}
}

// Clone returns a deep copy so cached payloads are never shared mutably.
func (w *Wearable) Clone() *Wearable {
	if w == nil {
		return nil
	}
	c := *w
	if w.Params != nil {
		c.Params = make(map[string]int, len(w.Params))
		for k, v := range w.Params {
			c.Params[k] = v
		}
	}
	return &c
}

// Worn pairs the inventory item a wearable was resolved from with its payload.
type Worn struct {
	ItemID   ir.ID
	Name     string
	Wearable *Wearable
}
