package wearable

import (
	"fmt"
	"strings"
)

// Type is a wearable slot. The numeric order is significant: it drives the
// order in which worn wearables are applied and the order strings written into
// clothing link descriptions.
type Type int

const (
	Shape Type = iota
	Skin
	Hair
	Eyes
	Shirt
	Pants
	Shoes
	Socks
	Jacket
	Gloves
	Undershirt
	Underpants
	Skirt
	Alpha
	Tattoo
	Invalid
)

// Count is the number of valid wearable types.
const Count = int(Invalid)

type entry struct {
	name     string
	label    string
	newName  string
	bodyPart bool
}

var dictionary = [...]entry{
	Shape:      {"shape", "Shape", "New Shape", true},
	Skin:       {"skin", "Skin", "New Skin", true},
	Hair:       {"hair", "Hair", "New Hair", true},
	Eyes:       {"eyes", "Eyes", "New Eyes", true},
	Shirt:      {"shirt", "Shirt", "New Shirt", false},
	Pants:      {"pants", "Pants", "New Pants", false},
	Shoes:      {"shoes", "Shoes", "New Shoes", false},
	Socks:      {"socks", "Socks", "New Socks", false},
	Jacket:     {"jacket", "Jacket", "New Jacket", false},
	Gloves:     {"gloves", "Gloves", "New Gloves", false},
	Undershirt: {"undershirt", "Undershirt", "New Undershirt", false},
	Underpants: {"underpants", "Underpants", "New Underpants", false},
	Skirt:      {"skirt", "Skirt", "New Skirt", false},
	Alpha:      {"alpha", "Alpha", "New Alpha", false},
	Tattoo:     {"tattoo", "Tattoo", "New Tattoo", false},
	Invalid:    {"invalid", "Invalid", "Invalid Wearable", false},
}

// Valid reports whether t names a real slot.
func (t Type) Valid() bool {
	return t >= Shape && t < Invalid
}

func (t Type) lookup() entry {
	if !t.Valid() {
		return dictionary[Invalid]
	}
	return dictionary[t]
}

// String returns the lowercase dictionary name ("shape", "shirt", ...).
func (t Type) String() string {
	return t.lookup().name
}

// Label returns the capitalised display name.
func (t Type) Label() string {
	return t.lookup().label
}

// DefaultNewName is the name given to a freshly synthesised wearable of this type.
func (t Type) DefaultNewName() string {
	return t.lookup().newName
}

// IsBodyPart reports whether t is one of the four mandatory slots.
func (t Type) IsBodyPart() bool {
	return t.Valid() && dictionary[t].bodyPart
}

// IsClothing reports whether t is a layerable clothing slot.
func (t Type) IsClothing() bool {
	return t.Valid() && !dictionary[t].bodyPart
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid wearable type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType maps a dictionary name (case-insensitive) to its Type.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t := Shape; t < Invalid; t++ {
		if dictionary[t].name == name {
			return t, nil
		}
	}
	return Invalid, fmt.Errorf("unknown wearable type %q", name)
}

// Types returns every valid type in slot order.
func Types() []Type {
	out := make([]Type, 0, Count)
	for t := Shape; t < Invalid; t++ {
		out = append(out, t)
	}
	return out
}

// BodyParts returns the mandatory slots in slot order.
func BodyParts() []Type {
	return []Type{Shape, Skin, Hair, Eyes}
}

// ClothingTypes returns the layerable slots in slot order.
func ClothingTypes() []Type {
	return Types()[len(BodyParts()):]
}
