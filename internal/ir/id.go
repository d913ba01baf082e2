package ir

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ID identifies an inventory node or a wearable asset.
type ID = uuid.UUID

// NilID is the zero ID. It never names a live node.
var NilID = uuid.Nil

// ParseID parses the hyphenated string form of an ID.
func ParseID(s string) (ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return NilID, fmt.Errorf("parse id %q: %w", s, err)
	}
	return id, nil
}

// CompareIDs orders IDs by their string form, matching how the inventory
// sorts linked targets.
func CompareIDs(a, b ID) int {
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

// IDGenerator produces fresh IDs for new nodes and synthesized assets.
type IDGenerator interface {
	NewID() ID
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// Safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns a new UUIDv7. Panics if the random source fails.
func (UUIDv7Generator) NewID() ID {
	return uuid.Must(uuid.NewV7())
}

// SequentialIDs hands out predictable IDs for tests and golden traces:
// 00000000-0000-0000-0000-000000000001, ...002, and so on.
//
// Safe for concurrent use.
type SequentialIDs struct {
	mu   sync.Mutex
	next uint64
}

// NewSequentialIDs returns a generator whose first ID ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{}
}

// NewID returns the next ID in sequence.
func (g *SequentialIDs) NewID() ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return SequentialID(g.next)
}

// SequentialID builds the n-th sequential ID.
func SequentialID(n uint64) ID {
	var id ID
	for i := 15; i >= 8 && n > 0; i-- {
		id[i] = byte(n)
		n >>= 8
	}
	return id
}
