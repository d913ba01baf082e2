package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep digests of different kinds from colliding.
const (
	DomainOutfit = "wardrobe/outfit/v1"
	DomainTrace  = "wardrobe/trace/v1"
)

// Digest computes SHA256(domain || 0x00 || canonical(v)) as lowercase hex.
func Digest(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// OutfitEntry is one link of an outfit as seen by digest and comparison code:
// the linked target and the order-encoding description.
type OutfitEntry struct {
	LinkedID    ID
	Description string
}

// OutfitDigest fingerprints a set of outfit entries. The entries must already
// be in a canonical order; the digest is order-sensitive.
func OutfitDigest(entries []OutfitEntry) (string, error) {
	arr := make(Array, len(entries))
	for i, e := range entries {
		arr[i] = Object{
			"linked_id":   String(e.LinkedID.String()),
			"description": String(e.Description),
		}
	}
	return Digest(DomainOutfit, arr)
}
