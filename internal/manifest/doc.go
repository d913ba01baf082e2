// Package manifest compiles CUE wardrobe manifests into an inventory tree
// and the wearable assets behind it.
//
// A manifest declares items keyed by a short name, outfits as lists of
// those keys, and optionally the outfit being worn:
//
//	items: {
//		shape: {name: "My Shape", type: "shape"}
//		tee:   {name: "Tee", type: "shirt"}
//		hat:   {name: "Hat", kind: "object"}
//	}
//	outfits: Casual: items: ["shape", "tee", "hat"]
//	wear: "Casual"
//
// Every file is unified with the embedded #Manifest schema before it is
// compiled, so unknown fields and bad wearable types are reported with their
// source position.
package manifest
