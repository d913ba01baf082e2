// Package wearable defines the closed set of wearable slots an avatar can fill
// and the payload a resolved wearable asset carries.
//
// Body parts (shape, skin, hair, eyes) are mandatory: an avatar always wears
// exactly one of each. Clothing types may be layered; the number of layers per
// type is a policy decided by the appearance package.
package wearable
