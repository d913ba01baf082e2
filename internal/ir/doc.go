// Package ir holds the identity and serialization primitives shared by every
// wardrobe package.
//
// ir imports nothing internal. It provides:
//   - ID: the UUID identity of inventory nodes and wearable assets
//   - IDGenerator implementations (UUIDv7 for production, sequential for tests)
//   - Value: a small sealed value model used for traces and digests
//   - MarshalCanonical: RFC 8785 canonical JSON (sorted keys, NFC strings, no floats)
//   - Digest: domain-separated SHA-256 over canonical JSON
package ir
