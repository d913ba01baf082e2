// Package store provides SQLite-backed persistence for the wardrobe CLI.
//
// Three tables:
//   - nodes: the inventory tree, rewritten wholesale on save
//   - wearable_assets: the asset library fetch workers read from
//   - appearance_events: append-only log of what the avatar sink was told
//
// # Critical Patterns
//
// Logical Time:
//   - appearance_events is keyed by seq from engine.Clock, NEVER timestamps
//   - ReadEvents always orders by seq ASC
//
// Idempotent Writes:
//   - PutWearable upserts; AppendEvent ignores a repeated seq
//
// Canonical Payloads:
//   - params and payload columns hold RFC 8785 canonical JSON from ir
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
