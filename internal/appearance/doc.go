// Package appearance keeps the avatar's worn state in step with the Current
// Outfit folder.
//
// The Current Outfit folder (COF) is a system folder of links. It is the
// persisted truth of what the avatar wears: body-part and clothing links,
// attachment links, gesture links, and at most one folder link naming the
// base outfit the current look was loaded from. The Manager owns three jobs:
//
//   - Reconcile rebuilds the COF from a target folder, merging or replacing
//     by category (body parts always merge, one per slot).
//   - UpdateAppearanceFromCOF resolves every wearable link to its asset
//     through the holding pattern (see Run), synthesises defaults for slots
//     that never resolved, and pushes the result to the Sink.
//   - Dirty tracking compares the COF against its base outfit.
//
// All work happens on the owner's event loop. Inventory and asset
// completions are posted back to that loop, and polls registered with the
// Scheduler drive timeouts, so none of the Manager's state is locked.
package appearance
