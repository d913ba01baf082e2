// Package inventory is an in-memory inventory tree: folders (categories),
// items, and links to either.
//
// Nodes are a tagged variant discriminated by Kind. Links never own content;
// the Item view resolves a link to its target so callers can ask for the
// effective asset type, wearable type and asset id without caring whether
// they hold the item or a link to it.
//
// Mutations that would round-trip to an inventory server in a real client
// (CreateItem, LinkItem, CopyItem) complete asynchronously: the change is
// applied and the Callback invoked from a task posted to the Dispatcher.
// Structural changes fan out to observers after the model lock is released.
package inventory
