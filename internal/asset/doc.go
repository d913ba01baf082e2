// Package asset resolves wearable asset ids to loaded payloads.
//
// Requests are answered from an expiring LRU cache when possible. Misses are
// queued to a bounded pool of fetch workers; concurrent requests for the same
// asset share one fetch. Completion callbacks are always posted back onto the
// caller's loop and never run on a worker goroutine. A failed fetch or a full
// queue completes the callback with a nil payload.
package asset
