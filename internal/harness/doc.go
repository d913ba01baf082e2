// Package harness runs appearance scenarios against a real appearance
// manager and checks the resulting trace and final state.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: wear_casual
//	description: "Wearing an outfit replaces the worn set"
//	manifest: ../manifests/basic      # CUE manifest dir, relative to the file
//	options:
//	  max_clothing_layers: 2
//	withhold: [jeans]                 # assets that only arrive on release
//	flow:
//	  - action: wear
//	    args: { outfit: Casual, append: false }
//	  - action: save
//	    expect: { error: NO_BASE_OUTFIT }
//	assertions:
//	  - type: trace_contains
//	    event: worn
//	    args: { replace: true }
//	  - type: final_state
//	    state: outfit
//	    expect: { name: Casual, dirty: false }
//
// # Actions
//
// wear, wear_by_name, wear_item, wear_base, add, remove, remove_type, move,
// save, save_as, update, attach, detach, link_attachments, release, fail,
// advance (args: { by: 61s }) and shutdown. Item arguments name manifest
// item keys. A step that fails records {error: CODE} as its completion.
//
// # Assertion Types
//
//   - trace_contains: an event, notice or invocation with matching args
//   - trace_order: events appear in the given order
//   - trace_count: an event appears exactly N times
//   - final_state: a state snapshot (avatar, outfit, cof, run) matches
//
// # Deterministic Testing
//
// Every scenario gets sequential ids, a logical clock shared by the flow and
// the avatar, and a fake wall clock that only moves on advance. Asset
// requests are answered from the manifest's assets between loop ticks, so
// two runs of one scenario produce the same trace.
package harness
