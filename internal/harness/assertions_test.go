package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/ir"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventInvocation, Name: "wear", Args: ir.Object{"outfit": ir.String("Casual")}, Seq: 1},
		{Type: EventNotice, Name: "ReplacedMissingWearable", Args: ir.Object{"type": ir.String("Pants")}, Seq: 2},
		{Type: EventSink, Name: "worn", Args: ir.Object{
			"replace":   ir.Bool(true),
			"wearables": ir.Array{ir.String("shape:My Shape"), ir.String("shirt:Tee")},
		}, Seq: 3},
		{Type: EventSink, Name: "attachments", Args: ir.Object{"items": ir.Array{ir.String("Hat")}}, Seq: 4},
		{Type: EventCompletion, Name: "wear", Result: ir.Object{"ok": ir.Bool(true)}, Seq: 5},
		{Type: EventInvocation, Name: "update", Args: ir.Object{}, Seq: 6},
		{Type: EventSink, Name: "worn", Args: ir.Object{"replace": ir.Bool(true)}, Seq: 7},
		{Type: EventCompletion, Name: "update", Result: ir.Object{"ok": ir.Bool(true)}, Seq: 8},
	}
}

func TestAssertTraceContains(t *testing.T) {
	tests := []struct {
		name  string
		event string
		args  map[string]interface{}
		found bool
	}{
		{"name only", "worn", nil, true},
		{"subset args", "worn", map[string]interface{}{"replace": true}, true},
		{"nested array", "worn", map[string]interface{}{"wearables": []interface{}{"shape:My Shape", "shirt:Tee"}}, true},
		{"array must match fully", "worn", map[string]interface{}{"wearables": []interface{}{"shape:My Shape"}}, false},
		{"wrong value", "worn", map[string]interface{}{"replace": false}, false},
		{"notice", "ReplacedMissingWearable", map[string]interface{}{"type": "Pants"}, true},
		{"invocation", "wear", map[string]interface{}{"outfit": "Casual"}, true},
		{"missing key", "attachments", map[string]interface{}{"added": []interface{}{}}, false},
		{"absent event", "gestures_activated", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceContains(sampleTrace(), Assertion{Type: AssertTraceContains, Event: tt.event, Args: tt.args})
			if tt.found {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ae *AssertionError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, AssertTraceContains, ae.Type)
		})
	}
}

func TestAssertTraceOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceOrder(trace, Assertion{Events: []string{"wear", "worn", "attachments"}}))
	assert.NoError(t, assertTraceOrder(trace, Assertion{Events: []string{"wear", "update"}}))

	err := assertTraceOrder(trace, Assertion{Events: []string{"attachments", "worn"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "should be before")

	err = assertTraceOrder(trace, Assertion{Events: []string{"wear", "attach"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing event: attach")
}

func TestAssertTraceCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "worn", Count: 2}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "update", Count: 1}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "attach", Count: 0}))

	err := assertTraceCount(trace, Assertion{Event: "worn", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 occurrences")
}

func TestAssertFinalState(t *testing.T) {
	state := map[string]ir.Object{
		"outfit": {"name": ir.String("Casual"), "dirty": ir.Bool(false), "locked": ir.Bool(false)},
		"avatar": {"attachments": ir.Array{ir.String("Hat")}},
	}

	assert.NoError(t, assertFinalState(state, Assertion{State: "outfit", Expect: map[string]interface{}{"name": "Casual"}}))
	assert.NoError(t, assertFinalState(state, Assertion{State: "avatar", Expect: map[string]interface{}{"attachments": []interface{}{"Hat"}}}))

	err := assertFinalState(state, Assertion{State: "outfit", Expect: map[string]interface{}{"dirty": true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outfit.dirty = true")

	err = assertFinalState(state, Assertion{State: "outfit", Expect: map[string]interface{}{"colour": "red"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outfit.colour to exist")

	err = assertFinalState(state, Assertion{State: "run", Expect: map[string]interface{}{"phase": "finalized"}})
	require.Error(t, err)
}

func TestMatchValue(t *testing.T) {
	actual := ir.Object{
		"a": ir.Int(1),
		"b": ir.Object{"c": ir.String("x"), "d": ir.Bool(true)},
		"e": ir.Array{ir.Int(1), ir.Int(2)},
	}

	assert.True(t, matchValue(actual, ir.Object{}))
	assert.True(t, matchValue(actual, ir.Object{"a": ir.Int(1)}))
	assert.True(t, matchValue(actual, ir.Object{"b": ir.Object{"c": ir.String("x")}}))
	assert.True(t, matchValue(actual, ir.Object{"e": ir.Array{ir.Int(1), ir.Int(2)}}))

	assert.False(t, matchValue(actual, ir.Object{"a": ir.String("1")}))
	assert.False(t, matchValue(actual, ir.Object{"e": ir.Array{ir.Int(2), ir.Int(1)}}))
	assert.False(t, matchValue(actual, ir.Object{"z": ir.Int(0)}))
	assert.False(t, matchValue(ir.String("x"), ir.Object{"a": ir.Int(1)}))
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()
	result.State["outfit"] = ir.Object{"name": ir.String("Casual")}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Event: "worn"},
		{Type: AssertTraceCount, Event: "worn", Count: 2},
		{Type: AssertFinalState, State: "outfit", Expect: map[string]interface{}{"name": "Casual"}},
	})
	assert.Empty(t, errs)

	errs = EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceContains, Event: "attach"},
		{Type: "vibes"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[1], `unknown assertion type "vibes"`)
}

func TestAssertionError_ErrorFormat(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1 occurrences of worn",
		Actual:   "2 occurrences",
		Trace:    sampleTrace()[:2],
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: 1 occurrences of worn")
	assert.Contains(t, msg, "Actual: 2 occurrences")
	assert.Contains(t, msg, `[1] invocation wear {"outfit":"Casual"}`)
	assert.Contains(t, msg, `[2] notice ReplacedMissingWearable {"type":"Pants"}`)
}
