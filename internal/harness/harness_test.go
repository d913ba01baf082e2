package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/ir"
)

const basicManifest = "testdata/manifests/basic"

func scenario(name string, flow []Step, assertions ...Assertion) *Scenario {
	if len(assertions) == 0 {
		assertions = []Assertion{{Type: AssertTraceCount, Event: "never", Count: 0}}
	}
	return &Scenario{
		Name:        name,
		Description: "test scenario",
		Manifest:    basicManifest,
		Flow:        flow,
		Assertions:  assertions,
	}
}

func TestRun_Scenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, path := range files {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_UpdateTrace(t *testing.T) {
	s := scenario("update", []Step{{Action: "update"}})

	result, err := Run(s)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	var names []string
	for _, ev := range result.Trace {
		names = append(names, ev.Type+":"+ev.Name)
	}
	assert.Equal(t, []string{
		"invocation:update",
		"event:worn",
		"event:attachments",
		"completion:update",
	}, names)

	worn := result.Trace[1].Args
	assert.Equal(t, ir.Bool(true), worn["replace"])
	assert.Equal(t, ir.Array{
		ir.String("shape:My Shape"),
		ir.String("skin:My Skin"),
		ir.String("hair:My Hair"),
		ir.String("eyes:My Eyes"),
	}, worn["wearables"])
	assert.Equal(t, ir.Object{"ok": ir.Bool(true)}, result.Trace[3].Result)
}

func TestRun_SeqIsMonotonic(t *testing.T) {
	s := scenario("seq", []Step{
		{Action: "wear", Args: map[string]interface{}{"outfit": "Casual"}},
		{Action: "wear_base"},
	})

	result, err := Run(s)
	require.NoError(t, err)

	var last int64
	for _, ev := range result.Trace {
		assert.Greater(t, ev.Seq, last, "%s %s", ev.Type, ev.Name)
		last = ev.Seq
	}
}

func TestRun_Deterministic(t *testing.T) {
	s := scenario("deterministic", []Step{
		{Action: "wear", Args: map[string]interface{}{"outfit": "Casual"}},
		{Action: "remove", Args: map[string]interface{}{"item": "hat"}},
	})

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.State, second.State)
}

func TestRun_ExpectedError(t *testing.T) {
	s := scenario("expected_error", []Step{
		{Action: "wear_by_name", Args: map[string]interface{}{"name": "Nope"}, Expect: &Expect{Error: "INVALID_ITEM"}},
	})

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	last := result.Trace[len(result.Trace)-1]
	assert.Equal(t, EventCompletion, last.Type)
	assert.Equal(t, ir.Object{"error": ir.String("INVALID_ITEM")}, last.Result)
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	s := scenario("unexpected_error", []Step{
		{Action: "wear_by_name", Args: map[string]interface{}{"name": "Nope"}},
	})

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_MissingExpectedError(t *testing.T) {
	s := scenario("missing_error", []Step{
		{Action: "update", Expect: &Expect{Error: "EMPTY_RESOLUTION_SET"}},
	})

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "got success")
}

func TestRun_EmptyCOFAfterRemovingEverything(t *testing.T) {
	s := scenario("empty", []Step{
		{Action: "remove_type", Args: map[string]interface{}{"type": "shape", "update": false}},
		{Action: "remove_type", Args: map[string]interface{}{"type": "skin", "update": false}},
		{Action: "remove_type", Args: map[string]interface{}{"type": "hair", "update": false}},
		{Action: "remove_type", Args: map[string]interface{}{"type": "eyes", "update": false}},
		{Action: "update", Expect: &Expect{Error: "EMPTY_RESOLUTION_SET"}},
	}, Assertion{Type: AssertTraceCount, Event: "CouldNotPutOnOutfit", Count: 1})

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectResult(t *testing.T) {
	s := scenario("expect_result", []Step{
		{Action: "move", Args: map[string]interface{}{"item": "tee"}, Expect: &Expect{Result: map[string]interface{}{"moved": false}}},
	})

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_WithheldAssetWaitsForRelease(t *testing.T) {
	s := scenario("withheld", []Step{
		{Action: "update"},
		{Action: "release", Args: map[string]interface{}{"item": "hair"}},
	}, Assertion{Type: AssertTraceOrder, Events: []string{"release", "worn"}})
	s.Withhold = []string{"hair"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, ir.Bool(false), result.State["run"]["timed_out"])
}

func TestRun_FailedAssetIsRecovered(t *testing.T) {
	s := scenario("failed", []Step{
		{Action: "update"},
		{Action: "fail", Args: map[string]interface{}{"item": "eyes"}, Expect: &Expect{Result: map[string]interface{}{"failed": 1}}},
	}, Assertion{
		Type:   AssertFinalState,
		State:  "run",
		Expect: map[string]interface{}{"recovered": []interface{}{"eyes"}},
	})
	s.Withhold = []string{"eyes"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_NotLoadedRefusesClothing(t *testing.T) {
	s := scenario("not_loaded", []Step{
		{Action: "wear_item", Args: map[string]interface{}{"item": "tee"}, Expect: &Expect{Error: "NOT_LOADED"}},
	}, Assertion{Type: AssertTraceCount, Event: "CanNotChangeAppearanceUntilLoaded", Count: 1})
	s.Options.NotLoaded = true

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_SaveAsThenWear(t *testing.T) {
	s := scenario("save_as", []Step{
		{Action: "save_as", Args: map[string]interface{}{"name": "Snapshot"}},
		{Action: "wear", Args: map[string]interface{}{"outfit": "Snapshot"}},
	}, Assertion{Type: AssertFinalState, State: "outfit", Expect: map[string]interface{}{"name": "Snapshot"}})

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadArgumentsAbort(t *testing.T) {
	tests := []struct {
		name string
		step Step
	}{
		{"unknown item", Step{Action: "add", Args: map[string]interface{}{"item": "cape"}}},
		{"unknown outfit", Step{Action: "wear", Args: map[string]interface{}{"outfit": "Formal"}}},
		{"missing arg", Step{Action: "wear_by_name"}},
		{"bad duration", Step{Action: "advance", Args: map[string]interface{}{"by": "soon"}}},
		{"bad type", Step{Action: "remove_type", Args: map[string]interface{}{"type": "cloak"}}},
		{"float arg", Step{Action: "update", Args: map[string]interface{}{"append": 1.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(scenario("bad", []Step{tt.step}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "flow[0]")
		})
	}
}

func TestRun_MissingManifest(t *testing.T) {
	s := scenario("missing", []Step{{Action: "update"}})
	s.Manifest = "testdata/manifests/absent"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load manifest")
}

func TestConvertArgsToIRObject(t *testing.T) {
	obj, err := convertArgsToIRObject(map[string]interface{}{
		"s":   "x",
		"i":   3,
		"f":   2.0,
		"b":   true,
		"arr": []interface{}{"a", 1},
		"obj": map[string]interface{}{"k": "v"},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.Object{
		"s":   ir.String("x"),
		"i":   ir.Int(3),
		"f":   ir.Int(2),
		"b":   ir.Bool(true),
		"arr": ir.Array{ir.String("a"), ir.Int(1)},
		"obj": ir.Object{"k": ir.String("v")},
	}, obj)

	_, err = convertArgsToIRObject(map[string]interface{}{"n": nil})
	assert.Error(t, err)

	empty, err := convertArgsToIRObject(nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Object{}, empty)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)

	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
