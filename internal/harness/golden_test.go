package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/ir"
)

func TestRunWithGolden_UpdateBare(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/update_bare.yaml")
	require.NoError(t, err)

	// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
	require.NoError(t, RunWithGolden(t, s))
}

func TestAssertGolden_FromResult(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/update_bare.yaml")
	require.NoError(t, err)
	result, err := Run(s)
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "update_bare", result))
}

func TestMarshalTrace_Canonical(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{Type: EventInvocation, Name: "wear", Args: ir.Object{"outfit": ir.String("Casual"), "append": ir.Bool(false)}, Seq: 1},
		{Type: EventNotice, Name: "CouldNotPutOnOutfit", Seq: 2},
		{Type: EventCompletion, Name: "wear", Result: ir.Object{"error": ir.String("EMPTY_RESOLUTION_SET")}, Seq: 3},
	}

	got, err := MarshalTrace("canon", result)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"canon","trace":[`+
		`{"args":{"append":false,"outfit":"Casual"},"name":"wear","seq":1,"type":"invocation"},`+
		`{"name":"CouldNotPutOnOutfit","seq":2,"type":"notice"},`+
		`{"name":"wear","result":{"error":"EMPTY_RESOLUTION_SET"},"seq":3,"type":"completion"}]}`, string(got))
}

func TestMarshalTrace_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/wear_casual.yaml")
	require.NoError(t, err)

	var outputs []string
	for i := 0; i < 3; i++ {
		result, err := Run(s)
		require.NoError(t, err)
		data, err := MarshalTrace(s.Name, result)
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}
