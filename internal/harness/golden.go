package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/wardrobe/internal/ir"
)

// GoldenDir holds the golden traces of the scenarios in testdata.
const GoldenDir = "testdata/golden"

// MarshalTrace renders a result's trace as canonical JSON, the byte format
// golden files are compared in.
func MarshalTrace(scenarioName string, result *Result) ([]byte, error) {
	events := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		events[i] = ev.canonical()
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	})
}

// canonical drops empty args and result so they do not show as null.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{"type": e.Type, "name": e.Name, "seq": e.Seq}
	if e.Args != nil {
		m["args"] = e.Args
	}
	if e.Result != nil {
		m["result"] = e.Result
	}
	return m
}

// RunWithGolden runs scenario and compares its trace with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's trace with its golden file.
// A mismatch fails t; the returned error is for traces that cannot be
// rendered at all.
func AssertGolden(t *testing.T, scenarioName string, result *Result, opts ...goldie.Option) error {
	t.Helper()

	trace, err := MarshalTrace(scenarioName, result)
	if err != nil {
		return err
	}
	opts = append([]goldie.Option{
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	}, opts...)
	goldie.New(t, opts...).Assert(t, scenarioName, trace)
	return nil
}
