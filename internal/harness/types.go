package harness

import "github.com/roach88/wardrobe/internal/ir"

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
	EventSink       = "event"
	EventNotice     = "notice"
)

// TraceEvent is one entry of a scenario trace: a flow step being invoked or
// completing, an instruction the avatar received, or a user notice.
type TraceEvent struct {
	Type   string    `json:"type"`
	Name   string    `json:"name"`
	Args   ir.Object `json:"args,omitempty"`
	Result ir.Object `json:"result,omitempty"`
	Seq    int64     `json:"seq"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every event in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// State holds the final state snapshots by name.
	State map[string]ir.Object `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]ir.Object),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) add(typ, name string, args, result ir.Object, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: typ, Name: name, Args: args, Result: result, Seq: seq})
}
