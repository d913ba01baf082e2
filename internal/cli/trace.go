package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	After int64
	Kind  string
}

// TraceEntry is one appearance log event.
type TraceEntry struct {
	Seq  int64           `json:"seq"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// TraceResult holds the trace output.
type TraceResult struct {
	Events []TraceEntry `json:"events"`
	Stats  TraceStats   `json:"stats"`
}

// TraceStats counts events per kind.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByKind      map[string]int `json:"by_kind"`
	LastSeq     int64          `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the appearance event log",
		Long: `Show what the avatar was told to wear, attach and animate, and the
notices raised along the way, in the order it happened.

Examples:
  wardrobe trace
  wardrobe trace --kind worn
  wardrobe trace --after 120 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with a greater seq")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only events of this kind (worn, attachments, attach, gestures_activated, notice, ...)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputCommandError(formatter, err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return outputCommandError(formatter, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	events, err := st.ReadEvents(ctx, opts.After, opts.Kind)
	if err != nil {
		return outputCommandError(formatter, WrapExitError(ExitCommandError, "failed to read events", err))
	}

	result := TraceResult{
		Events: make([]TraceEntry, 0, len(events)),
		Stats:  TraceStats{ByKind: map[string]int{}},
	}
	for _, ev := range events {
		data, err := ir.MarshalCanonical(ev.Data)
		if err != nil {
			return outputCommandError(formatter, WrapExitError(ExitCommandError, fmt.Sprintf("event %d is not canonical", ev.Seq), err))
		}
		result.Events = append(result.Events, TraceEntry{Seq: ev.Seq, Kind: ev.Kind, Data: data})
		result.Stats.ByKind[ev.Kind]++
		result.Stats.LastSeq = ev.Seq
	}
	result.Stats.TotalEvents = len(result.Events)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if len(result.Events) == 0 {
		fmt.Fprintln(formatter.Writer, "No events found.")
		return nil
	}
	rows := make([]table.Row, len(result.Events))
	for i, ev := range result.Events {
		rows[i] = table.Row{ev.Seq, ev.Kind, string(ev.Data)}
	}
	formatter.Table(table.Row{"Seq", "Kind", "Data"}, rows)
	fmt.Fprintf(formatter.Writer, "\n%d event(s)\n", result.Stats.TotalEvents)
	return nil
}
