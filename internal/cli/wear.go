package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wardrobe/internal/appearance"
)

// AppearanceResult is what the appearance commands report once the manager
// has settled.
type AppearanceResult struct {
	Action      string        `json:"action"`
	Outfit      string        `json:"outfit"`
	Dirty       bool          `json:"dirty"`
	Worn        []string      `json:"worn"`
	Attachments []string      `json:"attachments"`
	Run         *RunSummary   `json:"run,omitempty"`
	Notices     []NoticeEntry `json:"notices,omitempty"`
}

// RunSummary describes the last resolution run.
type RunSummary struct {
	Phase     string   `json:"phase"`
	TimedOut  bool     `json:"timed_out"`
	Requested int      `json:"requested"`
	Resolved  int      `json:"resolved"`
	Recovered []string `json:"recovered,omitempty"`
	Issues    []string `json:"issues,omitempty"`
}

// NoticeEntry is a notice raised while the command ran.
type NoticeEntry struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args,omitempty"`
}

// WearOptions holds flags for the wear command.
type WearOptions struct {
	*RootOptions
	Append bool
}

// NewWearCommand creates the wear command.
func NewWearCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WearOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "wear <outfit>",
		Short: "Wear an outfit",
		Long: `Reconcile the Current Outfit folder against an outfit folder and wait
until every wearable is resolved.

Without --append the outfit replaces what is worn. With --append its
clothing is layered over the current outfit, within the configured
per-type clothing cap. Outfits not found in the inventory are looked up
in the library and copied in.

Examples:
  wardrobe wear Casual
  wardrobe wear "Rain Gear" --append`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppearance(cmd, rootOpts, "wear", func(ctx context.Context, s *session) error {
				outfit, ok := s.findOutfit(args[0])
				if !ok {
					if opts.Append {
						return NewExitError(ExitCommandError, fmt.Sprintf("outfit not found: %s", args[0]))
					}
					return s.do(ctx, func() error { return s.m.WearOutfitByName(args[0]) })
				}
				return s.do(ctx, func() error { return s.m.Reconcile(outfit.ID, opts.Append) })
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Append, "append", false, "add to the current outfit instead of replacing it")

	return cmd
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Replace bool
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <item>",
		Short: "Put on a single item",
		Long: `Link one item into the Current Outfit folder and update the appearance.

The item may be named or given by id. With --replace, clothing takes the
place of the outermost layer of its slot. Library items are copied into
the inventory before they are worn.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppearance(cmd, rootOpts, "add", func(ctx context.Context, s *session) error {
				item, err := s.findItem(args[0])
				if err != nil {
					return err
				}
				if opts.Replace || s.inv.IsDescendentOf(item.ID(), s.inv.LibraryRoot()) {
					return s.do(ctx, func() error { return s.m.WearItemOnAvatar(item.ID(), true, opts.Replace) })
				}
				return s.do(ctx, func() error {
					s.m.AddItemLink(item.ID(), true)
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace the outermost layer of the item's slot")

	return cmd
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <item>",
		Short:         "Take off a single item",
		Long:          `Remove every Current Outfit link to an item and update the appearance.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppearance(cmd, rootOpts, "remove", func(ctx context.Context, s *session) error {
				item, err := s.findItem(args[0])
				if err != nil {
					return err
				}
				return s.do(ctx, func() error {
					s.m.RemoveItemLinks(item.ID(), true)
					return nil
				})
			})
		},
	}
}

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	As string
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the current outfit",
		Long: `Overwrite the base outfit with the Current Outfit folder, or with --as
create a new outfit folder from it and make that the base outfit.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAppearance(cmd, rootOpts, "save", func(ctx context.Context, s *session) error {
				if opts.As != "" {
					return s.do(ctx, func() error {
						_, err := s.m.MakeNewOutfitLinks(opts.As)
						return err
					})
				}
				return s.do(ctx, s.m.UpdateBaseOutfit)
			})
		},
	}

	cmd.Flags().StringVar(&opts.As, "as", "", "save as a new outfit with this name")

	return cmd
}

// runAppearance opens a session, runs op, persists the inventory and
// reports the resulting appearance.
func runAppearance(cmd *cobra.Command, opts *RootOptions, action string, op func(context.Context, *session) error) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return outputCommandError(formatter, err)
	}

	opErr := appearanceExit(op(ctx, s))
	result := s.appearanceResult(action)
	if err := s.close(opErr == nil); err != nil && opErr == nil {
		opErr = WrapExitError(ExitCommandError, "failed to close database", err)
	}
	if opErr != nil {
		_ = formatter.Error(errorCodeOf(opErr), opErr.Error(), result.Notices)
		return opErr
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outputAppearanceText(formatter, result)
	return nil
}

func (s *session) appearanceResult(action string) AppearanceResult {
	result := AppearanceResult{
		Action:      action,
		Outfit:      s.m.BaseOutfitName(),
		Dirty:       s.m.IsOutfitDirty(),
		Worn:        []string{},
		Attachments: s.avatar.Attachments(),
	}
	for _, w := range s.avatar.Worn() {
		typ := "unknown"
		if w.Wearable != nil {
			typ = w.Wearable.Type.String()
		}
		result.Worn = append(result.Worn, typ+":"+w.Name)
	}
	if run := s.lastRun(); run != nil {
		sum := &RunSummary{
			Phase:     run.Phase().String(),
			TimedOut:  run.TimedOut(),
			Requested: run.Requested(),
			Resolved:  run.Resolved(),
		}
		for _, t := range run.Recovered() {
			sum.Recovered = append(sum.Recovered, t.String())
		}
		for _, issue := range run.Issues() {
			sum.Issues = append(sum.Issues, string(issue.Code))
		}
		result.Run = sum
	}
	for _, n := range s.notices {
		result.Notices = append(result.Notices, NoticeEntry{Name: n.Name, Args: n.Args})
	}
	return result
}

func outputAppearanceText(f *OutputFormatter, r AppearanceResult) {
	w := f.Writer
	outfit := r.Outfit
	if outfit == "" {
		outfit = "(no base outfit)"
	}
	state := "saved"
	if r.Dirty {
		state = "modified"
	}
	fmt.Fprintf(w, "✓ %s: %s [%s]\n", r.Action, outfit, state)
	if len(r.Worn) > 0 {
		fmt.Fprintf(w, "  Worn: %s\n", strings.Join(r.Worn, ", "))
	}
	if len(r.Attachments) > 0 {
		fmt.Fprintf(w, "  Attachments: %s\n", strings.Join(r.Attachments, ", "))
	}
	if r.Run != nil && len(r.Run.Recovered) > 0 {
		fmt.Fprintf(w, "  Recovered: %s\n", strings.Join(r.Run.Recovered, ", "))
	}
	for _, n := range r.Notices {
		fmt.Fprintf(w, "  ! %s%s\n", n.Name, formatNoticeArgs(n.Args))
	}
}

func formatNoticeArgs(args map[string]string) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%s", k, args[k])
	}
	return b.String()
}

// errorCodeOf returns the code shown for err: the appearance error code
// when there is one, E001 otherwise.
func errorCodeOf(err error) string {
	if code := appearance.CodeOf(err); code != "" {
		return string(code)
	}
	return "E001"
}

// outputCommandError reports a command error and returns it.
func outputCommandError(f *OutputFormatter, err error) error {
	_ = f.Error(errorCodeOf(err), err.Error(), nil)
	return err
}
