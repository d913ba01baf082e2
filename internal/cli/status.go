package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/wearable"
)

// StatusResult describes the Current Outfit folder.
type StatusResult struct {
	Outfit     string      `json:"outfit"`
	Dirty      bool        `json:"dirty"`
	COFDigest  string      `json:"cof_digest"`
	BaseDigest string      `json:"base_digest,omitempty"`
	Links      []LinkEntry `json:"links"`
}

// LinkEntry is one entry of a folder listing.
type LinkEntry struct {
	ID     string `json:"id"`
	Path   string `json:"path,omitempty"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Type   string `json:"type"`
	Slot   string `json:"slot,omitempty"`
	Order  string `json:"order,omitempty"`
	Target string `json:"target,omitempty"`
	Broken bool   `json:"broken,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current outfit",
		Long: `Show the base outfit, whether the Current Outfit folder has been changed
since it was last saved, and the links it holds.

The COF digest fingerprints the links in canonical order; it equals the
base digest exactly when the outfit is unchanged.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return outputCommandError(formatter, err)
	}
	result, err := s.status()
	if cerr := s.close(false); err == nil {
		err = cerr
	}
	if err != nil {
		return outputCommandError(formatter, WrapExitError(ExitCommandError, "failed to read status", err))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	outfit := result.Outfit
	if outfit == "" {
		outfit = "(none)"
	}
	state := "saved"
	if result.Dirty {
		state = "modified"
	}
	fmt.Fprintf(formatter.Writer, "Base outfit: %s [%s]\n", outfit, state)
	fmt.Fprintf(formatter.Writer, "COF digest:  %s\n\n", shortDigest(result.COFDigest))
	rows := make([]table.Row, len(result.Links))
	for i, l := range result.Links {
		name := l.Name
		if l.Broken {
			name += " (broken)"
		}
		rows[i] = table.Row{name, l.Type, l.Slot, l.Order}
	}
	formatter.Table(table.Row{"Name", "Type", "Slot", "Order"}, rows)
	return nil
}

func (s *session) status() (StatusResult, error) {
	cof := s.m.COF()
	result := StatusResult{
		Outfit: s.m.BaseOutfitName(),
		Dirty:  s.m.IsOutfitDirty(),
		Links:  []LinkEntry{},
	}
	digest, err := s.m.OutfitDigest(cof)
	if err != nil {
		return StatusResult{}, err
	}
	result.COFDigest = digest
	if base := s.m.BaseOutfitID(); base != ir.NilID {
		if result.BaseDigest, err = s.m.OutfitDigest(base); err != nil {
			return StatusResult{}, err
		}
	}

	baseLink, hasBase := s.m.BaseOutfitLink()
	_, links := s.inv.CollectDescendants(cof, inventory.IsLinkType, false)
	for _, it := range links {
		if hasBase && it.ID() == baseLink.ID() {
			continue
		}
		result.Links = append(result.Links, entryOf(it))
	}
	return result, nil
}

func entryOf(it inventory.Item) LinkEntry {
	e := LinkEntry{
		ID:     it.ID().String(),
		Name:   it.Name(),
		Kind:   it.Node.Kind.String(),
		Type:   it.Type().String(),
		Order:  it.Description(),
		Broken: it.IsBrokenLink(),
	}
	if wt := it.WearableType(); wt != wearable.Invalid {
		e.Slot = wt.String()
	}
	if it.IsLink() {
		e.Target = it.LinkedID().String()
	}
	return e
}

func shortDigest(d string) string {
	if len(d) > 16 {
		return d[:16]
	}
	return d
}

// NewLsCommand creates the ls command.
func NewLsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder]",
		Short: "List a folder's contents",
		Long: `List every folder and item beneath a folder, depth first.

The folder is named or given by id; it defaults to the inventory root.
The trash is left out unless it is listed directly.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}
			return runLs(rootOpts, folder, cmd)
		},
	}
}

func runLs(opts *RootOptions, folder string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return outputCommandError(formatter, err)
	}
	entries, err := s.list(folder)
	if cerr := s.close(false); err == nil && cerr != nil {
		err = WrapExitError(ExitCommandError, "failed to close database", cerr)
	}
	if err != nil {
		return outputCommandError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		rows[i] = table.Row{e.Path, e.Kind, e.Type, e.Slot}
	}
	formatter.Table(table.Row{"Path", "Kind", "Type", "Slot"}, rows)
	return nil
}

func (s *session) list(ref string) ([]LinkEntry, error) {
	folder := s.inv.Root()
	if ref != "" {
		cat, ok := s.findOutfit(ref)
		if !ok {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("folder not found: %s", ref))
		}
		folder = cat.ID
	}

	cats, items := s.inv.CollectDescendants(folder, inventory.All, false)
	entries := make([]LinkEntry, 0, len(cats)+len(items))
	for _, c := range cats {
		entries = append(entries, LinkEntry{
			ID:   c.ID.String(),
			Path: s.path(folder, c.ID),
			Name: c.Name,
			Kind: c.Kind.String(),
			Type: c.PreferredType.String(),
		})
	}
	for _, it := range items {
		e := entryOf(it)
		e.Path = s.path(folder, it.ID())
		entries = append(entries, e)
	}
	slices.SortStableFunc(entries, func(a, b LinkEntry) int { return strings.Compare(a.Path, b.Path) })
	return entries, nil
}

// path names id relative to folder.
func (s *session) path(folder, id ir.ID) string {
	var parts []string
	for id != folder && id != ir.NilID {
		n, ok := s.inv.Get(id)
		if !ok {
			break
		}
		parts = append(parts, n.Name)
		id = n.ParentID
	}
	slices.Reverse(parts)
	return strings.Join(parts, "/")
}
