package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wardrobe/internal/inventory"
	"github.com/roach88/wardrobe/internal/ir"
	"github.com/roach88/wardrobe/internal/store"
)

// ImportResult summarises an import.
type ImportResult struct {
	Database string `json:"database"`
	Nodes    int    `json:"nodes"`
	Assets   int    `json:"assets"`
	Outfits  int    `json:"outfits"`
	Wearing  string `json:"wearing,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <manifest-dir>",
		Short: "Import a wardrobe manifest into the database",
		Long: `Compile a CUE wardrobe manifest and write its inventory and wearable
assets to the database.

The inventory in the database is replaced; assets are upserted and the
appearance event log is kept.

Examples:
  wardrobe import ./wardrobe
  wardrobe import ./wardrobe --db ./avatar.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runImport(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	cfg, err := loadConfig(opts)
	if err != nil {
		return outputCommandError(formatter, err)
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr(), opts.Verbose)

	m, errs := loadManifest(dir)
	if len(errs) > 0 {
		issues := make([]ValidationIssue, len(errs))
		for i, err := range errs {
			issues[i] = issueOf(err)
		}
		if isStructural(issues[0].Code) {
			return outputValidateError(formatter, issues[0].Code, issues[0].Message)
		}
		return outputValidationErrors(formatter, issues)
	}

	w, err := m.Build(ir.UUIDv7Generator{})
	if err != nil {
		return outputCommandError(formatter, WrapExitError(ExitFailure, "failed to build wardrobe", err))
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return outputCommandError(formatter, WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	inv := inventory.NewModel(inventory.WithLogger(logger))
	if err := w.Install(ctx, inv, st); err != nil {
		return outputCommandError(formatter, WrapExitError(ExitCommandError, "failed to install wardrobe", err))
	}
	if err := st.SaveInventory(ctx, inv.Nodes()); err != nil {
		return outputCommandError(formatter, WrapExitError(ExitCommandError, "failed to save inventory", err))
	}
	logger.Info("imported wardrobe", "dir", dir, "nodes", inv.Len(), "assets", len(w.Assets))

	result := ImportResult{
		Database: cfg.Database,
		Nodes:    inv.Len(),
		Assets:   len(w.Assets),
		Outfits:  len(w.Outfits),
		Wearing:  m.Wear,
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d nodes (%d wearables, %d outfits) into %s\n", result.Nodes, result.Assets, result.Outfits, result.Database)
	if result.Wearing != "" {
		fmt.Fprintf(formatter.Writer, "  Wearing: %s\n", result.Wearing)
	}
	return nil
}
