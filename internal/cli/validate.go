package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/wardrobe/internal/manifest"
)

// ValidationIssue is one manifest problem with its source position.
type ValidationIssue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Items   int               `json:"items"`
	Outfits int               `json:"outfits"`
	Wear    string            `json:"wear,omitempty"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest-dir>",
		Short: "Validate a wardrobe manifest",
		Long: `Compile a CUE wardrobe manifest without importing it.

Checks every file against the manifest schema and reports each problem
with its file and line: unknown wearable types, outfits naming
undeclared items, a worn outfit that does not exist, unusable folders.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	m, errs := loadManifest(dir)
	if len(errs) > 0 {
		if issue := issueOf(errs[0]); isStructural(issue.Code) {
			return outputValidateError(formatter, issue.Code, issue.Message)
		}
		issues := make([]ValidationIssue, len(errs))
		for i, err := range errs {
			issues[i] = issueOf(err)
		}
		return outputValidationErrors(formatter, issues)
	}

	formatter.VerboseLog("Compiled %d CUE file(s) in %s", m.FileCount, dir)
	result := ValidationResult{Valid: true, Items: len(m.Items), Outfits: len(m.Outfits), Wear: m.Wear}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Manifest valid (%d items, %d outfits)\n", result.Items, result.Outfits)
	return nil
}

// loadManifest compiles dir collecting every error.
func loadManifest(dir string) (*manifest.Manifest, []error) {
	return manifest.Load(dir, manifest.LoadModeCollectAll)
}

// isStructural reports whether code means the manifest could not be read
// at all, as opposed to being read and found invalid.
func isStructural(code string) bool {
	switch code {
	case manifest.ErrCodeNotFound, manifest.ErrCodeScanError, manifest.ErrCodeNoFiles:
		return true
	}
	return false
}

func issueOf(err error) ValidationIssue {
	var le *manifest.LoadError
	if !errors.As(err, &le) {
		return ValidationIssue{Code: manifest.ErrCodeGeneric, Message: err.Error()}
	}
	issue := ValidationIssue{Code: le.Code, Message: le.Message}
	if le.Pos.IsValid() {
		issue.File = le.Pos.Filename()
		issue.Line = le.Pos.Line()
		issue.Column = le.Pos.Column()
	}
	return issue
}

// outputValidateError reports a manifest that could not be read.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors reports every problem in an invalid manifest.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: issues},
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range issues {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", issue.File, issue.Line, issue.Column)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}
	return failure
}
