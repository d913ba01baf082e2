package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wardrobe/internal/manifest"
)

func TestValidateValidManifest(t *testing.T) {
	out, err := execute(t, "validate", basicManifest)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Manifest valid (10 items, 2 outfits)")
}

func TestValidateValidManifestJSON(t *testing.T) {
	out, err := execute(t, "validate", basicManifest, "--format", "json")
	require.NoError(t, err)

	var result ValidationResult
	decodeData(t, out, &result)
	assert.True(t, result.Valid)
	assert.Equal(t, 10, result.Items)
	assert.Equal(t, 2, result.Outfits)
	assert.Equal(t, "Bare", result.Wear)
	assert.Empty(t, result.Errors)
}

func TestValidateUnreadableManifest(t *testing.T) {
	tests := []struct {
		name string
		dir  string
		code string
	}{
		{"missing directory", filepath.Join(t.TempDir(), "absent"), manifest.ErrCodeNotFound},
		{"empty directory", t.TempDir(), manifest.ErrCodeNoFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "validate", tt.dir)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestValidateInvalidManifest(t *testing.T) {
	out, err := execute(t, "validate", brokenManifest)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "bad.cue:")
}

func TestValidateInvalidManifestJSON(t *testing.T) {
	out, err := execute(t, "validate", brokenManifest, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, resp.Data.Errors[0].Code, resp.Error.Code)
	for _, issue := range resp.Data.Errors {
		assert.False(t, isStructural(issue.Code), "unexpected structural code %s", issue.Code)
	}
}

func TestIssueOf(t *testing.T) {
	issue := issueOf(&manifest.LoadError{Code: manifest.ErrCodeUnknownWear, Message: `wear: unknown outfit "Gala"`})
	assert.Equal(t, manifest.ErrCodeUnknownWear, issue.Code)
	assert.Zero(t, issue.Line)

	issue = issueOf(assert.AnError)
	assert.Equal(t, manifest.ErrCodeGeneric, issue.Code)
	assert.Equal(t, assert.AnError.Error(), issue.Message)
}
