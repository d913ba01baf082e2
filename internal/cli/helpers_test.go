package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	basicManifest  = filepath.Join("..", "manifest", "testdata", "basic")
	brokenManifest = filepath.Join("..", "manifest", "testdata", "broken")
	scenariosDir   = filepath.Join("..", "harness", "testdata", "scenarios")
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// importWardrobe imports the basic manifest into a fresh database and
// returns its path.
func importWardrobe(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "wardrobe.db")
	_, err := execute(t, "import", basicManifest, "--db", db)
	require.NoError(t, err)
	return db
}

// decodeData checks for an "ok" JSON response and decodes its data into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}
