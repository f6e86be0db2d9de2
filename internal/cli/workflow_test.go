package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func decodeData(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data should be an object, got %T", resp.Data)
	return data
}

const testScript = `Mara walks the docks at dawn, collar turned up against the wind.

She finds the ledger in the harbor office and freezes.`

func TestPipelineEndToEnd(t *testing.T) {
	db := filepath.Join(t.TempDir(), "reelplan.db")

	out, _, err := executeCLI(t, "", "project", "create", "Harbor Lights", "--db", db, "--format", "json")
	require.NoError(t, err)
	projectID, ok := decodeData(t, out)["project_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, projectID)

	out, _, err = executeCLI(t, testScript, "script", "put", projectID, "-", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "version 1")

	out, _, err = executeCLI(t, "", "plan", "generate", projectID, "--genre", "noir", "--tone", "moody", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Plan generated: version 1")

	out, _, err = executeCLI(t, "", "plan", "patch", projectID,
		"--ops", `[{"path":"project_bible.tone","op":"replace","value":"wistful"}]`, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Plan patched: version 2")

	out, _, err = executeCLI(t, "", "plan", "show", projectID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `"tone": "wistful"`)

	out, _, err = executeCLI(t, "", "shots", "generate", projectID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Shot plan committed: version 1")

	out, _, err = executeCLI(t, "", "scope", "resolve", projectID, "--scope", "scene", "--scene", "SC001", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Shots: S001")

	out, _, err = executeCLI(t, "", "images", "generate", projectID, "--db", db, "--format", "json")
	require.NoError(t, err)
	refs := decodeData(t, out)
	assert.Contains(t, refs, "img_style")
	assert.Contains(t, refs, "img_shot_S001")
	assert.Contains(t, refs, "img_shot_S002")

	out, _, err = executeCLI(t, "", "images", "accept", projectID, "img_style", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Accepted img_style version 1")

	storyboardPath := filepath.Join(t.TempDir(), "storyboard.json")
	_, _, err = executeCLI(t, "", "export", "storyboard", projectID, "-o", storyboardPath, "--db", db)
	require.NoError(t, err)
	raw, err := os.ReadFile(storyboardPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"shot_plan"`)
	assert.Contains(t, string(raw), `"img_style"`)

	out, _, err = executeCLI(t, "", "export", "shots", projectID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "shot_id")
	assert.Contains(t, out, "S002")

	out, _, err = executeCLI(t, "", "versions", "list", projectID, "plan", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "*")

	out, _, err = executeCLI(t, "", "jobs", "list", projectID, "--db", db, "--format", "json")
	require.NoError(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	jobs, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(jobs), 3)
}

func TestUnknownProjectExitsWithCommandError(t *testing.T) {
	db := filepath.Join(t.TempDir(), "reelplan.db")

	_, errOut, err := executeCLI(t, "", "project", "show", "missing", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, errOut, "not_found")
}

func TestPatchRejectsDanglingReference(t *testing.T) {
	db := filepath.Join(t.TempDir(), "reelplan.db")

	out, _, err := executeCLI(t, "", "project", "create", "Dangling", "--db", db, "--format", "json")
	require.NoError(t, err)
	projectID := decodeData(t, out)["project_id"].(string)

	_, _, err = executeCLI(t, testScript, "script", "put", projectID, "-", "--db", db)
	require.NoError(t, err)
	_, _, err = executeCLI(t, "", "plan", "generate", projectID, "--db", db)
	require.NoError(t, err)

	// Point a scene at a character that was never defined.
	_, errOut, err := executeCLI(t, "", "plan", "patch", projectID,
		"--ops", `[{"path":"scenes[0].character_refs","op":"add","value":["CHAR_99"]}]`, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, errOut, "dangling_reference")

	// The failed patch must not have consumed a version.
	out, _, err = executeCLI(t, "", "versions", "list", projectID, "plan", "--db", db, "--format", "json")
	require.NoError(t, err)
	versions, ok := decodeData(t, out)["versions"].([]any)
	require.True(t, ok)
	assert.Len(t, versions, 1)
}
